// Package key defines the typed keyboard events the host widget
// delivers to the input coordinator.
//
// Hosts translate their native key representation into Event values
// at the boundary; nothing below the boundary sees raw terminal or
// GUI toolkit keycodes.
package key
