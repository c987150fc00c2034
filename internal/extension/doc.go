// Package extension maps files to language capability providers.
//
// A Registry holds descriptors (built-in plus YAML manifests) and
// resolves a file path to the first descriptor whose language
// contributions claim its extension, in registration order. The Gate
// runs the open-time decision: resolve, then either start a language
// server, ask the UI to offer installation, or do nothing. The
// Installer downloads, verifies, and places server packages under the
// extensions directory.
package extension
