// Package input coordinates host keystrokes with the buffer store
// and the tokenizer.
//
// The core does not own raw keystroke buffering. The host widget is
// the source of truth for in-progress composition and delivers
// committed Deltas; the coordinator commits them to the store,
// tracks a cursor offset per buffer id, and requests re-tokenization
// when content actually changed or when focus moved to a different
// buffer. Those two triggers are disjoint: an edit never fires the
// switch path and a switch never fires the edit path.
package input
