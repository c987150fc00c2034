package buffer

// ClosedEntry records one force-closed file-backed buffer so it can be
// reopened.
type ClosedEntry struct {
	// Path is the absolute file path.
	Path string

	// Name is the display name the buffer had.
	Name string

	// Pinned is restored when the buffer is reopened.
	Pinned bool
}

// closedHistory is a bounded newest-first list of closed buffers.
type closedHistory struct {
	entries []ClosedEntry
	max     int
}

// push prepends an entry, dropping the oldest past the bound. A bound
// of zero disables the history.
func (h *closedHistory) push(e ClosedEntry) {
	if h.max <= 0 {
		return
	}
	h.entries = append([]ClosedEntry{e}, h.entries...)
	if len(h.entries) > h.max {
		h.entries = h.entries[:h.max]
	}
}

// peek returns the newest entry without removing it.
func (h *closedHistory) peek() (ClosedEntry, bool) {
	if len(h.entries) == 0 {
		return ClosedEntry{}, false
	}
	return h.entries[0], true
}

// pop removes and returns the newest entry.
func (h *closedHistory) pop() (ClosedEntry, bool) {
	e, ok := h.peek()
	if ok {
		h.entries = h.entries[1:]
	}
	return e, ok
}

// list returns a copy of the entries, newest first.
func (h *closedHistory) list() []ClosedEntry {
	out := make([]ClosedEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
