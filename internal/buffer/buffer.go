package buffer

import "github.com/folioedit/folio/internal/syntax"

// Buffer is one open document view. The Store hands out copies;
// mutation goes through Store methods only.
type Buffer struct {
	// ID is unique per buffer instance and never reused across
	// open/close cycles.
	ID string

	// Path is the absolute file path, empty for virtual buffers.
	Path string

	// Name is the display name: the file's base name, a caller-chosen
	// title, or untitled-N for unnamed virtual buffers.
	Name string

	// Content is the full committed text.
	Content string

	// Language is the language id derived once at open time.
	Language string

	// DiffData is the raw unified diff backing a diff buffer.
	DiffData string

	// Tokens is the most recent styled-span run for Content. Spans are
	// half-open byte ranges ordered by start. May lag Content by one
	// tokenization round; callers must not modify it.
	Tokens []syntax.Token

	// Revision increments on every committed content change.
	Revision uint64

	// Dirty means Content differs from the on-disk state. Never set
	// for virtual buffers.
	Dirty bool

	// Virtual means the buffer has no backing file.
	Virtual bool

	// Pinned exempts the buffer from tab eviction and bulk closes.
	Pinned bool

	// Image, SQLite, and Diff mark special content kinds that opt the
	// buffer out of language tooling.
	Image  bool
	SQLite bool
	Diff   bool

	// Active marks the single focused buffer.
	Active bool
}

// Real reports whether the buffer is an ordinary file view: backed by
// a file and none of the special content kinds. Only real buffers take
// part in language support, recent-files tracking, close history, and
// session snapshots.
func (b *Buffer) Real() bool {
	return !b.Virtual && !b.Diff && !b.Image && !b.SQLite
}

// OpenRequest describes a buffer to open.
type OpenRequest struct {
	// Path is the absolute file path. Empty for virtual buffers.
	Path string

	// Name overrides the display name. Empty derives it from Path, or
	// an untitled-N name when there is no path.
	Name string

	// Content is the initial text.
	Content string

	// Pinned opens the buffer pinned. Pinned buffers do not count
	// toward the open-tab limit and never trigger eviction.
	Pinned bool

	// Virtual marks a buffer with no backing file.
	Virtual bool

	// Diff, Image, and SQLite mark special content kinds.
	Diff   bool
	Image  bool
	SQLite bool

	// DiffData is the raw unified diff for diff buffers.
	DiffData string
}
