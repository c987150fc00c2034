// Package events defines the typed payloads published on folio's
// event bus, grouped by subsystem.
package events

import "github.com/folioedit/folio/internal/event"

// Buffer event topics.
const (
	// TopicBufferOpened is published when a buffer is created.
	TopicBufferOpened event.Topic = "buffer.opened"

	// TopicBufferClosed is published when a buffer is removed.
	TopicBufferClosed event.Topic = "buffer.closed"

	// TopicBufferActivated is published when the active buffer changes.
	TopicBufferActivated event.Topic = "buffer.activated"

	// TopicBufferContentChanged is published when buffer content is
	// committed.
	TopicBufferContentChanged event.Topic = "buffer.content.changed"

	// TopicBufferTokensUpdated is published when a buffer's token
	// cache is replaced.
	TopicBufferTokensUpdated event.Topic = "buffer.tokens.updated"

	// TopicBufferDirtyChanged is published when dirty state changes.
	TopicBufferDirtyChanged event.Topic = "buffer.dirty.changed"

	// TopicBufferPinned is published when pin state changes.
	TopicBufferPinned event.Topic = "buffer.pinned"

	// TopicBufferRenamed is published when a buffer's path changes.
	TopicBufferRenamed event.Topic = "buffer.renamed"

	// TopicBufferReordered is published when the tab order changes.
	TopicBufferReordered event.Topic = "buffer.reordered"

	// TopicBufferReloaded is published when a buffer is reloaded from
	// disk.
	TopicBufferReloaded event.Topic = "buffer.reloaded"

	// TopicBufferExternalChange is published when the backing file of
	// a dirty buffer changes on disk and folio declines to reload it.
	TopicBufferExternalChange event.Topic = "buffer.external.modified"

	// TopicBufferPendingClose is published when a close is deferred
	// for confirmation because affected buffers are dirty.
	TopicBufferPendingClose event.Topic = "buffer.close.pending"

	// TopicBufferPendingCloseCleared is published when a pending close
	// is confirmed or cancelled.
	TopicBufferPendingCloseCleared event.Topic = "buffer.close.pending.cleared"
)

// BufferOpened is published when a buffer is created.
type BufferOpened struct {
	// BufferID is the unique identifier of the buffer.
	BufferID string

	// Path is the absolute file path; empty for virtual buffers.
	Path string

	// Name is the display name.
	Name string

	// Language is the resolved language id.
	Language string

	// Virtual is true when the buffer has no backing file.
	Virtual bool

	// Diff, Image, and SQLite describe the buffer's content kind.
	Diff   bool
	Image  bool
	SQLite bool

	// DiffFiles, DiffAdded, and DiffRemoved summarize the diff payload
	// for diff buffers (zero otherwise).
	DiffFiles   int
	DiffAdded   int
	DiffRemoved int
}

// Topic implements event.Event.
func (BufferOpened) Topic() event.Topic { return TopicBufferOpened }

// BufferClosed is published when a buffer is removed.
type BufferClosed struct {
	// BufferID is the unique identifier of the buffer.
	BufferID string

	// Path is the buffer's file path; empty for virtual buffers.
	Path string

	// Name is the display name.
	Name string

	// Evicted is true when the close was forced by the open-tab limit.
	Evicted bool
}

// Topic implements event.Event.
func (BufferClosed) Topic() event.Topic { return TopicBufferClosed }

// BufferActivated is published when the active buffer changes.
type BufferActivated struct {
	// BufferID is the newly active buffer, empty when none remain.
	BufferID string

	// PreviousID is the previously active buffer, empty when none.
	PreviousID string
}

// Topic implements event.Event.
func (BufferActivated) Topic() event.Topic { return TopicBufferActivated }

// BufferContentChanged is published when content is committed.
type BufferContentChanged struct {
	// BufferID is the unique identifier of the buffer.
	BufferID string

	// Revision is the buffer's content revision after the commit.
	Revision uint64

	// Dirty is the buffer's dirty flag after the commit.
	Dirty bool

	// Length is the new content length in bytes.
	Length int
}

// Topic implements event.Event.
func (BufferContentChanged) Topic() event.Topic { return TopicBufferContentChanged }

// BufferTokensUpdated is published when a token cache is replaced.
type BufferTokensUpdated struct {
	// BufferID is the unique identifier of the buffer.
	BufferID string

	// TokenCount is the number of spans in the new cache.
	TokenCount int
}

// Topic implements event.Event.
func (BufferTokensUpdated) Topic() event.Topic { return TopicBufferTokensUpdated }

// BufferDirtyChanged is published when dirty state changes.
type BufferDirtyChanged struct {
	// BufferID is the unique identifier of the buffer.
	BufferID string

	// Dirty is the new dirty state.
	Dirty bool
}

// Topic implements event.Event.
func (BufferDirtyChanged) Topic() event.Topic { return TopicBufferDirtyChanged }

// BufferPinned is published when pin state changes.
type BufferPinned struct {
	// BufferID is the unique identifier of the buffer.
	BufferID string

	// Pinned is the new pin state.
	Pinned bool
}

// Topic implements event.Event.
func (BufferPinned) Topic() event.Topic { return TopicBufferPinned }

// BufferRenamed is published when a buffer's path or name changes.
type BufferRenamed struct {
	// BufferID is the unique identifier of the buffer.
	BufferID string

	// OldPath is the path before the rename.
	OldPath string

	// Path is the path after the rename.
	Path string

	// Name is the new display name.
	Name string
}

// Topic implements event.Event.
func (BufferRenamed) Topic() event.Topic { return TopicBufferRenamed }

// BufferReordered is published when the tab order changes.
type BufferReordered struct {
	// From is the original index.
	From int

	// To is the new index.
	To int
}

// Topic implements event.Event.
func (BufferReordered) Topic() event.Topic { return TopicBufferReordered }

// BufferReloaded is published when a buffer is reloaded from disk.
type BufferReloaded struct {
	// BufferID is the unique identifier of the buffer.
	BufferID string

	// Path is the backing file that was re-read.
	Path string
}

// Topic implements event.Event.
func (BufferReloaded) Topic() event.Topic { return TopicBufferReloaded }

// BufferExternallyModified is published when a dirty buffer's backing
// file changes on disk.
type BufferExternallyModified struct {
	// BufferID is the unique identifier of the buffer.
	BufferID string

	// Path is the backing file that changed.
	Path string
}

// Topic implements event.Event.
func (BufferExternallyModified) Topic() event.Topic { return TopicBufferExternalChange }

// BufferPendingClose is published when a close operation is deferred
// because at least one affected buffer has unsaved changes.
type BufferPendingClose struct {
	// Kind is the close variant: single, others, all, or to-right.
	Kind string

	// BufferIDs are the buffers the close will affect when confirmed.
	BufferIDs []string
}

// Topic implements event.Event.
func (BufferPendingClose) Topic() event.Topic { return TopicBufferPendingClose }

// BufferPendingCloseCleared is published when the pending close is
// resolved.
type BufferPendingCloseCleared struct {
	// Confirmed is true when the close executed, false on cancel.
	Confirmed bool

	// Closed is the number of buffers closed by the confirmation.
	Closed int
}

// Topic implements event.Event.
func (BufferPendingCloseCleared) Topic() event.Topic { return TopicBufferPendingCloseCleared }
