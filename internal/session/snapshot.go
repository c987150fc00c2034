package session

import "time"

// BufferState is one persisted buffer in a workspace snapshot.
type BufferState struct {
	// Path is the absolute file path.
	Path string `json:"path"`

	// Name is the display name.
	Name string `json:"name"`

	// Pinned preserves the tab's pin across restarts.
	Pinned bool `json:"isPinned"`
}

// Snapshot is the restorable state of one workspace: its open
// file-backed buffers in tab order, which of them was active, and the
// most-recently-used file list.
type Snapshot struct {
	// Root is the workspace root the snapshot belongs to.
	Root string `json:"root"`

	// Buffers are the persisted buffers in tab order.
	Buffers []BufferState `json:"buffers"`

	// ActivePath is the path of the active buffer, empty when the
	// active buffer was not file-backed.
	ActivePath string `json:"activePath"`

	// RecentFiles is the most-recently-used file list, newest first.
	// Stored under its own key, separate from the snapshot body.
	RecentFiles []string `json:"recentFiles,omitempty"`

	// SavedAt records when the snapshot was written.
	SavedAt time.Time `json:"savedAt"`
}
