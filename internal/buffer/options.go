package buffer

import (
	"github.com/folioedit/folio/internal/event"
	"github.com/folioedit/folio/internal/log"
)

// Option configures a Store.
type Option func(*Store)

// WithMaxOpenTabs bounds how many unpinned buffers may be open at
// once. Values below one keep the default.
func WithMaxOpenTabs(n int) Option {
	return func(s *Store) {
		if n >= 1 {
			s.maxOpenTabs = n
		}
	}
}

// WithClosedHistorySize bounds the reopen-closed-tab history. Zero
// disables it.
func WithClosedHistorySize(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.history.max = n
		}
	}
}

// WithRecentFilesSize bounds the most-recently-used file list. Zero
// disables it.
func WithRecentFilesSize(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.recent.max = n
		}
	}
}

// WithRecentFiles seeds the most-recently-used file list, newest
// first. Apply after WithRecentFilesSize so the bound holds.
func WithRecentFiles(paths []string) Option {
	return func(s *Store) { s.recent.seed(paths) }
}

// WithWorkspace sets the workspace root recorded in session snapshots.
func WithWorkspace(root string) Option {
	return func(s *Store) { s.workspace = root }
}

// WithGate installs the language-support gate consulted when a real
// buffer opens.
func WithGate(g OpenEvaluator) Option {
	return func(s *Store) { s.gate = g }
}

// WithSessions installs the language-server notifier.
func WithSessions(n SessionNotifier) Option {
	return func(s *Store) { s.sessions = n }
}

// WithSnapshots installs the session-snapshot scheduler.
func WithSnapshots(sv SnapshotSaver) Option {
	return func(s *Store) { s.saver = sv }
}

// WithReadFile replaces the disk reader used by OpenPath,
// ReloadFromDisk, and ReopenLastClosed.
func WithReadFile(fn ReadFileFunc) Option {
	return func(s *Store) {
		if fn != nil {
			s.readFile = fn
		}
	}
}

// WithBus installs the event bus mutations are published on.
func WithBus(b *event.Bus) Option {
	return func(s *Store) { s.bus = b }
}

// WithLogger sets the store's logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.WithComponent("buffer")
		}
	}
}
