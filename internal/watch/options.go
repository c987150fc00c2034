package watch

import "github.com/folioedit/folio/internal/log"

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher's logger.
func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l.WithComponent("watch")
		}
	}
}
