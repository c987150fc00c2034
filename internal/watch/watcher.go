// Package watch reloads open buffers when their backing files change
// on disk.
//
// The watcher follows the buffer store through bus events: opening a
// file-backed buffer adds a watch, closing removes it, renaming moves
// it. A write to a clean buffer's file reloads it in place; a write
// to a dirty buffer publishes BufferExternallyModified instead so the
// host can ask the user what to keep.
package watch

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/folioedit/folio/internal/buffer"
	"github.com/folioedit/folio/internal/event"
	"github.com/folioedit/folio/internal/event/events"
	"github.com/folioedit/folio/internal/log"
)

// BufferStore is the slice of the buffer store the watcher drives.
// *buffer.Store implements it.
type BufferStore interface {
	Get(id string) (buffer.Buffer, bool)
	ReloadFromDisk(id string)
}

// Watcher keeps fsnotify watches over the directories of open
// file-backed buffers.
type Watcher struct {
	store  BufferStore
	bus    *event.Bus
	logger *log.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	tracked map[string]string
	dirs    map[string]int
	subs    []*event.Subscription
	closed  bool

	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New creates a watcher over the given store and subscribes it to the
// bus's buffer lifecycle topics.
func New(store BufferStore, bus *event.Bus, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		store:   store,
		bus:     bus,
		logger:  log.Nop(),
		fsw:     fsw,
		tracked: make(map[string]string),
		dirs:    make(map[string]int),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if bus != nil {
		w.subs = append(w.subs,
			bus.Subscribe(events.TopicBufferOpened, w.onOpened),
			bus.Subscribe(events.TopicBufferClosed, w.onClosed),
			bus.Subscribe(events.TopicBufferRenamed, w.onRenamed),
		)
	}

	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Track adds a buffer's backing file to the watch set. The parent
// directory is watched rather than the file itself, so saves that
// replace the file keep reporting.
func (w *Watcher) Track(path, bufferID string) {
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if _, ok := w.tracked[path]; ok {
		w.tracked[path] = bufferID
		return
	}
	w.tracked[path] = bufferID
	w.dirs[dir]++
	if w.dirs[dir] == 1 {
		if err := w.fsw.Add(dir); err != nil {
			w.logger.Warn("watch %s failed: %v", dir, err)
		}
	}
}

// Untrack removes a file from the watch set, dropping the directory
// watch when it was the last tracked file there.
func (w *Watcher) Untrack(path string) {
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if _, ok := w.tracked[path]; !ok {
		return
	}
	delete(w.tracked, path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if err := w.fsw.Remove(dir); err != nil {
			w.logger.Debug("unwatch %s failed: %v", dir, err)
		}
	}
}

// Tracked returns the watched file paths.
func (w *Watcher) Tracked() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, 0, len(w.tracked))
	for p := range w.tracked {
		paths = append(paths, p)
	}
	return paths
}

// Close stops watching, detaches from the bus, and waits for the
// event loop to finish.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	subs := w.subs
	w.subs = nil
	w.mu.Unlock()

	if w.bus != nil {
		for _, sub := range subs {
			w.bus.Unsubscribe(sub)
		}
	}

	close(w.closeCh)
	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) onOpened(ev event.Event) {
	op, ok := ev.(events.BufferOpened)
	if !ok {
		return
	}
	if op.Virtual || op.Diff || op.Image || op.SQLite || op.Path == "" {
		return
	}
	w.Track(op.Path, op.BufferID)
}

func (w *Watcher) onClosed(ev event.Event) {
	cl, ok := ev.(events.BufferClosed)
	if !ok || cl.Path == "" {
		return
	}
	w.Untrack(cl.Path)
}

func (w *Watcher) onRenamed(ev event.Event) {
	rn, ok := ev.(events.BufferRenamed)
	if !ok {
		return
	}
	w.Untrack(rn.OldPath)
	w.Track(rn.Path, rn.BufferID)
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return
		case fsEvent, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error: %v", err)
		}
	}
}

// handleFSEvent reacts to writes against tracked files. Reloading an
// unchanged file is a store-level no-op, which absorbs the
// write-then-create bursts editors produce when saving.
func (w *Watcher) handleFSEvent(fsEvent fsnotify.Event) {
	if !fsEvent.Op.Has(fsnotify.Write) && !fsEvent.Op.Has(fsnotify.Create) {
		return
	}

	w.mu.Lock()
	id, ok := w.tracked[fsEvent.Name]
	w.mu.Unlock()
	if !ok {
		return
	}

	b, ok := w.store.Get(id)
	if !ok {
		w.Untrack(fsEvent.Name)
		return
	}
	if b.Dirty {
		w.publish(events.BufferExternallyModified{BufferID: id, Path: fsEvent.Name})
		return
	}
	w.store.ReloadFromDisk(id)
}

func (w *Watcher) publish(ev event.Event) {
	if w.bus != nil {
		w.bus.Publish(ev)
	}
}
