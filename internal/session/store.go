// Package session persists workspace state across runs: which buffers
// were open, which was active, and the recent-files list. Snapshots
// live in an embedded BadgerDB keyed by workspace root and are written
// through a debounced latest-wins scheduler, so a burst of structural
// buffer changes settles into a single write.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/folioedit/folio/internal/log"
)

// ErrClosed is returned when writing to a closed store.
var ErrClosed = errors.New("session store is closed")

const (
	sessionPrefix = "session/"
	recentPrefix  = "recent/"

	defaultDebounce   = 300 * time.Millisecond
	defaultGCInterval = 5 * time.Minute
	gcDiscardRatio    = 0.5
)

// Config controls how the store opens its database.
type Config struct {
	// Dir is the directory for the database files. Required unless
	// InMemory is set.
	Dir string

	// InMemory keeps all data in memory. For tests.
	InMemory bool

	// Debounce is how long Schedule waits for further snapshots of the
	// same root before writing. Zero means the default.
	Debounce time.Duration

	// GCInterval is how often value-log garbage collection runs. Zero
	// means the default. Ignored for in-memory stores.
	GCInterval time.Duration

	// Logger receives store and database diagnostics.
	Logger *log.Logger
}

// Store persists workspace snapshots.
type Store struct {
	db     *badger.DB
	logger *log.Logger

	mu       sync.Mutex
	latest   map[string]Snapshot
	pending  map[string]*time.Timer
	debounce time.Duration
	closed   bool

	done chan struct{}
	gcWG sync.WaitGroup
}

// Open opens the session database described by cfg, creating it if
// needed.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent("session")

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, errors.New("session: dir is required for a persistent store")
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithLogger(badgerLogger{logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	s := &Store{
		db:       db,
		logger:   logger,
		latest:   make(map[string]Snapshot),
		pending:  make(map[string]*time.Timer),
		debounce: debounce,
		done:     make(chan struct{}),
	}

	if !cfg.InMemory {
		interval := cfg.GCInterval
		if interval <= 0 {
			interval = defaultGCInterval
		}
		s.gcWG.Add(1)
		go s.runGC(interval)
	}

	return s, nil
}

// Schedule queues a snapshot write. Rapid schedules for the same root
// collapse into one write of the newest snapshot. Never blocks on the
// database.
func (s *Store) Schedule(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.latest[snap.Root] = snap
	if t, ok := s.pending[snap.Root]; ok {
		t.Stop()
	}
	root := snap.Root
	s.pending[root] = time.AfterFunc(s.debounce, func() { s.flushRoot(root) })
}

// Save writes a snapshot immediately, bypassing the debounce.
func (s *Store) Save(snap Snapshot) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return s.save(snap)
}

// Load reads the snapshot for a workspace root. ok is false when none
// has been saved for it.
func (s *Store) Load(root string) (Snapshot, bool, error) {
	var snap Snapshot
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionPrefix + root))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &snap) }); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		found = true

		item, err = txn.Get([]byte(recentPrefix + root))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &snap.RecentFiles) })
	})
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load snapshot for %s: %w", root, err)
	}
	return snap, found, nil
}

// Flush writes every scheduled snapshot now and cancels their timers.
func (s *Store) Flush() {
	s.mu.Lock()
	snaps := s.drainLocked()
	s.mu.Unlock()

	for _, snap := range snaps {
		if err := s.save(snap); err != nil {
			s.logger.Warn("snapshot write failed for %s: %v", snap.Root, err)
		}
	}
}

// Close flushes pending snapshots, stops garbage collection, and
// closes the database. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	snaps := s.drainLocked()
	s.mu.Unlock()

	for _, snap := range snaps {
		if err := s.save(snap); err != nil {
			s.logger.Warn("final snapshot write failed for %s: %v", snap.Root, err)
		}
	}

	close(s.done)
	s.gcWG.Wait()
	return s.db.Close()
}

// drainLocked stops all pending timers and returns their snapshots.
func (s *Store) drainLocked() []Snapshot {
	for root, t := range s.pending {
		t.Stop()
		delete(s.pending, root)
	}

	var snaps []Snapshot
	for _, snap := range s.latest {
		snaps = append(snaps, snap)
	}
	s.latest = make(map[string]Snapshot)
	return snaps
}

func (s *Store) flushRoot(root string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	snap, ok := s.latest[root]
	delete(s.latest, root)
	delete(s.pending, root)
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := s.save(snap); err != nil {
		s.logger.Warn("snapshot write failed for %s: %v", snap.Root, err)
	}
}

// save writes the snapshot body and the recent-files list under their
// own keys in one transaction.
func (s *Store) save(snap Snapshot) error {
	snap.SavedAt = time.Now().UTC()

	recent, err := json.Marshal(snap.RecentFiles)
	if err != nil {
		return fmt.Errorf("encode recent files: %w", err)
	}
	snap.RecentFiles = nil
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(sessionPrefix+snap.Root), body); err != nil {
			return err
		}
		return txn.Set([]byte(recentPrefix+snap.Root), recent)
	})
	if err != nil {
		return fmt.Errorf("write snapshot for %s: %w", snap.Root, err)
	}
	return nil
}

func (s *Store) runGC(interval time.Duration) {
	defer s.gcWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(gcDiscardRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Debug("value log GC: %v", err)
			}
		}
	}
}

// badgerLogger adapts the internal logger to badger's Logger
// interface. Badger's info output is chatty, so it lands at debug.
type badgerLogger struct {
	logger *log.Logger
}

func (l badgerLogger) Errorf(format string, args ...any)   { l.logger.Error(badgerMsg(format, args)) }
func (l badgerLogger) Warningf(format string, args ...any) { l.logger.Warn(badgerMsg(format, args)) }
func (l badgerLogger) Infof(format string, args ...any)    { l.logger.Debug(badgerMsg(format, args)) }
func (l badgerLogger) Debugf(format string, args ...any)   { l.logger.Debug(badgerMsg(format, args)) }

func badgerMsg(format string, args []any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
