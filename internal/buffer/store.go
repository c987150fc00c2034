package buffer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/folioedit/folio/internal/event"
	"github.com/folioedit/folio/internal/event/events"
	"github.com/folioedit/folio/internal/extension"
	"github.com/folioedit/folio/internal/lang"
	"github.com/folioedit/folio/internal/log"
	"github.com/folioedit/folio/internal/session"
	"github.com/folioedit/folio/internal/syntax"
)

const (
	defaultMaxOpenTabs       = 10
	defaultClosedHistorySize = 10
	defaultRecentFilesSize   = 50
)

// OpenEvaluator decides language support when a real buffer opens.
// *extension.Gate implements it.
type OpenEvaluator interface {
	EvaluateOpen(ctx context.Context, path string) extension.Decision
}

// SessionNotifier receives document lifecycle hints for language
// servers. *lsp.Manager implements it.
type SessionNotifier interface {
	NotifyOpen(path, languageID, content string)
	NotifyChange(path, content string)
	StopForFile(path string)
}

// SnapshotSaver receives fire-and-forget session snapshots after
// structural mutations. *session.Store implements it.
type SnapshotSaver interface {
	Schedule(snap session.Snapshot)
}

// ReadFileFunc reads a file's full text from disk.
type ReadFileFunc func(path string) (string, error)

// Store owns the ordered collection of open buffers.
type Store struct {
	mu         sync.RWMutex
	buffers    []*Buffer
	activeID   string
	pending    *PendingClose
	history    closedHistory
	recent     recentList
	scratchSeq int

	maxOpenTabs int
	workspace   string

	gate     OpenEvaluator
	sessions SessionNotifier
	saver    SnapshotSaver
	readFile ReadFileFunc
	bus      *event.Bus
	logger   *log.Logger
}

// NewStore creates a buffer store. Collaborators arrive through
// options; absent ones simply disable their side effects.
func NewStore(opts ...Option) *Store {
	s := &Store{
		maxOpenTabs: defaultMaxOpenTabs,
		history:     closedHistory{max: defaultClosedHistorySize},
		recent:      recentList{max: defaultRecentFilesSize},
		readFile: func(path string) (string, error) {
			data, err := os.ReadFile(path)
			return string(data), err
		},
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// effects collects work that must run after the store lock is
// released: event publishes, snapshot scheduling, and language
// tooling calls.
type effects struct {
	events  []event.Event
	snap    *session.Snapshot
	untrack []string
	open    *openEffect
	change  *changeEffect
}

type openEffect struct {
	path     string
	language string
	content  string
}

type changeEffect struct {
	path    string
	content string
}

func (s *Store) apply(fx *effects) {
	if s.bus != nil {
		for _, ev := range fx.events {
			s.bus.Publish(ev)
		}
	}
	if fx.snap != nil && s.saver != nil {
		s.saver.Schedule(*fx.snap)
	}
	if s.sessions != nil {
		for _, path := range fx.untrack {
			go s.sessions.StopForFile(path)
		}
		if fx.change != nil {
			s.sessions.NotifyChange(fx.change.path, fx.change.content)
		}
	}
	if fx.open != nil && s.gate != nil {
		eff := *fx.open
		go s.startLanguageSupport(eff)
	}
}

// startLanguageSupport runs the open-gate decision for a newly opened
// real buffer and, when its server started, syncs the document.
func (s *Store) startLanguageSupport(eff openEffect) {
	if s.gate.EvaluateOpen(context.Background(), eff.path) != extension.DecisionStart {
		return
	}
	if s.sessions != nil {
		s.sessions.NotifyOpen(eff.path, eff.language, eff.content)
	}
}

// Open opens a buffer, or focuses the existing one when a non-virtual
// buffer with the same path is already open. Returns the buffer id.
// Recent-files registration and the language-support decision run
// without blocking the return.
func (s *Store) Open(req OpenRequest) string {
	var stat syntax.DiffStat
	if req.Diff && req.DiffData != "" {
		st, err := syntax.Stat(req.DiffData)
		if err != nil {
			s.logger.Debug("diff stat for %s failed: %v", req.Name, err)
		} else {
			stat = st
		}
	}

	fx := &effects{}

	s.mu.Lock()
	if req.Path != "" && !req.Virtual {
		if b := s.byPathLocked(req.Path); b != nil {
			id := b.ID
			s.activateLocked(id, fx)
			s.mu.Unlock()
			s.apply(fx)
			return id
		}
	}

	if !req.Pinned && s.unpinnedLocked() >= s.maxOpenTabs {
		for i, b := range s.buffers {
			if !b.Pinned {
				s.removeLocked(i, true, fx)
				break
			}
		}
	}

	b := &Buffer{
		ID:       uuid.NewString(),
		Path:     req.Path,
		Name:     req.Name,
		Content:  req.Content,
		DiffData: req.DiffData,
		Pinned:   req.Pinned,
		Virtual:  req.Virtual,
		Diff:     req.Diff,
		Image:    req.Image,
		SQLite:   req.SQLite,
	}
	if b.Name == "" {
		if b.Path != "" {
			b.Name = filepath.Base(b.Path)
		} else {
			s.scratchSeq++
			b.Name = "untitled-" + strconv.Itoa(s.scratchSeq)
		}
	}
	switch {
	case b.Diff:
		b.Language = "diff"
	case b.Path != "":
		b.Language = lang.FromFilename(b.Path)
	default:
		b.Language = lang.FromFilename(b.Name)
	}

	s.buffers = append(s.buffers, b)
	fx.events = append(fx.events, events.BufferOpened{
		BufferID:    b.ID,
		Path:        b.Path,
		Name:        b.Name,
		Language:    b.Language,
		Virtual:     b.Virtual,
		Diff:        b.Diff,
		Image:       b.Image,
		SQLite:      b.SQLite,
		DiffFiles:   stat.Files,
		DiffAdded:   stat.Added,
		DiffRemoved: stat.Removed,
	})
	s.activateLocked(b.ID, fx)

	if b.Real() && b.Path != "" {
		s.recent.touch(b.Path)
		fx.open = &openEffect{path: b.Path, language: b.Language, content: b.Content}
	}
	fx.snap = s.snapshotLocked()
	id := b.ID
	s.mu.Unlock()

	s.apply(fx)
	return id
}

// OpenPath reads a file from disk and opens it, focusing the existing
// buffer when the file is already open.
func (s *Store) OpenPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	id := ""
	if b := s.byPathLocked(abs); b != nil {
		id = b.ID
	}
	s.mu.RUnlock()
	if id != "" {
		s.SetActive(id)
		return id, nil
	}

	content, err := s.readFile(abs)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", abs, err)
	}
	return s.Open(OpenRequest{Path: abs, Content: content}), nil
}

// OpenScratch opens a new empty virtual buffer with an untitled-N
// name.
func (s *Store) OpenScratch() string {
	return s.Open(OpenRequest{Virtual: true})
}

// Close closes a buffer, deferring to a pending-close confirmation
// when it has unsaved changes. Unknown ids are ignored.
func (s *Store) Close(id string) {
	fx := &effects{}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	if s.buffers[idx].Dirty {
		s.setPendingLocked(&PendingClose{Kind: CloseKindSingle, BufferIDs: []string{id}}, fx)
		s.mu.Unlock()
		s.apply(fx)
		return
	}
	s.closeForceLocked(idx, fx)
	fx.snap = s.snapshotLocked()
	s.mu.Unlock()

	s.apply(fx)
}

// CloseForce closes a buffer unconditionally, discarding unsaved
// changes. Unknown ids are ignored.
func (s *Store) CloseForce(id string) {
	fx := &effects{}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.closeForceLocked(idx, fx)
	fx.snap = s.snapshotLocked()
	s.mu.Unlock()

	s.apply(fx)
}

// CloseBatch force-closes several buffers at once. When the active
// buffer is among them, focus falls to the first remaining buffer.
// skipSessionSave suppresses the snapshot, for callers about to
// replace the session wholesale.
func (s *Store) CloseBatch(ids []string, skipSessionSave bool) {
	fx := &effects{}

	s.mu.Lock()
	closed := s.closeBatchLocked(ids, fx)
	if closed > 0 && !skipSessionSave {
		fx.snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	s.apply(fx)
}

// CloseOthers closes every unpinned buffer except id, deferring for
// confirmation when any of them is dirty.
func (s *Store) CloseOthers(id string) { s.bulkClose(CloseKindOthers, id) }

// CloseAll closes every unpinned buffer, deferring for confirmation
// when any of them is dirty.
func (s *Store) CloseAll() { s.bulkClose(CloseKindAll, "") }

// CloseToRight closes every unpinned buffer after id in tab order,
// deferring for confirmation when any of them is dirty.
func (s *Store) CloseToRight(id string) { s.bulkClose(CloseKindToRight, id) }

func (s *Store) bulkClose(kind CloseKind, anchor string) {
	fx := &effects{}

	s.mu.Lock()
	victims := s.victimsLocked(kind, anchor)
	if len(victims) == 0 {
		s.mu.Unlock()
		return
	}
	dirty := false
	for _, id := range victims {
		if b := s.bufferLocked(id); b != nil && b.Dirty {
			dirty = true
			break
		}
	}
	if dirty {
		s.setPendingLocked(&PendingClose{Kind: kind, BufferIDs: victims}, fx)
		s.mu.Unlock()
		s.apply(fx)
		return
	}
	s.closeBatchLocked(victims, fx)
	fx.snap = s.snapshotLocked()
	s.mu.Unlock()

	s.apply(fx)
}

// ConfirmPendingClose executes the deferred close and reports how
// many buffers it removed. Buffers pinned since the request are
// spared for bulk kinds; a deferred single close proceeds regardless
// of pin.
func (s *Store) ConfirmPendingClose() int {
	fx := &effects{}

	s.mu.Lock()
	p := s.pending
	s.pending = nil
	if p == nil {
		s.mu.Unlock()
		return 0
	}

	closed := 0
	if p.Kind == CloseKindSingle {
		for _, id := range p.BufferIDs {
			if idx := s.indexLocked(id); idx >= 0 {
				s.closeForceLocked(idx, fx)
				closed++
			}
		}
	} else {
		var ids []string
		for _, id := range p.BufferIDs {
			if b := s.bufferLocked(id); b != nil && !b.Pinned {
				ids = append(ids, id)
			}
		}
		closed = s.closeBatchLocked(ids, fx)
	}

	fx.events = append(fx.events, events.BufferPendingCloseCleared{Confirmed: true, Closed: closed})
	if closed > 0 {
		fx.snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	s.apply(fx)
	return closed
}

// CancelPendingClose discards the deferred close with no side effect.
func (s *Store) CancelPendingClose() {
	fx := &effects{}

	s.mu.Lock()
	if s.pending == nil {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	fx.events = append(fx.events, events.BufferPendingCloseCleared{Confirmed: false})
	s.mu.Unlock()

	s.apply(fx)
}

// UpdateContent commits new content for a buffer and reports whether
// anything changed. Identical content with no diff payload is a
// no-op. markDirty marks the buffer dirty unless it is virtual; false
// leaves the dirty flag alone. Tokens are not touched; refreshing
// them is the caller's concern.
func (s *Store) UpdateContent(id, content string, markDirty bool, diffData string) bool {
	fx := &effects{}

	s.mu.Lock()
	b := s.bufferLocked(id)
	if b == nil {
		s.mu.Unlock()
		return false
	}
	if b.Content == content && diffData == "" {
		s.mu.Unlock()
		return false
	}

	b.Content = content
	if diffData != "" {
		b.DiffData = diffData
	}
	b.Revision++
	if markDirty && !b.Virtual && !b.Dirty {
		b.Dirty = true
		fx.events = append(fx.events, events.BufferDirtyChanged{BufferID: id, Dirty: true})
	}
	fx.events = append(fx.events, events.BufferContentChanged{
		BufferID: id,
		Revision: b.Revision,
		Dirty:    b.Dirty,
		Length:   len(content),
	})
	if b.Real() && b.Path != "" {
		fx.change = &changeEffect{path: b.Path, content: content}
	}
	s.mu.Unlock()

	s.apply(fx)
	return true
}

// UpdateTokens replaces a buffer's token cache. There is no
// validation against content; results for ids no longer open are
// dropped.
func (s *Store) UpdateTokens(id string, tokens []syntax.Token) {
	fx := &effects{}

	s.mu.Lock()
	b := s.bufferLocked(id)
	if b == nil {
		s.mu.Unlock()
		return
	}
	b.Tokens = tokens
	fx.events = append(fx.events, events.BufferTokensUpdated{BufferID: id, TokenCount: len(tokens)})
	s.mu.Unlock()

	s.apply(fx)
}

// MarkDirty sets a buffer's dirty flag. Virtual buffers are never
// dirty.
func (s *Store) MarkDirty(id string, dirty bool) {
	fx := &effects{}

	s.mu.Lock()
	b := s.bufferLocked(id)
	if b == nil {
		s.mu.Unlock()
		return
	}
	dirty = dirty && !b.Virtual
	if b.Dirty != dirty {
		b.Dirty = dirty
		fx.events = append(fx.events, events.BufferDirtyChanged{BufferID: id, Dirty: dirty})
	}
	s.mu.Unlock()

	s.apply(fx)
}

// SetPinned pins or unpins a buffer. Pinned buffers are exempt from
// eviction and bulk closes.
func (s *Store) SetPinned(id string, pinned bool) {
	fx := &effects{}

	s.mu.Lock()
	b := s.bufferLocked(id)
	if b == nil || b.Pinned == pinned {
		s.mu.Unlock()
		return
	}
	b.Pinned = pinned
	fx.events = append(fx.events, events.BufferPinned{BufferID: id, Pinned: pinned})
	fx.snap = s.snapshotLocked()
	s.mu.Unlock()

	s.apply(fx)
}

// Rename moves a buffer to a new path, rederiving its display name
// and language.
func (s *Store) Rename(id, path string) {
	fx := &effects{}

	s.mu.Lock()
	b := s.bufferLocked(id)
	if b == nil || path == "" || b.Path == path {
		s.mu.Unlock()
		return
	}
	old := b.Path
	b.Path = path
	b.Name = filepath.Base(path)
	if !b.Diff {
		b.Language = lang.FromFilename(path)
	}
	fx.events = append(fx.events, events.BufferRenamed{BufferID: id, OldPath: old, Path: path, Name: b.Name})
	fx.snap = s.snapshotLocked()
	s.mu.Unlock()

	s.apply(fx)
}

// Reorder moves the buffer at index from to index to in tab order.
// Out-of-range indexes are ignored.
func (s *Store) Reorder(from, to int) {
	fx := &effects{}

	s.mu.Lock()
	n := len(s.buffers)
	if from == to || from < 0 || from >= n || to < 0 || to >= n {
		s.mu.Unlock()
		return
	}
	b := s.buffers[from]
	s.buffers = append(s.buffers[:from], s.buffers[from+1:]...)
	s.buffers = append(s.buffers, nil)
	copy(s.buffers[to+1:], s.buffers[to:])
	s.buffers[to] = b
	fx.events = append(fx.events, events.BufferReordered{From: from, To: to})
	fx.snap = s.snapshotLocked()
	s.mu.Unlock()

	s.apply(fx)
}

// SwitchNext activates the next buffer in tab order, wrapping at the
// end, and returns its id.
func (s *Store) SwitchNext() string { return s.switchBy(1) }

// SwitchPrevious activates the previous buffer in tab order, wrapping
// at the start, and returns its id.
func (s *Store) SwitchPrevious() string { return s.switchBy(-1) }

func (s *Store) switchBy(step int) string {
	fx := &effects{}

	s.mu.Lock()
	n := len(s.buffers)
	if n == 0 {
		s.mu.Unlock()
		return ""
	}
	next := 0
	if idx := s.indexLocked(s.activeID); idx >= 0 {
		next = (idx + step + n) % n
	}
	id := s.buffers[next].ID
	s.activateLocked(id, fx)
	s.mu.Unlock()

	s.apply(fx)
	return id
}

// SetActive focuses a buffer. Unknown ids are ignored.
func (s *Store) SetActive(id string) {
	fx := &effects{}

	s.mu.Lock()
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return
	}
	s.activateLocked(id, fx)
	s.mu.Unlock()

	s.apply(fx)
}

// ReloadFromDisk re-reads a buffer's backing file and commits the
// content without marking it dirty. Read failures are logged and
// leave the buffer unchanged.
func (s *Store) ReloadFromDisk(id string) {
	s.mu.RLock()
	path := ""
	if b := s.bufferLocked(id); b != nil && b.Real() {
		path = b.Path
	}
	s.mu.RUnlock()
	if path == "" {
		return
	}

	content, err := s.readFile(path)
	if err != nil {
		s.logger.Warn("reload of %s failed: %v", path, err)
		return
	}
	if s.UpdateContent(id, content, false, "") {
		s.publish(events.BufferReloaded{BufferID: id, Path: path})
	}
}

// ReopenLastClosed reopens the most recently closed file-backed
// buffer, restoring its pin. The history entry is consumed only when
// the file can be read again.
func (s *Store) ReopenLastClosed() (string, error) {
	s.mu.RLock()
	entry, ok := s.history.peek()
	s.mu.RUnlock()
	if !ok {
		return "", ErrHistoryEmpty
	}

	content, err := s.readFile(entry.Path)
	if err != nil {
		s.logger.Warn("reopen of %s failed: %v", entry.Path, err)
		return "", fmt.Errorf("reopen %s: %w", entry.Path, err)
	}

	s.mu.Lock()
	if head, ok := s.history.peek(); ok && head == entry {
		s.history.pop()
	}
	s.mu.Unlock()

	return s.Open(OpenRequest{
		Path:    entry.Path,
		Name:    entry.Name,
		Content: content,
		Pinned:  entry.Pinned,
	}), nil
}

// Get returns a copy of the buffer with the given id.
func (s *Store) Get(id string) (Buffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b := s.bufferLocked(id); b != nil {
		return *b, true
	}
	return Buffer{}, false
}

// GetByPath returns a copy of the non-virtual buffer open at path.
func (s *Store) GetByPath(path string) (Buffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b := s.byPathLocked(path); b != nil {
		return *b, true
	}
	return Buffer{}, false
}

// List returns copies of all open buffers in tab order.
func (s *Store) List() []Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Buffer, len(s.buffers))
	for i, b := range s.buffers {
		out[i] = *b
	}
	return out
}

// Active returns a copy of the active buffer.
func (s *Store) Active() (Buffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b := s.bufferLocked(s.activeID); b != nil {
		return *b, true
	}
	return Buffer{}, false
}

// ActiveID returns the active buffer's id, empty when no buffers are
// open.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Count returns the number of open buffers.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffers)
}

// HasDirty reports whether any open buffer has unsaved changes.
func (s *Store) HasDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.buffers {
		if b.Dirty {
			return true
		}
	}
	return false
}

// Pending returns the deferred close awaiting confirmation, if any.
func (s *Store) Pending() (PendingClose, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return PendingClose{}, false
	}
	return PendingClose{
		Kind:      s.pending.Kind,
		BufferIDs: append([]string(nil), s.pending.BufferIDs...),
	}, true
}

// RecentFiles returns the most-recently-used file list, newest first.
func (s *Store) RecentFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recent.list()
}

// ClosedHistory returns the reopenable closed buffers, newest first.
func (s *Store) ClosedHistory() []ClosedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.list()
}

// Workspace returns the workspace root recorded in snapshots.
func (s *Store) Workspace() string {
	return s.workspace
}

// activateLocked makes id the active buffer; an empty id deactivates
// everything. No event when the focus is unchanged.
func (s *Store) activateLocked(id string, fx *effects) {
	if id == s.activeID {
		return
	}
	prev := s.activeID
	for _, b := range s.buffers {
		b.Active = b.ID == id
	}
	s.activeID = id
	fx.events = append(fx.events, events.BufferActivated{BufferID: id, PreviousID: prev})
}

// removeLocked takes the buffer at idx out of the list, recording the
// close history entry and server untrack for real buffers. Active
// reassignment is the caller's job.
func (s *Store) removeLocked(idx int, evicted bool, fx *effects) *Buffer {
	b := s.buffers[idx]
	s.buffers = append(s.buffers[:idx], s.buffers[idx+1:]...)
	if b.Real() && b.Path != "" {
		s.history.push(ClosedEntry{Path: b.Path, Name: b.Name, Pinned: b.Pinned})
		fx.untrack = append(fx.untrack, b.Path)
	}
	fx.events = append(fx.events, events.BufferClosed{
		BufferID: b.ID,
		Path:     b.Path,
		Name:     b.Name,
		Evicted:  evicted,
	})
	return b
}

// closeForceLocked removes the buffer at idx. When it was active, the
// closed buffer's former index is clamped into the remaining list to
// pick the successor.
func (s *Store) closeForceLocked(idx int, fx *effects) {
	removed := s.removeLocked(idx, false, fx)
	if removed.ID != s.activeID {
		return
	}
	next := ""
	if len(s.buffers) > 0 {
		next = s.buffers[min(idx, len(s.buffers)-1)].ID
	}
	s.activateLocked(next, fx)
}

// closeBatchLocked removes every listed buffer that is still open.
// When the active buffer is among them, focus falls to the first
// remaining buffer.
func (s *Store) closeBatchLocked(ids []string, fx *effects) int {
	closed := 0
	activeClosed := false
	for _, id := range ids {
		idx := s.indexLocked(id)
		if idx < 0 {
			continue
		}
		if id == s.activeID {
			activeClosed = true
		}
		s.removeLocked(idx, false, fx)
		closed++
	}
	if activeClosed {
		next := ""
		if len(s.buffers) > 0 {
			next = s.buffers[0].ID
		}
		s.activateLocked(next, fx)
	}
	return closed
}

func (s *Store) setPendingLocked(p *PendingClose, fx *effects) {
	s.pending = p
	fx.events = append(fx.events, events.BufferPendingClose{
		Kind:      string(p.Kind),
		BufferIDs: append([]string(nil), p.BufferIDs...),
	})
}

func (s *Store) victimsLocked(kind CloseKind, anchor string) []string {
	var ids []string
	switch kind {
	case CloseKindOthers:
		if s.indexLocked(anchor) < 0 {
			return nil
		}
		for _, b := range s.buffers {
			if b.ID != anchor && !b.Pinned {
				ids = append(ids, b.ID)
			}
		}
	case CloseKindAll:
		for _, b := range s.buffers {
			if !b.Pinned {
				ids = append(ids, b.ID)
			}
		}
	case CloseKindToRight:
		idx := s.indexLocked(anchor)
		if idx < 0 {
			return nil
		}
		for _, b := range s.buffers[idx+1:] {
			if !b.Pinned {
				ids = append(ids, b.ID)
			}
		}
	}
	return ids
}

func (s *Store) indexLocked(id string) int {
	for i, b := range s.buffers {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) bufferLocked(id string) *Buffer {
	if i := s.indexLocked(id); i >= 0 {
		return s.buffers[i]
	}
	return nil
}

func (s *Store) byPathLocked(path string) *Buffer {
	for _, b := range s.buffers {
		if !b.Virtual && b.Path == path {
			return b
		}
	}
	return nil
}

func (s *Store) unpinnedLocked() int {
	n := 0
	for _, b := range s.buffers {
		if !b.Pinned {
			n++
		}
	}
	return n
}

// snapshotLocked builds the persisted view of the store: file-backed
// real buffers in tab order plus the active path and recent files.
func (s *Store) snapshotLocked() *session.Snapshot {
	snap := &session.Snapshot{Root: s.workspace, RecentFiles: s.recent.list()}
	for _, b := range s.buffers {
		if !b.Real() || b.Path == "" {
			continue
		}
		snap.Buffers = append(snap.Buffers, session.BufferState{
			Path:   b.Path,
			Name:   b.Name,
			Pinned: b.Pinned,
		})
		if b.ID == s.activeID {
			snap.ActivePath = b.Path
		}
	}
	return snap
}

func (s *Store) publish(ev event.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}
