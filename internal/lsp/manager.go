package lsp

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/folioedit/folio/internal/log"
)

// Resolver maps a file path to the language server that should serve
// it. The extension registry implements this.
type Resolver interface {
	// ServerForFile returns the server spec and language id for the
	// path, or false when no installed server claims it.
	ServerForFile(path string) (ServerSpec, string, bool)
}

// SessionObserver receives session lifecycle notifications. Callbacks
// run outside manager locks but must not block.
type SessionObserver interface {
	SessionStarted(workspace, languageID string)
	SessionStopped(workspace, languageID string, err error)
}

type sessionKey struct {
	Workspace  string
	LanguageID string
}

// SessionInfo is a point-in-time snapshot of one session.
type SessionInfo struct {
	Workspace  string
	LanguageID string
	State      SessionState
	Command    string
	Documents  int
}

const defaultMaxCompletions = 100

// Manager owns every language server session, keyed by
// (workspace, language). Starting is idempotent per key; document
// notifications route to the session holding the document open.
type Manager struct {
	mu       sync.Mutex
	sessions map[sessionKey]*Session
	closed   bool

	resolver Resolver
	diags    *Diagnostics
	logger   *log.Logger

	requestTimeout time.Duration
	maxCompletions int
	observer       SessionObserver

	// launch starts a reserved session. Tests replace this to avoid
	// spawning real processes.
	launch func(ctx context.Context, s *Session) error

	stopWG sync.WaitGroup
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger.
func WithManagerLogger(logger *log.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRequestTimeout bounds individual server requests and the
// startup handshake.
func WithRequestTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.requestTimeout = d
		}
	}
}

// WithMaxCompletions caps how many completion items a request
// returns.
func WithMaxCompletions(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxCompletions = n
		}
	}
}

// WithSessionObserver installs a lifecycle observer.
func WithSessionObserver(o SessionObserver) ManagerOption {
	return func(m *Manager) {
		m.observer = o
	}
}

// NewManager creates a manager resolving servers through resolver.
func NewManager(resolver Resolver, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:       make(map[sessionKey]*Session),
		resolver:       resolver,
		logger:         log.Nop(),
		requestTimeout: defaultRequestTimeout,
		maxCompletions: defaultMaxCompletions,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("lsp")
	m.diags = NewDiagnostics(0, m.logger)
	m.launch = func(ctx context.Context, s *Session) error {
		return s.start(ctx)
	}
	return m
}

// Diagnostics returns the sink sessions publish into.
func (m *Manager) Diagnostics() *Diagnostics {
	return m.diags
}

// StartForFile resolves a server for the path and ensures a session
// for (workspace, language) exists. When one is already starting or
// active it is returned as-is; a burst of opens for the same key
// spawns exactly one process.
func (m *Manager) StartForFile(ctx context.Context, path string) (*Session, error) {
	if m.resolver == nil {
		return nil, ErrNoServer
	}
	path = absPath(path)

	spec, languageID, ok := m.resolver.ServerForFile(path)
	if !ok {
		return nil, ErrNoServer
	}

	workspace := WorkspaceForFile(path)
	key := sessionKey{Workspace: workspace, LanguageID: languageID}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrShutdown
	}
	if existing, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return existing, nil
	}

	// Reserve the key before starting so concurrent callers see the
	// session immediately. The process spawn happens outside the lock.
	sess := newSession(workspace, languageID, spec, m.logger, m.requestTimeout)
	sess.onDiagnostics = m.diags.Publish
	sess.onExit = m.handleSessionExit
	m.sessions[key] = sess
	m.mu.Unlock()

	if err := m.launch(ctx, sess); err != nil {
		m.mu.Lock()
		if m.sessions[key] == sess {
			delete(m.sessions, key)
		}
		m.mu.Unlock()
		return nil, &SessionError{Workspace: workspace, LanguageID: languageID, Err: err}
	}

	m.logger.Info("started %s server for %s", languageID, workspace)
	if m.observer != nil {
		m.observer.SessionStarted(workspace, languageID)
	}
	return sess, nil
}

// Stop shuts down every session rooted at the workspace. It returns
// immediately; shutdown proceeds in the background.
func (m *Manager) Stop(workspace string) {
	workspace = absPath(workspace)

	m.mu.Lock()
	var victims []*Session
	for key, sess := range m.sessions {
		if key.Workspace == workspace {
			delete(m.sessions, key)
			victims = append(victims, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range victims {
		m.stopAsync(sess)
	}
}

// StopForFile closes the document in its session and shuts the
// session down once it holds no more documents. Fire-and-forget.
func (m *Manager) StopForFile(path string) {
	path = absPath(path)

	sess := m.sessionForDocument(path)
	if sess == nil {
		m.diags.DropFile(path)
		return
	}

	if err := sess.closeDocument(path); err != nil {
		m.logger.Debug("close document %s: %v", path, err)
	}
	m.diags.DropFile(path)

	if sess.documentCount() > 0 {
		return
	}

	key := sessionKey{Workspace: sess.Workspace(), LanguageID: sess.LanguageID()}
	m.mu.Lock()
	if m.sessions[key] != sess {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, key)
	m.mu.Unlock()

	m.stopAsync(sess)
}

// StopAll shuts down every session and waits for the shutdowns to
// finish or ctx to expire. The manager refuses new sessions after.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	victims := make([]*Session, 0, len(m.sessions))
	for key, sess := range m.sessions {
		delete(m.sessions, key)
		victims = append(victims, sess)
	}
	m.mu.Unlock()

	for _, sess := range victims {
		m.stopAsync(sess)
	}

	done := make(chan struct{})
	go func() {
		m.stopWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) stopAsync(sess *Session) {
	m.stopWG.Add(1)
	go func() {
		defer m.stopWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.requestTimeout)
		defer cancel()
		sess.shutdown(ctx)
		if m.observer != nil {
			m.observer.SessionStopped(sess.Workspace(), sess.LanguageID(), nil)
		}
	}()
}

// handleSessionExit runs when a server process dies without being
// asked to stop.
func (m *Manager) handleSessionExit(sess *Session, err error) {
	key := sessionKey{Workspace: sess.Workspace(), LanguageID: sess.LanguageID()}
	m.mu.Lock()
	if m.sessions[key] == sess {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	if m.observer != nil {
		m.observer.SessionStopped(sess.Workspace(), sess.LanguageID(), err)
	}
}

// NotifyOpen tells the session for (workspace of path, languageID)
// that a document opened. No session, typo, or protocol trouble is
// logged and swallowed.
func (m *Manager) NotifyOpen(path, languageID, content string) {
	path = absPath(path)
	key := sessionKey{Workspace: WorkspaceForFile(path), LanguageID: languageID}

	m.mu.Lock()
	sess, ok := m.sessions[key]
	m.mu.Unlock()
	if !ok {
		return
	}

	if err := sess.openDocument(path, languageID, content); err != nil {
		m.logger.Debug("open document %s: %v", path, err)
		return
	}
	m.diags.CommitVersion(path, 1)
}

// NotifyChange sends the full new content of an open document.
func (m *Manager) NotifyChange(path, content string) {
	path = absPath(path)
	sess := m.sessionForDocument(path)
	if sess == nil {
		return
	}

	version, err := sess.changeDocument(path, content)
	if err != nil {
		m.logger.Debug("change document %s: %v", path, err)
		return
	}
	m.diags.CommitVersion(path, version)
}

// NotifyClose closes the document without stopping its session.
func (m *Manager) NotifyClose(path string) {
	path = absPath(path)
	sess := m.sessionForDocument(path)
	if sess == nil {
		m.diags.DropFile(path)
		return
	}

	if err := sess.closeDocument(path); err != nil {
		m.logger.Debug("close document %s: %v", path, err)
	}
	m.diags.DropFile(path)
}

// Completions asks the session holding the document for completion
// items. Every failure mode degrades to an empty slice.
func (m *Manager) Completions(ctx context.Context, path string, pos Position) []CompletionItem {
	path = absPath(path)
	sess := m.sessionForDocument(path)
	if sess == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.requestTimeout)
	defer cancel()

	list, err := sess.completion(ctx, path, pos)
	if err != nil {
		m.logger.Debug("completion %s: %v", path, err)
		return nil
	}
	items := list.Items
	if len(items) > m.maxCompletions {
		items = items[:m.maxCompletions]
	}
	return items
}

// Hover asks the session holding the document for hover info. Every
// failure mode degrades to nil.
func (m *Manager) Hover(ctx context.Context, path string, pos Position) *Hover {
	path = absPath(path)
	sess := m.sessionForDocument(path)
	if sess == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.requestTimeout)
	defer cancel()

	hov, err := sess.hover(ctx, path, pos)
	if err != nil {
		m.logger.Debug("hover %s: %v", path, err)
		return nil
	}
	return hov
}

// Sessions snapshots every live session, ordered by workspace then
// language.
func (m *Manager) Sessions() []SessionInfo {
	m.mu.Lock()
	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, sess := range m.sessions {
		infos = append(infos, SessionInfo{
			Workspace:  sess.Workspace(),
			LanguageID: sess.LanguageID(),
			State:      sess.State(),
			Command:    sess.Command(),
			Documents:  sess.documentCount(),
		})
	}
	m.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Workspace != infos[j].Workspace {
			return infos[i].Workspace < infos[j].Workspace
		}
		return infos[i].LanguageID < infos[j].LanguageID
	})
	return infos
}

// sessionForDocument finds the session holding the file open.
func (m *Manager) sessionForDocument(path string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sess := range m.sessions {
		if sess.hasDocument(path) {
			return sess
		}
	}
	return nil
}

// workspaceMarkers are the project files that pin a workspace root.
var workspaceMarkers = []string{
	"go.mod",
	"package.json",
	"Cargo.toml",
	"pyproject.toml",
	"setup.py",
	".git",
}

// WorkspaceForFile walks up from the file's directory and returns the
// nearest ancestor holding a project marker, falling back to the
// file's own directory.
func WorkspaceForFile(path string) string {
	dir := filepath.Dir(absPath(path))

	for probe := dir; ; {
		for _, marker := range workspaceMarkers {
			if _, err := os.Stat(filepath.Join(probe, marker)); err == nil {
				return probe
			}
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return dir
		}
		probe = parent
	}
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
