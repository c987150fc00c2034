package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/folioedit/folio/internal/log"
)

// SessionState tracks a session through its lifecycle. A session with
// no manager entry is absent.
type SessionState int32

const (
	StateStarting SessionState = iota
	StateActive
	StateStopping
)

func (s SessionState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ServerSpec says how to launch a language server process.
type ServerSpec struct {
	// Command is the server executable.
	Command string
	// Args are passed to the executable.
	Args []string
	// Env adds to the inherited environment.
	Env map[string]string
}

// trackedDoc is one document the session has didOpen'd.
type trackedDoc struct {
	languageID string
	version    int
}

// Session is one running language server bound to a (workspace,
// languageID) key. The manager owns its lifecycle.
type Session struct {
	workspace  string
	languageID string
	spec       ServerSpec
	logger     *log.Logger
	timeout    time.Duration

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	transport *Transport

	state atomic.Int32

	mu           sync.Mutex
	capabilities ServerCapabilities
	serverInfo   *ServerInfo

	docsMu sync.RWMutex
	docs   map[DocumentURI]*trackedDoc

	onDiagnostics func(PublishDiagnosticsParams)
	onExit        func(*Session, error)

	ctx    context.Context
	cancel context.CancelFunc
	exitCh chan error
}

// defaultRequestTimeout bounds server requests and the startup
// handshake when no explicit timeout is configured.
const defaultRequestTimeout = 10 * time.Second

func newSession(workspace, languageID string, spec ServerSpec, logger *log.Logger, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	s := &Session{
		workspace:  workspace,
		languageID: languageID,
		spec:       spec,
		logger:     logger.WithFields(map[string]any{"workspace": workspace, "language": languageID}),
		timeout:    timeout,
		docs:       make(map[DocumentURI]*trackedDoc),
		exitCh:     make(chan error, 1),
	}
	s.state.Store(int32(StateStarting))
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Workspace returns the session's workspace root.
func (s *Session) Workspace() string { return s.workspace }

// LanguageID returns the language the session serves.
func (s *Session) LanguageID() string { return s.languageID }

// Command returns the launched server executable.
func (s *Session) Command() string { return s.spec.Command }

// Capabilities returns the server's handshake capabilities.
func (s *Session) Capabilities() ServerCapabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capabilities
}

// setActive records the handshake result and opens the session for
// requests.
func (s *Session) setActive(caps ServerCapabilities, info *ServerInfo) {
	s.mu.Lock()
	s.capabilities = caps
	s.serverInfo = info
	s.mu.Unlock()
	s.state.Store(int32(StateActive))
}

// start spawns the server process and runs the initialize handshake.
// ctx bounds the handshake only; the process itself lives until
// shutdown.
func (s *Session) start(ctx context.Context) error {
	if s.State() != StateStarting || s.cmd != nil {
		return ErrAlreadyStarted
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	if err := s.startProcess(); err != nil {
		return err
	}

	s.transport = NewTransport(s.stdout, s.stdin, nil, s.logger)
	s.registerHandlers()
	s.transport.Start(s.ctx)

	go s.monitor()
	go s.drainStderr()

	if err := s.initialize(ctx); err != nil {
		s.stopProcess()
		return fmt.Errorf("initialize: %w", err)
	}

	return nil
}

func (s *Session) startProcess() error {
	cmd := exec.Command(s.spec.Command, s.spec.Args...)
	cmd.Dir = s.workspace

	cmd.Env = os.Environ()
	for k, v := range s.spec.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return fmt.Errorf("start %s: %w", s.spec.Command, err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = stdout
	s.stderr = stderr
	return nil
}

func (s *Session) initialize(ctx context.Context) error {
	params := InitializeParams{
		ProcessID:    os.Getpid(),
		RootURI:      URIFromPath(s.workspace),
		Capabilities: DefaultClientCapabilities(),
		WorkspaceFolders: []WorkspaceFolder{
			{URI: URIFromPath(s.workspace), Name: s.workspace},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result InitializeResult
	if err := s.transport.Call(ctx, "initialize", params, &result); err != nil {
		return err
	}
	if err := s.transport.Notify("initialized", InitializedParams{}); err != nil {
		return err
	}

	s.setActive(result.Capabilities, result.ServerInfo)
	return nil
}

func (s *Session) registerHandlers() {
	s.transport.OnNotification("textDocument/publishDiagnostics", func(method string, params json.RawMessage) {
		var p PublishDiagnosticsParams
		if err := json.Unmarshal(params, &p); err != nil {
			s.logger.Debug("bad publishDiagnostics payload: %v", err)
			return
		}
		if s.onDiagnostics != nil {
			s.onDiagnostics(p)
		}
	})

	s.transport.OnNotification("window/logMessage", func(method string, params json.RawMessage) {
		var p struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(params, &p); err == nil && p.Message != "" {
			s.logger.Debug("server: %s", p.Message)
		}
	})
}

// monitor reports process exit. Exits while the session is not
// stopping are crashes.
func (s *Session) monitor() {
	if s.cmd == nil {
		return
	}

	err := s.cmd.Wait()
	select {
	case s.exitCh <- err:
	default:
	}

	if s.State() != StateStopping {
		s.logger.Warn("server exited unexpectedly: %v", err)
		if s.onExit != nil {
			s.onExit(s, err)
		}
	}
}

func (s *Session) drainStderr() {
	if s.stderr == nil {
		return
	}
	scanner := bufio.NewScanner(s.stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.logger.Debug("server stderr: %s", scanner.Text())
	}
}

// shutdown runs the polite shutdown/exit exchange, then kills the
// process. Safe to call more than once.
func (s *Session) shutdown(ctx context.Context) {
	prev := SessionState(s.state.Swap(int32(StateStopping)))
	if prev == StateStopping {
		return
	}

	if s.transport != nil && !s.transport.IsClosed() {
		callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = s.transport.Call(callCtx, "shutdown", nil, nil)
		_ = s.transport.Notify("exit", nil)
		cancel()
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.stopProcess()
}

func (s *Session) stopProcess() {
	if s.transport != nil {
		s.transport.Close()
	}
	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.stdout != nil {
		s.stdout.Close()
	}
	if s.stderr != nil {
		s.stderr.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}

// --- Document sync ---

// openDocument tracks the file and sends didOpen.
func (s *Session) openDocument(path, languageID, content string) error {
	if s.State() != StateActive {
		return ErrSessionNotReady
	}

	uri := URIFromPath(path)

	s.docsMu.Lock()
	if _, exists := s.docs[uri]; exists {
		s.docsMu.Unlock()
		return ErrDocumentAlreadyOpen
	}
	s.docs[uri] = &trackedDoc{languageID: languageID, version: 1}
	s.docsMu.Unlock()

	return s.transport.Notify("textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{
			URI:        uri,
			LanguageID: languageID,
			Version:    1,
			Text:       content,
		},
	})
}

// changeDocument bumps the document version and sends the full new
// content. Returns the version sent.
func (s *Session) changeDocument(path, content string) (int, error) {
	if s.State() != StateActive {
		return 0, ErrSessionNotReady
	}

	uri := URIFromPath(path)

	s.docsMu.Lock()
	doc, exists := s.docs[uri]
	if !exists {
		s.docsMu.Unlock()
		return 0, ErrDocumentNotOpen
	}
	doc.version++
	version := doc.version
	s.docsMu.Unlock()

	err := s.transport.Notify("textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument: VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: TextDocumentIdentifier{URI: uri},
			Version:                version,
		},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: content}},
	})
	return version, err
}

// closeDocument stops tracking the file and sends didClose.
func (s *Session) closeDocument(path string) error {
	if s.State() != StateActive {
		return ErrSessionNotReady
	}

	uri := URIFromPath(path)

	s.docsMu.Lock()
	if _, exists := s.docs[uri]; !exists {
		s.docsMu.Unlock()
		return ErrDocumentNotOpen
	}
	delete(s.docs, uri)
	s.docsMu.Unlock()

	return s.transport.Notify("textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
}

// hasDocument reports whether the session tracks the file.
func (s *Session) hasDocument(path string) bool {
	s.docsMu.RLock()
	_, ok := s.docs[URIFromPath(path)]
	s.docsMu.RUnlock()
	return ok
}

// documentCount returns the number of tracked documents.
func (s *Session) documentCount() int {
	s.docsMu.RLock()
	defer s.docsMu.RUnlock()
	return len(s.docs)
}

// --- Requests ---

// completion asks for completions at a position.
func (s *Session) completion(ctx context.Context, path string, pos Position) (*CompletionList, error) {
	if s.State() != StateActive {
		return nil, ErrSessionNotReady
	}
	if s.Capabilities().CompletionProvider == nil {
		return nil, ErrNotSupported
	}

	params := CompletionParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: URIFromPath(path)},
			Position:     pos,
		},
		Context: &CompletionContext{TriggerKind: CompletionTriggerInvoked},
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var raw json.RawMessage
	if err := s.transport.Call(ctx, "textDocument/completion", params, &raw); err != nil {
		return nil, err
	}
	return ParseCompletionResult(raw)
}

// hover asks for hover content at a position.
func (s *Session) hover(ctx context.Context, path string, pos Position) (*Hover, error) {
	if s.State() != StateActive {
		return nil, ErrSessionNotReady
	}
	if !HasCapability(s.Capabilities().HoverProvider) {
		return nil, ErrNotSupported
	}

	params := HoverParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: URIFromPath(path)},
			Position:     pos,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result *Hover
	if err := s.transport.Call(ctx, "textDocument/hover", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
