package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeServer speaks just enough JSON-RPC to stand in for a language
// server over in-memory pipes.
type fakeServer struct {
	mu            sync.Mutex
	out           *io.PipeWriter
	notifications []fakeMessage
	requests      []fakeMessage

	// respond answers requests other than shutdown. Nil means every
	// such request gets a null result.
	respond func(method string, params json.RawMessage) (any, *RPCError)
}

type fakeMessage struct {
	Method string
	Params json.RawMessage
}

func (f *fakeServer) serve(r io.Reader) {
	defer func() {
		f.mu.Lock()
		if f.out != nil {
			f.out.Close()
		}
		f.mu.Unlock()
	}()

	br := bufio.NewReader(r)
	for {
		body, err := parseFrame(br)
		if err != nil {
			return
		}

		var msg struct {
			ID     *int64          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(body, &msg); err != nil {
			continue
		}

		if msg.ID == nil {
			f.mu.Lock()
			f.notifications = append(f.notifications, fakeMessage{msg.Method, msg.Params})
			f.mu.Unlock()
			if msg.Method == "exit" {
				return
			}
			continue
		}

		f.mu.Lock()
		f.requests = append(f.requests, fakeMessage{msg.Method, msg.Params})
		responder := f.respond
		f.mu.Unlock()

		var result any
		var rpcErr *RPCError
		if msg.Method != "shutdown" && responder != nil {
			result, rpcErr = responder(msg.Method, msg.Params)
		}

		reply := map[string]any{"jsonrpc": "2.0", "id": *msg.ID}
		if rpcErr != nil {
			reply["error"] = rpcErr
		} else {
			reply["result"] = result
		}
		payload, _ := json.Marshal(reply)
		f.write(payload)
	}
}

func (f *fakeServer) write(body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.out == nil {
		return
	}
	fmt.Fprintf(f.out, "Content-Length: %d\r\n\r\n%s", len(body), body)
}

// push sends a server-initiated notification to the client.
func (f *fakeServer) push(method string, params any) {
	body, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": method, "params": params})
	f.write(body)
}

func (f *fakeServer) notificationCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, msg := range f.notifications {
		if msg.Method == method {
			n++
		}
	}
	return n
}

// fakeBackend fabricates in-memory servers so Manager tests never
// spawn processes.
type fakeBackend struct {
	caps     ServerCapabilities
	respond  func(method string, params json.RawMessage) (any, *RPCError)
	failures atomic.Int32
	launches atomic.Int32

	mu      sync.Mutex
	servers []*fakeServer
}

func (b *fakeBackend) launch(ctx context.Context, s *Session) error {
	b.launches.Add(1)
	if b.failures.Add(-1) >= 0 {
		return errors.New("spawn failed")
	}

	srv := &fakeServer{respond: b.respond}
	c2sReader, c2sWriter := io.Pipe()
	s2cReader, s2cWriter := io.Pipe()
	srv.out = s2cWriter

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.transport = NewTransport(s2cReader, c2sWriter, c2sWriter, s.logger)
	s.registerHandlers()
	s.transport.Start(s.ctx)
	go srv.serve(c2sReader)

	s.setActive(b.caps, nil)

	b.mu.Lock()
	b.servers = append(b.servers, srv)
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) server(i int) *fakeServer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i >= len(b.servers) {
		return nil
	}
	return b.servers[i]
}

// extResolver resolves servers by file extension.
type extResolver map[string]string

func (r extResolver) ServerForFile(path string) (ServerSpec, string, bool) {
	lang, ok := r[filepath.Ext(path)]
	if !ok {
		return ServerSpec{}, "", false
	}
	return ServerSpec{Command: "fake-" + lang}, lang, true
}

type recordingObserver struct {
	mu      sync.Mutex
	started []string
	stopped []string
}

func (o *recordingObserver) SessionStarted(workspace, languageID string) {
	o.mu.Lock()
	o.started = append(o.started, languageID+"@"+workspace)
	o.mu.Unlock()
}

func (o *recordingObserver) SessionStopped(workspace, languageID string, err error) {
	o.mu.Lock()
	o.stopped = append(o.stopped, languageID+"@"+workspace)
	o.mu.Unlock()
}

func (o *recordingObserver) stoppedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.stopped)
}

func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func newTestManager(backend *fakeBackend, opts ...ManagerOption) *Manager {
	m := NewManager(extResolver{".go": "go", ".rs": "rust"}, opts...)
	m.launch = backend.launch
	return m
}

func TestManager_StartForFile_NoServer(t *testing.T) {
	m := newTestManager(&fakeBackend{})

	_, err := m.StartForFile(context.Background(), filepath.Join(t.TempDir(), "notes.txt"))
	if !errors.Is(err, ErrNoServer) {
		t.Errorf("Expected ErrNoServer, got %v", err)
	}
}

func TestManager_StartForFile_ReusesSession(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestManager(backend)
	defer m.StopAll(context.Background())

	path := filepath.Join(t.TempDir(), "main.go")

	first, err := m.StartForFile(context.Background(), path)
	if err != nil {
		t.Fatalf("StartForFile() error = %v", err)
	}
	second, err := m.StartForFile(context.Background(), path)
	if err != nil {
		t.Fatalf("StartForFile() second error = %v", err)
	}

	if first != second {
		t.Error("Expected the same session for repeated starts")
	}
	if n := backend.launches.Load(); n != 1 {
		t.Errorf("Expected 1 launch, got %d", n)
	}
}

func TestManager_StartForFile_ConcurrentSingleSpawn(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestManager(backend)
	defer m.StopAll(context.Background())

	path := filepath.Join(t.TempDir(), "main.go")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.StartForFile(context.Background(), path); err != nil {
				t.Errorf("StartForFile() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if n := backend.launches.Load(); n != 1 {
		t.Errorf("Expected exactly 1 launch for a burst of opens, got %d", n)
	}
	if n := len(m.Sessions()); n != 1 {
		t.Errorf("Expected 1 session, got %d", n)
	}
}

func TestManager_StartForFile_LaunchFailure(t *testing.T) {
	backend := &fakeBackend{}
	backend.failures.Store(1)
	m := newTestManager(backend)
	defer m.StopAll(context.Background())

	path := filepath.Join(t.TempDir(), "main.go")

	_, err := m.StartForFile(context.Background(), path)
	if err == nil {
		t.Fatal("Expected launch failure")
	}
	var sessErr *SessionError
	if !errors.As(err, &sessErr) {
		t.Fatalf("Expected *SessionError, got %T", err)
	}
	if n := len(m.Sessions()); n != 0 {
		t.Fatalf("Failed launch should not leave a session, got %d", n)
	}

	// The key is free again, so the next open retries.
	if _, err := m.StartForFile(context.Background(), path); err != nil {
		t.Fatalf("Retry after failure error = %v", err)
	}
	if n := backend.launches.Load(); n != 2 {
		t.Errorf("Expected 2 launches, got %d", n)
	}
}

func TestManager_StartForFile_SeparateLanguages(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestManager(backend)
	defer m.StopAll(context.Background())

	dir := t.TempDir()
	if _, err := m.StartForFile(context.Background(), filepath.Join(dir, "main.go")); err != nil {
		t.Fatalf("StartForFile(go) error = %v", err)
	}
	if _, err := m.StartForFile(context.Background(), filepath.Join(dir, "lib.rs")); err != nil {
		t.Fatalf("StartForFile(rust) error = %v", err)
	}

	infos := m.Sessions()
	if len(infos) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(infos))
	}
	if infos[0].LanguageID != "go" || infos[1].LanguageID != "rust" {
		t.Errorf("Unexpected session order: %+v", infos)
	}
}

func TestManager_DocumentLifecycle(t *testing.T) {
	backend := &fakeBackend{caps: ServerCapabilities{TextDocumentSync: float64(1)}}
	m := newTestManager(backend)
	defer m.StopAll(context.Background())

	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")

	if _, err := m.StartForFile(context.Background(), path); err != nil {
		t.Fatalf("StartForFile() error = %v", err)
	}

	m.NotifyOpen(path, "go", "package main\n")
	srv := backend.server(0)
	waitFor(t, "didOpen never reached the server", func() bool {
		return srv.notificationCount("textDocument/didOpen") == 1
	})

	m.NotifyChange(path, "package main\n\nfunc main() {}\n")
	waitFor(t, "didChange never reached the server", func() bool {
		return srv.notificationCount("textDocument/didChange") == 1
	})

	m.NotifyClose(path)
	waitFor(t, "didClose never reached the server", func() bool {
		return srv.notificationCount("textDocument/didClose") == 1
	})

	// Closing the document did not stop the session.
	if n := len(m.Sessions()); n != 1 {
		t.Errorf("Expected session to survive NotifyClose, got %d sessions", n)
	}
}

func TestManager_StopForFile_LastDocumentStopsSession(t *testing.T) {
	backend := &fakeBackend{}
	obs := &recordingObserver{}
	m := newTestManager(backend, WithSessionObserver(obs))
	defer m.StopAll(context.Background())

	dir := t.TempDir()
	first := filepath.Join(dir, "a.go")
	second := filepath.Join(dir, "b.go")

	if _, err := m.StartForFile(context.Background(), first); err != nil {
		t.Fatalf("StartForFile() error = %v", err)
	}
	m.NotifyOpen(first, "go", "package a\n")
	m.NotifyOpen(second, "go", "package a\n")

	m.StopForFile(first)
	if n := len(m.Sessions()); n != 1 {
		t.Fatalf("Session should survive while b.go is open, got %d sessions", n)
	}

	m.StopForFile(second)
	waitFor(t, "session never stopped", func() bool {
		return len(m.Sessions()) == 0 && obs.stoppedCount() == 1
	})

	srv := backend.server(0)
	if n := srv.notificationCount("textDocument/didClose"); n != 2 {
		t.Errorf("Expected 2 didClose notifications, got %d", n)
	}
	waitFor(t, "shutdown exchange never happened", func() bool {
		return srv.notificationCount("exit") == 1
	})
}

func TestManager_Diagnostics_FlowFromServer(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestManager(backend)
	defer m.StopAll(context.Background())

	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")

	if _, err := m.StartForFile(context.Background(), path); err != nil {
		t.Fatalf("StartForFile() error = %v", err)
	}
	m.NotifyOpen(path, "go", "package main\n")

	version := int32(1)
	backend.server(0).push("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:     URIFromPath(path),
		Version: &version,
		Diagnostics: []Diagnostic{
			{Range: Range{Start: Position{Line: 0, Character: 0}}, Severity: SeverityError, Message: "undefined: x"},
		},
	})

	waitFor(t, "diagnostics never reached the sink", func() bool {
		return len(m.Diagnostics().ForPath(path)) == 1
	})

	diags := m.Diagnostics().ForPath(path)
	if diags[0].Message != "undefined: x" {
		t.Errorf("Expected message 'undefined: x', got %q", diags[0].Message)
	}
}

func TestManager_Completions_Degrade(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestManager(backend)
	defer m.StopAll(context.Background())

	// No session at all.
	if items := m.Completions(context.Background(), "/nowhere/main.go", Position{}); items != nil {
		t.Errorf("Expected nil without a session, got %v", items)
	}

	// Session up, server errors out.
	backend.respond = func(method string, params json.RawMessage) (any, *RPCError) {
		return nil, &RPCError{Code: CodeInternalError, Message: "boom"}
	}
	backend.caps = ServerCapabilities{CompletionProvider: &CompletionOptions{}}

	path := filepath.Join(t.TempDir(), "main.go")
	if _, err := m.StartForFile(context.Background(), path); err != nil {
		t.Fatalf("StartForFile() error = %v", err)
	}
	m.NotifyOpen(path, "go", "package main\n")

	if items := m.Completions(context.Background(), path, Position{Line: 0, Character: 5}); len(items) != 0 {
		t.Errorf("Expected empty completions on server error, got %d", len(items))
	}
}

func TestManager_Completions_Truncates(t *testing.T) {
	items := make([]CompletionItem, 5)
	for i := range items {
		items[i] = CompletionItem{Label: fmt.Sprintf("item%d", i)}
	}
	backend := &fakeBackend{
		caps: ServerCapabilities{CompletionProvider: &CompletionOptions{}},
		respond: func(method string, params json.RawMessage) (any, *RPCError) {
			return CompletionList{Items: items}, nil
		},
	}
	m := newTestManager(backend, WithMaxCompletions(3))
	defer m.StopAll(context.Background())

	path := filepath.Join(t.TempDir(), "main.go")
	if _, err := m.StartForFile(context.Background(), path); err != nil {
		t.Fatalf("StartForFile() error = %v", err)
	}
	m.NotifyOpen(path, "go", "package main\n")

	got := m.Completions(context.Background(), path, Position{Line: 0, Character: 8})
	if len(got) != 3 {
		t.Fatalf("Expected 3 completions after truncation, got %d", len(got))
	}
	if got[0].Label != "item0" {
		t.Errorf("Expected item0 first, got %q", got[0].Label)
	}
}

func TestManager_Hover(t *testing.T) {
	backend := &fakeBackend{
		caps: ServerCapabilities{HoverProvider: true},
		respond: func(method string, params json.RawMessage) (any, *RPCError) {
			if method != "textDocument/hover" {
				return nil, nil
			}
			return map[string]any{
				"contents": map[string]any{"kind": "markdown", "value": "func main()"},
			}, nil
		},
	}
	m := newTestManager(backend)
	defer m.StopAll(context.Background())

	path := filepath.Join(t.TempDir(), "main.go")
	if _, err := m.StartForFile(context.Background(), path); err != nil {
		t.Fatalf("StartForFile() error = %v", err)
	}
	m.NotifyOpen(path, "go", "package main\n")

	hov := m.Hover(context.Background(), path, Position{Line: 0, Character: 2})
	if hov == nil {
		t.Fatal("Expected hover result, got nil")
	}
	if hov.Text() != "func main()" {
		t.Errorf("Expected 'func main()', got %q", hov.Text())
	}

	// Unknown document degrades to nil.
	if hov := m.Hover(context.Background(), filepath.Join(t.TempDir(), "other.go"), Position{}); hov != nil {
		t.Errorf("Expected nil hover without a session, got %+v", hov)
	}
}

func TestManager_Stop_Workspace(t *testing.T) {
	backend := &fakeBackend{}
	obs := &recordingObserver{}
	m := newTestManager(backend, WithSessionObserver(obs))
	defer m.StopAll(context.Background())

	ws1 := t.TempDir()
	ws2 := t.TempDir()

	if _, err := m.StartForFile(context.Background(), filepath.Join(ws1, "main.go")); err != nil {
		t.Fatalf("StartForFile() error = %v", err)
	}
	if _, err := m.StartForFile(context.Background(), filepath.Join(ws1, "lib.rs")); err != nil {
		t.Fatalf("StartForFile() error = %v", err)
	}
	if _, err := m.StartForFile(context.Background(), filepath.Join(ws2, "main.go")); err != nil {
		t.Fatalf("StartForFile() error = %v", err)
	}

	m.Stop(ws1)

	waitFor(t, "workspace sessions never stopped", func() bool {
		return len(m.Sessions()) == 1 && obs.stoppedCount() == 2
	})
	if infos := m.Sessions(); infos[0].Workspace != absPath(ws2) {
		t.Errorf("Expected surviving session in %s, got %s", ws2, infos[0].Workspace)
	}
}

func TestManager_StopAll_RefusesNewSessions(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestManager(backend)

	path := filepath.Join(t.TempDir(), "main.go")
	if _, err := m.StartForFile(context.Background(), path); err != nil {
		t.Fatalf("StartForFile() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.StopAll(ctx); err != nil {
		t.Fatalf("StopAll() error = %v", err)
	}
	if n := len(m.Sessions()); n != 0 {
		t.Errorf("Expected no sessions after StopAll, got %d", n)
	}

	if _, err := m.StartForFile(context.Background(), path); !errors.Is(err, ErrShutdown) {
		t.Errorf("Expected ErrShutdown after StopAll, got %v", err)
	}
}

func TestWorkspaceForFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/demo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "internal", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	if got := WorkspaceForFile(filepath.Join(nested, "deep.go")); got != root {
		t.Errorf("Expected marker root %s, got %s", root, got)
	}

	bare := t.TempDir()
	if got := WorkspaceForFile(filepath.Join(bare, "loose.go")); got != bare {
		t.Errorf("Expected file directory %s, got %s", bare, got)
	}
}
