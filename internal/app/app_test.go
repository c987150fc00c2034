package app

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/folioedit/folio/internal/input/key"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
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

// newTestApp builds an app with hermetic defaults: a config path that
// does not exist, a scratch workspace, and persistence off.
func newTestApp(t *testing.T, mutate func(*Options)) *App {
	t.Helper()

	opts := Options{
		ConfigPath:     filepath.Join(t.TempDir(), "config.toml"),
		Workspace:      t.TempDir(),
		LogOutput:      io.Discard,
		DisableSession: true,
	}
	if mutate != nil {
		mutate(&opts)
	}

	a, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		if err := a.Shutdown(); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
	})
	return a
}

func TestApp_New_StartsWithScratchBuffer(t *testing.T) {
	a := newTestApp(t, nil)

	if got := a.Buffers().Count(); got != 1 {
		t.Fatalf("Expected 1 buffer, got %d", got)
	}
	b, ok := a.Buffers().Active()
	if !ok {
		t.Fatal("Expected an active buffer")
	}
	if !b.Virtual {
		t.Errorf("Expected a virtual scratch buffer, got %+v", b)
	}
	if b.Name != "untitled-1" {
		t.Errorf("Expected name untitled-1, got %q", b.Name)
	}
	if a.Session() != nil {
		t.Error("Expected session persistence to be disabled")
	}
	if a.Watcher() == nil {
		t.Error("Expected the file watcher to be running")
	}
}

func TestApp_New_OpensRequestedFiles(t *testing.T) {
	ws := t.TempDir()
	one := writeFile(t, filepath.Join(ws, "notes.txt"), "one")
	two := writeFile(t, filepath.Join(ws, "todo.md"), "two")

	a := newTestApp(t, func(o *Options) {
		o.Workspace = ws
		o.Files = []string{one, two}
	})

	list := a.Buffers().List()
	if len(list) != 2 {
		t.Fatalf("Expected 2 buffers, got %d", len(list))
	}
	if list[0].Path != one || list[1].Path != two {
		t.Errorf("Expected tab order [%s %s], got [%s %s]", one, two, list[0].Path, list[1].Path)
	}
	active, ok := a.Buffers().Active()
	if !ok || active.Path != two {
		t.Errorf("Expected %s active, got %+v", two, active)
	}
}

func TestApp_New_ConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "editor = not valid toml [")

	_, err := New(Options{ConfigPath: path, LogOutput: io.Discard, DisableSession: true})
	if err == nil {
		t.Fatal("Expected an error for a malformed config file")
	}
	var ce *ComponentError
	if !errors.As(err, &ce) || ce.Component != "config" {
		t.Errorf("Expected a config component error, got %v", err)
	}
}

func TestApp_Shutdown_Idempotent(t *testing.T) {
	a := newTestApp(t, nil)

	if err := a.Shutdown(); err != nil {
		t.Fatalf("First shutdown failed: %v", err)
	}
	if err := a.Shutdown(); err != nil {
		t.Fatalf("Second shutdown failed: %v", err)
	}
}

func TestApp_SessionRoundTrip(t *testing.T) {
	ws := t.TempDir()
	one := writeFile(t, filepath.Join(ws, "a.txt"), "alpha")
	two := writeFile(t, filepath.Join(ws, "b.txt"), "beta")

	dirs := t.TempDir()
	cfgPath := filepath.Join(dirs, "config.toml")
	writeFile(t, cfgPath, "[session]\ndir = '"+filepath.Join(dirs, "session")+"'\n")

	first, err := New(Options{
		ConfigPath: cfgPath,
		Workspace:  ws,
		Files:      []string{one, two},
		LogOutput:  io.Discard,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if first.Session() == nil {
		t.Fatal("Expected session persistence to be on")
	}
	pinned, ok := first.Buffers().GetByPath(one)
	if !ok {
		t.Fatalf("Expected %s to be open", one)
	}
	first.Buffers().SetPinned(pinned.ID, true)
	if err := first.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	second, err := New(Options{ConfigPath: cfgPath, Workspace: ws, LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() {
		if err := second.Shutdown(); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
	}()

	list := second.Buffers().List()
	if len(list) != 2 {
		t.Fatalf("Expected 2 restored buffers, got %d", len(list))
	}
	if list[0].Path != one || list[1].Path != two {
		t.Errorf("Expected restored order [%s %s], got [%s %s]", one, two, list[0].Path, list[1].Path)
	}
	if !list[0].Pinned {
		t.Error("Expected the pin to survive the restart")
	}
	active, ok := second.Buffers().Active()
	if !ok || active.Path != two {
		t.Errorf("Expected %s to regain focus, got %+v", two, active)
	}
	recent := second.Buffers().RecentFiles()
	if len(recent) == 0 || recent[0] != two {
		t.Errorf("Expected %s at the head of recent files, got %v", two, recent)
	}
}

func TestApp_SessionRestore_SkipsMissingFiles(t *testing.T) {
	ws := t.TempDir()
	keep := writeFile(t, filepath.Join(ws, "keep.txt"), "kept")
	gone := writeFile(t, filepath.Join(ws, "gone.txt"), "doomed")

	dirs := t.TempDir()
	cfgPath := filepath.Join(dirs, "config.toml")
	writeFile(t, cfgPath, "[session]\ndir = '"+filepath.Join(dirs, "session")+"'\n")

	first, err := New(Options{
		ConfigPath: cfgPath,
		Workspace:  ws,
		Files:      []string{keep, gone},
		LogOutput:  io.Discard,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := first.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := os.Remove(gone); err != nil {
		t.Fatalf("remove %s: %v", gone, err)
	}

	second, err := New(Options{ConfigPath: cfgPath, Workspace: ws, LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() {
		if err := second.Shutdown(); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
	}()

	list := second.Buffers().List()
	if len(list) != 1 {
		t.Fatalf("Expected 1 restored buffer, got %d", len(list))
	}
	if list[0].Path != keep {
		t.Errorf("Expected %s, got %s", keep, list[0].Path)
	}
}

func TestApp_TabSizeFlowsToCoordinator(t *testing.T) {
	ws := t.TempDir()
	note := writeFile(t, filepath.Join(ws, "note.txt"), "x")
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, cfgPath, "[editor]\ntab_size = 2\n")

	a := newTestApp(t, func(o *Options) {
		o.ConfigPath = cfgPath
		o.Workspace = ws
		o.Files = []string{note}
	})

	id := a.Buffers().ActiveID()
	if !a.Input().HandleKey(id, key.NewSpecialEvent(key.KeyTab, key.ModNone)) {
		t.Fatal("Expected the Tab key to be handled")
	}
	b, _ := a.Buffers().Get(id)
	if b.Content != "  x" {
		t.Errorf("Expected two spaces inserted, got %q", b.Content)
	}
}

func TestApp_ActivationDrivesCoordinator(t *testing.T) {
	ws := t.TempDir()
	one := writeFile(t, filepath.Join(ws, "a.txt"), "alpha")
	two := writeFile(t, filepath.Join(ws, "b.txt"), "beta")

	a := newTestApp(t, func(o *Options) {
		o.Workspace = ws
		o.Files = []string{one, two}
	})

	first, ok := a.Buffers().GetByPath(one)
	if !ok {
		t.Fatalf("Expected %s to be open", one)
	}
	a.Buffers().SetActive(first.ID)

	waitFor(t, "coordinator never saw the activation", func() bool {
		_, ok := a.Input().CursorFor(first.ID)
		return ok
	})
}

func TestApp_InstallPromptFlowsToQueue(t *testing.T) {
	dirs := t.TempDir()
	manifests := filepath.Join(dirs, "manifests")
	if err := os.MkdirAll(manifests, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(manifests, "zz.yaml"), `id: zz-language-server
name: ZZ Language Support
languages:
  - id: zz
    extensions: [".zz"]
server:
  command: folio-test-zz-server
`)
	cfgPath := filepath.Join(dirs, "config.toml")
	writeFile(t, cfgPath, "[extensions]\ndir = '"+filepath.Join(dirs, "ext")+"'\nregistry_paths = ['"+manifests+"']\n")

	ws := t.TempDir()
	source := writeFile(t, filepath.Join(ws, "main.zz"), "zz code")

	a := newTestApp(t, func(o *Options) {
		o.ConfigPath = cfgPath
		o.Workspace = ws
		o.Files = []string{source}
	})

	select {
	case n := <-a.InstallPrompts():
		if n.ExtensionID != "zz-language-server" {
			t.Errorf("Expected zz-language-server, got %q", n.ExtensionID)
		}
		if n.FilePath != source {
			t.Errorf("Expected %s, got %q", source, n.FilePath)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected an install-needed signal")
	}
}
