package app

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/folioedit/folio/internal/buffer"
	"github.com/folioedit/folio/internal/config"
	"github.com/folioedit/folio/internal/event"
	"github.com/folioedit/folio/internal/event/events"
	"github.com/folioedit/folio/internal/extension"
	"github.com/folioedit/folio/internal/input"
	"github.com/folioedit/folio/internal/log"
	"github.com/folioedit/folio/internal/lsp"
	"github.com/folioedit/folio/internal/session"
	"github.com/folioedit/folio/internal/syntax"
	"github.com/folioedit/folio/internal/watch"
)

// installPromptQueueSize bounds the install-needed signal queue.
const installPromptQueueSize = 16

// bootstrap constructs every subsystem in dependency order. Only a
// configuration failure is fatal; session persistence and file
// watching degrade to disabled.
func (a *App) bootstrap(opts Options) error {
	// 1. Configuration
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return &ComponentError{Component: "config", Action: "load", Err: err}
	}
	a.cfg = cfg

	// 2. Logging
	level := log.ParseLevel(cfg.Logging.Level)
	if opts.LogLevel != "" {
		level = log.ParseLevel(opts.LogLevel)
	}
	out := io.Writer(os.Stderr)
	if opts.LogOutput != nil {
		out = opts.LogOutput
	}
	a.logger = log.New(log.Config{Level: level, Output: out, Prefix: "folio"})

	// 3. Workspace root
	a.workspace = resolveWorkspace(opts.Workspace)
	a.logger.Debug("workspace root %s", a.workspace)

	// 4. Event bus - messaging between subsystems
	a.bus = event.New()

	// 5. Session persistence - optional, errors are non-fatal
	if !opts.DisableSession && !cfg.Session.Disabled {
		store, err := session.Open(session.Config{Dir: cfg.Session.Dir, Logger: a.logger})
		if err != nil {
			a.logger.Warn("session persistence disabled: %v", err)
		} else {
			a.session = store
		}
	}

	// 6. Extension registry and installer
	a.extensions = extension.NewRegistry(cfg.Extensions.Dir, a.logger)
	a.extensions.RegisterBuiltins()
	for _, dir := range cfg.Extensions.RegistryPaths {
		n, err := a.extensions.LoadDir(dir)
		if err != nil {
			a.logger.Warn("manifest dir %s: %v", dir, err)
			continue
		}
		if n > 0 {
			a.logger.Debug("loaded %d descriptors from %s", n, dir)
		}
	}
	a.installer = extension.NewInstaller(a.extensions, cfg.Extensions.Dir,
		extension.WithInstallerLogger(a.logger),
		extension.WithProgress(a.logInstallProgress),
	)

	// 7. Language server manager, republishing lifecycle onto the bus
	observer := &serverEvents{bus: a.bus, logger: a.logger}
	a.servers = lsp.NewManager(a.extensions,
		lsp.WithManagerLogger(a.logger),
		lsp.WithRequestTimeout(time.Duration(cfg.LSP.RequestTimeoutMS)*time.Millisecond),
		lsp.WithMaxCompletions(cfg.LSP.MaxCompletions),
		lsp.WithSessionObserver(observer),
	)
	observer.manager = a.servers
	a.servers.Diagnostics().SetOnUpdate(a.publishDiagnostics)

	// 8. Resolution gate with the install-needed queue
	a.prompts = &installPrompts{
		ch:     make(chan extension.InstallNeeded, installPromptQueueSize),
		logger: a.logger,
	}
	a.gate = extension.NewGate(a.extensions, a.servers, a.prompts, a.logger)

	// 9. Tokenization
	a.tokens = syntax.NewService(syntax.DefaultRegistry(a.logger), a.logger)

	// 10. Buffer store, fed back with the previous session's MRU list
	var snap session.Snapshot
	restored := false
	if a.session != nil {
		s, ok, err := a.session.Load(a.workspace)
		if err != nil {
			a.logger.Warn("session load for %s: %v", a.workspace, err)
		} else if ok {
			snap, restored = s, true
		}
	}
	storeOpts := []buffer.Option{
		buffer.WithWorkspace(a.workspace),
		buffer.WithBus(a.bus),
		buffer.WithLogger(a.logger),
		buffer.WithGate(a.gate),
		buffer.WithSessions(a.servers),
		buffer.WithMaxOpenTabs(cfg.Editor.MaxOpenTabs),
		buffer.WithClosedHistorySize(cfg.Editor.ClosedHistorySize),
		buffer.WithRecentFilesSize(cfg.Editor.RecentFilesSize),
	}
	if a.session != nil {
		storeOpts = append(storeOpts, buffer.WithSnapshots(a.session))
	}
	if restored {
		storeOpts = append(storeOpts, buffer.WithRecentFiles(snap.RecentFiles))
	}
	a.buffers = buffer.NewStore(storeOpts...)
	a.tokens.SetDeliver(func(bufferID string, _ uint64, tokens []syntax.Token) {
		a.buffers.UpdateTokens(bufferID, tokens)
	})

	// 11. Input coordinator, driven by buffer lifecycle events
	a.input = input.NewCoordinator(a.buffers, a.tokens,
		input.WithTabSize(cfg.Editor.TabSize),
	)
	a.subs = append(a.subs,
		a.bus.Subscribe(events.TopicBufferActivated, a.onBufferActivated),
		a.bus.Subscribe(events.TopicBufferClosed, a.onBufferClosed),
	)

	// 12. File watching - optional, errors are non-fatal
	watcher, err := watch.New(a.buffers, a.bus, watch.WithLogger(a.logger))
	if err != nil {
		a.logger.Warn("file watching disabled: %v", err)
	} else {
		a.watcher = watcher
	}

	// 13. Restore the previous session, then open requested files
	if restored {
		a.restoreBuffers(snap)
	}
	for _, path := range opts.Files {
		if _, err := a.buffers.OpenPath(path); err != nil {
			a.logger.Warn("open %s: %v", path, err)
		}
	}
	if a.buffers.Count() == 0 {
		a.buffers.OpenScratch()
	}

	a.logger.Info("folio ready in %s", a.workspace)
	return nil
}

// restoreBuffers reopens the buffers recorded in a workspace snapshot
// in tab order. Files that no longer exist are skipped; the recorded
// active buffer regains focus when it survived.
func (a *App) restoreBuffers(snap session.Snapshot) {
	reopened := 0
	for _, st := range snap.Buffers {
		content, err := os.ReadFile(st.Path)
		if err != nil {
			a.logger.Debug("not restoring %s: %v", st.Path, err)
			continue
		}
		a.buffers.Open(buffer.OpenRequest{
			Path:    st.Path,
			Name:    st.Name,
			Content: string(content),
			Pinned:  st.Pinned,
		})
		reopened++
	}

	if snap.ActivePath != "" {
		if b, ok := a.buffers.GetByPath(snap.ActivePath); ok {
			a.buffers.SetActive(b.ID)
		}
	}
	if reopened > 0 {
		a.logger.Info("restored %d buffers for %s", reopened, snap.Root)
	}
}

// resolveWorkspace absolutizes the workspace root, defaulting to the
// working directory.
func resolveWorkspace(root string) string {
	if root == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
		return "."
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}
