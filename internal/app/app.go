// Package app assembles folio's subsystems and owns their lifecycle:
// ordered construction, the bridges between them, and reverse-order
// shutdown.
package app

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/folioedit/folio/internal/buffer"
	"github.com/folioedit/folio/internal/config"
	"github.com/folioedit/folio/internal/event"
	"github.com/folioedit/folio/internal/extension"
	"github.com/folioedit/folio/internal/input"
	"github.com/folioedit/folio/internal/log"
	"github.com/folioedit/folio/internal/lsp"
	"github.com/folioedit/folio/internal/session"
	"github.com/folioedit/folio/internal/syntax"
	"github.com/folioedit/folio/internal/watch"
)

// Options configures application construction.
type Options struct {
	// ConfigPath overrides the default configuration file location.
	ConfigPath string

	// Workspace is the project root. Empty means the working
	// directory.
	Workspace string

	// Files are opened in order after the previous session is
	// restored.
	Files []string

	// LogLevel overrides the configured log level when non-empty.
	LogLevel string

	// LogOutput overrides stderr as the log destination.
	LogOutput io.Writer

	// DisableSession turns off session persistence regardless of
	// configuration.
	DisableSession bool
}

// App wires folio's subsystems together.
type App struct {
	// Core infrastructure
	cfg    *config.Config
	logger *log.Logger
	bus    *event.Bus

	// Workspace persistence. Nil when disabled or unavailable.
	session *session.Store

	// Language tooling
	extensions *extension.Registry
	installer  *extension.Installer
	servers    *lsp.Manager
	gate       *extension.Gate

	// Editing core
	tokens  *syntax.Service
	buffers *buffer.Store
	input   *input.Coordinator

	// File watching. Nil when unavailable.
	watcher *watch.Watcher

	workspace string
	prompts   *installPrompts
	subs      []*event.Subscription

	closed atomic.Bool
}

// New builds the application from opts. Construction fails only when
// the configuration cannot be loaded; optional subsystems degrade to
// disabled with a logged warning.
func New(opts Options) (*App, error) {
	a := &App{}
	if err := a.bootstrap(opts); err != nil {
		return nil, err
	}
	return a, nil
}

// InstallExtension downloads and installs the extension, then starts
// language support for any open buffer it serves.
func (a *App) InstallExtension(ctx context.Context, id string) error {
	if err := a.installer.Install(ctx, id); err != nil {
		return err
	}

	for _, b := range a.buffers.List() {
		if !b.Real() || b.Path == "" {
			continue
		}
		d, _, ok := a.extensions.Resolve(b.Path)
		if !ok || d.ID != id {
			continue
		}
		if a.gate.EvaluateOpen(ctx, b.Path) == extension.DecisionStart {
			a.servers.NotifyOpen(b.Path, b.Language, b.Content)
		}
	}
	return nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the application logger.
func (a *App) Logger() *log.Logger { return a.logger }

// Bus returns the event bus.
func (a *App) Bus() *event.Bus { return a.bus }

// Session returns the workspace persistence store, nil when disabled.
func (a *App) Session() *session.Store { return a.session }

// Extensions returns the extension registry.
func (a *App) Extensions() *extension.Registry { return a.extensions }

// Installer returns the extension installer.
func (a *App) Installer() *extension.Installer { return a.installer }

// Servers returns the language server session manager.
func (a *App) Servers() *lsp.Manager { return a.servers }

// Gate returns the open-time resolution gate.
func (a *App) Gate() *extension.Gate { return a.gate }

// Diagnostics returns the language server diagnostics sink.
func (a *App) Diagnostics() *lsp.Diagnostics { return a.servers.Diagnostics() }

// Tokens returns the tokenizer service.
func (a *App) Tokens() *syntax.Service { return a.tokens }

// Buffers returns the buffer store.
func (a *App) Buffers() *buffer.Store { return a.buffers }

// Input returns the input coordinator.
func (a *App) Input() *input.Coordinator { return a.input }

// Watcher returns the file watcher, nil when unavailable.
func (a *App) Watcher() *watch.Watcher { return a.watcher }

// Workspace returns the resolved workspace root.
func (a *App) Workspace() string { return a.workspace }

// InstallPrompts returns the queue of install-needed signals raised by
// the resolution gate. The embedding UI consumes it.
func (a *App) InstallPrompts() <-chan extension.InstallNeeded { return a.prompts.ch }
