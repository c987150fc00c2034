package extension

import (
	"context"

	"github.com/folioedit/folio/internal/log"
	"github.com/folioedit/folio/internal/lsp"
)

// Decision is the outcome of the open-time resolution gate.
type Decision int

const (
	// DecisionNone means no descriptor claims the file, or the
	// claiming descriptor offers no server.
	DecisionNone Decision = iota
	// DecisionStart means an installed server was asked to start.
	DecisionStart
	// DecisionInstallNeeded means a known server is not installed and
	// the UI was asked to offer installation.
	DecisionInstallNeeded
)

func (d Decision) String() string {
	switch d {
	case DecisionNone:
		return "none"
	case DecisionStart:
		return "start"
	case DecisionInstallNeeded:
		return "install-needed"
	default:
		return "unknown"
	}
}

// InstallNeeded asks the installation UI to offer an extension for
// the file that triggered resolution.
type InstallNeeded struct {
	ExtensionID   string
	ExtensionName string
	FilePath      string
}

// Notifier receives install-needed signals. Implementations must not
// block.
type Notifier interface {
	ExtensionInstallNeeded(n InstallNeeded)
}

// SessionStarter starts a language server session for a file. The
// session manager implements this.
type SessionStarter interface {
	StartForFile(ctx context.Context, path string) (*lsp.Session, error)
}

// Gate runs the three-way decision when a file-backed buffer opens.
// Callers invoke it off the open path; buffer creation never waits on
// it.
type Gate struct {
	registry *Registry
	starter  SessionStarter
	notifier Notifier
	logger   *log.Logger
}

// NewGate wires the gate to its registry and collaborators. starter
// and notifier may be nil; the corresponding decisions then only log.
func NewGate(registry *Registry, starter SessionStarter, notifier Notifier, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.Nop()
	}
	return &Gate{
		registry: registry,
		starter:  starter,
		notifier: notifier,
		logger:   logger.WithComponent("extension"),
	}
}

// EvaluateOpen decides what to do about language support for a newly
// opened file: nothing, start the installed server, or raise an
// install-needed signal. A server that is not installed locally is
// never started.
func (g *Gate) EvaluateOpen(ctx context.Context, path string) Decision {
	d, _, ok := g.registry.Resolve(path)
	if !ok {
		g.logger.Debug("no language support for %s", path)
		return DecisionNone
	}
	if d.Server == nil {
		g.logger.Debug("extension %s offers no server for %s", d.ID, path)
		return DecisionNone
	}

	if g.registry.Installed(d.ID) {
		if g.starter != nil {
			if _, err := g.starter.StartForFile(ctx, path); err != nil {
				g.logger.Warn("start server for %s: %v", path, err)
			}
		}
		return DecisionStart
	}

	g.logger.Info("extension %s (%s) would serve %s but is not installed", d.ID, d.Name, path)
	if g.notifier != nil {
		g.notifier.ExtensionInstallNeeded(InstallNeeded{
			ExtensionID:   d.ID,
			ExtensionName: d.Name,
			FilePath:      path,
		})
	}
	return DecisionInstallNeeded
}
