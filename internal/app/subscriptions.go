package app

import (
	"github.com/folioedit/folio/internal/event"
	"github.com/folioedit/folio/internal/event/events"
	"github.com/folioedit/folio/internal/extension"
	"github.com/folioedit/folio/internal/log"
	"github.com/folioedit/folio/internal/lsp"
)

// onBufferActivated forwards focus changes to the input coordinator so
// it restores the buffer's cursor and re-tokenizes.
func (a *App) onBufferActivated(ev event.Event) {
	if e, ok := ev.(events.BufferActivated); ok {
		a.input.Activated(e.BufferID)
	}
}

// onBufferClosed drops the coordinator's per-buffer state.
func (a *App) onBufferClosed(ev event.Event) {
	if e, ok := ev.(events.BufferClosed); ok {
		a.input.Closed(e.BufferID)
	}
}

// publishDiagnostics republishes debounced diagnostics updates onto
// the bus.
func (a *App) publishDiagnostics(path string, fd lsp.FileDiagnostics) {
	a.bus.Publish(events.LSPDiagnosticsUpdated{
		Path:     path,
		Errors:   fd.ErrorCount,
		Warnings: fd.WarningCount,
		Info:     fd.InfoCount,
		Hints:    fd.HintCount,
		Total:    fd.Total(),
	})
}

// logInstallProgress reports extension install advancement.
func (a *App) logInstallProgress(p extension.Progress) {
	a.logger.Debug("install %s: %s %.0f%% %s", p.ExtensionID, p.State, p.Fraction*100, p.Message)
}

// serverEvents republishes language server session lifecycle onto the
// bus.
type serverEvents struct {
	bus     *event.Bus
	logger  *log.Logger
	manager *lsp.Manager
}

func (o *serverEvents) SessionStarted(workspace, languageID string) {
	o.bus.Publish(events.LSPSessionStarted{
		Workspace:  workspace,
		LanguageID: languageID,
		Command:    o.command(workspace, languageID),
	})
}

func (o *serverEvents) SessionStopped(workspace, languageID string, err error) {
	if err != nil {
		o.logger.Warn("%s server for %s exited: %v", languageID, workspace, err)
	}
	o.bus.Publish(events.LSPSessionStopped{
		Workspace:  workspace,
		LanguageID: languageID,
	})
}

// command looks up the spawned executable for a live session.
func (o *serverEvents) command(workspace, languageID string) string {
	for _, info := range o.manager.Sessions() {
		if info.Workspace == workspace && info.LanguageID == languageID {
			return info.Command
		}
	}
	return ""
}

// installPrompts queues install-needed signals for the embedding UI.
// The queue is bounded; signals past the bound are dropped with a
// warning rather than blocking the resolution gate.
type installPrompts struct {
	ch     chan extension.InstallNeeded
	logger *log.Logger
}

func (q *installPrompts) ExtensionInstallNeeded(n extension.InstallNeeded) {
	select {
	case q.ch <- n:
	default:
		q.logger.Warn("install prompt queue full, dropping %s", n.ExtensionID)
	}
}
