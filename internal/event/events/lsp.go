package events

import "github.com/folioedit/folio/internal/event"

// Language server event topics.
const (
	// TopicLSPSessionStarted is published when a language server
	// session becomes active.
	TopicLSPSessionStarted event.Topic = "lsp.session.started"

	// TopicLSPSessionStopped is published when a session is removed.
	TopicLSPSessionStopped event.Topic = "lsp.session.stopped"

	// TopicLSPDiagnostics is published when the diagnostics for a file
	// change.
	TopicLSPDiagnostics event.Topic = "lsp.diagnostics.updated"
)

// LSPSessionStarted is published when a session becomes active.
type LSPSessionStarted struct {
	// Workspace is the session's workspace root.
	Workspace string

	// LanguageID is the session's language.
	LanguageID string

	// Command is the server executable that was spawned.
	Command string
}

// Topic implements event.Event.
func (LSPSessionStarted) Topic() event.Topic { return TopicLSPSessionStarted }

// LSPSessionStopped is published when a session is removed.
type LSPSessionStopped struct {
	// Workspace is the session's workspace root.
	Workspace string

	// LanguageID is the session's language.
	LanguageID string
}

// Topic implements event.Event.
func (LSPSessionStopped) Topic() event.Topic { return TopicLSPSessionStopped }

// LSPDiagnosticsUpdated is published when a file's diagnostics change.
type LSPDiagnosticsUpdated struct {
	// Path is the absolute file path the diagnostics apply to.
	Path string

	// Errors, Warnings, Info, and Hints count items by severity.
	Errors   int
	Warnings int
	Info     int
	Hints    int

	// Total is the number of diagnostics after truncation.
	Total int
}

// Topic implements event.Event.
func (LSPDiagnosticsUpdated) Topic() event.Topic { return TopicLSPDiagnostics }
