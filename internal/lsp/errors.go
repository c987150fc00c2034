package lsp

import (
	"errors"
	"fmt"
)

// Standard errors returned by the session manager.
var (
	// ErrShutdown indicates the transport or session has been shut down.
	ErrShutdown = errors.New("lsp session shut down")

	// ErrNoServer indicates no server resolves for the file.
	ErrNoServer = errors.New("no language server for file")

	// ErrSessionNotReady indicates the session has not finished starting.
	ErrSessionNotReady = errors.New("session not ready")

	// ErrAlreadyStarted indicates the session was started twice.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrNotSupported indicates the server lacks the requested capability.
	ErrNotSupported = errors.New("capability not supported by server")

	// ErrDocumentNotOpen indicates the document is not tracked by the session.
	ErrDocumentNotOpen = errors.New("document not open")

	// ErrDocumentAlreadyOpen indicates the document is already tracked.
	ErrDocumentAlreadyOpen = errors.New("document already open")

	// ErrInvalidResponse indicates an undecodable server reply.
	ErrInvalidResponse = errors.New("invalid response from server")
)

// RPCError is a JSON-RPC error object from the server.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// JSON-RPC and LSP error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeServerNotInitialized = -32002
	CodeRequestCancelled     = -32800
	CodeContentModified      = -32801
)

// SessionError attaches the session key to a lifecycle failure.
type SessionError struct {
	Workspace  string
	LanguageID string
	Err        error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s/%s: %v", e.Workspace, e.LanguageID, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
