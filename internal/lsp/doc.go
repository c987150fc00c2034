// Package lsp manages language server sessions for open files.
//
// A Session owns one spawned server process and speaks JSON-RPC 2.0
// over its stdio with Content-Length framing (Transport). The Manager
// keys sessions by (workspace, languageID), resolves which server to
// launch through an injected Resolver, and keeps session startup
// idempotent: concurrent opens of files sharing a key spawn exactly
// one process.
//
// Interactive requests degrade instead of failing: Completions
// returns an empty list and Hover returns nil on any error, so editor
// input never stalls on a slow or missing server. Document sync
// notifications are fire-and-forget with failures logged.
//
// Servers push diagnostics asynchronously; the Diagnostics sink
// stores them per absolute file path, last write wins, discarding
// publishes whose document version is older than the last version the
// client sent.
package lsp
