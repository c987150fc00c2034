// Package buffer holds the open-document state of the editor: an
// ordered tab list with exactly one active member, a deferred
// pending-close record, the reopenable closed-buffer history, and the
// recent-files list. All mutation goes through Store methods. The
// collaborators a mutation touches (language gate, server notifier,
// snapshot scheduler, event bus) are injected at construction and
// never block a mutation's return.
package buffer
