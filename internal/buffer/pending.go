package buffer

// CloseKind identifies which close operation a PendingClose defers.
type CloseKind string

// Close kinds.
const (
	CloseKindSingle  CloseKind = "single"
	CloseKindOthers  CloseKind = "others"
	CloseKindAll     CloseKind = "all"
	CloseKindToRight CloseKind = "to-right"
)

// PendingClose is a close operation waiting on user confirmation
// because at least one affected buffer has unsaved changes. At most
// one exists at a time; a newer request replaces an unconfirmed one.
type PendingClose struct {
	// Kind is the deferred close variant.
	Kind CloseKind

	// BufferIDs are the buffers the close will affect when confirmed.
	BufferIDs []string
}
