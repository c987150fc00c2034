package input

import (
	"strings"
	"sync"

	"github.com/folioedit/folio/internal/buffer"
	"github.com/folioedit/folio/internal/input/key"
)

const defaultTabSize = 4

// ContentStore is the slice of the buffer store the coordinator
// drives. *buffer.Store implements it.
type ContentStore interface {
	Get(id string) (buffer.Buffer, bool)
	UpdateContent(id, content string, markDirty bool, diffData string) bool
}

// Tokenizer receives re-tokenization requests for buffer content.
// *syntax.Service implements it.
type Tokenizer interface {
	Request(bufferID, language, content string, revision uint64)
	Forget(bufferID string)
}

// Delta is one committed text change from the host widget: the full
// new content and the widget's selection start, as a byte offset,
// after the change.
type Delta struct {
	Content        string
	SelectionStart int
}

// Coordinator turns host input into buffer commits, cursor state,
// and tokenization requests. It owns the per-buffer cursor memory;
// the host owns the widget.
type Coordinator struct {
	store    ContentStore
	tokens   Tokenizer
	tabSize  int
	reserved key.Modifier

	mu       sync.Mutex
	activeID string
	offsets  map[string]int
}

// NewCoordinator creates a coordinator over the given store and
// tokenizer.
func NewCoordinator(store ContentStore, tokens Tokenizer, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		tokens:   tokens,
		tabSize:  defaultTabSize,
		reserved: key.ModCtrl,
		offsets:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleDelta commits a content change for a buffer and returns the
// recomputed cursor. Commit, cursor write, and tokenization request
// run in order on the caller's goroutine; identical content never
// re-tokenizes. Unknown ids recompute the cursor and do nothing else.
func (c *Coordinator) HandleDelta(id string, d Delta) Cursor {
	cur := locate(d.Content, d.SelectionStart)
	changed := c.store.UpdateContent(id, d.Content, true, "")

	b, ok := c.store.Get(id)
	if !ok {
		return cur
	}
	c.remember(id, cur.Offset)
	if changed {
		c.tokens.Request(id, b.Language, b.Content, b.Revision)
	}
	return cur
}

// HandleKey handles a key event for a buffer and reports whether the
// coordinator consumed it. Tab pressed without the host's reserved
// tab-switch modifier inserts the configured number of spaces at the
// cursor and feeds the result back through HandleDelta as if typed.
// Every other key is the host's.
func (c *Coordinator) HandleKey(id string, ev key.Event) bool {
	if ev.Key != key.KeyTab || ev.Modifiers.Has(c.reserved) {
		return false
	}
	b, ok := c.store.Get(id)
	if !ok {
		return false
	}

	c.mu.Lock()
	off := c.offsets[id]
	c.mu.Unlock()
	if off > len(b.Content) {
		off = len(b.Content)
	}

	indent := strings.Repeat(" ", c.tabSize)
	content := b.Content[:off] + indent + b.Content[off:]
	c.HandleDelta(id, Delta{Content: content, SelectionStart: off + len(indent)})
	return true
}

// Activated reacts to a buffer focus change: it restores the
// buffer's recorded cursor, clamped into the current content, and
// re-tokenizes from the stored text. Calls repeating the current
// active id return the cursor without tokenizing, which keeps the
// switch trigger apart from the edit trigger.
func (c *Coordinator) Activated(id string) Cursor {
	c.mu.Lock()
	same := id == c.activeID
	c.activeID = id
	off := c.offsets[id]
	c.mu.Unlock()

	if id == "" {
		return Cursor{}
	}
	b, ok := c.store.Get(id)
	if !ok {
		return Cursor{}
	}
	cur := locate(b.Content, off)
	if same {
		return cur
	}
	c.remember(id, cur.Offset)
	c.tokens.Request(id, b.Language, b.Content, b.Revision)
	return cur
}

// Closed drops a closed buffer's cursor memory and tells the
// tokenizer to forget its in-flight state.
func (c *Coordinator) Closed(id string) {
	c.mu.Lock()
	delete(c.offsets, id)
	if c.activeID == id {
		c.activeID = ""
	}
	c.mu.Unlock()

	c.tokens.Forget(id)
}

// CursorFor returns the recorded cursor for a buffer, located within
// its current content.
func (c *Coordinator) CursorFor(id string) (Cursor, bool) {
	c.mu.Lock()
	off, ok := c.offsets[id]
	c.mu.Unlock()
	if !ok {
		return Cursor{}, false
	}
	b, ok := c.store.Get(id)
	if !ok {
		return Cursor{}, false
	}
	return locate(b.Content, off), true
}

func (c *Coordinator) remember(id string, offset int) {
	c.mu.Lock()
	c.offsets[id] = offset
	c.mu.Unlock()
}
