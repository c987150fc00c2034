package input

import (
	"sync"
	"testing"

	"github.com/folioedit/folio/internal/buffer"
	"github.com/folioedit/folio/internal/input/key"
)

type tokenRequest struct {
	id       string
	language string
	content  string
	revision uint64
}

type fakeTokenizer struct {
	mu       sync.Mutex
	requests []tokenRequest
	forgot   []string
}

func (f *fakeTokenizer) Request(bufferID, language, content string, revision uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, tokenRequest{
		id:       bufferID,
		language: language,
		content:  content,
		revision: revision,
	})
}

func (f *fakeTokenizer) Forget(bufferID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgot = append(f.forgot, bufferID)
}

func (f *fakeTokenizer) all() []tokenRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tokenRequest(nil), f.requests...)
}

func (f *fakeTokenizer) forgotten() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.forgot...)
}

func newCoordinator(t *testing.T, opts ...Option) (*Coordinator, *buffer.Store, *fakeTokenizer) {
	t.Helper()
	store := buffer.NewStore()
	tokens := &fakeTokenizer{}
	return NewCoordinator(store, tokens, opts...), store, tokens
}

func TestCoordinator_HandleDelta_CommitsAndTokenizes(t *testing.T) {
	c, store, tokens := newCoordinator(t)
	id := store.Open(buffer.OpenRequest{Path: "/w/a.go", Content: "a"})

	cur := c.HandleDelta(id, Delta{Content: "ab", SelectionStart: 2})
	if cur.Offset != 2 || cur.Line != 0 || cur.Column != 2 {
		t.Errorf("Expected cursor at offset 2 line 0 column 2, got %+v", cur)
	}

	b, _ := store.Get(id)
	if b.Content != "ab" || !b.Dirty || b.Revision != 1 {
		t.Errorf("Expected committed dirty content at revision 1, got %+v", b)
	}

	reqs := tokens.all()
	if len(reqs) != 1 {
		t.Fatalf("Expected 1 tokenization request, got %d", len(reqs))
	}
	if reqs[0].id != id || reqs[0].language != "go" || reqs[0].content != "ab" || reqs[0].revision != 1 {
		t.Errorf("Expected a request for the committed revision, got %+v", reqs[0])
	}
}

func TestCoordinator_HandleDelta_IdenticalSkipsTokenization(t *testing.T) {
	c, store, tokens := newCoordinator(t)
	id := store.Open(buffer.OpenRequest{Path: "/w/a.go", Content: "same"})

	cur := c.HandleDelta(id, Delta{Content: "same", SelectionStart: 3})
	if cur.Offset != 3 {
		t.Errorf("Expected the cursor to be recomputed, got %+v", cur)
	}
	if len(tokens.all()) != 0 {
		t.Error("Expected no tokenization for identical content")
	}

	b, _ := store.Get(id)
	if b.Dirty || b.Revision != 0 {
		t.Errorf("Expected no commit, got dirty=%v rev=%d", b.Dirty, b.Revision)
	}
	if got, ok := c.CursorFor(id); !ok || got.Offset != 3 {
		t.Errorf("Expected the cursor memory to update anyway, got %+v ok=%v", got, ok)
	}
}

func TestCoordinator_HandleDelta_UnknownBuffer(t *testing.T) {
	c, _, tokens := newCoordinator(t)

	cur := c.HandleDelta("no-such-id", Delta{Content: "x", SelectionStart: 1})
	if cur.Offset != 1 {
		t.Errorf("Expected the cursor math to still run, got %+v", cur)
	}
	if len(tokens.all()) != 0 {
		t.Error("Expected no tokenization for an unknown buffer")
	}
	if _, ok := c.CursorFor("no-such-id"); ok {
		t.Error("Expected no cursor memory for an unknown buffer")
	}
}

func TestCoordinator_HandleKey_TabInsertsSpaces(t *testing.T) {
	c, store, tokens := newCoordinator(t, WithTabSize(2))
	id := store.Open(buffer.OpenRequest{Path: "/w/a.go", Content: "ab"})
	c.HandleDelta(id, Delta{Content: "ab", SelectionStart: 1})

	if !c.HandleKey(id, key.NewSpecialEvent(key.KeyTab, key.ModNone)) {
		t.Fatal("Expected Tab to be consumed")
	}

	b, _ := store.Get(id)
	if b.Content != "a  b" {
		t.Errorf("Expected two spaces at the cursor, got %q", b.Content)
	}
	if !b.Dirty || b.Revision != 1 {
		t.Errorf("Expected the insertion to commit like a keystroke, got dirty=%v rev=%d", b.Dirty, b.Revision)
	}

	cur, _ := c.CursorFor(id)
	if cur.Offset != 3 {
		t.Errorf("Expected the cursor after the inserted spaces, got %+v", cur)
	}

	reqs := tokens.all()
	if len(reqs) != 1 || reqs[0].content != "a  b" {
		t.Errorf("Expected one tokenization of the new content, got %+v", reqs)
	}
}

func TestCoordinator_HandleKey_ReservedModifierPassesThrough(t *testing.T) {
	c, store, _ := newCoordinator(t)
	id := store.Open(buffer.OpenRequest{Path: "/w/a.go", Content: "ab"})

	if c.HandleKey(id, key.NewSpecialEvent(key.KeyTab, key.ModCtrl)) {
		t.Error("Expected Ctrl+Tab to be left to the host")
	}
	if c.HandleKey(id, key.NewRuneEvent('x', key.ModNone)) {
		t.Error("Expected plain characters to be left to the host")
	}
	if b, _ := store.Get(id); b.Content != "ab" {
		t.Errorf("Expected content unchanged, got %q", b.Content)
	}
}

func TestCoordinator_HandleKey_CustomReservedModifier(t *testing.T) {
	c, store, _ := newCoordinator(t, WithReservedModifier(key.ModMeta))
	id := store.Open(buffer.OpenRequest{Path: "/w/a.go", Content: ""})

	if c.HandleKey(id, key.NewSpecialEvent(key.KeyTab, key.ModMeta)) {
		t.Error("Expected Meta+Tab to be left to the host")
	}
	if !c.HandleKey(id, key.NewSpecialEvent(key.KeyTab, key.ModCtrl)) {
		t.Error("Expected Ctrl+Tab to insert when Meta is the reserved modifier")
	}
	if b, _ := store.Get(id); b.Content != "    " {
		t.Errorf("Expected the default four spaces, got %q", b.Content)
	}
}

func TestCoordinator_HandleKey_UnknownBuffer(t *testing.T) {
	c, _, _ := newCoordinator(t)
	if c.HandleKey("no-such-id", key.NewSpecialEvent(key.KeyTab, key.ModNone)) {
		t.Error("Expected Tab for an unknown buffer to be ignored")
	}
}

func TestCoordinator_Activated_RestoresCursorAndRetokenizes(t *testing.T) {
	c, store, tokens := newCoordinator(t)
	a := store.Open(buffer.OpenRequest{Path: "/w/a.go", Content: "hello world"})
	b := store.Open(buffer.OpenRequest{Path: "/w/b.go", Content: "package b"})

	c.HandleDelta(a, Delta{Content: "hello world", SelectionStart: 8})
	c.Activated(b)
	before := len(tokens.all())

	cur := c.Activated(a)
	if cur.Offset != 8 {
		t.Errorf("Expected the recorded cursor to be restored, got %+v", cur)
	}

	reqs := tokens.all()
	if len(reqs) != before+1 {
		t.Fatalf("Expected one new tokenization on switch, got %d", len(reqs)-before)
	}
	last := reqs[len(reqs)-1]
	if last.id != a || last.content != "hello world" {
		t.Errorf("Expected a request from the stored content of %s, got %+v", a, last)
	}
}

func TestCoordinator_Activated_ClampsToContent(t *testing.T) {
	c, store, _ := newCoordinator(t)
	a := store.Open(buffer.OpenRequest{Path: "/w/a.go", Content: "hello"})
	b := store.Open(buffer.OpenRequest{Path: "/w/b.go", Content: ""})

	c.HandleDelta(a, Delta{Content: "hello", SelectionStart: 5})
	c.Activated(b)
	store.UpdateContent(a, "hi", false, "")

	cur := c.Activated(a)
	if cur.Offset != 2 || cur.Line != 0 || cur.Column != 2 {
		t.Errorf("Expected the cursor clamped to the shrunken content, got %+v", cur)
	}
}

func TestCoordinator_Activated_SameIDSkipsTokenization(t *testing.T) {
	c, store, tokens := newCoordinator(t)
	a := store.Open(buffer.OpenRequest{Path: "/w/a.go", Content: "x"})

	c.Activated(a)
	if n := len(tokens.all()); n != 1 {
		t.Fatalf("Expected one tokenization on first activation, got %d", n)
	}
	c.Activated(a)
	if n := len(tokens.all()); n != 1 {
		t.Errorf("Expected repeat activation to not re-tokenize, got %d requests", n)
	}
}

func TestCoordinator_Activated_UnknownOrEmpty(t *testing.T) {
	c, _, tokens := newCoordinator(t)

	if cur := c.Activated(""); cur != (Cursor{}) {
		t.Errorf("Expected a zero cursor for no buffer, got %+v", cur)
	}
	if cur := c.Activated("no-such-id"); cur != (Cursor{}) {
		t.Errorf("Expected a zero cursor for an unknown buffer, got %+v", cur)
	}
	if len(tokens.all()) != 0 {
		t.Error("Expected no tokenization requests")
	}
}

func TestCoordinator_Closed_DropsMemory(t *testing.T) {
	c, store, tokens := newCoordinator(t)
	a := store.Open(buffer.OpenRequest{Path: "/w/a.go", Content: "x"})
	c.HandleDelta(a, Delta{Content: "x", SelectionStart: 1})
	c.Activated(a)

	c.Closed(a)

	if forgot := tokens.forgotten(); len(forgot) != 1 || forgot[0] != a {
		t.Errorf("Expected the tokenizer to forget %s, got %v", a, forgot)
	}
	if _, ok := c.CursorFor(a); ok {
		t.Error("Expected the cursor memory to be dropped")
	}

	// Reopening focus on the same id counts as a fresh switch.
	before := len(tokens.all())
	c.Activated(a)
	if n := len(tokens.all()); n != before+1 {
		t.Errorf("Expected activation after close to re-tokenize, got %d requests", n-before)
	}
}

func TestLocate(t *testing.T) {
	tests := []struct {
		content string
		offset  int
		want    Cursor
	}{
		{"", 0, Cursor{0, 0, 0}},
		{"abc", -5, Cursor{0, 0, 0}},
		{"abc", 99, Cursor{3, 0, 3}},
		{"one\ntwo\nthree", 0, Cursor{0, 0, 0}},
		{"one\ntwo\nthree", 3, Cursor{3, 0, 3}},
		{"one\ntwo\nthree", 4, Cursor{4, 1, 0}},
		{"one\ntwo\nthree", 6, Cursor{6, 1, 2}},
		{"one\ntwo\nthree", 8, Cursor{8, 2, 0}},
		{"one\ntwo\nthree", 13, Cursor{13, 2, 5}},
		{"a\n", 2, Cursor{2, 1, 0}},
	}

	for _, tt := range tests {
		if got := locate(tt.content, tt.offset); got != tt.want {
			t.Errorf("locate(%q, %d) = %+v, want %+v", tt.content, tt.offset, got, tt.want)
		}
	}
}
