package syntax

import (
	"context"
	"sync"

	"github.com/folioedit/folio/internal/log"
)

// Tokenizer converts content in one language into styled spans.
// Implementations must be safe for concurrent use.
type Tokenizer interface {
	// Language returns the language id the tokenizer serves.
	Language() string

	// Tokenize produces ordered, non-overlapping spans over content.
	Tokenize(ctx context.Context, content string) ([]Token, error)
}

// FallbackFunc builds a tokenizer for a language with no explicit
// registration, or returns nil when it cannot.
type FallbackFunc func(language string) Tokenizer

// Registry resolves language ids to tokenizers. Explicit
// registrations win; a fallback constructor covers the rest and its
// results are cached.
type Registry struct {
	mu       sync.RWMutex
	byLang   map[string]Tokenizer
	fallback FallbackFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byLang: make(map[string]Tokenizer),
	}
}

// Register maps the tokenizer's language to it, replacing any previous
// registration.
func (r *Registry) Register(t Tokenizer) {
	if t == nil {
		return
	}
	r.mu.Lock()
	r.byLang[t.Language()] = t
	r.mu.Unlock()
}

// SetFallback installs the constructor consulted for languages with no
// explicit registration.
func (r *Registry) SetFallback(fn FallbackFunc) {
	r.mu.Lock()
	r.fallback = fn
	r.mu.Unlock()
}

// For returns the tokenizer for a language id.
func (r *Registry) For(language string) (Tokenizer, bool) {
	r.mu.RLock()
	t, ok := r.byLang[language]
	fallback := r.fallback
	r.mu.RUnlock()
	if ok {
		return t, true
	}
	if fallback == nil {
		return nil, false
	}

	t = fallback(language)
	if t == nil {
		return nil, false
	}

	r.mu.Lock()
	// Another goroutine may have cached the language meanwhile.
	if cached, ok := r.byLang[language]; ok {
		t = cached
	} else {
		r.byLang[language] = t
	}
	r.mu.Unlock()
	return t, true
}

// Languages returns the explicitly registered and cached language ids.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	langs := make([]string, 0, len(r.byLang))
	for id := range r.byLang {
		langs = append(langs, id)
	}
	return langs
}

// DefaultRegistry builds the production registry: tree-sitter backends
// for the TypeScript/JavaScript family, the diff tokenizer for diff
// buffers, and chroma lexers for everything else. A tree-sitter
// backend that fails to build is logged and skipped; chroma still
// covers its language.
func DefaultRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Nop()
	}

	r := NewRegistry()

	for _, id := range []string{"typescript", "typescriptreact", "javascript", "javascriptreact"} {
		t, err := NewTreeSitter(id)
		if err != nil {
			logger.Warn("tree-sitter backend unavailable for %s: %v", id, err)
			continue
		}
		r.Register(t)
	}

	r.Register(NewDiffTokenizer())

	r.SetFallback(func(language string) Tokenizer {
		if c := NewChroma(language); c != nil {
			return c
		}
		return nil
	})

	return r
}
