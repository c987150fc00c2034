package syntax

import (
	"context"
	"sync"

	"github.com/folioedit/folio/internal/log"
)

// DeliverFunc receives finished token runs. revision echoes the value
// passed to Request so callers can correlate results with content.
type DeliverFunc func(bufferID string, revision uint64, tokens []Token)

// Service runs tokenization off the caller's goroutine. Each buffer
// keeps only its most recent request: results arriving for a
// superseded revision are discarded, so a burst of edits settles on
// the final content's tokens.
type Service struct {
	mu      sync.Mutex
	reg     *Registry
	deliver DeliverFunc
	latest  map[string]uint64
	logger  *log.Logger
	wg      sync.WaitGroup
}

// NewService creates a tokenizer service over the registry.
func NewService(reg *Registry, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		reg:    reg,
		latest: make(map[string]uint64),
		logger: logger.WithComponent("syntax"),
	}
}

// SetDeliver installs the result sink. Must be called before the
// first Request; delivery runs on the service's goroutines.
func (s *Service) SetDeliver(fn DeliverFunc) {
	s.mu.Lock()
	s.deliver = fn
	s.mu.Unlock()
}

// Request schedules tokenization of content for the buffer. revision
// must increase with each newer content for the same buffer. Unknown
// languages deliver an empty run so stale styling clears.
func (s *Service) Request(bufferID, language, content string, revision uint64) {
	s.mu.Lock()
	s.latest[bufferID] = revision
	s.mu.Unlock()

	tok, ok := s.reg.For(language)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var tokens []Token
		if ok {
			var err error
			tokens, err = tok.Tokenize(context.Background(), content)
			if err != nil {
				s.logger.Debug("tokenize failed for %s (%s): %v", bufferID, language, err)
				return
			}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		current, tracked := s.latest[bufferID]
		if !tracked || current != revision {
			// A newer request or a Forget superseded this run.
			return
		}
		if s.deliver != nil {
			s.deliver(bufferID, revision, tokens)
		}
	}()
}

// Forget drops the buffer's pending state so in-flight results for it
// are discarded. Call on buffer close.
func (s *Service) Forget(bufferID string) {
	s.mu.Lock()
	delete(s.latest, bufferID)
	s.mu.Unlock()
}

// TokenizeSync tokenizes content in the calling goroutine, bypassing
// the request pipeline. Unknown languages yield no tokens.
func (s *Service) TokenizeSync(ctx context.Context, language, content string) ([]Token, error) {
	tok, ok := s.reg.For(language)
	if !ok {
		return nil, nil
	}
	return tok.Tokenize(ctx, content)
}

// Wait blocks until all scheduled tokenization has completed.
func (s *Service) Wait() {
	s.wg.Wait()
}
