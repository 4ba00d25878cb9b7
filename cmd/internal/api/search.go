package api

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultSearchDebounce = 500 * time.Millisecond

// SearchFunc runs one search request.
type SearchFunc func(ctx context.Context, term string) ([]SearchUserResult, error)

// DeliverFunc receives the outcome of the most recent query. It is never
// called for a query that has since been superseded.
type DeliverFunc func(term string, users []SearchUserResult, err error)

// Searcher debounces search-as-you-type. Each Query restarts the delay; only
// the latest query's result is delivered, so a slow response for an old term
// can never overwrite state for the current one.
type Searcher struct {
	log     *slog.Logger
	delay   time.Duration
	search  SearchFunc
	deliver DeliverFunc

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	closed bool
}

// NewSearcher constructs a Searcher. delay <= 0 uses the 500ms default.
func NewSearcher(log *slog.Logger, delay time.Duration, search SearchFunc, deliver DeliverFunc) *Searcher {
	if delay <= 0 {
		delay = defaultSearchDebounce
	}
	return &Searcher{log: log, delay: delay, search: search, deliver: deliver}
}

// Query schedules a search for term after the debounce delay, cancelling any
// pending one. An empty term cancels and delivers an empty result at once.
func (s *Searcher) Query(ctx context.Context, term string) {
	term = strings.TrimSpace(term)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	if term == "" {
		s.mu.Unlock()
		s.deliver("", nil, nil)
		return
	}

	s.timer = time.AfterFunc(s.delay, func() {
		s.run(ctx, gen, term)
	})
	s.mu.Unlock()
}

// Close cancels any pending search. Results of in-flight requests are dropped.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Searcher) run(ctx context.Context, gen uint64, term string) {
	if !s.current(gen) || ctx.Err() != nil {
		return
	}

	users, err := s.search(ctx, term)

	if !s.current(gen) {
		s.log.Debug("search.stale.dropped", "term", term)
		return
	}
	s.deliver(term, users, err)
}

func (s *Searcher) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && gen == s.gen
}
