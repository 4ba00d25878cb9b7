package api

import (
	"context"
	"sync"
	"testing"
	"time"
)

type searchRecorder struct {
	mu        sync.Mutex
	terms     []string
	delivered []string
}

func (r *searchRecorder) search(_ context.Context, term string) ([]SearchUserResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terms = append(r.terms, term)
	return []SearchUserResult{{ID: 1, UserName: term}}, nil
}

func (r *searchRecorder) deliver(term string, _ []SearchUserResult, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, term)
}

func (r *searchRecorder) snapshot() (terms, delivered []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.terms...), append([]string(nil), r.delivered...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("condition never met")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSearcherDebouncesKeystrokes(t *testing.T) {
	t.Parallel()

	rec := &searchRecorder{}
	s := NewSearcher(testLogger(), 30*time.Millisecond, rec.search, rec.deliver)
	defer s.Close()

	ctx := context.Background()
	s.Query(ctx, "b")
	s.Query(ctx, "bo")
	s.Query(ctx, "bob")

	waitFor(t, func() bool {
		_, delivered := rec.snapshot()
		return len(delivered) > 0
	})
	terms, delivered := rec.snapshot()
	if len(terms) != 1 || terms[0] != "bob" {
		t.Fatalf("searched terms=%v want [bob]", terms)
	}
	if len(delivered) != 1 || delivered[0] != "bob" {
		t.Fatalf("delivered=%v want [bob]", delivered)
	}
}

func TestSearcherEmptyTermDeliversImmediately(t *testing.T) {
	t.Parallel()

	rec := &searchRecorder{}
	s := NewSearcher(testLogger(), time.Minute, rec.search, rec.deliver)
	defer s.Close()

	s.Query(context.Background(), "  ")

	terms, delivered := rec.snapshot()
	if len(terms) != 0 {
		t.Fatalf("empty term hit the backend: %v", terms)
	}
	if len(delivered) != 1 || delivered[0] != "" {
		t.Fatalf("delivered=%v want one empty delivery", delivered)
	}
}

func TestSearcherDropsStaleResult(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	rec := &searchRecorder{}
	search := func(ctx context.Context, term string) ([]SearchUserResult, error) {
		if term == "slow" {
			close(entered)
			<-release
		}
		return rec.search(ctx, term)
	}

	s := NewSearcher(testLogger(), time.Millisecond, search, rec.deliver)
	defer s.Close()

	ctx := context.Background()
	s.Query(ctx, "slow")
	<-entered

	// A newer query supersedes the in-flight one; its result must not land.
	s.Query(ctx, "fresh")
	close(release)

	waitFor(t, func() bool {
		_, delivered := rec.snapshot()
		return len(delivered) > 0
	})
	time.Sleep(20 * time.Millisecond)

	_, delivered := rec.snapshot()
	for _, term := range delivered {
		if term == "slow" {
			t.Fatalf("stale result delivered: %v", delivered)
		}
	}
}

func TestSearcherCloseCancelsPending(t *testing.T) {
	t.Parallel()

	rec := &searchRecorder{}
	s := NewSearcher(testLogger(), 20*time.Millisecond, rec.search, rec.deliver)

	s.Query(context.Background(), "bob")
	s.Close()
	time.Sleep(60 * time.Millisecond)

	terms, delivered := rec.snapshot()
	if len(terms) != 0 || len(delivered) != 0 {
		t.Fatalf("closed searcher still ran: terms=%v delivered=%v", terms, delivered)
	}

	// Queries after Close are ignored.
	s.Query(context.Background(), "late")
	time.Sleep(40 * time.Millisecond)
	if terms, _ := rec.snapshot(); len(terms) != 0 {
		t.Fatalf("query after Close ran: %v", terms)
	}
}
