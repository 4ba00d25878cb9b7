package chatsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	v1 "loom/contracts/push/v1"
)

const defaultPageLimit = 20

// FetchPage loads one history page for a chat. Page 0 is the newest page and
// the returned slice must be chronologically ascending.
type FetchPage func(ctx context.Context, chatID int64, page, limit int) ([]v1.Message, error)

// Paginator is the per-active-chat history cursor.
//
// State machine: Idle(page=0, hasMore=true) -> Loading -> Idle(page+1, ...),
// terminal Exhausted once a page comes back short. Selecting a different chat
// resets the cursor and invalidates any in-flight load, so a late completion
// for the previous chat can never advance the new chat's cursor.
type Paginator struct {
	log   *slog.Logger
	fetch FetchPage
	store *MessageStore
	limit int

	mu      sync.Mutex
	chatID  int64
	page    int
	hasMore bool
	loading bool
	gen     uint64
}

// NewPaginator constructs a Paginator. limit <= 0 uses the default page size.
func NewPaginator(log *slog.Logger, store *MessageStore, fetch FetchPage, limit int) *Paginator {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	return &Paginator{log: log, fetch: fetch, store: store, limit: limit, hasMore: true}
}

// Select makes chatID the active chat, resets the cursor and loads the first
// page into the store (replacing any stale sequence). Selecting chat 0
// deactivates pagination.
func (p *Paginator) Select(ctx context.Context, chatID int64) error {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.chatID = chatID
	p.page = 0
	p.hasMore = true
	p.loading = false
	if chatID == 0 {
		p.mu.Unlock()
		return nil
	}
	p.loading = true
	p.mu.Unlock()

	return p.load(ctx, gen, chatID, 0, true)
}

// LoadMore fetches the next older page for the active chat. Calls while a
// load is in flight or after exhaustion are ignored, so rapid triggers near
// the scroll boundary issue at most one request.
func (p *Paginator) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	if p.chatID == 0 || p.loading || !p.hasMore {
		p.mu.Unlock()
		return nil
	}
	p.loading = true
	gen := p.gen
	chatID := p.chatID
	page := p.page
	p.mu.Unlock()

	return p.load(ctx, gen, chatID, page, false)
}

// Cursor reports the current cursor for the active chat.
func (p *Paginator) Cursor() (chatID int64, page int, hasMore, loading bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chatID, p.page, p.hasMore, p.loading
}

func (p *Paginator) load(ctx context.Context, gen uint64, chatID int64, page int, replace bool) error {
	msgs, err := p.fetch(ctx, chatID, page, p.limit)

	p.mu.Lock()
	if gen != p.gen {
		// The active chat changed while this fetch was in flight; its cursor
		// was already reset, so the result is discarded entirely.
		p.mu.Unlock()
		p.log.Debug("paging.stale.discarded", "chat_id", chatID, "page", page)
		return nil
	}
	if err != nil {
		// Retryable: same page, hasMore untouched.
		p.loading = false
		p.mu.Unlock()
		return fmt.Errorf("load page %d for chat %d: %w", page, chatID, err)
	}
	p.page = page + 1
	p.hasMore = len(msgs) == p.limit
	p.loading = false
	p.mu.Unlock()

	if replace {
		p.store.Replace(chatID, msgs)
	} else {
		p.store.Prepend(chatID, msgs)
	}
	metricPagesLoaded.Inc()
	p.log.Debug("paging.page.loaded", "chat_id", chatID, "page", page, "count", len(msgs))
	return nil
}
