package chatsync

import (
	"log/slog"
	"sync"
	"time"

	v1 "loom/contracts/push/v1"
)

const defaultTypingTimeout = 3 * time.Second

// Typist identifies who is currently composing in a chat.
type Typist struct {
	UserID   int64
	UserName string
}

// TypingState is the ephemeral per-chat typing indicator. Entries are set on
// a writing:true broadcast from another user and cleared on writing:false or
// after a local timeout; nothing here is ever persisted.
type TypingState struct {
	log     *slog.Logger
	localID func() int64
	timeout time.Duration

	mu     sync.Mutex
	byChat map[int64]*typingEntry
}

type typingEntry struct {
	typist Typist
	timer  *time.Timer
}

// NewTypingState constructs a TypingState. localID supplies the current
// user's id so their own broadcasts are ignored; timeout <= 0 uses 3s.
func NewTypingState(log *slog.Logger, localID func() int64, timeout time.Duration) *TypingState {
	if timeout <= 0 {
		timeout = defaultTypingTimeout
	}
	return &TypingState{
		log:     log,
		localID: localID,
		timeout: timeout,
		byChat:  make(map[int64]*typingEntry),
	}
}

// Apply processes a chat.writing broadcast. A false status is an idempotent
// clear, so overlapping stop signals from the sender side are harmless.
func (t *TypingState) Apply(p v1.WritingPayload) {
	if p.ChatID == 0 || p.UserID == t.localID() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !p.Status {
		t.clearLocked(p.ChatID)
		return
	}

	if e, ok := t.byChat[p.ChatID]; ok {
		e.typist = Typist{UserID: p.UserID, UserName: p.Username}
		e.timer.Reset(t.timeout)
		return
	}

	chatID := p.ChatID
	t.byChat[chatID] = &typingEntry{
		typist: Typist{UserID: p.UserID, UserName: p.Username},
		timer: time.AfterFunc(t.timeout, func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.clearLocked(chatID)
		}),
	}
}

// Current returns who is typing in the chat, if anyone.
func (t *TypingState) Current(chatID int64) (Typist, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.byChat[chatID]
	if !ok {
		return Typist{}, false
	}
	return e.typist, true
}

// Stop cancels all expiry timers and clears every indicator.
func (t *TypingState) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for chatID := range t.byChat {
		t.clearLocked(chatID)
	}
}

func (t *TypingState) clearLocked(chatID int64) {
	if e, ok := t.byChat[chatID]; ok {
		e.timer.Stop()
		delete(t.byChat, chatID)
	}
}
