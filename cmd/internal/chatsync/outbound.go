package chatsync

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"loom/cmd/internal/session"
	v1 "loom/contracts/push/v1"
)

// Local validation errors. These never reach the network layer.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoChatSelected   = errors.New("no chat selected")
	ErrEmptyMessage     = errors.New("message is empty")
)

// SendAPI is the slice of the REST client the pipeline needs.
type SendAPI interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// WritingEmitter pushes typing status to the server.
type WritingEmitter interface {
	EmitWriting(ctx context.Context, chatID int64, status bool) error
}

// Sender is the outbound message pipeline: validate, optimistic insert,
// submit, and reconcile-or-rollback.
//
// The placeholder inserted before the request is swapped for the server's
// echoed message by MessageStore.Append; on a failed send it is rolled back
// so the sequence never shows a message the server did not accept.
type Sender struct {
	log     *slog.Logger
	sess    *session.Store
	store   *MessageStore
	api     SendAPI
	writing WritingEmitter
	limiter *RateLimiter

	typingDelay time.Duration
	onSent      func(chatID int64)
}

// NewSender constructs a Sender. typingDelay <= 0 uses the 3s default;
// onSent may be nil.
func NewSender(
	log *slog.Logger,
	sess *session.Store,
	store *MessageStore,
	api SendAPI,
	writing WritingEmitter,
	typingDelay time.Duration,
	onSent func(chatID int64),
) *Sender {
	if typingDelay <= 0 {
		typingDelay = defaultTypingTimeout
	}
	return &Sender{
		log:         log,
		sess:        sess,
		store:       store,
		api:         api,
		writing:     writing,
		limiter:     NewRateLimiter(typingRateEvents, typingRateWindow),
		typingDelay: typingDelay,
		onSent:      onSent,
	}
}

// Send validates and submits a message to chatID.
//
// Precondition violations fail fast with a local validation error and perform
// no network call. Success is the application-level status of the send
// endpoint; on any failure the optimistic placeholder is removed.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	snap := s.sess.Snapshot()
	if !snap.Authenticated() {
		return ErrNotAuthenticated
	}
	if chatID == 0 {
		return ErrNoChatSelected
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	sender := v1.Participant{}
	if snap.User != nil {
		sender = v1.Participant{ID: snap.User.ID, UserName: snap.User.UserName}
	}
	pending := s.store.AppendPending(chatID, sender, text)

	if err := s.api.SendMessage(ctx, chatID, text); err != nil {
		s.store.RemovePending(pending)
		s.log.Warn("send.fail", "chat_id", chatID, "client_id", pending.ClientID, "err", err)
		return err
	}

	s.log.Debug("send.accepted", "chat_id", chatID, "client_id", pending.ClientID)
	if s.onSent != nil {
		s.onSent(chatID)
	}
	return nil
}

// NotifyTyping reports keystroke activity for chatID: writing:true now and a
// scheduled writing:false after the delay. Timers are not coalesced across
// keystrokes; receivers treat a false status as an idempotent clear, so
// overlapping stop signals are harmless.
func (s *Sender) NotifyTyping(ctx context.Context, chatID int64) {
	snap := s.sess.Snapshot()
	if !snap.Authenticated() || chatID == 0 || snap.User == nil {
		return
	}
	if !s.limiter.Allow(time.Now()) {
		return
	}

	userID := snap.User.ID
	if err := s.writing.EmitWriting(ctx, chatID, true); err != nil {
		s.log.Debug("typing.emit.fail", "chat_id", chatID, "err", err)
		return
	}

	time.AfterFunc(s.typingDelay, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), s.typingDelay)
		defer cancel()
		if err := s.writing.EmitWriting(stopCtx, chatID, false); err != nil {
			s.log.Debug("typing.stop.fail", "chat_id", chatID, "user_id", userID, "err", err)
		}
	})
}
