package chatsync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"loom/cmd/internal/session"
	v1 "loom/contracts/push/v1"
)

const (
	maxFrameBytes = 1 << 20 // 1MiB

	defaultDialTimeout   = 10 * time.Second
	defaultWriteTimeout  = 5 * time.Second
	defaultRetryAttempts = 5
	defaultRetryDelay    = 2 * time.Second
)

// ErrNotConnected is returned by Emit calls while no live connection exists.
var ErrNotConnected = errors.New("channel not connected")

// ChannelOptions tune the realtime channel. Zero values use defaults.
type ChannelOptions struct {
	DialTimeout   time.Duration
	WriteTimeout  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration

	// OnEvent runs after an event has been routed into the stores. The app
	// uses it to pair directory refreshes with message.create deliveries.
	OnEvent func(event string)
}

// Channel maintains exactly one live push connection per authenticated
// session and translates server events into store mutations. It never
// performs UI writes; side effects are limited to the stores it was built
// with.
//
// Reconnection is bounded: a fixed number of attempts with a fixed delay.
// Once exhausted the channel stays down until the next explicit Connect
// trigger (typically a session change).
type Channel struct {
	log    *slog.Logger
	url    string
	sess   *session.Store
	store  *MessageStore
	dir    *Directory
	typing *TypingState
	opts   ChannelOptions

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// NewChannel constructs a Channel bound to the given stores.
func NewChannel(
	log *slog.Logger,
	url string,
	sess *session.Store,
	store *MessageStore,
	dir *Directory,
	typing *TypingState,
	opts ChannelOptions,
) *Channel {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = defaultRetryAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	return &Channel{
		log:    log,
		url:    url,
		sess:   sess,
		store:  store,
		dir:    dir,
		typing: typing,
		opts:   opts,
	}
}

// Connect starts the connection loop. A no-op while one is already running
// or when the session is unauthenticated.
func (c *Channel) Connect(ctx context.Context) {
	if !c.sess.Authenticated() {
		c.log.Debug("channel.connect.skip", "reason", "unauthenticated")
		return
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(runCtx, done)
}

// Disconnect stops the connection loop and blocks until no more events will
// be processed. Idempotent.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Connected reports whether a live transport connection exists right now.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// EmitWriting pushes local typing status for chatID.
func (c *Channel) EmitWriting(ctx context.Context, chatID int64, status bool) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	var userID int64
	if snap := c.sess.Snapshot(); snap.User != nil {
		userID = snap.User.ID
	}
	env := v1.NewEnvelope(v1.EventWriting, v1.WritingPayload{
		ChatID: chatID,
		UserID: userID,
		Status: status,
	})
	return c.write(ctx, conn, env)
}

func (c *Channel) run(ctx context.Context, done chan struct{}) {
	defer func() {
		// Leave the channel re-connectable once this loop exits on its own
		// (retry exhaustion); Disconnect clears these itself.
		c.mu.Lock()
		if c.done == done {
			c.cancel = nil
			c.done = nil
		}
		c.mu.Unlock()
		close(done)
	}()

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		established, err := c.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if established {
			attempt = 0
		}

		attempt++
		if attempt > c.opts.RetryAttempts {
			c.log.Error("channel.retry.exhausted", "attempts", c.opts.RetryAttempts, "err", err)
			return
		}

		metricReconnects.Inc()
		c.log.Info("channel.reconnect", "attempt", attempt, "delay", c.opts.RetryDelay, "err", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.opts.RetryDelay):
		}
	}
}

// session runs one transport connection to completion: dial, authenticate,
// then read and route until the connection or the context dies. established
// is true once the dial and handshake write succeeded.
func (c *Channel) session(ctx context.Context) (established bool, err error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	conn, resp, err := websocket.Dial(dialCtx, c.url, nil)
	cancel()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return false, err
	}
	conn.SetReadLimit(maxFrameBytes)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	metricChannelUp.Set(1)

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		metricChannelUp.Set(0)
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	token := c.sess.Token()
	if token == "" {
		return false, errors.New("no credential for handshake")
	}

	// The handshake is emitted immediately post-connect. Events are routed
	// without waiting for the acknowledgement: the backend authenticates the
	// socket before pushing to it.
	if err := c.write(ctx, conn, v1.NewEnvelope(v1.EventAuth, v1.AuthPayload{Token: token})); err != nil {
		return false, err
	}
	c.log.Info("channel.connected", "url", c.url)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return true, err
		}

		var env v1.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("channel.event.badjson", "err", err)
			continue
		}
		if err := env.Validate(); err != nil {
			c.log.Warn("channel.event.invalid", "err", err)
			continue
		}
		c.route(env)
	}
}

func (c *Channel) route(env v1.Envelope) {
	switch env.Event {
	case v1.EventAuth:
		c.log.Info("channel.auth.ack")

	case v1.EventMessageCreate:
		var msg v1.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			c.log.Warn("channel.message.badpayload", "err", err)
			return
		}
		if msg.Chat.ID == 0 {
			// Never guess the destination: an unresolvable chat reference
			// discards the event.
			c.log.Warn("channel.message.discarded", "message_id", msg.ID)
			metricEventsDiscarded.Inc()
			return
		}
		c.store.Append(msg.Chat.ID, msg)

	case v1.EventChatCreate:
		var chat v1.Chat
		if err := json.Unmarshal(env.Data, &chat); err != nil {
			c.log.Warn("channel.chat.badpayload", "event", env.Event, "err", err)
			return
		}
		c.dir.Add(chat)

	case v1.EventChatUpdate:
		var chat v1.Chat
		if err := json.Unmarshal(env.Data, &chat); err != nil {
			c.log.Warn("channel.chat.badpayload", "event", env.Event, "err", err)
			return
		}
		c.dir.Update(chat)

	case v1.EventChatWriting:
		var p v1.WritingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.Warn("channel.writing.badpayload", "err", err)
			return
		}
		c.typing.Apply(p)

	default:
		c.log.Debug("channel.event.ignored", "event", env.Event)
		return
	}

	metricEventsRouted.WithLabelValues(env.Event).Inc()
	if c.opts.OnEvent != nil {
		c.opts.OnEvent(env.Event)
	}
}

func (c *Channel) write(parent context.Context, conn *websocket.Conn, env v1.Envelope) error {
	ctx, cancel := context.WithTimeout(parent, c.opts.WriteTimeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}
