// Package app wires the Loom client runtime: config, logging, the session
// container, the REST client, and the chat synchronization core.
//
// Construction order is the lifecycle contract: session before the API
// client, both before the stores, stores before the realtime channel. The
// wiring enforces the ordering so callers cannot get it wrong.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loom/cmd/internal/api"
	"loom/cmd/internal/chatsync"
	"loom/cmd/internal/session"
	v1 "loom/contracts/push/v1"
)

// App owns the client runtime and its teardown ordering.
type App struct {
	cfg Config
	log Logger

	sess      *session.Store
	api       *api.Client
	store     *chatsync.MessageStore
	dir       *chatsync.Directory
	typing    *chatsync.TypingState
	paginator *chatsync.Paginator
	sender    *chatsync.Sender
	channel   *chatsync.Channel

	runCtx context.Context
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	storage, err := session.NewStorage(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log}

	a.sess = session.NewStore(log, storage)
	a.api = api.New(cfg.APIBaseURL, a.sess, log)
	a.store = chatsync.NewMessageStore(log)
	a.dir = chatsync.NewDirectory(log)
	a.typing = chatsync.NewTypingState(log, a.localUserID, cfg.TypingTimeout)

	a.channel = chatsync.NewChannel(log, cfg.SocketURL, a.sess, a.store, a.dir, a.typing, chatsync.ChannelOptions{
		DialTimeout:   cfg.DialTimeout,
		RetryAttempts: cfg.ReconnectAttempts,
		RetryDelay:    cfg.ReconnectDelay,
		OnEvent:       a.onPushEvent,
	})
	a.paginator = chatsync.NewPaginator(log, a.store, a.api.Messages, cfg.PageLimit)
	a.sender = chatsync.NewSender(log, a.sess, a.store, a.api, a.channel, cfg.TypingTimeout, func(int64) {
		a.refreshDirectory()
	})

	return a, nil
}

// Run drives the client until context cancellation.
func (a *App) Run(ctx context.Context) error {
	a.runCtx = ctx

	var metricsSrv *http.Server
	if a.cfg.MetricsAddr != "" {
		metricsSrv = a.serveMetrics()
	}

	// Session transitions drive the realtime channel: restore or login below
	// triggers the first connect, a later 401 tears it down.
	a.sess.OnChange(a.onSessionChange)

	if err := a.sess.Restore(); err != nil {
		a.log.Warn("session.restore.fail", "err", err)
	}

	if !a.sess.Authenticated() && a.cfg.LoginUser != "" {
		if err := a.login(ctx); err != nil {
			a.log.Error("login.fail", "user", a.cfg.LoginUser, "err", err)
		}
	}
	if !a.sess.Authenticated() {
		a.log.Info("session.absent")
	}

	<-ctx.Done()
	a.log.Info("client.stop", "reason", "context_done")

	a.channel.Disconnect()
	a.typing.Stop()

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("metrics.shutdown.fail", "err", err)
		}
	}

	a.log.Info("client.stopped")
	return nil
}

// Accessors for embedding front-ends. The App owns lifecycle; front-ends
// read the stores and drive the pipelines through these.

func (a *App) Session() *session.Store          { return a.sess }
func (a *App) Directory() *chatsync.Directory   { return a.dir }
func (a *App) Messages() *chatsync.MessageStore { return a.store }
func (a *App) Typing() *chatsync.TypingState    { return a.typing }
func (a *App) Sender() *chatsync.Sender         { return a.sender }
func (a *App) Paginator() *chatsync.Paginator   { return a.paginator }

// Searcher builds a debounced user search delivering into the given callback.
// Callers own its lifetime and must Close it on teardown.
func (a *App) Searcher(deliver api.DeliverFunc) *api.Searcher {
	return api.NewSearcher(a.log, a.cfg.SearchDebounce, a.api.SearchUsers, deliver)
}

func (a *App) login(ctx context.Context) error {
	res, err := a.api.Login(ctx, a.cfg.LoginUser, a.cfg.LoginPassword)
	if err != nil {
		return err
	}
	a.sess.SetCredentials(res.Token, res.User)
	return nil
}

func (a *App) onSessionChange(snap session.Snapshot) {
	if !snap.Authenticated() {
		a.channel.Disconnect()
		return
	}
	a.bootstrap(a.runCtx)
}

// bootstrap loads the directory, arms pagination for the most recent chat,
// and brings the realtime channel up.
func (a *App) bootstrap(ctx context.Context) {
	chats, err := a.api.Chats(ctx)
	if err != nil {
		a.log.Error("directory.fetch.fail", "err", err)
	} else {
		a.dir.SetAll(chats)
		a.log.Info("directory.loaded", "chats", len(chats))

		if len(chats) > 0 {
			if err := a.paginator.Select(ctx, chats[0].ID); err != nil {
				a.log.Error("history.load.fail", "chat_id", chats[0].ID, "err", err)
			}
		}
	}

	a.channel.Connect(ctx)
}

// onPushEvent pairs a directory refresh with every delivered message, keeping
// lastMessage/unreadCount fresh even when the backend sends no chat.update.
func (a *App) onPushEvent(event string) {
	if event != v1.EventMessageCreate {
		return
	}
	go a.refreshDirectory()
}

func (a *App) refreshDirectory() {
	if a.runCtx == nil || a.runCtx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(a.runCtx, 10*time.Second)
	defer cancel()

	chats, err := a.api.Chats(ctx)
	if err != nil {
		a.log.Warn("directory.refresh.fail", "err", err)
		return
	}
	a.dir.SetAll(chats)
}

func (a *App) localUserID() int64 {
	if u := a.sess.Snapshot().User; u != nil {
		return u.ID
	}
	return 0
}

func (a *App) serveMetrics() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.Info("metrics.start", "addr", a.cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics.fail", "err", err)
		}
	}()
	return srv
}
