package session

import (
	"log/slog"
	"sync"
)

// User is the identity attached to the session credential.
type User struct {
	ID       int64  `json:"id"`
	UserName string `json:"userName"`
}

// Snapshot is an immutable view of the session at one point in time.
// Authenticated is true exactly when a token is present; User may be nil
// while identity restoration lags the token.
type Snapshot struct {
	Token string
	User  *User
}

// Authenticated reports whether the snapshot carries a credential.
func (s Snapshot) Authenticated() bool { return s.Token != "" }

// Store is the process-wide session state container.
//
// Lifecycle contract: construct once at startup, Restore() before any
// data-fetching component runs, Clear() on logout or on an unauthorized
// backend response. Components that must react to session changes register
// through OnChange; callbacks run synchronously in registration order.
type Store struct {
	log     *slog.Logger
	storage *Storage

	mu       sync.RWMutex
	token    string
	user     *User
	onChange []func(Snapshot)
}

// NewStore constructs a Store backed by the given storage.
// Storage may be nil, in which case credentials live only in memory.
func NewStore(log *slog.Logger, storage *Storage) *Store {
	return &Store{log: log, storage: storage}
}

// Restore loads persisted credentials into the store. A missing credential is
// not an error; the store simply stays unauthenticated.
func (s *Store) Restore() error {
	if s.storage == nil {
		return nil
	}
	token, user, err := s.storage.Load()
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()

	s.log.Info("session.restored", "has_user", user != nil)
	s.notify()
	return nil
}

// SetCredentials records a fresh login and persists it.
func (s *Store) SetCredentials(token string, user User) {
	s.mu.Lock()
	s.token = token
	u := user
	s.user = &u
	s.mu.Unlock()

	if s.storage != nil {
		if err := s.storage.Save(token, &user); err != nil {
			s.log.Error("session.persist.fail", "err", err)
		}
	}
	s.log.Info("session.authenticated", "user_id", user.ID, "user_name", user.UserName)
	s.notify()
}

// SetUser updates the identity without touching the token.
func (s *Store) SetUser(user User) {
	s.mu.Lock()
	u := user
	s.user = &u
	token := s.token
	s.mu.Unlock()

	if s.storage != nil {
		if err := s.storage.Save(token, &user); err != nil {
			s.log.Error("session.persist.fail", "err", err)
		}
	}
	s.notify()
}

// Clear destroys the session, in memory and on disk. Safe to call repeatedly;
// listeners are only notified when there was a session to destroy.
func (s *Store) Clear() {
	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if s.storage != nil {
		if err := s.storage.Clear(); err != nil {
			s.log.Error("session.clear.fail", "err", err)
		}
	}
	if had {
		s.log.Info("session.cleared")
		s.notify()
	}
}

// Snapshot returns the current session view.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Token: s.token}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Token returns the current credential ("" when unauthenticated).
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a credential is present.
func (s *Store) Authenticated() bool { return s.Token() != "" }

// OnChange registers a listener invoked after every session transition.
func (s *Store) OnChange(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	listeners := make([]func(Snapshot), len(s.onChange))
	copy(listeners, s.onChange)
	s.mu.RUnlock()

	snap := s.Snapshot()
	for _, fn := range listeners {
		fn(snap)
	}
}
