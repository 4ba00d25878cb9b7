package chatsync

import (
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	v1 "loom/contracts/push/v1"
)

// Pending describes an optimistic placeholder inserted before the server has
// confirmed a send. TempID is a synthetic negative message id that cannot
// collide with server-assigned ids; ClientID is the ULID tag used in logs.
type Pending struct {
	TempID   int64
	ClientID string
	ChatID   int64
}

type pendingRef struct {
	tempID   int64
	clientID string
	senderID int64
	body     string
}

// MessageStore holds the per-chat ordered message sequences.
//
// Three producers mutate it concurrently: the initial fetch, pagination
// fetches, and the realtime channel. Every insertion is id-checked, so the
// same message arriving twice (once fetched, once pushed) is ordinary
// operation, not a failure.
type MessageStore struct {
	log *slog.Logger

	mu      sync.RWMutex
	byChat  map[int64][]v1.Message
	pending map[int64][]pendingRef
	nextTmp int64
}

// NewMessageStore constructs an empty store.
func NewMessageStore(log *slog.Logger) *MessageStore {
	return &MessageStore{
		log:     log,
		byChat:  make(map[int64][]v1.Message),
		pending: make(map[int64][]pendingRef),
	}
}

// Replace sets the full sequence for a chat. Pending placeholders survive a
// replace: they are local-only and re-appended at the tail.
func (s *MessageStore) Replace(chatID int64, msgs []v1.Message) {
	seq := append([]v1.Message(nil), msgs...)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, old := range s.byChat[chatID] {
		if old.ID < 0 {
			seq = append(seq, old)
		}
	}
	s.byChat[chatID] = seq
}

// Append adds msg to the tail of its chat's sequence.
//
// Duplicates (by id) are a silent no-op. If the message is the server echo of
// a pending placeholder from the same sender with the same body, the
// placeholder is replaced in place instead, keeping its position.
// Returns true when the store changed.
func (s *MessageStore) Append(chatID int64, msg v1.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.byChat[chatID]
	for _, m := range seq {
		if m.ID == msg.ID {
			s.log.Warn("store.append.duplicate", "chat_id", chatID, "message_id", msg.ID)
			metricDuplicatesDropped.Inc()
			return false
		}
	}

	if idx, ref, ok := s.matchPending(chatID, msg); ok {
		for i, m := range seq {
			if m.ID == ref.tempID {
				seq[i] = msg
				s.byChat[chatID] = seq
				s.dropPending(chatID, idx)
				s.log.Debug("store.pending.reconciled",
					"chat_id", chatID, "client_id", ref.clientID, "message_id", msg.ID)
				metricPendingReconciled.Inc()
				return true
			}
		}
		// Placeholder vanished (e.g. Clear between send and echo): fall
		// through to a plain append, but forget the pending record.
		s.dropPending(chatID, idx)
	}

	s.byChat[chatID] = append(seq, msg)
	return true
}

// Prepend inserts older history before the current head. olderAscending must
// be sorted ascending by createdAt; ids already present are filtered out, so
// a page that overlaps pushed messages merges cleanly.
func (s *MessageStore) Prepend(chatID int64, olderAscending []v1.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.byChat[chatID]
	known := make(map[int64]struct{}, len(seq))
	for _, m := range seq {
		known[m.ID] = struct{}{}
	}

	fresh := make([]v1.Message, 0, len(olderAscending))
	for _, m := range olderAscending {
		if _, dup := known[m.ID]; dup {
			metricDuplicatesDropped.Inc()
			continue
		}
		fresh = append(fresh, m)
	}
	if len(fresh) == 0 {
		return
	}
	s.byChat[chatID] = append(fresh, seq...)
}

// Clear removes a chat's sequence and its pending placeholders.
func (s *MessageStore) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byChat, chatID)
	delete(s.pending, chatID)
}

// Get returns a copy of the chat's ordered sequence; empty for unknown chats.
func (s *MessageStore) Get(chatID int64) []v1.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]v1.Message(nil), s.byChat[chatID]...)
}

// AppendPending inserts an optimistic placeholder at the tail and returns its
// handle for later reconciliation or removal.
func (s *MessageStore) AppendPending(chatID int64, sender v1.Participant, body string) Pending {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTmp--
	tempID := s.nextTmp
	clientID := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()

	s.byChat[chatID] = append(s.byChat[chatID], v1.Message{
		ID:        tempID,
		Chat:      v1.ChatRef{ID: chatID},
		Sender:    sender,
		Message:   body,
		CreatedAt: time.Now().UTC(),
	})
	s.pending[chatID] = append(s.pending[chatID], pendingRef{
		tempID:   tempID,
		clientID: clientID,
		senderID: sender.ID,
		body:     body,
	})

	s.log.Debug("store.pending.appended", "chat_id", chatID, "client_id", clientID)
	return Pending{TempID: tempID, ClientID: clientID, ChatID: chatID}
}

// RemovePending deletes a placeholder after a failed send.
func (s *MessageStore) RemovePending(p Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.byChat[p.ChatID]
	for i, m := range seq {
		if m.ID == p.TempID {
			s.byChat[p.ChatID] = append(seq[:i], seq[i+1:]...)
			break
		}
	}
	refs := s.pending[p.ChatID]
	for i, ref := range refs {
		if ref.tempID == p.TempID {
			s.pending[p.ChatID] = append(refs[:i], refs[i+1:]...)
			break
		}
	}
}

// matchPending finds the oldest placeholder matching the echo. Caller holds mu.
func (s *MessageStore) matchPending(chatID int64, msg v1.Message) (int, pendingRef, bool) {
	for i, ref := range s.pending[chatID] {
		if ref.senderID == msg.Sender.ID && ref.body == msg.Message {
			return i, ref, true
		}
	}
	return 0, pendingRef{}, false
}

// dropPending removes the pending record at idx. Caller holds mu.
func (s *MessageStore) dropPending(chatID int64, idx int) {
	refs := s.pending[chatID]
	s.pending[chatID] = append(refs[:idx], refs[idx+1:]...)
}
