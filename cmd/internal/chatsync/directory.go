package chatsync

import (
	"log/slog"
	"sync"

	v1 "loom/contracts/push/v1"
)

// Directory is the ordered list of chat threads the user participates in,
// kept fresh by explicit refetch and by chat.create / chat.update events.
//
// Selection of the active chat is not part of this store.
type Directory struct {
	log *slog.Logger

	mu    sync.RWMutex
	chats []v1.Chat
}

// NewDirectory constructs an empty Directory.
func NewDirectory(log *slog.Logger) *Directory {
	return &Directory{log: log}
}

// SetAll replaces the full list, preserving the server's ordering.
func (d *Directory) SetAll(chats []v1.Chat) {
	cp := append([]v1.Chat(nil), chats...)
	d.mu.Lock()
	d.chats = cp
	d.mu.Unlock()
}

// Add inserts a chat if no entry with that id exists. Redundant inserts are
// ordinary (a chat.create can race the directory fetch) and return false.
func (d *Directory) Add(chat v1.Chat) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range d.chats {
		if c.ID == chat.ID {
			d.log.Debug("directory.add.exists", "chat_id", chat.ID)
			return false
		}
	}
	d.chats = append(d.chats, chat)
	return true
}

// Update replaces the entry matching chat.ID. Updates for unknown chats are a
// no-op: an update never inserts.
func (d *Directory) Update(chat v1.Chat) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, c := range d.chats {
		if c.ID == chat.ID {
			d.chats[i] = chat
			return true
		}
	}
	d.log.Debug("directory.update.unknown", "chat_id", chat.ID)
	return false
}

// Get returns the chat with the given id.
func (d *Directory) Get(chatID int64) (v1.Chat, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, c := range d.chats {
		if c.ID == chatID {
			return c, true
		}
	}
	return v1.Chat{}, false
}

// List returns a copy of the directory in order.
func (d *Directory) List() []v1.Chat {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]v1.Chat(nil), d.chats...)
}

// Len returns the number of chats.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.chats)
}
