package v1

import "time"

// Participant is the lightweight user reference embedded in chats and messages.
type Participant struct {
	ID             int64   `json:"id"`
	UserName       string  `json:"userName"`
	ProfilePicture *string `json:"profilePicture"`
}

// MessageSummary is the denormalized "last message" preview carried by a Chat.
type MessageSummary struct {
	Message   string      `json:"message"`
	ReadBy    []int64     `json:"readBy"`
	Sender    Participant `json:"sender"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Chat is a thread (1:1 or group) as delivered by the directory fetch and by
// chat.create / chat.update events.
type Chat struct {
	ID           int64           `json:"id"`
	IsGroup      bool            `json:"isGroup"`
	Name         *string         `json:"name"`
	Participants []Participant   `json:"participants,omitempty"`
	LastMessage  *MessageSummary `json:"lastMessage"`
	UnreadCount  int             `json:"unreadCount"`
	EveryoneRead bool            `json:"everyoneRead"`
}

// ChatRef is the embedded chat reference inside a Message. Events whose
// reference cannot be resolved to a chat id must be discarded, never applied
// to a different chat.
type ChatRef struct {
	ID int64 `json:"id"`
}

// Message is a single chat message as delivered by the history fetch and by
// message.create events. Identity is ID; sequences are ordered by CreatedAt.
type Message struct {
	ID        int64       `json:"id"`
	Chat      ChatRef     `json:"chat"`
	Sender    Participant `json:"sender"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"createdAt"`
	ReadBy    []int64     `json:"readBy"`
}

// AuthPayload is emitted by the client immediately after the transport
// connects.
type AuthPayload struct {
	Token string `json:"token"`
}

// WritingPayload carries typing status in both directions. The server
// broadcast includes the reporting user's name; the client emission does not.
type WritingPayload struct {
	ChatID   int64  `json:"chatId"`
	UserID   int64  `json:"userId"`
	Username string `json:"username,omitempty"`
	Status   bool   `json:"status"`
}
