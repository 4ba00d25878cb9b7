// Package v1 defines the Loom push-channel contract.
//
// This package is intentionally stable and dependency-light. It mirrors the
// backend's socket event surface so the wire protocol stays authoritative in
// one place.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Event names (wire-stable).
const (
	// EventAuth is the post-connect handshake. Client -> server it carries
	// AuthPayload; server -> client it is the acknowledgement.
	EventAuth = "auth"

	// EventMessageCreate delivers a new Message (server -> client).
	EventMessageCreate = "message.create"
	// EventChatCreate delivers a newly created Chat (server -> client).
	EventChatCreate = "chat.create"
	// EventChatUpdate delivers a full replacement for an existing Chat (server -> client).
	EventChatUpdate = "chat.update"
	// EventChatWriting broadcasts typing status for a chat (server -> client).
	EventChatWriting = "chat.writing"

	// EventWriting reports local typing activity (client -> server).
	EventWriting = "writing"
)

// Envelope is the canonical wire wrapper: an event name plus its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Validate performs structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.Event) == "" {
		return errors.New("missing field: event")
	}

	switch e.Event {
	case EventAuth:
		return nil
	case EventMessageCreate, EventChatCreate, EventChatUpdate, EventChatWriting, EventWriting:
		if len(e.Data) == 0 {
			return fmt.Errorf("missing data for event: %s", e.Event)
		}
		return nil
	default:
		return fmt.Errorf("unknown event: %q", e.Event)
	}
}

// NewEnvelope marshals payload into an Envelope for the given event.
// It panics only on unmarshalable payloads, which are programming errors.
func NewEnvelope(event string, payload any) Envelope {
	b, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return Envelope{Event: event, Data: b}
}
