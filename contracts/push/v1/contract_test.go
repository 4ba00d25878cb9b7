package v1

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEnvelopeValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		env     Envelope
		wantErr bool
	}{
		{name: "auth without data", env: Envelope{Event: EventAuth}, wantErr: false},
		{name: "message with data", env: NewEnvelope(EventMessageCreate, Message{ID: 1}), wantErr: false},
		{name: "message without data", env: Envelope{Event: EventMessageCreate}, wantErr: true},
		{name: "writing with data", env: NewEnvelope(EventWriting, WritingPayload{ChatID: 1, UserID: 2, Status: true}), wantErr: false},
		{name: "empty event", env: Envelope{}, wantErr: true},
		{name: "unknown event", env: NewEnvelope("chat.delete", struct{}{}), wantErr: true},
	}

	for _, tc := range cases {
		err := tc.env.Validate()
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err=%v wantErr=%v", tc.name, err, tc.wantErr)
		}
	}
}

func TestWritingPayloadWireKeys(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(WritingPayload{ChatID: 7, UserID: 5, Status: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// The backend routes on these exact camelCase keys.
	for _, key := range []string{`"chatId":7`, `"userId":5`, `"status":true`} {
		if !strings.Contains(string(b), key) {
			t.Fatalf("payload %s missing %s", b, key)
		}
	}
}
