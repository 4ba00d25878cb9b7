// Package main provides a CI-friendly smoke test for the Loom push channel.
//
// It validates:
//   - handshake against a live backend (auth envelope accepted)
//   - event decoding for everything the server pushes while connected
//   - the client->server writing emission
//
// The token comes from -token or LOOM_TOKEN; without one the dial is expected
// to produce no events and the run only checks transport health.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"

	v1 "loom/contracts/push/v1"
)

const maxReadBytes = 1 << 20 // 1MiB

func main() {
	var (
		wsURL   = flag.String("url", "ws://127.0.0.1:3000", "push channel URL")
		token   = flag.String("token", os.Getenv("LOOM_TOKEN"), "session token")
		chatID  = flag.Int64("chat", 0, "emit a writing event for this chat id")
		listen  = flag.Duration("listen", 5*time.Second, "how long to collect pushed events")
		timeout = flag.Duration("timeout", 7*time.Second, "per-step timeout")
		verbose = flag.Bool("v", false, "print every received envelope")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if strings.TrimSpace(*token) == "" {
		fatalf("missing -token (or LOOM_TOKEN)")
	}

	root := context.Background()

	dialCtx, cancel := context.WithTimeout(root, *timeout)
	conn, resp, err := websocket.Dial(dialCtx, *wsURL, nil)
	cancel()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()
	conn.SetReadLimit(maxReadBytes)

	mustWrite(root, conn, v1.NewEnvelope(v1.EventAuth, v1.AuthPayload{Token: *token}), *timeout)

	if *chatID != 0 {
		mustWrite(root, conn, v1.NewEnvelope(v1.EventWriting, v1.WritingPayload{
			ChatID: *chatID,
			Status: true,
		}), *timeout)
	}

	counts := collectEvents(root, conn, *listen, *verbose)

	var total int
	parts := make([]string, 0, len(counts))
	for event, n := range counts {
		total += n
		parts = append(parts, fmt.Sprintf("%s=%d", event, n))
	}
	fmt.Printf("OK: url=%s events=%d (%s)\n", *wsURL, total, strings.Join(parts, " "))
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

// collectEvents reads until the listen window closes, counting decodable
// events per name. Undecodable frames are fatal: the contract is the point of
// the smoke test.
func collectEvents(parent context.Context, conn *websocket.Conn, window time.Duration, verbose bool) map[string]int {
	ctx, cancel := context.WithTimeout(parent, window)
	defer cancel()

	counts := make(map[string]int)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return counts
			}
			fatalf("read: %v", err)
		}

		var env v1.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			fatalf("bad json: %v", err)
		}
		if err := env.Validate(); err != nil {
			fatalf("bad envelope: %v", err)
		}
		if err := decodePayload(env); err != nil {
			fatalf("bad %s payload: %v", env.Event, err)
		}

		counts[env.Event]++
		if verbose {
			fmt.Printf("<- %s %s\n", env.Event, env.Data)
		}
	}
}

func decodePayload(env v1.Envelope) error {
	switch env.Event {
	case v1.EventAuth:
		return nil
	case v1.EventMessageCreate:
		var m v1.Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return err
		}
		if m.Chat.ID == 0 {
			return errors.New("missing chat reference")
		}
		return nil
	case v1.EventChatCreate, v1.EventChatUpdate:
		var c v1.Chat
		return json.Unmarshal(env.Data, &c)
	case v1.EventChatWriting:
		var p v1.WritingPayload
		return json.Unmarshal(env.Data, &p)
	default:
		return nil
	}
}

func mustWrite(parent context.Context, conn *websocket.Conn, env v1.Envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal envelope: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write failed: %v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
