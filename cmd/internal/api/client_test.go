package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSessions struct {
	mu      sync.Mutex
	token   string
	cleared bool
}

func (f *fakeSessions) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeSessions) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = true
	f.token = ""
}

func (f *fakeSessions) wasCleared() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

func newTestClient(handler http.HandlerFunc, token string) (*Client, *fakeSessions, func()) {
	srv := httptest.NewServer(handler)
	sess := &fakeSessions{token: token}
	return New(srv.URL, sess, testLogger()), sess, srv.Close
}

func TestSendMessageWireFormat(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	var gotAuth string
	c, _, closeFn := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"status":true}`))
	}, "tok-1")
	defer closeFn()

	if err := c.SendMessage(context.Background(), 7, "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if gotAuth != "Bearer tok-1" {
		t.Fatalf("auth header=%q", gotAuth)
	}
	// The deployed endpoint expects the triple-s field name; anything else is
	// silently dropped server-side.
	if got, ok := gotBody["messsage"]; !ok || got != "hello" {
		t.Fatalf("body=%v want messsage=hello", gotBody)
	}
	if got, ok := gotBody["chatId"]; !ok || got != float64(7) {
		t.Fatalf("body=%v want chatId=7", gotBody)
	}
}

func TestSendMessageBodyStatusRejection(t *testing.T) {
	t.Parallel()

	c, _, closeFn := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		// HTTP 200 with a false status flag is still a rejection.
		_, _ = w.Write([]byte(`{"status":false,"message":"chat is closed"}`))
	}, "tok")
	defer closeFn()

	err := c.SendMessage(context.Background(), 7, "hello")
	if !errors.Is(err, ErrSendRejected) {
		t.Fatalf("err=%v want ErrSendRejected", err)
	}
	if !strings.Contains(err.Error(), "chat is closed") {
		t.Fatalf("server message lost: %v", err)
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	t.Parallel()

	c, sess, closeFn := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, "stale-tok")
	defer closeFn()

	_, err := c.Chats(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err=%v want ErrUnauthorized", err)
	}
	if !sess.wasCleared() {
		t.Fatalf("session not cleared on 401")
	}
}

func TestForbiddenMapsToRestricted(t *testing.T) {
	t.Parallel()

	c, sess, closeFn := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, "tok")
	defer closeFn()

	_, err := c.UserPosts(context.Background(), 9, 0, 10)
	if !errors.Is(err, ErrRestricted) {
		t.Fatalf("err=%v want ErrRestricted", err)
	}
	// Restricted is about the target, not the caller: the session survives.
	if sess.wasCleared() {
		t.Fatalf("session cleared on 403")
	}
}

func TestServerErrorCarriesMessage(t *testing.T) {
	t.Parallel()

	c, _, closeFn := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"db down"}`))
	}, "tok")
	defer closeFn()

	_, err := c.Chats(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err=%v want *Error", err)
	}
	if apiErr.Status != http.StatusInternalServerError || apiErr.Message != "db down" {
		t.Fatalf("apiErr=%+v", apiErr)
	}
}

func TestMessagesPageIsReversedToAscending(t *testing.T) {
	t.Parallel()

	var gotQuery string
	c, _, closeFn := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		// Backend order: newest first.
		_, _ = w.Write([]byte(`[
			{"id":3,"chat":{"id":7},"sender":{"id":2,"userName":"u"},"message":"c","createdAt":"2026-01-03T00:00:00Z"},
			{"id":2,"chat":{"id":7},"sender":{"id":2,"userName":"u"},"message":"b","createdAt":"2026-01-02T00:00:00Z"},
			{"id":1,"chat":{"id":7},"sender":{"id":2,"userName":"u"},"message":"a","createdAt":"2026-01-01T00:00:00Z"}
		]`))
	}, "tok")
	defer closeFn()

	msgs, err := c.Messages(context.Background(), 7, 2, 3)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if !strings.Contains(gotQuery, "page=2") || !strings.Contains(gotQuery, "limit=3") {
		t.Fatalf("query=%q", gotQuery)
	}
	for i, want := range []int64{1, 2, 3} {
		if msgs[i].ID != want {
			t.Fatalf("order=%v want ascending ids", msgs)
		}
	}
}

func TestLoginDoesNotSendBearer(t *testing.T) {
	t.Parallel()

	var gotAuth string
	c, _, closeFn := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"token":"fresh","user":{"id":5,"userName":"me"}}`))
	}, "")
	defer closeFn()

	res, err := c.Login(context.Background(), "me", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("unauthenticated request sent %q", gotAuth)
	}
	if res.Token != "fresh" || res.User.ID != 5 {
		t.Fatalf("res=%+v", res)
	}
}

func TestSearchUsersQueryParam(t *testing.T) {
	t.Parallel()

	var gotParam string
	c, _, closeFn := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotParam = r.URL.Query().Get("searchParam")
		_, _ = w.Write([]byte(`[{"id":9,"userName":"bob"}]`))
	}, "tok")
	defer closeFn()

	users, err := c.SearchUsers(context.Background(), "bo")
	if err != nil {
		t.Fatalf("SearchUsers: %v", err)
	}
	if gotParam != "bo" {
		t.Fatalf("searchParam=%q", gotParam)
	}
	if len(users) != 1 || users[0].UserName != "bob" {
		t.Fatalf("users=%+v", users)
	}
}
