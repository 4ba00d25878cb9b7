// Package api is the REST client for the Loom backend.
//
// It owns the bearer-token injection and the status-code policy from the
// backend contract: 401 clears the session, 403 maps to the restricted state,
// everything else non-2xx surfaces the server message when one is present.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	v1 "loom/contracts/push/v1"
)

const defaultRequestTimeout = 15 * time.Second

// Sessions is the slice of the session store the client needs: the current
// credential and the ability to destroy it on an unauthorized response.
type Sessions interface {
	Token() string
	Clear()
}

// Client talks to the backend REST surface.
type Client struct {
	base string
	http *http.Client
	sess Sessions
	log  *slog.Logger
}

// New constructs a Client. baseURL is used as-is (no trailing slash).
func New(baseURL string, sess Sessions, log *slog.Logger) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: defaultRequestTimeout},
		sess: sess,
		log:  log,
	}
}

// Login exchanges credentials for a token. It does not mutate the session;
// the caller decides when to store the result.
func (c *Client) Login(ctx context.Context, userName, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, LoginRequest{UserName: userName, Password: password}, &out)
	return out, err
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/register", nil, req, nil)
}

// ForgotPassword triggers the reset flow and returns the server message.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out messageBody
	if err := c.do(ctx, http.MethodPost, "/auth/forget-password", nil, ForgotPasswordRequest{Email: email}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Chats fetches the full chat directory.
func (c *Client) Chats(ctx context.Context) ([]v1.Chat, error) {
	var out []v1.Chat
	if err := c.do(ctx, http.MethodGet, "/chat", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Messages fetches one history page for a chat. Page 0 is the newest page.
// The backend orders each page newest-first; the result is reversed here so
// every page hands the stores a chronologically ascending slice.
func (c *Client) Messages(ctx context.Context, chatID int64, page, limit int) ([]v1.Message, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out []v1.Message
	if err := c.do(ctx, http.MethodGet, "/chat/"+strconv.FormatInt(chatID, 10), q, nil, &out); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// SendMessage submits a message to a chat. Success is the application-level
// status flag in the body, not the HTTP status: a 200 with status=false is a
// rejection carrying the server message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	var out sendMessageResponse
	if err := c.do(ctx, http.MethodPost, "/chat", nil, sendMessageRequest{ChatID: chatID, Messsage: text}, &out); err != nil {
		return err
	}
	if !out.Status {
		if out.Message != "" {
			return fmt.Errorf("%w: %s", ErrSendRejected, out.Message)
		}
		return ErrSendRejected
	}
	return nil
}

// UserPosts fetches a page of posts. userID 0 means the current user.
func (c *Client) UserPosts(ctx context.Context, userID int64, page, limit int) ([]Post, error) {
	path := "/post/user"
	if userID != 0 {
		path += "/" + strconv.FormatInt(userID, 10)
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out []Post
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserProfile fetches a profile. userID 0 means the current user.
func (c *Client) UserProfile(ctx context.Context, userID int64) (UserProfile, error) {
	path := "/user/profile"
	if userID != 0 {
		path += "/" + strconv.FormatInt(userID, 10)
	}
	var out UserProfile
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

// SearchUsers runs a user search for the given term.
func (c *Client) SearchUsers(ctx context.Context, term string) ([]SearchUserResult, error) {
	q := url.Values{}
	q.Set("searchParam", term)

	var out []SearchUserResult
	if err := c.do(ctx, http.MethodGet, "/user/search", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.sess.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// Session loss is global: clear here so every caller converges on
		// the unauthenticated state, then surface the sentinel.
		c.sess.Clear()
		c.log.Warn("api.unauthorized", "method", method, "path", path)
		return ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrRestricted
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &Error{Status: resp.StatusCode, Message: serverMessage(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func serverMessage(body []byte) string {
	var mb messageBody
	if err := json.Unmarshal(body, &mb); err != nil {
		return ""
	}
	return mb.Message
}
