// Package taskmatchsdk is a minimal Go client for the TaskMatch API,
// including the live chat view: it posts messages optimistically, subscribes
// to a match's websocket feed, and reconciles both into one transcript.
package taskmatchsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/feliperosas/taskmatch/internal/chat"
)

// Client is a minimal TaskMatch HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	UserID      string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, token, userID string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		BearerToken: token,
		UserID:      userID,
		Timeout:     10 * time.Second,
	}
}

// Message mirrors the API message model.
type Message struct {
	ID          string    `json:"id"`
	MatchID     string    `json:"match_id"`
	SenderID    string    `json:"sender_id"`
	Content     string    `json:"content"`
	ClientToken string    `json:"client_token,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.BearerToken)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// ListMessages fetches the transcript for a match.
func (c *Client) ListMessages(ctx context.Context, matchID string) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	err := c.do(ctx, http.MethodGet, "/matches/"+matchID+"/messages", nil, &resp)
	return resp.Messages, err
}

// MarkRead marks every incoming message in the match as read.
func (c *Client) MarkRead(ctx context.Context, matchID string) error {
	return c.do(ctx, http.MethodPost, "/matches/"+matchID+"/read", nil, nil)
}

// ChatView is a live transcript for one match, backed by a websocket
// subscription. Close it when the window goes away or the subscription
// leaks.
type ChatView struct {
	client  *Client
	matchID string

	Transcript *chat.Transcript
	conn       *websocket.Conn
	cancel     context.CancelFunc
}

// OpenChat loads the transcript and subscribes to the match feed.
func (c *Client) OpenChat(ctx context.Context, matchID string) (*ChatView, error) {
	history, err := c.ListMessages(ctx, matchID)
	if err != nil {
		return nil, err
	}
	initial := make([]chat.Entry, 0, len(history))
	for _, m := range history {
		initial = append(initial, chat.Entry{
			ID:        m.ID,
			SenderID:  m.SenderID,
			Content:   m.Content,
			Token:     m.ClientToken,
			CreatedAt: m.CreatedAt,
		})
	}

	wsURL, err := c.wsURL("/matches/" + matchID + "/ws")
	if err != nil {
		return nil, err
	}
	header := http.Header{"Authorization": {"Bearer " + c.BearerToken}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}

	readCtx, cancel := context.WithCancel(context.Background())
	v := &ChatView{
		client:     c,
		matchID:    matchID,
		Transcript: chat.NewTranscript(initial),
		conn:       conn,
		cancel:     cancel,
	}
	go v.readLoop(readCtx)
	return v, nil
}

// Send appends the message optimistically, then posts it. On failure the
// optimistic entry is rolled back and the error returned; no retry, retrying
// blindly can duplicate the message.
func (v *ChatView) Send(ctx context.Context, content string) error {
	token := uuid.New().String()
	tempID := "local-" + token
	v.Transcript.AppendLocal(tempID, v.client.UserID, content, token, time.Now())

	req := map[string]string{"content": content, "client_token": token}
	err := v.client.do(ctx, http.MethodPost, "/matches/"+v.matchID+"/messages", req, nil)
	if err != nil {
		v.Transcript.RemoveLocal(tempID)
		return err
	}
	return nil
}

// Close tears down the feed subscription.
func (v *ChatView) Close() error {
	v.cancel()
	return v.conn.Close()
}

func (v *ChatView) readLoop(ctx context.Context) {
	for {
		_, data, err := v.conn.ReadMessage()
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		var evt struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &evt); err != nil || evt.Type != "message_new" {
			continue
		}
		var m Message
		if err := json.Unmarshal(evt.Data, &m); err != nil {
			continue
		}
		v.Transcript.ApplyInsert(chat.Entry{
			ID:        m.ID,
			SenderID:  m.SenderID,
			Content:   m.Content,
			Token:     m.ClientToken,
			CreatedAt: m.CreatedAt,
		})
	}
}

// ChatManager keeps a bounded set of docked chat windows, one live feed
// subscription each. Opening a fourth window closes the oldest one.
type ChatManager struct {
	client *Client
	coord  *chat.Coordinator
}

// NewChatManager builds a manager with the default window limit.
func (c *Client) NewChatManager() *ChatManager {
	m := &ChatManager{client: c}
	m.coord = chat.NewCoordinator(chat.DefaultViewLimit, m.subscribe)
	return m
}

// Open docks a chat window for the match, loading its history first.
func (m *ChatManager) Open(ctx context.Context, matchID string) (*chat.View, error) {
	history, err := m.client.ListMessages(ctx, matchID)
	if err != nil {
		return nil, err
	}
	initial := make([]chat.Entry, 0, len(history))
	for _, msg := range history {
		initial = append(initial, chat.Entry{
			ID:        msg.ID,
			SenderID:  msg.SenderID,
			Content:   msg.Content,
			Token:     msg.ClientToken,
			CreatedAt: msg.CreatedAt,
		})
	}
	return m.coord.Open(matchID, initial)
}

// Close undocks the window for the match.
func (m *ChatManager) Close(matchID string) error { return m.coord.Close(matchID) }

// CloseAll undocks every window.
func (m *ChatManager) CloseAll() { m.coord.CloseAll() }

type wsSubscription struct {
	conn *websocket.Conn
}

func (s *wsSubscription) Close() error { return s.conn.Close() }

func (m *ChatManager) subscribe(matchID string, deliver func(chat.Entry)) (chat.Subscription, error) {
	wsURL, err := m.client.wsURL("/matches/" + matchID + "/ws")
	if err != nil {
		return nil, err
	}
	header := http.Header{"Authorization": {"Bearer " + m.client.BearerToken}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var evt struct {
				Type string          `json:"type"`
				Data json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(data, &evt); err != nil || evt.Type != "message_new" {
				continue
			}
			var msg Message
			if err := json.Unmarshal(evt.Data, &msg); err != nil {
				continue
			}
			deliver(chat.Entry{
				ID:        msg.ID,
				SenderID:  msg.SenderID,
				Content:   msg.Content,
				Token:     msg.ClientToken,
				CreatedAt: msg.CreatedAt,
			})
		}
	}()
	return &wsSubscription{conn: conn}, nil
}

func (c *Client) wsURL(path string) (string, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}
