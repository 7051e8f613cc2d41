package taskmatchsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feliperosas/taskmatch/internal/chat"
)

func newTestView(c *Client, matchID string) *ChatView {
	return &ChatView{
		client:     c,
		matchID:    matchID,
		Transcript: chat.NewTranscript(nil),
	}
}

func TestSendOptimisticConfirm(t *testing.T) {
	var posted struct {
		Content     string `json:"content"`
		ClientToken string `json:"client_token"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/matches/m-1/messages", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "srv-1"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "user-a")
	v := newTestView(c, "m-1")

	require.NoError(t, v.Send(context.Background(), "hello"))

	// The pending entry stays until the feed confirms it
	msgs := v.Transcript.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Pending)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, posted.ClientToken, msgs[0].Token)
	assert.NotEmpty(t, posted.ClientToken)

	// Simulate the feed delivering the server row with the echoed token
	v.Transcript.ApplyInsert(chat.Entry{
		ID:        "srv-1",
		SenderID:  "user-a",
		Content:   "hello",
		Token:     posted.ClientToken,
		CreatedAt: time.Now(),
	})
	msgs = v.Transcript.Messages()
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Pending)
	assert.Equal(t, "srv-1", msgs[0].ID)
}

func TestSendRollsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "not a participant in this match"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "user-a")
	v := newTestView(c, "m-1")

	err := v.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a participant")
	assert.Equal(t, 0, v.Transcript.Len())
}

func TestListMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/matches/m-1/messages", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []Message{
				{ID: "a", MatchID: "m-1", SenderID: "user-b", Content: "oi"},
				{ID: "b", MatchID: "m-1", SenderID: "user-a", Content: "hey"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "user-a")
	msgs, err := c.ListMessages(context.Background(), "m-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "oi", msgs[0].Content)
}

func TestDoSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "task is no longer open"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "user-a")
	err := c.do(context.Background(), http.MethodPost, "/x", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task is no longer open")
	assert.Contains(t, err.Error(), "409")
}
