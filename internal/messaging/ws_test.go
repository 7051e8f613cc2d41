package messaging

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialHub stands up a bare upgrade endpoint that registers the server side of
// the connection on the given hub, then dials it.
func dialHub(t *testing.T, h *hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		h.register(ws)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	h := getHub("match-broadcast-test")
	c1 := dialHub(t, h)
	c2 := dialHub(t, h)

	BroadcastNewMessage("match-broadcast-test", Message{ID: "m-1", MatchID: "match-broadcast-test", Content: "oi"})

	for _, conn := range []*websocket.Conn{c1, c2} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(data), `"type":"message_new"`)
		assert.Contains(t, string(data), `"m-1"`)
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	h := getHub("match-unregister-test")
	conn := dialHub(t, h)
	require.Equal(t, 1, h.size())

	h.mu.RLock()
	var serverConn *websocket.Conn
	for c := range h.clients {
		serverConn = c
	}
	h.mu.RUnlock()

	h.unregister(serverConn)
	assert.Equal(t, 0, h.size())

	// Broadcast must not panic with no subscribers
	BroadcastMessageRead("match-unregister-test", map[string]string{"match_id": "match-unregister-test"})
	_ = conn
}

func TestGetHubReturnsSameInstance(t *testing.T) {
	a := getHub("match-same-test")
	b := getHub("match-same-test")
	assert.Same(t, a, b)
	assert.NotSame(t, a, getHub("match-other-test"))
}
