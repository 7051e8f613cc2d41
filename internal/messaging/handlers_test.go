package messaging

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

// newContext builds an echo context for one handler call. The pool is never
// initialized in these tests, so every rejection asserted here must happen
// before any query.
func newContext(t *testing.T, method, body, userID, matchID string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, "/", nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
	}
	if matchID != "" {
		c.SetParamNames("id")
		c.SetParamValues(matchID)
	}
	return rec, c
}

func TestSendMessageUnauthenticated(t *testing.T) {
	rec, c := newContext(t, http.MethodPost, `{"content":"oi"}`, "", "match-1")

	assert.NoError(t, SendMessage(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendMessageMissingMatchID(t *testing.T) {
	rec, c := newContext(t, http.MethodPost, `{"content":"oi"}`, "user-1", "")

	assert.NoError(t, SendMessage(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessageEmptyContent(t *testing.T) {
	rec, c := newContext(t, http.MethodPost, `{"content":""}`, "user-1", "match-1")

	assert.NoError(t, SendMessage(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMessagesUnauthenticated(t *testing.T) {
	rec, c := newContext(t, http.MethodGet, "", "", "match-1")

	assert.NoError(t, ListMessages(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListMessagesInvalidSince(t *testing.T) {
	rec, c := newContext(t, http.MethodGet, "", "user-1", "match-1")
	c.Request().URL.RawQuery = "since=yesterday"

	assert.NoError(t, ListMessages(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "RFC3339")
}

func TestMarkReadUnauthenticated(t *testing.T) {
	rec, c := newContext(t, http.MethodPost, "", "", "match-1")

	assert.NoError(t, MarkRead(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnreadCountUnauthenticated(t *testing.T) {
	rec, c := newContext(t, http.MethodGet, "", "", "match-1")

	assert.NoError(t, UnreadCount(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGlobalUnreadCountUnauthenticated(t *testing.T) {
	rec, c := newContext(t, http.MethodGet, "", "", "")

	assert.NoError(t, GlobalUnreadCount(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
