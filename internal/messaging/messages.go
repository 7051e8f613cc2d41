package messaging

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/feliperosas/taskmatch/internal/alerts"
	"github.com/feliperosas/taskmatch/internal/db"
)

// matchParticipants resolves the two sides of a match. pgx.ErrNoRows means
// the match does not exist.
func matchParticipants(ctx context.Context, matchID string) (clientID, providerID string, err error) {
	err = db.Conn.QueryRow(ctx,
		`SELECT client_id, provider_id FROM matches WHERE id = $1`, matchID,
	).Scan(&clientID, &providerID)
	return clientID, providerID, err
}

type SendMessageRequest struct {
	Content     string `json:"content"`
	ClientToken string `json:"client_token"`
}

// SendMessage - a match participant sends a message in the thread.
// The insert fires the feed trigger; subscribers get the row (including the
// client token) as a message_new event.
func SendMessage(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	matchID := c.Param("id")
	if matchID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing match id"})
	}

	req := new(SendMessageRequest)
	if err := c.Bind(req); err != nil || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	ctx := context.Background()

	clientID, providerID, err := matchParticipants(ctx, matchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "match not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch match"})
	}

	var recipientID string
	switch userID {
	case clientID:
		recipientID = providerID
	case providerID:
		recipientID = clientID
	default:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this match"})
	}

	m := Message{
		ID:          uuid.New().String(),
		MatchID:     matchID,
		SenderID:    userID,
		Content:     req.Content,
		ClientToken: req.ClientToken,
	}
	err = db.Conn.QueryRow(ctx,
		`INSERT INTO messages (id, match_id, sender_id, content, client_token)
         VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		m.ID, m.MatchID, m.SenderID, m.Content, m.ClientToken,
	).Scan(&m.CreatedAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send message"})
	}

	// Email notification for the recipient (best-effort)
	alerts.NotifyNewMessage(matchID, userID, recipientID, req.Content)

	return c.JSON(http.StatusOK, echo.Map{"message": m})
}

// ListMessages - the transcript for a match, oldest first. Supports an
// optional RFC3339 since filter for incremental fetches.
func ListMessages(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	matchID := c.Param("id")
	if matchID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing match id"})
	}

	var sinceTime time.Time
	sinceStr := c.QueryParam("since")
	if sinceStr != "" {
		var perr error
		sinceTime, perr = time.Parse(time.RFC3339, sinceStr)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid since timestamp, use RFC3339"})
		}
	}

	ctx := context.Background()

	clientID, providerID, err := matchParticipants(ctx, matchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "match not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch match"})
	}
	if userID != clientID && userID != providerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this match"})
	}

	var rows pgx.Rows
	if sinceStr != "" {
		rows, err = db.Conn.Query(ctx,
			`SELECT id, match_id, sender_id, content, client_token, is_read, created_at
             FROM messages WHERE match_id = $1 AND created_at > $2 ORDER BY created_at ASC`, matchID, sinceTime)
	} else {
		rows, err = db.Conn.Query(ctx,
			`SELECT id, match_id, sender_id, content, client_token, is_read, created_at
             FROM messages WHERE match_id = $1 ORDER BY created_at ASC`, matchID)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list messages"})
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.MatchID, &m.SenderID, &m.Content, &m.ClientToken, &m.IsRead, &m.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		msgs = append(msgs, m)
	}

	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

// GetMatches - the caller's matches with counterpart display fields, last
// message preview and unread count, most recent first.
func GetMatches(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT m.id, m.task_id, t.title,
               p.id, p.name, p.avatar_url,
               COALESCE((SELECT content FROM messages WHERE match_id = m.id ORDER BY created_at DESC LIMIT 1), ''),
               (SELECT COUNT(*) FROM messages WHERE match_id = m.id AND sender_id <> $1 AND is_read = FALSE),
               m.created_at
        FROM matches m
        JOIN tasks t ON t.id = m.task_id
        JOIN profiles p ON p.id = CASE WHEN m.client_id = $1 THEN m.provider_id ELSE m.client_id END
        WHERE m.client_id = $1 OR m.provider_id = $1
        ORDER BY m.created_at DESC`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch matches"})
	}
	defer rows.Close()

	var matches []MatchPreview
	for rows.Next() {
		var mp MatchPreview
		if err := rows.Scan(&mp.ID, &mp.TaskID, &mp.TaskTitle, &mp.OtherUserID, &mp.OtherUserName,
			&mp.OtherUserAvatar, &mp.LastMessage, &mp.UnreadCount, &mp.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		matches = append(matches, mp)
	}

	return c.JSON(http.StatusOK, echo.Map{"matches": matches})
}
