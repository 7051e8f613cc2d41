package messaging

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/feliperosas/taskmatch/internal/db"
)

// MarkRead - the caller marks every incoming message in the match as read.
// Plain read-then-write; a message sent concurrently may stay unread until
// the next call, which is fine for a badge.
func MarkRead(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	matchID := c.Param("id")
	if matchID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing match id"})
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

	res, err := db.Conn.Exec(ctx,
		`UPDATE messages SET is_read = TRUE WHERE match_id = $1 AND sender_id <> $2 AND is_read = FALSE`,
		matchID, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to mark read"})
	}

	if res.RowsAffected() > 0 {
		BroadcastMessageRead(matchID, echo.Map{
			"match_id": matchID,
			"user_id":  userID,
			"read_at":  time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"marked": res.RowsAffected()})
}

// UnreadCount - unread messages for the caller in one match
func UnreadCount(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	matchID := c.Param("id")
	if matchID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing match id"})
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

	var count int64
	err = db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE match_id = $1 AND sender_id <> $2 AND is_read = FALSE`,
		matchID, userID,
	).Scan(&count)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute unread count"})
	}

	return c.JSON(http.StatusOK, echo.Map{"unread": count})
}

// GlobalUnreadCount - unread messages for the caller across all their matches
func GlobalUnreadCount(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var count int64
	err := db.Conn.QueryRow(context.Background(), `
        SELECT COUNT(*)
        FROM messages msg
        JOIN matches m ON m.id = msg.match_id
        WHERE (m.client_id = $1 OR m.provider_id = $1)
          AND msg.sender_id <> $1 AND msg.is_read = FALSE`, userID,
	).Scan(&count)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute unread count"})
	}

	return c.JSON(http.StatusOK, echo.Map{"unread": count})
}
