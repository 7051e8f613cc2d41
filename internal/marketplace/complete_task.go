package marketplace

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/feliperosas/taskmatch/internal/alerts"
	"github.com/feliperosas/taskmatch/internal/db"
)

type CompleteTaskRequest struct {
	ProviderID string `json:"provider_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
}

// =========================
// CompleteTask - Client closes the task and reviews the provider
// =========================
// Single transaction: task -> COMPLETED plus the review insert. Either both
// land or neither does.
func CompleteTask(c echo.Context) error {
	callerID, ok := c.Get("user_id").(string)
	if !ok || callerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	taskID := c.Param("id")
	if taskID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing task id"})
	}

	req := new(CompleteTaskRequest)
	if err := c.Bind(req); err != nil || req.ProviderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if !ValidRating(req.Rating) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
	}
	if len(req.Comment) > 1000 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "comment too long (max 1000 characters)"})
	}

	ctx := context.Background()

	var clientID, status string
	err := db.Conn.QueryRow(ctx, `SELECT client_id, status FROM tasks WHERE id = $1`, taskID).Scan(&clientID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch task"})
	}
	if clientID != callerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the task owner"})
	}
	if !CanTransition(status, TaskCompleted) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "task cannot be completed from status " + status})
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	if _, err = tx.Exec(ctx,
		`UPDATE tasks SET status = 'COMPLETED', updated_at = NOW() WHERE id = $1`, taskID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update task status"})
	}

	reviewID := uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO reviews (id, task_id, reviewer_id, reviewed_id, rating, comment)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		reviewID, taskID, callerID, req.ProviderID, req.Rating, req.Comment)
	if err != nil {
		// UNIQUE task_id: a second complete attempt loses here
		return c.JSON(http.StatusConflict, echo.Map{"error": "review already exists for this task"})
	}

	if err = tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	alerts.NotifyTaskCompleted(taskID, callerID, req.ProviderID, req.Rating)

	return c.JSON(http.StatusOK, echo.Map{"message": "Task completed", "review_id": reviewID})
}
