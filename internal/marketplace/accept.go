package marketplace

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/feliperosas/taskmatch/internal/alerts"
	"github.com/feliperosas/taskmatch/internal/db"
)

// =========================
// AcceptProposal - Task owner accepts exactly one proposal
// =========================
// Atomically: proposal -> ACCEPTED, task -> IN_PROGRESS, match created. The
// task row is locked and its status re-checked inside the transaction so a
// concurrent second accept fails with 409 instead of an opaque unique
// violation. Losing proposals stay PENDING.
func AcceptProposal(c echo.Context) error {
	callerID, ok := c.Get("user_id").(string)
	if !ok || callerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	taskID := c.Param("id")
	proposalID := c.Param("proposal_id")
	if taskID == "" || proposalID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing task or proposal id"})
	}

	ctx := context.Background()

	var clientID string
	err := db.Conn.QueryRow(ctx, `SELECT client_id FROM tasks WHERE id = $1`, taskID).Scan(&clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch task"})
	}
	if clientID != callerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the task owner"})
	}

	providerID, err := acceptProposalTx(ctx, taskID, proposalID, callerID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "proposal not found"})
		case errors.Is(err, ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "task is no longer open"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to accept proposal"})
		}
	}

	// The batched write does not return the generated match row, so re-read
	// it by its unique task_id after commit for chat navigation. The
	// transaction is already durable at this point; only the id lookup can
	// lag.
	var m Match
	err = db.Conn.QueryRow(ctx,
		`SELECT id, task_id, client_id, provider_id, created_at FROM matches WHERE task_id = $1`, taskID,
	).Scan(&m.ID, &m.TaskID, &m.ClientID, &m.ProviderID, &m.CreatedAt)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"message": "Proposal accepted", "match_id": nil})
	}

	alerts.NotifyMatchCreated(m.ID, taskID, callerID, providerID)

	return c.JSON(http.StatusOK, echo.Map{"message": "Proposal accepted", "match_id": m.ID, "match": m})
}

// acceptProposalTx runs the accept transaction and returns the winning
// provider id. ErrNotFound: no such pending proposal for the task.
// ErrConflict: the task already left OPEN.
func acceptProposalTx(ctx context.Context, taskID, proposalID, clientID string) (string, error) {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var providerID string
	err = tx.QueryRow(ctx,
		`SELECT provider_id FROM proposals WHERE id = $1 AND task_id = $2`,
		proposalID, taskID,
	).Scan(&providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}

	// Lock the task row; the loser of a concurrent accept blocks here and
	// then sees IN_PROGRESS.
	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM tasks WHERE id = $1 FOR UPDATE`, taskID).Scan(&status)
	if err != nil {
		return "", err
	}
	if !CanTransition(status, TaskInProgress) {
		return "", ErrConflict
	}

	if _, err = tx.Exec(ctx,
		`UPDATE proposals SET status = 'ACCEPTED' WHERE id = $1`, proposalID); err != nil {
		return "", err
	}
	if _, err = tx.Exec(ctx,
		`UPDATE tasks SET status = 'IN_PROGRESS', updated_at = NOW() WHERE id = $1`, taskID); err != nil {
		return "", err
	}
	if _, err = tx.Exec(ctx,
		`INSERT INTO matches (task_id, client_id, provider_id) VALUES ($1, $2, $3)`,
		taskID, clientID, providerID); err != nil {
		return "", err
	}

	if err = tx.Commit(ctx); err != nil {
		return "", err
	}
	return providerID, nil
}
