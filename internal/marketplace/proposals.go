package marketplace

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/feliperosas/taskmatch/internal/db"
	"github.com/feliperosas/taskmatch/internal/user"
)

type SubmitProposalRequest struct {
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// =========================
// SubmitProposal - Provider bids on a task
// =========================
// Task status is intentionally not checked here, and nothing stops a provider
// from bidding twice on the same task.
func SubmitProposal(c echo.Context) error {
	providerID, ok := c.Get("user_id").(string)
	if !ok || providerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	taskID := c.Param("id")
	if taskID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing task id"})
	}

	req := new(SubmitProposalRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if !ValidPrice(req.Price) || req.Description == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be a non-negative number and description is required"})
	}

	ctx := context.Background()

	if err := user.EnsureProfile(ctx, providerID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to ensure profile"})
	}

	// Verify the task exists so a bad id fails as 404, not as an opaque
	// foreign key violation.
	var exists bool
	if err := db.Conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, taskID).Scan(&exists); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch task"})
	}
	if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
	}

	p := Proposal{
		ID:          uuid.New().String(),
		TaskID:      taskID,
		ProviderID:  providerID,
		Price:       req.Price,
		Description: req.Description,
		Status:      ProposalPending,
	}
	err := db.Conn.QueryRow(ctx,
		`INSERT INTO proposals (id, task_id, provider_id, price, description, status)
         VALUES ($1, $2, $3, $4, $5, 'PENDING') RETURNING created_at`,
		p.ID, p.TaskID, p.ProviderID, p.Price, p.Description,
	).Scan(&p.CreatedAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create proposal"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"proposal": p})
}

// =========================
// RejectProposal - Task owner closes out a pending proposal
// =========================
func RejectProposal(c echo.Context) error {
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

	res, err := db.Conn.Exec(ctx,
		`UPDATE proposals SET status = 'REJECTED' WHERE id = $1 AND task_id = $2 AND status = 'PENDING'`,
		proposalID, taskID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update proposal"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "proposal not found or not pending"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Proposal rejected"})
}
