package marketplace

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/feliperosas/taskmatch/internal/db"
)

// GetTaskReview returns the review left on a completed task, if any.
func GetTaskReview(c echo.Context) error {
	taskID := c.Param("id")
	if taskID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing task id"})
	}

	var r Review
	err := db.Conn.QueryRow(context.Background(),
		`SELECT id, task_id, reviewer_id, reviewed_id, rating, comment, created_at
         FROM reviews WHERE task_id = $1`, taskID,
	).Scan(&r.ID, &r.TaskID, &r.ReviewerID, &r.ReviewedID, &r.Rating, &r.Comment, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no review for this task"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch review"})
	}

	return c.JSON(http.StatusOK, echo.Map{"review": r})
}

// GetUserReviews returns reviews a provider has received, newest first, with
// a rating summary and simple pagination.
func GetUserReviews(c echo.Context) error {
	reviewedID := c.Param("id")
	if reviewedID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing user id"})
	}

	page := 1
	limit := 10
	if pageParam := c.QueryParam("page"); pageParam != "" {
		if p, err := strconv.Atoi(pageParam); err == nil && p > 0 {
			page = p
		}
	}
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 && l <= 50 {
			limit = l
		}
	}
	offset := (page - 1) * limit

	ctx := context.Background()

	var totalReviews int64
	var avgRating float64
	err := db.Conn.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews WHERE reviewed_id = $1`,
		reviewedID,
	).Scan(&totalReviews, &avgRating)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch rating summary"})
	}

	rows, err := db.Conn.Query(ctx,
		`SELECT id, task_id, reviewer_id, reviewed_id, rating, comment, created_at
         FROM reviews WHERE reviewed_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		reviewedID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch reviews"})
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.TaskID, &r.ReviewerID, &r.ReviewedID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		reviews = append(reviews, r)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"reviews":       reviews,
		"total_reviews": totalReviews,
		"avg_rating":    avgRating,
		"page":          page,
		"limit":         limit,
	})
}
