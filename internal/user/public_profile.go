package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/feliperosas/taskmatch/internal/db"
)

// GetPublicProfile returns a profile with its received-review summary.
func GetPublicProfile(c echo.Context) error {
	profileID := c.Param("id")
	if profileID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing profile id"})
	}

	ctx := context.Background()

	var p Profile
	err := db.Conn.QueryRow(ctx,
		`SELECT id, name, role, bio, avatar_url, created_at FROM profiles WHERE id = $1`,
		profileID,
	).Scan(&p.ID, &p.Name, &p.Role, &p.Bio, &p.AvatarURL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch profile"})
	}

	var totalReviews int64
	var avgRating float64
	err = db.Conn.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews WHERE reviewed_id = $1`,
		profileID,
	).Scan(&totalReviews, &avgRating)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch rating summary"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"profile":       p,
		"total_reviews": totalReviews,
		"avg_rating":    avgRating,
	})
}
