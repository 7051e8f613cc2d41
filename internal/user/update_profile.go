package user

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/feliperosas/taskmatch/internal/db"
)

type UpdateProfileRequest struct {
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

// UpdateProfile lets the caller change their display fields. Role and id are
// owned by the identity provider and never change here.
func UpdateProfile(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := new(UpdateProfileRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	_, err := db.Conn.Exec(context.Background(), `
        UPDATE profiles
        SET
            name = COALESCE(NULLIF($1, ''), name),
            bio = COALESCE(NULLIF($2, ''), bio),
            avatar_url = COALESCE(NULLIF($3, ''), avatar_url),
            updated_at = NOW()
        WHERE id = $4`,
		req.Name, req.Bio, req.AvatarURL, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully"})
}
