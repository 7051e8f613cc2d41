package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/feliperosas/taskmatch/internal/user"
)

// identityEvent is the subset of the identity provider's webhook payload the
// profile upsert needs.
type identityEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		ImageURL       string `json:"image_url"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
		PublicMetadata struct {
			Role string `json:"role"`
		} `json:"public_metadata"`
	} `json:"data"`
}

// HandleIdentityEvent ingests user.created / user.updated webhooks and
// upserts the profile row. A failed upsert returns 500 so the provider
// retries on its own schedule; unknown event types are acknowledged and
// dropped.
func HandleIdentityEvent(c echo.Context) error {
	secret := os.Getenv("IDENTITY_WEBHOOK_SECRET")
	if secret == "" {
		// Startup validates this; reaching here means misconfiguration
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "webhook secret not configured"})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}

	h := c.Request().Header
	err = VerifySignature(secret,
		h.Get("webhook-id"), h.Get("webhook-timestamp"), h.Get("webhook-signature"),
		body, time.Now())
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid webhook signature"})
	}

	var evt identityEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	if evt.Type != "user.created" && evt.Type != "user.updated" {
		return c.JSON(http.StatusOK, echo.Map{"message": "event ignored"})
	}
	if evt.Data.ID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event has no user id"})
	}

	email := ""
	if len(evt.Data.EmailAddresses) > 0 {
		email = evt.Data.EmailAddresses[0].EmailAddress
	}
	name := strings.TrimSpace(evt.Data.FirstName + " " + evt.Data.LastName)
	if name == "" {
		name = email
	}

	err = user.UpsertFromIdentity(context.Background(), evt.Data.ID, name, email, evt.Data.ImageURL, evt.Data.PublicMetadata.Role)
	if err != nil {
		log.Printf("identity webhook: upsert failed for %s: %v", evt.Data.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save user"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "webhook received", "success": true})
}
