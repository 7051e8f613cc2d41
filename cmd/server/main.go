package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/feliperosas/taskmatch/internal/alerts"
	"github.com/feliperosas/taskmatch/internal/db"
	"github.com/feliperosas/taskmatch/internal/marketplace"
	"github.com/feliperosas/taskmatch/internal/messaging"
	mware "github.com/feliperosas/taskmatch/internal/middleware"
	"github.com/feliperosas/taskmatch/internal/user"
	"github.com/feliperosas/taskmatch/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	// Missing secrets are fatal at start, not at first request
	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if os.Getenv("IDENTITY_WEBHOOK_SECRET") == "" {
		log.Fatal("IDENTITY_WEBHOOK_SECRET is required")
	}

	// Init subsystems
	db.Init()
	alerts.Init()
	defer alerts.Close()

	// Message change feed -> websocket hubs
	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()
	messaging.StartFeed(feedCtx)

	e := echo.New()
	e.HideBanner = true

	// Basic middleware
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	// Health and root routes
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "taskmatch"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if db.Conn == nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db not initialized"})
		}
		if err := db.Conn.Ping(context.Background()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	// Public routes
	// Identity webhooks with per-IP rate limiting to protect against abuse
	hooks := e.Group("/webhooks")
	hooks.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	hooks.POST("/identity", webhook.HandleIdentityEvent)

	e.GET("/tasks", marketplace.GetAllTasks)
	e.GET("/tasks/:id", marketplace.GetTask)
	e.GET("/tasks/:id/review", marketplace.GetTaskReview)
	e.GET("/users/:id/profile", user.GetPublicProfile)
	e.GET("/users/:id/reviews", marketplace.GetUserReviews)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWTMiddleware)

	api.PATCH("/users/profile", user.UpdateProfile)

	api.POST("/tasks", marketplace.CreateTask)
	api.GET("/tasks/me", marketplace.GetMyTasks)
	api.POST("/tasks/:id/proposals", marketplace.SubmitProposal)
	api.POST("/tasks/:id/proposals/:proposal_id/accept", marketplace.AcceptProposal)
	api.POST("/tasks/:id/proposals/:proposal_id/reject", marketplace.RejectProposal)
	api.POST("/tasks/:id/complete", marketplace.CompleteTask)

	api.GET("/matches", messaging.GetMatches)
	api.GET("/matches/:id/messages", messaging.ListMessages)
	api.POST("/matches/:id/messages", messaging.SendMessage)
	api.POST("/matches/:id/read", messaging.MarkRead)
	api.GET("/matches/:id/unread", messaging.UnreadCount)
	api.GET("/matches/:id/ws", messaging.MatchWS)
	api.GET("/messages/unread", messaging.GlobalUnreadCount)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
