package marketplace

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/feliperosas/taskmatch/internal/db"
	"github.com/feliperosas/taskmatch/internal/user"
)

type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	ImageURLs   []string `json:"image_urls"`
}

// =========================
// CreateTask - Client posts a task
// =========================
func CreateTask(c echo.Context) error {
	clientID, ok := c.Get("user_id").(string)
	if !ok || clientID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := new(CreateTaskRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title == "" || req.Description == "" || req.Category == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title, description and category are required"})
	}

	ctx := context.Background()

	// The task row has a foreign key on profiles; make sure one exists for
	// first-time callers.
	if err := user.EnsureProfile(ctx, clientID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to ensure profile"})
	}

	if req.ImageURLs == nil {
		req.ImageURLs = []string{}
	}

	t := Task{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		ImageURLs:   req.ImageURLs,
		Status:      TaskOpen,
	}
	err := db.Conn.QueryRow(ctx,
		`INSERT INTO tasks (id, client_id, title, description, category, location, image_urls, status)
         VALUES ($1, $2, $3, $4, $5, $6, $7, 'OPEN') RETURNING created_at`,
		t.ID, t.ClientID, t.Title, t.Description, t.Category, t.Location, t.ImageURLs,
	).Scan(&t.CreatedAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create task"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"task": t})
}

// =========================
// GetAllTasks - Public discovery of open tasks
// =========================
func GetAllTasks(c echo.Context) error {
	ctx := context.Background()

	category := c.QueryParam("category")
	var rows pgx.Rows
	var err error
	if category != "" {
		rows, err = db.Conn.Query(ctx,
			`SELECT id, client_id, title, description, category, location, image_urls, status, created_at
             FROM tasks WHERE status = 'OPEN' AND category = $1 ORDER BY created_at DESC`, category)
	} else {
		rows, err = db.Conn.Query(ctx,
			`SELECT id, client_id, title, description, category, location, image_urls, status, created_at
             FROM tasks WHERE status = 'OPEN' ORDER BY created_at DESC`)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch tasks"})
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tasks": tasks})
}

// =========================
// GetMyTasks - Caller's own tasks, any status
// =========================
func GetMyTasks(c echo.Context) error {
	clientID, ok := c.Get("user_id").(string)
	if !ok || clientID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, client_id, title, description, category, location, image_urls, status, created_at
         FROM tasks WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch tasks"})
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tasks": tasks})
}

// =========================
// GetTask - One task with its proposals
// =========================
func GetTask(c echo.Context) error {
	taskID := c.Param("id")
	if taskID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing task id"})
	}

	ctx := context.Background()

	var t Task
	err := db.Conn.QueryRow(ctx,
		`SELECT id, client_id, title, description, category, location, image_urls, status, created_at
         FROM tasks WHERE id = $1`, taskID,
	).Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &t.Category, &t.Location, &t.ImageURLs, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch task"})
	}

	rows, err := db.Conn.Query(ctx,
		`SELECT id, task_id, provider_id, price, description, status, created_at
         FROM proposals WHERE task_id = $1 ORDER BY created_at ASC`, taskID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch proposals"})
	}
	defer rows.Close()

	var proposals []Proposal
	for rows.Next() {
		var p Proposal
		if err := rows.Scan(&p.ID, &p.TaskID, &p.ProviderID, &p.Price, &p.Description, &p.Status, &p.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		proposals = append(proposals, p)
	}

	return c.JSON(http.StatusOK, echo.Map{"task": t, "proposals": proposals})
}

func scanTasks(rows pgx.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		var t Task
		var createdAt time.Time
		if err := rows.Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &t.Category, &t.Location, &t.ImageURLs, &t.Status, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt = createdAt
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
