package marketplace

import (
	"errors"
	"math"
	"time"
)

// Task status machine: OPEN -> IN_PROGRESS -> COMPLETED, forward only.
// CANCELLED exists in the schema for defensive reasons and is never produced.
const (
	TaskOpen       = "OPEN"
	TaskInProgress = "IN_PROGRESS"
	TaskCompleted  = "COMPLETED"
	TaskCancelled  = "CANCELLED"
)

const (
	ProposalPending  = "PENDING"
	ProposalAccepted = "ACCEPTED"
	ProposalRejected = "REJECTED"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type Task struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"location,omitempty"`
	ImageURLs   []string  `json:"image_urls"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Proposal struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	ProviderID  string    `json:"provider_id"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Match struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	ClientID   string    `json:"client_id"`
	ProviderID string    `json:"provider_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type Review struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	ReviewerID string    `json:"reviewer_id"`
	ReviewedID string    `json:"reviewed_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CanTransition reports whether a task may move from one status to another.
// Forward only: OPEN may be completed directly (the client never accepted a
// proposal), but COMPLETED and CANCELLED are terminal.
func CanTransition(from, to string) bool {
	switch from {
	case TaskOpen:
		return to == TaskInProgress || to == TaskCompleted
	case TaskInProgress:
		return to == TaskCompleted
	default:
		return false
	}
}

// ValidPrice reports whether a proposal price is a finite non-negative number.
func ValidPrice(price float64) bool {
	return !math.IsNaN(price) && !math.IsInf(price, 0) && price >= 0
}

// ValidRating reports whether a review rating is in the 1..5 range.
func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}
