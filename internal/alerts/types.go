package alerts

import "time"

// Task type names for the asynq mux
const (
	TaskMessageNew    = "email:message_new"
	TaskMatchCreated  = "email:match_created"
	TaskTaskCompleted = "email:task_completed"
)

type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type MessageNewPayload struct {
	MatchID     string        `json:"match_id"`
	SenderID    string        `json:"sender_id"`
	RecipientID string        `json:"recipient_id"`
	Content     string        `json:"content"`
	Envelope    EmailEnvelope `json:"envelope"`
	SentAt      time.Time     `json:"sent_at"`
}

type MatchCreatedPayload struct {
	MatchID    string        `json:"match_id"`
	TaskID     string        `json:"task_id"`
	ClientID   string        `json:"client_id"`
	ProviderID string        `json:"provider_id"`
	Envelope   EmailEnvelope `json:"envelope"`
	SentAt     time.Time     `json:"sent_at"`
}

type TaskCompletedPayload struct {
	TaskID     string        `json:"task_id"`
	ClientID   string        `json:"client_id"`
	ProviderID string        `json:"provider_id"`
	Rating     int           `json:"rating"`
	Envelope   EmailEnvelope `json:"envelope"`
	SentAt     time.Time     `json:"sent_at"`
}
