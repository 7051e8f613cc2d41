package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feliperosas/taskmatch/internal/db"
)

// ensureClient returns a usable client instance
func ensureClient() *asynq.Client {
	if client == nil {
		Init()
	}
	return client
}

// recipientEmail looks up a profile's email; an empty result means the
// identity webhook has not delivered one yet.
func recipientEmail(userID string) string {
	var email string
	err := db.Conn.QueryRow(context.Background(),
		`SELECT email FROM profiles WHERE id = $1`, userID).Scan(&email)
	if err != nil {
		log.Printf("[notify] email lookup failed for %s: %v", userID, err)
		return ""
	}
	return email
}

// NotifyNewMessage queues a new-message email for the recipient. Best-effort:
// failures are logged, never surfaced to the sender.
func NotifyNewMessage(matchID, senderID, recipientID, content string) {
	email := recipientEmail(recipientID)
	if email == "" {
		return
	}
	env := EmailEnvelope{
		To:      email,
		Subject: "New message on your task",
		Body:    content,
	}
	payload := MessageNewPayload{MatchID: matchID, SenderID: senderID, RecipientID: recipientID, Content: content, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	if _, err := ensureClient().Enqueue(asynq.NewTask(TaskMessageNew, b), asynq.Queue("emails")); err != nil {
		log.Printf("[notify] enqueue message_new failed: %v", err)
	}
}

// NotifyMatchCreated tells the provider their proposal was accepted.
func NotifyMatchCreated(matchID, taskID, clientID, providerID string) {
	email := recipientEmail(providerID)
	if email == "" {
		return
	}
	env := EmailEnvelope{
		To:      email,
		Subject: "Your proposal was accepted",
		Body:    fmt.Sprintf("Your proposal for task %s was accepted. Open the chat to talk to the client.", taskID),
	}
	payload := MatchCreatedPayload{MatchID: matchID, TaskID: taskID, ClientID: clientID, ProviderID: providerID, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	if _, err := ensureClient().Enqueue(asynq.NewTask(TaskMatchCreated, b), asynq.Queue("emails")); err != nil {
		log.Printf("[notify] enqueue match_created failed: %v", err)
	}
}

// NotifyTaskCompleted tells the provider the task was completed and reviewed.
func NotifyTaskCompleted(taskID, clientID, providerID string, rating int) {
	email := recipientEmail(providerID)
	if email == "" {
		return
	}
	env := EmailEnvelope{
		To:      email,
		Subject: "Task completed",
		Body:    fmt.Sprintf("Task %s was marked complete. The client rated you %d/5.", taskID, rating),
	}
	payload := TaskCompletedPayload{TaskID: taskID, ClientID: clientID, ProviderID: providerID, Rating: rating, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	if _, err := ensureClient().Enqueue(asynq.NewTask(TaskTaskCompleted, b), asynq.Queue("emails")); err != nil {
		log.Printf("[notify] enqueue task_completed failed: %v", err)
	}
}
