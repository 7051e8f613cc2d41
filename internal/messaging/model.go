package messaging

import "time"

// Message is the wire shape of a chat message. ClientToken is the sender's
// idempotency token; the change feed echoes it back so clients can confirm
// their optimistic entries without timestamp heuristics.
type Message struct {
	ID          string    `json:"id"`
	MatchID     string    `json:"match_id"`
	SenderID    string    `json:"sender_id"`
	Content     string    `json:"content"`
	ClientToken string    `json:"client_token,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// MatchPreview is a chat-list entry: the match plus counterpart display
// fields and the last message.
type MatchPreview struct {
	ID              string    `json:"id"`
	TaskID          string    `json:"task_id"`
	TaskTitle       string    `json:"task_title"`
	OtherUserID     string    `json:"other_user_id"`
	OtherUserName   string    `json:"other_user_name"`
	OtherUserAvatar string    `json:"other_user_avatar,omitempty"`
	LastMessage     string    `json:"last_message,omitempty"`
	UnreadCount     int64     `json:"unread_count"`
	CreatedAt       time.Time `json:"created_at"`
}
