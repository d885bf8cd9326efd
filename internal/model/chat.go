package model

import "time"

type ChatMessage struct {
	ID         uint64    `json:"id"`
	SenderID   uint64    `json:"sender_id"`
	ReceiverID uint64    `json:"receiver_id"`
	Message    string    `json:"message"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChatContact is a user the caller may currently message, with the number
// of unread messages that user sent.
type ChatContact struct {
	UserID       uint64 `json:"user_id"`
	Name         string `json:"name"`
	ProfilePhoto string `json:"profile_photo"`
	Role         string `json:"role"`
	Unread       int64  `json:"unread"`
}
