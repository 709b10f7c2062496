package models

import "time"

// AgentIdentity is the authenticated Twitter account the agent runs as.
// Built once at startup from the credentials lookup and never mutated.
type AgentIdentity struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"` // lowercased handle without '@'
}

// Mention is an inbound tweet that names the agent's handle.
type Mention struct {
	ID             uint64    `json:"id"`
	AuthorID       uint64    `json:"author_id"`
	AuthorUsername string    `json:"author_username,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Text           string    `json:"text"`
}

// ChatMessage is a single chat-history row persisted through storage.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Role      string    `json:"role"`
	Topic     string    `json:"topic"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Chat-history roles.
const (
	RoleUser = "user"
	RoleAska = "aska"
)
