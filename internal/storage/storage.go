package storage

import (
	"context"

	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/models"
)

// Storage persists chat history. The agent records both sides of every
// conversation so the reply generator can hand recent turns to the QA service.
type Storage interface {
	SaveMessage(ctx context.Context, msg *models.ChatMessage) error
	// RecentMessages returns up to limit messages for the user, oldest first.
	RecentMessages(ctx context.Context, userID int64, limit int) ([]*models.ChatMessage, error)
	Close() error
}
