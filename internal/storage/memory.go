package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/models"
)

// MemoryStorage keeps chat history in process memory. Used for development
// runs and tests; history does not survive a restart.
type MemoryStorage struct {
	mu       sync.RWMutex
	messages map[int64][]*models.ChatMessage
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		messages: make(map[int64][]*models.ChatMessage),
	}
}

func (s *MemoryStorage) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *msg
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.messages[stored.UserID] = append(s.messages[stored.UserID], &stored)
	return nil
}

func (s *MemoryStorage) RecentMessages(ctx context.Context, userID int64, limit int) ([]*models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.messages[userID]
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	out := make([]*models.ChatMessage, len(history))
	for i, msg := range history {
		copied := *msg
		out[i] = &copied
	}
	return out, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
