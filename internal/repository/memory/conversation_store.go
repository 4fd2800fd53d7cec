package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"ai-marketplace-be/internal/entity"
	"ai-marketplace-be/internal/repository/contract"
	"ai-marketplace-be/internal/repository/specification"
)

// ConversationStore is an in-memory ConversationRepository for tests and
// the diagnostic CLI. Rows are kept per user, ordered by creation time.
type ConversationStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID][]*entity.ConversationMessage
}

var _ contract.ConversationRepository = &ConversationStore{}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		rows: make(map[uuid.UUID][]*entity.ConversationMessage),
	}
}

func (s *ConversationStore) Create(ctx context.Context, message *entity.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *message
	s.rows[message.UserId] = append(s.rows[message.UserId], &clone)
	return nil
}

func (s *ConversationStore) CreateBulk(ctx context.Context, messages []*entity.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range messages {
		clone := *m
		s.rows[m.UserId] = append(s.rows[m.UserId], &clone)
	}
	return nil
}

// FindAll returns the user's messages oldest first. Specification filters are not
// applied here; in-memory reads return the full per-user log.
func (s *ConversationStore) FindAll(ctx context.Context, userId uuid.UUID, specs ...specification.Specification) ([]*entity.ConversationMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.ConversationMessage, 0, len(s.rows[userId]))
	for _, m := range s.rows[userId] {
		clone := *m
		out = append(out, &clone)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *ConversationStore) DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, userId)
	return nil
}
