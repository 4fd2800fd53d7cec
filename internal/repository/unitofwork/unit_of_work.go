package unitofwork

import (
	"context"

	"ai-marketplace-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	KnowledgeFactRepository() contract.KnowledgeFactRepository
	ConversationRepository() contract.ConversationRepository
}
