package memory

import (
	"context"

	"ai-marketplace-be/internal/repository/contract"
	"ai-marketplace-be/internal/repository/unitofwork"
)

// UnitOfWork wraps the in-memory stores behind the transactional interface.
// Begin/Commit/Rollback are no-ops; writes apply immediately.
type UnitOfWork struct {
	facts         *FactStore
	conversations *ConversationStore
}

var _ unitofwork.UnitOfWork = &UnitOfWork{}

func (u *UnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *UnitOfWork) Commit() error                   { return nil }
func (u *UnitOfWork) Rollback() error                 { return nil }

func (u *UnitOfWork) KnowledgeFactRepository() contract.KnowledgeFactRepository {
	return u.facts
}

func (u *UnitOfWork) ConversationRepository() contract.ConversationRepository {
	return u.conversations
}

// RepositoryFactory hands out unit of works sharing one set of stores.
type RepositoryFactory struct {
	Facts         *FactStore
	Conversations *ConversationStore
}

var _ unitofwork.RepositoryFactory = &RepositoryFactory{}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{
		Facts:         NewFactStore(),
		Conversations: NewConversationStore(),
	}
}

func (f *RepositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &UnitOfWork{
		facts:         f.Facts,
		conversations: f.Conversations,
	}
}
