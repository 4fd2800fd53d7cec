package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-marketplace-be/internal/constant"
	"ai-marketplace-be/internal/dto"
	"ai-marketplace-be/internal/pkg/logger"
	"ai-marketplace-be/internal/repository/memory"
	"ai-marketplace-be/pkg/rag/rank"
	"ai-marketplace-be/pkg/rag/retrieval"
)

func newKnowledgeFixture(t *testing.T) (IKnowledgeService, *memory.RepositoryFactory) {
	t.Helper()

	factory := memory.NewRepositoryFactory()
	log := logger.NewNoopLogger()
	retriever := retrieval.NewRetriever(factory.Facts, stubEmbedder{}, rank.DefaultConfig(), log)

	svc := NewKnowledgeService(factory, stubEmbedder{}, retriever, log)
	return svc, factory
}

func TestCreateFactStoresEmbeddedRow(t *testing.T) {
	svc, factory := newKnowledgeFixture(t)
	userId := uuid.New()

	res, err := svc.CreateFact(context.Background(), userId, &dto.CreateFactRequest{
		Content:     "I prefer tech publisher sites",
		ContentType: constant.ContentTypeUserFact,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, res.Id)

	facts, err := factory.Facts.FindAll(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "I prefer tech publisher sites", facts[0].Content)
	assert.NotEmpty(t, facts[0].Embedding)
	assert.Equal(t, constant.DefaultImportanceScore, facts[0].ImportanceScore)
}

func TestCreateFactChunksLongContent(t *testing.T) {
	svc, factory := newKnowledgeFixture(t)
	userId := uuid.New()

	long := strings.Repeat("publisher marketplace preferences and history. ", 80)
	_, err := svc.CreateFact(context.Background(), userId, &dto.CreateFactRequest{
		Content:     long,
		ContentType: constant.ContentTypeUserFact,
	})
	require.NoError(t, err)

	facts, err := factory.Facts.FindAll(context.Background(), userId)
	require.NoError(t, err)
	assert.Greater(t, len(facts), 1)
}

func TestCreateFactRejectsBlankContent(t *testing.T) {
	svc, _ := newKnowledgeFixture(t)

	_, err := svc.CreateFact(context.Background(), uuid.New(), &dto.CreateFactRequest{
		Content:     "   ",
		ContentType: constant.ContentTypeUserFact,
	})
	assert.Error(t, err)
}

func TestListFactsIsUserScoped(t *testing.T) {
	svc, _ := newKnowledgeFixture(t)
	alice := uuid.New()
	bob := uuid.New()

	_, err := svc.CreateFact(context.Background(), alice, &dto.CreateFactRequest{
		Content:     "alice fact",
		ContentType: constant.ContentTypeUserFact,
	})
	require.NoError(t, err)
	_, err = svc.CreateFact(context.Background(), bob, &dto.CreateFactRequest{
		Content:     "bob fact",
		ContentType: constant.ContentTypeUserFact,
	})
	require.NoError(t, err)

	res, err := svc.ListFacts(context.Background(), alice, &dto.ListFactsRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "alice fact", res.Items[0].Content)
}

func TestGetRelevantFactsSurfacesStoredFact(t *testing.T) {
	svc, _ := newKnowledgeFixture(t)
	userId := uuid.New()

	_, err := svc.CreateFact(context.Background(), userId, &dto.CreateFactRequest{
		Content:     "my name is Alice",
		ContentType: constant.ContentTypeUserFact,
	})
	require.NoError(t, err)

	res, err := svc.GetRelevantFacts(context.Background(), userId, "what is my name?")
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)
	assert.True(t, res.HasRelevantContext)
	assert.Equal(t, "my name is Alice", res.Items[0].Content)
}

func TestDeleteAllFactsRemovesOnlyOwnRows(t *testing.T) {
	svc, factory := newKnowledgeFixture(t)
	alice := uuid.New()
	bob := uuid.New()

	for _, u := range []uuid.UUID{alice, bob} {
		_, err := svc.CreateFact(context.Background(), u, &dto.CreateFactRequest{
			Content:     "some durable preference",
			ContentType: constant.ContentTypeUserFact,
		})
		require.NoError(t, err)
	}

	require.NoError(t, svc.DeleteAllFacts(context.Background(), alice))

	count, err := factory.Facts.Count(context.Background(), alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = factory.Facts.Count(context.Background(), bob)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
