package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-marketplace-be/internal/constant"
	"ai-marketplace-be/internal/entity"
	"ai-marketplace-be/internal/repository/memory"
	"ai-marketplace-be/pkg/embedding"
	"ai-marketplace-be/pkg/rag/rank"
)

type stubEmbedder struct {
	vec []float32
}

func (s stubEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: s.vec},
	}, nil
}

func seedFact(t *testing.T, store *memory.FactStore, userId uuid.UUID, content string, vec []float32, age time.Duration) *entity.KnowledgeFact {
	t.Helper()
	fact := &entity.KnowledgeFact{
		Id:          uuid.New(),
		UserId:      userId,
		Content:     content,
		ContentType: constant.ContentTypeUserFact,
		Embedding:   vec,
		CreatedAt:   time.Now().Add(-age),
	}
	require.NoError(t, store.Create(context.Background(), fact))
	return fact
}

func TestRetrieveReturnsOnlyOwnersFacts(t *testing.T) {
	store := memory.NewFactStore()
	alice := uuid.New()
	bob := uuid.New()

	queryVec := []float32{1, 0, 0}
	seedFact(t, store, alice, "Alice prefers tech sites", queryVec, time.Hour)
	seedFact(t, store, bob, "Bob prefers health sites", queryVec, time.Hour)

	retriever := NewRetriever(store, stubEmbedder{vec: queryVec}, rank.DefaultConfig(), nil)

	res, err := retriever.Retrieve(context.Background(), alice, "what sites do I prefer")
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, alice, res.Items[0].Fact.UserId)
	assert.Equal(t, "Alice prefers tech sites", res.Items[0].Fact.Content)
}

func TestRetrieveReportsRelevantContext(t *testing.T) {
	store := memory.NewFactStore()
	userId := uuid.New()

	queryVec := []float32{1, 0, 0}
	seedFact(t, store, userId, "My name is Alice", queryVec, 2*time.Hour)

	retriever := NewRetriever(store, stubEmbedder{vec: queryVec}, rank.DefaultConfig(), nil)

	res, err := retriever.Retrieve(context.Background(), userId, "name is Alice")
	require.NoError(t, err)

	assert.True(t, res.HasRelevantContext)
	assert.InDelta(t, 0.95, res.Confidence, 1e-9)
}

func TestRetrieveNoFactsMeansNoContext(t *testing.T) {
	store := memory.NewFactStore()
	retriever := NewRetriever(store, stubEmbedder{vec: []float32{1, 0, 0}}, rank.DefaultConfig(), nil)

	res, err := retriever.Retrieve(context.Background(), uuid.New(), "anything")
	require.NoError(t, err)

	assert.Empty(t, res.Items)
	assert.False(t, res.HasRelevantContext)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestRetrieveEmptyQueryShortCircuits(t *testing.T) {
	store := memory.NewFactStore()
	userId := uuid.New()
	seedFact(t, store, userId, "anything", []float32{1, 0, 0}, time.Hour)

	retriever := NewRetriever(store, stubEmbedder{vec: []float32{1, 0, 0}}, rank.DefaultConfig(), nil)

	res, err := retriever.Retrieve(context.Background(), userId, "")
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.False(t, res.HasRelevantContext)
}

func TestRetrieveTouchesAccessStats(t *testing.T) {
	store := memory.NewFactStore()
	userId := uuid.New()

	queryVec := []float32{1, 0, 0}
	fact := seedFact(t, store, userId, "My name is Alice", queryVec, time.Hour)

	retriever := NewRetriever(store, stubEmbedder{vec: queryVec}, rank.DefaultConfig(), nil)

	_, err := retriever.Retrieve(context.Background(), userId, "name is Alice")
	require.NoError(t, err)

	stored, err := store.FindAll(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, fact.Id, stored[0].Id)
	assert.Equal(t, 1, stored[0].AccessCount)
	assert.False(t, stored[0].LastAccessedAt.IsZero())
}

func TestRetrieveContainmentSurvivesUnusableEmbedding(t *testing.T) {
	store := memory.NewFactStore()
	userId := uuid.New()

	// A fact written during a provider outage carries a fallback vector
	// that can point anywhere, including away from the query
	seedFact(t, store, userId, "My name is Alice", []float32{-1, 0, 0}, time.Hour)

	retriever := NewRetriever(store, stubEmbedder{vec: []float32{1, 0, 0}}, rank.DefaultConfig(), nil)

	res, err := retriever.Retrieve(context.Background(), userId, "name is alice")
	require.NoError(t, err)

	require.NotEmpty(t, res.Items)
	assert.Equal(t, "My name is Alice", res.Items[0].Fact.Content)
	assert.InDelta(t, 0.95, res.Items[0].ConfidenceScore, 1e-9)
	assert.True(t, res.HasRelevantContext)
}

func TestRetrieveContainmentRanksFirstAmongStrongerNeighbours(t *testing.T) {
	store := memory.NewFactStore()
	userId := uuid.New()

	queryVec := []float32{1, 0, 0}
	// More near neighbours than the overfetch window, all outscoring the
	// containment fact on cosine similarity alone
	for i := 0; i < rank.DefaultConfig().Limit*8; i++ {
		seedFact(t, store, userId, "I prefer tech publisher sites", queryVec, time.Hour)
	}
	seedFact(t, store, userId, "My name is Alice", []float32{0, 1, 0}, time.Hour)

	retriever := NewRetriever(store, stubEmbedder{vec: queryVec}, rank.DefaultConfig(), nil)

	res, err := retriever.Retrieve(context.Background(), userId, "name is alice")
	require.NoError(t, err)

	require.NotEmpty(t, res.Items)
	assert.Equal(t, "My name is Alice", res.Items[0].Fact.Content)
	assert.InDelta(t, 0.95, res.Items[0].ConfidenceScore, 1e-9)
}

func TestRetrieveIsIdempotentAcrossCalls(t *testing.T) {
	store := memory.NewFactStore()
	userId := uuid.New()

	queryVec := []float32{1, 0, 0}
	seedFact(t, store, userId, "My name is Alice", queryVec, 30*24*time.Hour)
	seedFact(t, store, userId, "I live in NYC", []float32{0.8, 0.6, 0}, 2*time.Hour)
	seedFact(t, store, userId, "I prefer tech sites", []float32{0.9, 0.4, 0.2}, 3*24*time.Hour)

	retriever := NewRetriever(store, stubEmbedder{vec: queryVec}, rank.DefaultConfig(), nil)

	first, err := retriever.Retrieve(context.Background(), userId, "what is my name")
	require.NoError(t, err)
	second, err := retriever.Retrieve(context.Background(), userId, "what is my name")
	require.NoError(t, err)

	// Access bookkeeping from the first call must not reorder the second
	require.Equal(t, len(first.Items), len(second.Items))
	for i := range first.Items {
		assert.Equal(t, first.Items[i].Fact.Id, second.Items[i].Fact.Id)
		assert.Equal(t, first.Items[i].Fact.Content, second.Items[i].Fact.Content)
	}
	assert.Equal(t, first.HasRelevantContext, second.HasRelevantContext)
	assert.Equal(t, first.Confidence, second.Confidence)
}

func TestRetrieveDissimilarFactExcluded(t *testing.T) {
	store := memory.NewFactStore()
	userId := uuid.New()

	// Orthogonal embedding and no lexical overlap with the query
	seedFact(t, store, userId, "completely unrelated topic", []float32{0, 1, 0}, time.Hour)

	retriever := NewRetriever(store, stubEmbedder{vec: []float32{1, 0, 0}}, rank.DefaultConfig(), nil)

	res, err := retriever.Retrieve(context.Background(), userId, "what is my name")
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}
