package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-marketplace-be/internal/constant"
	"ai-marketplace-be/internal/entity"
)

func storedFact(userId uuid.UUID, content string, vec []float32) *entity.KnowledgeFact {
	return &entity.KnowledgeFact{
		Id:          uuid.New(),
		UserId:      userId,
		Content:     content,
		ContentType: constant.ContentTypeUserFact,
		Embedding:   vec,
		CreatedAt:   time.Now(),
	}
}

func TestFactStoreSearchIsUserScoped(t *testing.T) {
	store := NewFactStore()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	vec := []float32{1, 0, 0}
	require.NoError(t, store.Create(ctx, storedFact(alice, "alice fact", vec)))
	require.NoError(t, store.Create(ctx, storedFact(bob, "bob fact", vec)))

	scored, err := store.SearchSimilarWithScore(ctx, vec, 10, alice, 0)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, "alice fact", scored[0].Fact.Content)
}

func TestFactStoreSearchOrdersBySimilarityAndAppliesThreshold(t *testing.T) {
	store := NewFactStore()
	ctx := context.Background()
	userId := uuid.New()

	require.NoError(t, store.Create(ctx, storedFact(userId, "exact match", []float32{1, 0, 0})))
	require.NoError(t, store.Create(ctx, storedFact(userId, "partial match", []float32{0.7, 0.7, 0})))
	require.NoError(t, store.Create(ctx, storedFact(userId, "orthogonal", []float32{0, 0, 1})))

	scored, err := store.SearchSimilarWithScore(ctx, []float32{1, 0, 0}, 10, userId, 0.5)
	require.NoError(t, err)

	require.Len(t, scored, 2)
	assert.Equal(t, "exact match", scored[0].Fact.Content)
	assert.Greater(t, scored[0].Similarity, scored[1].Similarity)
}

func TestFactStoreSearchContainingIgnoresSimilarity(t *testing.T) {
	store := NewFactStore()
	ctx := context.Background()
	userId := uuid.New()
	other := uuid.New()

	require.NoError(t, store.Create(ctx, storedFact(userId, "My name is Alice", []float32{-1, 0, 0})))
	require.NoError(t, store.Create(ctx, storedFact(userId, "unrelated content", []float32{1, 0, 0})))
	require.NoError(t, store.Create(ctx, storedFact(other, "my NAME IS ALICE too", []float32{1, 0, 0})))

	scored, err := store.SearchContaining(ctx, "name is alice", []float32{1, 0, 0}, 10, userId)
	require.NoError(t, err)

	// Case-insensitive, user-scoped, and found despite an opposed embedding
	require.Len(t, scored, 1)
	assert.Equal(t, "My name is Alice", scored[0].Fact.Content)
	assert.InDelta(t, -1.0, scored[0].Similarity, 1e-9)
}

func TestFactStoreTouchAccess(t *testing.T) {
	store := NewFactStore()
	ctx := context.Background()
	userId := uuid.New()

	fact := storedFact(userId, "touched fact", []float32{1, 0, 0})
	require.NoError(t, store.Create(ctx, fact))

	require.NoError(t, store.TouchAccess(ctx, userId, []uuid.UUID{fact.Id}))
	require.NoError(t, store.TouchAccess(ctx, userId, []uuid.UUID{fact.Id}))

	all, err := store.FindAll(ctx, userId)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].AccessCount)
	assert.False(t, all[0].LastAccessedAt.IsZero())
}

func TestFactStoreCloneOnRead(t *testing.T) {
	store := NewFactStore()
	ctx := context.Background()
	userId := uuid.New()

	require.NoError(t, store.Create(ctx, storedFact(userId, "immutable", []float32{1, 0, 0})))

	all, err := store.FindAll(ctx, userId)
	require.NoError(t, err)
	all[0].Content = "mutated by caller"

	again, err := store.FindAll(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, "immutable", again[0].Content)
}

func TestFactStoreDeleteAllByUserId(t *testing.T) {
	store := NewFactStore()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	require.NoError(t, store.Create(ctx, storedFact(alice, "a", []float32{1, 0, 0})))
	require.NoError(t, store.Create(ctx, storedFact(bob, "b", []float32{1, 0, 0})))

	require.NoError(t, store.DeleteAllByUserId(ctx, alice))

	count, err := store.Count(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = store.Count(ctx, bob)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Mismatched or empty vectors score zero
	assert.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, CosineSimilarity(nil, nil))
}
