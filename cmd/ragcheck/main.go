package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"ai-marketplace-be/internal/constant"
	"ai-marketplace-be/internal/entity"
	"ai-marketplace-be/internal/pkg/logger"
	"ai-marketplace-be/internal/repository/memory"
	"ai-marketplace-be/pkg/embedding"
	"ai-marketplace-be/pkg/rag/rank"
	"ai-marketplace-be/pkg/rag/retrieval"
)

// ragcheck exercises the retrieval pipeline end to end against the
// in-memory store with a live embedding provider. Useful for eyeballing
// ranker behavior without a database.
func main() {
	color.Cyan("🔎 RAG retrieval self-check\n")

	provider := embedding.NewFallbackProvider(
		embedding.NewOllamaProvider("http://localhost:11434", "nomic-embed-text"),
		768,
		logger.NewNoopLogger(),
	)

	store := memory.NewFactStore()
	userId := uuid.New()
	otherUser := uuid.New()
	ctx := context.Background()

	seed := []struct {
		content     string
		contentType string
		age         time.Duration
	}{
		{"My name is Alice", constant.ContentTypeUserFact, 30 * 24 * time.Hour},
		{"I live in San Francisco", constant.ContentTypeUserFact, 30 * 24 * time.Hour},
		{"I moved to NYC", constant.ContentTypeUserFact, 24 * time.Hour},
		{"I prefer tech and finance publisher sites", constant.ContentTypeUserFact, 3 * 24 * time.Hour},
		{"User: show me cheap sites\nAssistant: Here are some options under $100", constant.ContentTypeConversationTurn, 2 * time.Hour},
	}

	color.Yellow("[1] Seeding %d facts", len(seed))
	for _, s := range seed {
		res, err := provider.Generate(s.content, embedding.TaskRetrievalDocument)
		if err != nil {
			color.Red("embedding failed: %v", err)
			return
		}
		fact := &entity.KnowledgeFact{
			Id:          uuid.New(),
			UserId:      userId,
			Content:     s.content,
			ContentType: s.contentType,
			Embedding:   res.Embedding.Values,
			CreatedAt:   time.Now().Add(-s.age),
		}
		if err := store.Create(ctx, fact); err != nil {
			color.Red("store failed: %v", err)
			return
		}
	}

	// A stranger's fact that must never surface
	strangerEmb, _ := provider.Generate("My name is Mallory", embedding.TaskRetrievalDocument)
	_ = store.Create(ctx, &entity.KnowledgeFact{
		Id:          uuid.New(),
		UserId:      otherUser,
		Content:     "My name is Mallory",
		ContentType: constant.ContentTypeUserFact,
		Embedding:   strangerEmb.Embedding.Values,
		CreatedAt:   time.Now(),
	})

	retriever := retrieval.NewRetriever(store, provider, rank.DefaultConfig(), logger.NewNoopLogger())

	queries := []string{
		"what is my name?",
		"where do I live?",
		"what kind of sites do I like?",
		"tell me about quantum physics",
	}

	for i, q := range queries {
		color.Yellow("\n[%d] Query: %q", i+2, q)
		result, err := retriever.Retrieve(ctx, userId, q)
		if err != nil {
			color.Red("retrieve failed: %v", err)
			continue
		}

		if result.HasRelevantContext {
			color.Green("relevant context: yes (confidence %.2f)", result.Confidence)
		} else {
			color.Red("relevant context: no")
		}

		for _, item := range result.Items {
			if item.Fact.UserId != userId {
				color.Red("  !! ISOLATION VIOLATION: foreign fact surfaced: %q", item.Fact.Content)
				continue
			}
			fmt.Printf("  sim=%.3f conf=%.2f prio=%d  %s\n",
				item.Similarity, item.ConfidenceScore, item.PriorityScore, item.Fact.Content)
		}
	}

	color.Cyan("\n✅ self-check finished")
}
