package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ai-marketplace-be/internal/pkg/logger"
	"ai-marketplace-be/internal/repository/contract"
	"ai-marketplace-be/pkg/embedding"
	"ai-marketplace-be/pkg/rag/rank"
)

// candidateOverfetch asks the store for more rows than the final limit so
// the ranker has enough material for its lexical and recency overrides.
const candidateOverfetch = 4

type Result struct {
	Items              []rank.RankedFact
	HasRelevantContext bool
	Confidence         float64
}

// Retriever turns a query into ranked prior facts for one user. It embeds
// the query, pulls nearest neighbours from the fact store, then reorders
// them with the hybrid ranker.
type Retriever struct {
	facts    contract.KnowledgeFactRepository
	embedder embedding.EmbeddingProvider
	ranker   *rank.Ranker
	config   rank.Config
	log      logger.ILogger
}

func NewRetriever(
	facts contract.KnowledgeFactRepository,
	embedder embedding.EmbeddingProvider,
	config rank.Config,
	log logger.ILogger,
) *Retriever {
	return &Retriever{
		facts:    facts,
		embedder: embedder,
		ranker:   rank.NewRanker(config),
		config:   config,
		log:      log,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, userId uuid.UUID, query string) (*Result, error) {
	if query == "" {
		return &Result{}, nil
	}

	embRes, err := r.embedder.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Fetch loosely here; the ranker applies the real eligibility rules.
	// Two candidate sets: nearest neighbours by vector, plus lexical
	// matches with no similarity cutoff. Containment must rank even when
	// the stored embedding is unusable, so neither fetch alone is enough.
	limit := r.config.Limit * candidateOverfetch
	scored, err := r.facts.SearchSimilarWithScore(ctx, embRes.Embedding.Values, limit, userId, 0)
	if err != nil {
		return nil, fmt.Errorf("search similar facts: %w", err)
	}

	lexical, err := r.facts.SearchContaining(ctx, query, embRes.Embedding.Values, limit, userId)
	if err != nil {
		return nil, fmt.Errorf("search containing facts: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(scored))
	candidates := make([]rank.Candidate, 0, len(scored)+len(lexical))
	for _, s := range append(scored, lexical...) {
		if s == nil || s.Fact == nil || seen[s.Fact.Id] {
			continue
		}
		seen[s.Fact.Id] = true
		candidates = append(candidates, rank.Candidate{
			Fact:       *s.Fact,
			Similarity: s.Similarity,
		})
	}

	ranked := r.ranker.Rank(query, candidates, time.Now())

	if len(ranked) > 0 {
		ids := make([]uuid.UUID, 0, len(ranked))
		for _, f := range ranked {
			ids = append(ids, f.Fact.Id)
		}
		if err := r.facts.TouchAccess(ctx, userId, ids); err != nil && r.log != nil {
			r.log.Warn("retrieval", "failed to touch access stats", map[string]interface{}{
				"userId": userId.String(),
				"error":  err.Error(),
			})
		}
	}

	return &Result{
		Items:              ranked,
		HasRelevantContext: r.ranker.HasRelevantContext(ranked),
		Confidence:         rank.MaxConfidence(ranked),
	}, nil
}
