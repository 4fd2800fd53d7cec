package rank

import (
	"math"
	"sort"
	"strings"
	"time"

	"ai-marketplace-be/internal/constant"
	"ai-marketplace-be/internal/entity"
)

// Priority bands, highest first. Lexical containment beats everything so
// short factual queries ("what is my name?") hit the exact stored fact even
// when embedding similarity is noisy. Recency bands let a newly stated fact
// outrank a stale contradictory one without mutating old rows.
const (
	priorityContainment    = 4
	priorityRecentUserFact = 3
	priorityLastDay        = 2
	priorityLastWeek       = 1
	priorityDefault        = 0
)

type Config struct {
	SimilarityLow  float64
	SimilarityMid  float64
	SimilarityHigh float64
	ConfidenceGate float64
	Limit          int
}

func DefaultConfig() Config {
	return Config{
		SimilarityLow:  0.25,
		SimilarityMid:  0.3,
		SimilarityHigh: 0.4,
		ConfidenceGate: 0.7,
		Limit:          6,
	}
}

// Candidate is a stored fact paired with its cosine similarity to the query.
type Candidate struct {
	Fact       entity.KnowledgeFact
	Similarity float64
}

type RankedFact struct {
	Fact            entity.KnowledgeFact
	Similarity      float64
	PriorityScore   int
	ConfidenceScore float64
}

type Ranker struct {
	config Config
}

func NewRanker(config Config) *Ranker {
	if config.Limit <= 0 {
		config.Limit = DefaultConfig().Limit
	}
	return &Ranker{config: config}
}

// Rank filters, scores and orders candidates for a query. An empty query
// matches nothing. The caller supplies now so recency bands are testable.
func (r *Ranker) Rank(queryText string, candidates []Candidate, now time.Time) []RankedFact {
	query := strings.ToLower(strings.TrimSpace(queryText))
	if query == "" {
		return nil
	}

	ranked := make([]RankedFact, 0, len(candidates))
	for _, c := range candidates {
		similarity := clampSimilarity(c.Similarity)
		contains := strings.Contains(strings.ToLower(c.Fact.Content), query)
		recentUserFact := c.Fact.ContentType == constant.ContentTypeUserFact &&
			now.Sub(c.Fact.CreatedAt) <= 7*24*time.Hour

		if !eligible(contains, recentUserFact, similarity, r.config.SimilarityLow) {
			continue
		}

		ranked = append(ranked, RankedFact{
			Fact:            c.Fact,
			Similarity:      similarity,
			PriorityScore:   r.priorityScore(contains, recentUserFact, similarity, c.Fact.CreatedAt, now),
			ConfidenceScore: r.confidenceScore(contains, similarity),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].PriorityScore != ranked[j].PriorityScore {
			return ranked[i].PriorityScore > ranked[j].PriorityScore
		}
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		return ranked[i].Fact.CreatedAt.After(ranked[j].Fact.CreatedAt)
	})

	if len(ranked) > r.config.Limit {
		ranked = ranked[:r.config.Limit]
	}
	return ranked
}

// HasRelevantContext reports whether the ranked set is usable as prior
// context: non-empty and at least one fact strictly above the gate.
func (r *Ranker) HasRelevantContext(ranked []RankedFact) bool {
	for _, f := range ranked {
		if f.ConfidenceScore > r.config.ConfidenceGate {
			return true
		}
	}
	return false
}

// MaxConfidence returns the highest confidence in the set, 0 when empty.
func MaxConfidence(ranked []RankedFact) float64 {
	var max float64
	for _, f := range ranked {
		if f.ConfidenceScore > max {
			max = f.ConfidenceScore
		}
	}
	return max
}

func eligible(contains, recentUserFact bool, similarity, low float64) bool {
	if contains {
		return true
	}
	if recentUserFact && similarity > low {
		return true
	}
	return similarity > low
}

func (r *Ranker) priorityScore(contains, recentUserFact bool, similarity float64, createdAt, now time.Time) int {
	age := now.Sub(createdAt)
	switch {
	case contains:
		return priorityContainment
	case recentUserFact && similarity > r.config.SimilarityLow:
		return priorityRecentUserFact
	case age <= 24*time.Hour:
		return priorityLastDay
	case age <= 7*24*time.Hour:
		return priorityLastWeek
	default:
		return priorityDefault
	}
}

func (r *Ranker) confidenceScore(contains bool, similarity float64) float64 {
	switch {
	case contains:
		return 0.95
	case similarity > r.config.SimilarityHigh:
		return 0.9
	case similarity > r.config.SimilarityMid:
		return 0.8
	case similarity > r.config.SimilarityLow:
		return 0.7
	default:
		return 0
	}
}

func clampSimilarity(similarity float64) float64 {
	if math.IsNaN(similarity) || similarity < 0 {
		return 0
	}
	if similarity > 1 {
		return 1
	}
	return similarity
}
