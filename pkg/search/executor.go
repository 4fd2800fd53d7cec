package search

import (
	"context"

	"github.com/google/uuid"
)

// Site is one marketplace listing returned by a filter run.
type Site struct {
	Domain          string  `json:"domain"`
	Price           float64 `json:"price"`
	DomainAuthority int     `json:"domain_authority"`
	SpamScore       int     `json:"spam_score"`
	Traffic         int     `json:"traffic"`
	Country         string  `json:"country"`
	Niche           string  `json:"niche"`
}

// Result describes the outcome of one filter/search execution.
type Result struct {
	Total       int    `json:"total"`
	Items       []Site `json:"items"`
	Description string `json:"description,omitempty"`
}

// Executor runs a site filter query on behalf of one user. Parameters are
// named bounds (max_price, min_domain_authority, max_spam_score,
// min_traffic, country, niche) produced by the tool-decision stage.
type Executor interface {
	Execute(ctx context.Context, userId uuid.UUID, params map[string]interface{}) (*Result, error)
}
