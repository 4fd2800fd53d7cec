package memory

import (
	"time"

	"ai-marketplace-be/pkg/rag/filter"

	"github.com/patrickmn/go-cache"
)

// FilterStateRepository keeps the caller's active search constraints per
// chat session. Entries expire after an hour of inactivity.
type FilterStateRepository struct {
	cache *cache.Cache
}

func NewFilterStateRepository() *FilterStateRepository {
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &FilterStateRepository{
		cache: c,
	}
}

func (r *FilterStateRepository) Save(sessionID string, state filter.State) {
	r.cache.Set(sessionID, state, cache.DefaultExpiration)
}

func (r *FilterStateRepository) Get(sessionID string) (filter.State, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(filter.State), true
	}
	return nil, false
}

func (r *FilterStateRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
