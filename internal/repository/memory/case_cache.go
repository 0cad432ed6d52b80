package memory

import (
	"time"

	"rag-patient-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type CaseCache struct {
	cache *cache.Cache
}

func NewCaseCache() *CaseCache {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &CaseCache{
		cache: c,
	}
}

func (r *CaseCache) Save(c *entity.Case) {
	r.cache.Set(c.Id.String(), c, cache.DefaultExpiration)
}

func (r *CaseCache) Get(caseId uuid.UUID) (*entity.Case, bool) {
	if x, found := r.cache.Get(caseId.String()); found {
		return x.(*entity.Case), true
	}
	return nil, false
}

func (r *CaseCache) Delete(caseId uuid.UUID) {
	r.cache.Delete(caseId.String())
}
