package memory

import (
	"context"
	"time"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/specification"

	"github.com/google/uuid"
)

type CaseRepository struct {
	store *Store
}

func (r *CaseRepository) Create(ctx context.Context, c *entity.Case) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if c.Id == uuid.Nil {
		c.Id = uuid.New()
	}
	if c.Version == 0 {
		c.Version = 1
	}
	c.CreatedAt = time.Now()

	cp := *c
	r.store.cases[c.Id] = &cp
	return nil
}

func (r *CaseRepository) Update(ctx context.Context, c *entity.Case) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cp := *c
	r.store.cases[c.Id] = &cp
	return nil
}

func (r *CaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.cases, id)
	return nil
}

func (r *CaseRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Case, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *CaseRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Case, error) {
	f, err := buildFilter(specs...)
	if err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*entity.Case
	for id, c := range r.store.cases {
		if !f.matchesId(id) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sortByCreatedAt(out, func(c *entity.Case) time.Time { return c.CreatedAt })
	return paginate(out, f), nil
}

func (r *CaseRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}
