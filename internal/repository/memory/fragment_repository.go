package memory

import (
	"context"
	"math"
	"sort"
	"time"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/contract"
	"rag-patient-be/internal/repository/specification"

	"github.com/google/uuid"
)

type FragmentRepository struct {
	store *Store
}

func (r *FragmentRepository) Create(ctx context.Context, fragment *entity.Fragment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.insertLocked(fragment)
	return nil
}

func (r *FragmentRepository) CreateBulk(ctx context.Context, fragments []*entity.Fragment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, f := range fragments {
		r.insertLocked(f)
	}
	return nil
}

func (r *FragmentRepository) insertLocked(fragment *entity.Fragment) {
	if fragment.Id == uuid.Nil {
		fragment.Id = uuid.New()
	}
	fragment.CreatedAt = time.Now()
	cp := *fragment
	r.store.fragments[fragment.Id] = &cp
	r.store.fragOrder = append(r.store.fragOrder, fragment.Id)
}

func (r *FragmentRepository) Update(ctx context.Context, fragment *entity.Fragment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *fragment
	r.store.fragments[fragment.Id] = &cp
	return nil
}

func (r *FragmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.fragments, id)
	return nil
}

func (r *FragmentRepository) matches(f *specFilter, fr *entity.Fragment) bool {
	if !f.matchesId(fr.Id) {
		return false
	}
	if f.caseId != nil && fr.CaseId != *f.caseId {
		return false
	}
	if f.availability != nil && fr.Availability != *f.availability {
		return false
	}
	if f.visibleAt != nil && !fr.VisibleAt(f.visibleAt.Trust, f.visibleAt.MinTrustForGated) {
		return false
	}
	if len(f.topicIn) > 0 && !containsString(f.topicIn, fr.Metadata.Topic) {
		return false
	}
	if len(f.topicNotIn) > 0 && fr.Metadata.Topic != "" && containsString(f.topicNotIn, fr.Metadata.Topic) {
		return false
	}
	if f.withoutEmbedding && len(fr.Embedding) > 0 {
		return false
	}
	return true
}

func (r *FragmentRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Fragment, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *FragmentRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Fragment, error) {
	f, err := buildFilter(specs...)
	if err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*entity.Fragment
	for _, id := range r.store.fragOrder {
		fr, ok := r.store.fragments[id]
		if !ok {
			continue
		}
		if !r.matches(f, fr) {
			continue
		}
		cp := *fr
		out = append(out, &cp)
	}
	return paginate(out, f), nil
}

func (r *FragmentRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func (r *FragmentRepository) SearchSimilarWithScore(ctx context.Context, caseId uuid.UUID, embedding []float32, trust, minTrustForGated float64, limit int, threshold float64) ([]*contract.ScoredFragment, error) {
	if limit <= 0 {
		limit = 3
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var scored []*contract.ScoredFragment
	for _, id := range r.store.fragOrder {
		fr, ok := r.store.fragments[id]
		if !ok || fr.CaseId != caseId || len(fr.Embedding) == 0 {
			continue
		}
		if !fr.VisibleAt(trust, minTrustForGated) {
			continue
		}
		sim := cosineSimilarity(embedding, fr.Embedding)
		if sim < threshold {
			continue
		}
		cp := *fr
		scored = append(scored, &contract.ScoredFragment{Fragment: &cp, Similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
