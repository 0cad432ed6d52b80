package contract

import (
	"context"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredFragment wraps a fragment with its cosine similarity to the query
type ScoredFragment struct {
	Fragment   *entity.Fragment
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type FragmentRepository interface {
	Create(ctx context.Context, fragment *entity.Fragment) error
	CreateBulk(ctx context.Context, fragments []*entity.Fragment) error
	Update(ctx context.Context, fragment *entity.Fragment) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Fragment, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Fragment, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilarWithScore runs visibility-filtered cosine search over one
	// case. Hidden fragments are excluded in the query itself.
	SearchSimilarWithScore(ctx context.Context, caseId uuid.UUID, embedding []float32, trust, minTrustForGated float64, limit int, threshold float64) ([]*ScoredFragment, error)
}
