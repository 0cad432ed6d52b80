package implementation

import (
	"context"
	"errors"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/mapper"
	"rag-patient-be/internal/model"
	"rag-patient-be/internal/repository/contract"
	"rag-patient-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type FragmentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.FragmentMapper
}

func NewFragmentRepository(db *gorm.DB) contract.FragmentRepository {
	return &FragmentRepositoryImpl{
		db:     db,
		mapper: mapper.NewFragmentMapper(),
	}
}

func (r *FragmentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *FragmentRepositoryImpl) Create(ctx context.Context, fragment *entity.Fragment) error {
	m, err := r.mapper.ToModel(fragment)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	saved, err := r.mapper.ToEntity(m)
	if err != nil {
		return err
	}
	*fragment = *saved
	return nil
}

func (r *FragmentRepositoryImpl) CreateBulk(ctx context.Context, fragments []*entity.Fragment) error {
	if len(fragments) == 0 {
		return nil
	}
	models, err := r.mapper.ToModels(fragments)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		fragments[i].Id = m.Id
	}
	return nil
}

func (r *FragmentRepositoryImpl) Update(ctx context.Context, fragment *entity.Fragment) error {
	m, err := r.mapper.ToModel(fragment)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *FragmentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.KBFragment{}, id).Error
}

func (r *FragmentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Fragment, error) {
	var m model.KBFragment
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *FragmentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Fragment, error) {
	var models []*model.KBFragment
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models)
}

func (r *FragmentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.KBFragment{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SearchSimilarWithScore runs cosine search restricted to fragments the
// current trust level may see. Cosine distance in pgvector is
// 1 - cosine_similarity, so similarity = 1 - (embedding <=> query).
func (r *FragmentRepositoryImpl) SearchSimilarWithScore(ctx context.Context, caseId uuid.UUID, embedding []float32, trust, minTrustForGated float64, limit int, threshold float64) ([]*contract.ScoredFragment, error) {
	if limit <= 0 {
		limit = 3
	}

	type result struct {
		model.KBFragment
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("kb_fragments").
		Select("kb_fragments.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("case_id = ?", caseId).
		Where("embedding IS NOT NULL").
		Where(
			"availability = 'public' OR (availability = 'gated' AND COALESCE((metadata -> 'disclosure_requirements' ->> 'trust_ge')::float, ?) <= ?)",
			minTrustForGated, trust,
		).
		Where("1 - (embedding <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredFragment, 0, len(results))
	for _, res := range results {
		e, err := r.mapper.ToEntity(&res.KBFragment)
		if err != nil {
			return nil, err
		}
		scored = append(scored, &contract.ScoredFragment{
			Fragment:   e,
			Similarity: res.Similarity,
		})
	}
	return scored, nil
}
