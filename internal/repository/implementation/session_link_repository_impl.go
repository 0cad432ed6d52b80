package implementation

import (
	"context"
	"errors"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/mapper"
	"rag-patient-be/internal/model"
	"rag-patient-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionLinkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionLinkRepository(db *gorm.DB) contract.SessionLinkRepository {
	return &SessionLinkRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *SessionLinkRepositoryImpl) Create(ctx context.Context, link *entity.SessionLink) error {
	m := r.mapper.LinkToModel(link)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*link = *r.mapper.LinkToEntity(m)
	return nil
}

func (r *SessionLinkRepositoryImpl) FindBySessionId(ctx context.Context, sessionId uuid.UUID) (*entity.SessionLink, error) {
	var m model.SessionLink
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionId).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.LinkToEntity(&m), nil
}

func (r *SessionLinkRepositoryImpl) FindAllByCaseId(ctx context.Context, caseId uuid.UUID) ([]*entity.SessionLink, error) {
	var models []*model.SessionLink
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseId).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	links := make([]*entity.SessionLink, 0, len(models))
	for _, m := range models {
		links = append(links, r.mapper.LinkToEntity(m))
	}
	return links, nil
}
