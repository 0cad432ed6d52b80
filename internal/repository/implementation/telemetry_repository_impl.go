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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TelemetryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TelemetryMapper
}

func NewTelemetryRepository(db *gorm.DB) contract.TelemetryRepository {
	return &TelemetryRepositoryImpl{
		db:     db,
		mapper: mapper.NewTelemetryMapper(),
	}
}

func (r *TelemetryRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *TelemetryRepositoryImpl) Create(ctx context.Context, turn *entity.TelemetryTurn) error {
	m, err := r.mapper.ToModel(turn)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	turn.Id = m.Id
	return nil
}

func (r *TelemetryRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TelemetryTurn, error) {
	var models []*model.TelemetryTurn
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models)
}

func (r *TelemetryRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.TelemetryTurn{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *TelemetryRepositoryImpl) FindAllBySessionId(ctx context.Context, sessionId uuid.UUID) ([]*entity.TelemetryTurn, error) {
	return r.FindAll(ctx,
		specification.BySessionId{SessionId: sessionId},
		specification.OrderBy{Field: "turn_no"},
	)
}

type TrajectoryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TelemetryMapper
}

func NewTrajectoryRepository(db *gorm.DB) contract.TrajectoryRepository {
	return &TrajectoryRepositoryImpl{
		db:     db,
		mapper: mapper.NewTelemetryMapper(),
	}
}

// Upsert keys on (session_id, trajectory_id) and replaces the completed
// step set. Steps only ever accumulate, so a replace is safe.
func (r *TrajectoryRepositoryImpl) Upsert(ctx context.Context, trajectory *entity.SessionTrajectory) error {
	m, err := r.mapper.TrajectoryToModel(trajectory)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "trajectory_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed_steps", "updated_at"}),
		}).
		Create(m).Error
}

func (r *TrajectoryRepositoryImpl) FindOne(ctx context.Context, sessionId uuid.UUID, trajectoryId string) (*entity.SessionTrajectory, error) {
	var m model.SessionTrajectory
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND trajectory_id = ?", sessionId, trajectoryId).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.TrajectoryToEntity(&m)
}

func (r *TrajectoryRepositoryImpl) FindAllBySessionId(ctx context.Context, sessionId uuid.UUID) ([]*entity.SessionTrajectory, error) {
	var models []*model.SessionTrajectory
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Order("trajectory_id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	trajectories := make([]*entity.SessionTrajectory, 0, len(models))
	for _, m := range models {
		e, err := r.mapper.TrajectoryToEntity(m)
		if err != nil {
			return nil, err
		}
		trajectories = append(trajectories, e)
	}
	return trajectories, nil
}
