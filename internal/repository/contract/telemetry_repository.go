package contract

import (
	"context"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/specification"

	"github.com/google/uuid"
)

type TelemetryRepository interface {
	Create(ctx context.Context, turn *entity.TelemetryTurn) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TelemetryTurn, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// FindAllBySessionId returns the session history ordered by turn number.
	FindAllBySessionId(ctx context.Context, sessionId uuid.UUID) ([]*entity.TelemetryTurn, error)
}

type TrajectoryRepository interface {
	// Upsert stores the completed step set for one session trajectory,
	// inserting the row on first completion.
	Upsert(ctx context.Context, trajectory *entity.SessionTrajectory) error
	FindOne(ctx context.Context, sessionId uuid.UUID, trajectoryId string) (*entity.SessionTrajectory, error)
	FindAllBySessionId(ctx context.Context, sessionId uuid.UUID) ([]*entity.SessionTrajectory, error)
}
