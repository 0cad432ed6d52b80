package contract

import (
	"context"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	Update(ctx context.Context, session *entity.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// FindForUpdate locks the session row for the rest of the transaction.
	// Turn ordering is enforced under this lock.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*entity.Session, error)
}

type SessionLinkRepository interface {
	Create(ctx context.Context, link *entity.SessionLink) error
	FindBySessionId(ctx context.Context, sessionId uuid.UUID) (*entity.SessionLink, error)
	FindAllByCaseId(ctx context.Context, caseId uuid.UUID) ([]*entity.SessionLink, error)
}
