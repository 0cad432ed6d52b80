package unitofwork

import (
	"context"

	"rag-patient-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	CaseRepository() contract.CaseRepository
	FragmentRepository() contract.FragmentRepository
	SessionRepository() contract.SessionRepository
	SessionLinkRepository() contract.SessionLinkRepository
	TelemetryRepository() contract.TelemetryRepository
	TrajectoryRepository() contract.TrajectoryRepository
}
