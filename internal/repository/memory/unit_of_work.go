package memory

import (
	"context"
	"fmt"

	"rag-patient-be/internal/repository/contract"
	"rag-patient-be/internal/repository/unitofwork"
)

// MemoryUnitOfWork gives the same transactional surface as the GORM one.
// Begin takes a snapshot, Rollback restores it, Commit drops it.
type MemoryUnitOfWork struct {
	store *Store
	snap  *snapshot
}

func NewMemoryUnitOfWork(store *Store) *MemoryUnitOfWork {
	return &MemoryUnitOfWork{store: store}
}

func (u *MemoryUnitOfWork) Begin(ctx context.Context) error {
	if u.snap != nil {
		return fmt.Errorf("transaction already started")
	}
	u.snap = u.store.snapshot()
	return nil
}

func (u *MemoryUnitOfWork) Commit() error {
	if u.snap == nil {
		return fmt.Errorf("no transaction to commit")
	}
	u.snap = nil
	return nil
}

func (u *MemoryUnitOfWork) Rollback() error {
	if u.snap == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	u.store.restore(u.snap)
	u.snap = nil
	return nil
}

func (u *MemoryUnitOfWork) CaseRepository() contract.CaseRepository {
	return &CaseRepository{store: u.store}
}

func (u *MemoryUnitOfWork) FragmentRepository() contract.FragmentRepository {
	return &FragmentRepository{store: u.store}
}

func (u *MemoryUnitOfWork) SessionRepository() contract.SessionRepository {
	return &SessionRepository{store: u.store}
}

func (u *MemoryUnitOfWork) SessionLinkRepository() contract.SessionLinkRepository {
	return &SessionLinkRepository{store: u.store}
}

func (u *MemoryUnitOfWork) TelemetryRepository() contract.TelemetryRepository {
	return &TelemetryRepository{store: u.store}
}

func (u *MemoryUnitOfWork) TrajectoryRepository() contract.TrajectoryRepository {
	return &TrajectoryRepository{store: u.store}
}

// Factory hands out units of work over one shared store.
type Factory struct {
	store *Store
}

func NewFactory(store *Store) *Factory {
	return &Factory{store: store}
}

func (f *Factory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return NewMemoryUnitOfWork(f.store)
}
