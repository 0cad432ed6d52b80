package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/specification"

	"github.com/google/uuid"
)

type TelemetryRepository struct {
	store *Store
}

func (r *TelemetryRepository) Create(ctx context.Context, turn *entity.TelemetryTurn) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.TelemetryErr != nil {
		err := r.store.TelemetryErr
		r.store.TelemetryErr = nil
		return err
	}

	for _, existing := range r.store.telemetry {
		if existing.SessionId == turn.SessionId && existing.TurnNo == turn.TurnNo {
			return fmt.Errorf("duplicate turn %d for session %s", turn.TurnNo, turn.SessionId)
		}
	}

	if turn.Id == uuid.Nil {
		turn.Id = uuid.New()
	}
	turn.CreatedAt = time.Now()

	cp := *turn
	r.store.telemetry[turn.Id] = &cp
	return nil
}

func (r *TelemetryRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TelemetryTurn, error) {
	f, err := buildFilter(specs...)
	if err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*entity.TelemetryTurn
	for id, t := range r.store.telemetry {
		if !f.matchesId(id) {
			continue
		}
		if f.sessionId != nil && t.SessionId != *f.sessionId {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TurnNo < out[j].TurnNo })
	return paginate(out, f), nil
}

func (r *TelemetryRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func (r *TelemetryRepository) FindAllBySessionId(ctx context.Context, sessionId uuid.UUID) ([]*entity.TelemetryTurn, error) {
	return r.FindAll(ctx, specification.BySessionId{SessionId: sessionId})
}

type TrajectoryRepository struct {
	store *Store
}

func (r *TrajectoryRepository) Upsert(ctx context.Context, trajectory *entity.SessionTrajectory) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, existing := range r.store.trajectories {
		if existing.SessionId == trajectory.SessionId && existing.TrajectoryId == trajectory.TrajectoryId {
			cp := *trajectory
			cp.Id = existing.Id
			cp.UpdatedAt = time.Now()
			r.store.trajectories[id] = &cp
			return nil
		}
	}

	if trajectory.Id == uuid.Nil {
		trajectory.Id = uuid.New()
	}
	trajectory.UpdatedAt = time.Now()

	cp := *trajectory
	r.store.trajectories[trajectory.Id] = &cp
	return nil
}

func (r *TrajectoryRepository) FindOne(ctx context.Context, sessionId uuid.UUID, trajectoryId string) (*entity.SessionTrajectory, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, t := range r.store.trajectories {
		if t.SessionId == sessionId && t.TrajectoryId == trajectoryId {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *TrajectoryRepository) FindAllBySessionId(ctx context.Context, sessionId uuid.UUID) ([]*entity.SessionTrajectory, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*entity.SessionTrajectory
	for _, t := range r.store.trajectories {
		if t.SessionId == sessionId {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TrajectoryId < out[j].TrajectoryId })
	return out, nil
}
