// FILE: internal/repository/memory/store.go
// PURPOSE: In-memory backing store for the repository contracts. Used by
// service tests and the simulate CLI to run the full pipeline without
// Postgres.
package memory

import (
	"sync"

	"rag-patient-be/internal/entity"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	cases        map[uuid.UUID]*entity.Case
	fragments    map[uuid.UUID]*entity.Fragment
	fragOrder    []uuid.UUID
	sessions     map[uuid.UUID]*entity.Session
	links        map[uuid.UUID]*entity.SessionLink
	linkOrder    []uuid.UUID
	telemetry    map[uuid.UUID]*entity.TelemetryTurn
	trajectories map[uuid.UUID]*entity.SessionTrajectory

	// TelemetryErr makes the next telemetry insert fail. Lets tests exercise
	// the no-telemetry-no-turn rule.
	TelemetryErr error
}

func NewStore() *Store {
	return &Store{
		cases:        make(map[uuid.UUID]*entity.Case),
		fragments:    make(map[uuid.UUID]*entity.Fragment),
		sessions:     make(map[uuid.UUID]*entity.Session),
		links:        make(map[uuid.UUID]*entity.SessionLink),
		telemetry:    make(map[uuid.UUID]*entity.TelemetryTurn),
		trajectories: make(map[uuid.UUID]*entity.SessionTrajectory),
	}
}

// snapshot captures the map structure. Writers always replace pointers, so
// a shallow copy is enough to restore on rollback.
type snapshot struct {
	cases        map[uuid.UUID]*entity.Case
	fragments    map[uuid.UUID]*entity.Fragment
	fragOrder    []uuid.UUID
	sessions     map[uuid.UUID]*entity.Session
	links        map[uuid.UUID]*entity.SessionLink
	linkOrder    []uuid.UUID
	telemetry    map[uuid.UUID]*entity.TelemetryTurn
	trajectories map[uuid.UUID]*entity.SessionTrajectory
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (s *Store) snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &snapshot{
		cases:        copyMap(s.cases),
		fragments:    copyMap(s.fragments),
		fragOrder:    append([]uuid.UUID(nil), s.fragOrder...),
		sessions:     copyMap(s.sessions),
		links:        copyMap(s.links),
		linkOrder:    append([]uuid.UUID(nil), s.linkOrder...),
		telemetry:    copyMap(s.telemetry),
		trajectories: copyMap(s.trajectories),
	}
}

func (s *Store) restore(snap *snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases = snap.cases
	s.fragments = snap.fragments
	s.fragOrder = snap.fragOrder
	s.sessions = snap.sessions
	s.links = snap.links
	s.linkOrder = snap.linkOrder
	s.telemetry = snap.telemetry
	s.trajectories = snap.trajectories
}
