package settings

import (
	"sync"
	"sync/atomic"

	"rag-patient-be/internal/config"
)

// Settings is an immutable snapshot of the runtime-mutable pipeline knobs.
// A reader loads the snapshot once and never observes a half-applied update.
type Settings struct {
	RagMode                string
	UseReason              bool
	UseGen                 bool
	RateLimitEnabled       bool
	RateLimitIPPerMin      int
	RateLimitSessionPerMin int
	RateLimitFailOpen      bool
}

// Store publishes Settings snapshots with copy-on-write swaps. Updates apply
// to subsequent requests only; in-flight requests keep the snapshot they
// started with.
type Store struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[Settings]
}

func NewStore(cfg *config.Config) *Store {
	s := &Store{}
	s.current.Store(&Settings{
		RagMode:                cfg.Dialog.RagMode,
		UseReason:              cfg.Dialog.UseReason,
		UseGen:                 cfg.Dialog.UseGen,
		RateLimitEnabled:       cfg.RateLimit.Enabled,
		RateLimitIPPerMin:      cfg.RateLimit.IPPerMinute,
		RateLimitSessionPerMin: cfg.RateLimit.SessionPerMin,
		RateLimitFailOpen:      cfg.RateLimit.FailOpen,
	})
	return s
}

func (s *Store) Current() Settings {
	return *s.current.Load()
}

// Update applies fn to a copy of the current snapshot and swaps it in,
// returning the new snapshot.
func (s *Store) Update(fn func(*Settings)) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.current.Load()
	fn(&next)
	s.current.Store(&next)
	return next
}
