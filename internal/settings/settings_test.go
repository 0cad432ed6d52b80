package settings

import (
	"sync"
	"testing"

	"rag-patient-be/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Dialog: config.DialogConfig{
			RagMode:   "metadata",
			UseReason: false,
			UseGen:    false,
		},
		RateLimit: config.RateLimitConfig{
			Enabled:       true,
			IPPerMinute:   120,
			SessionPerMin: 20,
			FailOpen:      false,
		},
	}
}

func TestStoreInitialSnapshot(t *testing.T) {
	store := NewStore(testConfig())

	got := store.Current()
	if got.RagMode != "metadata" {
		t.Errorf("RagMode = %q, want %q", got.RagMode, "metadata")
	}
	if !got.RateLimitEnabled {
		t.Error("RateLimitEnabled = false, want true")
	}
	if got.RateLimitSessionPerMin != 20 {
		t.Errorf("RateLimitSessionPerMin = %d, want 20", got.RateLimitSessionPerMin)
	}
}

func TestUpdateSwapsWholeSnapshot(t *testing.T) {
	store := NewStore(testConfig())

	before := store.Current()
	updated := store.Update(func(s *Settings) {
		s.RagMode = "vector"
		s.UseReason = true
	})

	if updated.RagMode != "vector" || !updated.UseReason {
		t.Errorf("updated snapshot = %+v, want rag_mode=vector use_reason=true", updated)
	}
	if before.RagMode != "metadata" {
		t.Errorf("old snapshot mutated: %+v", before)
	}
	if got := store.Current(); got != updated {
		t.Errorf("Current() = %+v, want %+v", got, updated)
	}
}

func TestConcurrentReadersSeeConsistentSnapshots(t *testing.T) {
	store := NewStore(testConfig())

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			store.Update(func(s *Settings) {
				if s.RagMode == "metadata" {
					s.RagMode = "vector"
					s.UseGen = true
				} else {
					s.RagMode = "metadata"
					s.UseGen = false
				}
			})
		}
		close(stop)
	}()

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got := store.Current()
				// The two fields flip together, a torn read would split them.
				if (got.RagMode == "vector") != got.UseGen {
					t.Errorf("torn snapshot: %+v", got)
					return
				}
			}
		}()
	}

	wg.Wait()
}
