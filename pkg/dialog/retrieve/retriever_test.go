package retrieve

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"os"
	"testing"

	"rag-patient-be/internal/constant"
	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/memory"
	"rag-patient-be/pkg/embedding"
	"rag-patient-be/pkg/policy"

	"github.com/google/uuid"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: s.vec},
	}, nil
}

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[test] ", log.LstdFlags)
}

func newRetriever(embedder embedding.EmbeddingProvider, seed int64) *Retriever {
	return NewRetriever(embedder, rand.New(rand.NewSource(seed)), testLogger())
}

// seedCase inserts one case with a small fragment set:
//
//	public sleep, gated sleep, hidden sleep, public work, public topicless
//
// Gating uses the default threshold (trust >= 0.4).
func seedCase(t *testing.T) (*memory.Store, *entity.Case, map[string]uuid.UUID) {
	t.Helper()

	store := memory.NewStore()
	uow := memory.NewMemoryUnitOfWork(store)
	ctx := context.Background()

	c := &entity.Case{
		Id:       uuid.New(),
		Title:    "Бессонница",
		Policies: policy.DefaultPolicies(),
	}
	if err := uow.CaseRepository().Create(ctx, c); err != nil {
		t.Fatalf("seed case: %v", err)
	}

	fragments := []*entity.Fragment{
		{
			CaseId:       c.Id,
			Text:         "Я почти не сплю уже месяц",
			Availability: constant.AvailabilityPublic,
			Metadata:     entity.FragmentMetadata{Topic: "sleep", Tags: []string{"hook"}},
			Embedding:    []float32{1, 0, 0},
		},
		{
			CaseId:       c.Id,
			Text:         "Просыпаюсь в четыре утра и лежу до будильника",
			Availability: constant.AvailabilityGated,
			Metadata:     entity.FragmentMetadata{Topic: "sleep"},
			Embedding:    []float32{0.9, 0.1, 0},
		},
		{
			CaseId:       c.Id,
			Text:         "Храню снотворное в ящике стола",
			Availability: constant.AvailabilityHidden,
			Metadata:     entity.FragmentMetadata{Topic: "sleep"},
			Embedding:    []float32{0.95, 0, 0},
		},
		{
			CaseId:       c.Id,
			Text:         "На работе завал, начальник давит",
			Availability: constant.AvailabilityPublic,
			Metadata:     entity.FragmentMetadata{Topic: "work"},
			Embedding:    []float32{0, 1, 0},
		},
		{
			CaseId:       c.Id,
			Text:         "Кошка будит меня по утрам",
			Availability: constant.AvailabilityPublic,
		},
	}
	if err := uow.FragmentRepository().CreateBulk(ctx, fragments); err != nil {
		t.Fatalf("seed fragments: %v", err)
	}

	ids := map[string]uuid.UUID{
		"public_sleep": fragments[0].Id,
		"gated_sleep":  fragments[1].Id,
		"hidden_sleep": fragments[2].Id,
		"public_work":  fragments[3].Id,
		"topicless":    fragments[4].Id,
	}
	return store, c, ids
}

func stateWithTrust(trust float64) entity.SessionState {
	s := entity.DefaultSessionState()
	s.Trust = trust
	return s
}

func candidateIds(candidates []dto.Candidate) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(candidates))
	for _, c := range candidates {
		out[c.Id] = true
	}
	return out
}

func TestRetrieveMetadataTopicFilter(t *testing.T) {
	store, c, ids := seedCase(t)
	uow := memory.NewMemoryUnitOfWork(store)
	r := newRetriever(nil, 1)

	res, err := r.Retrieve(context.Background(), uow, Params{
		Case:  c,
		Norm:  dto.NormalizedInput{Topics: []string{"sleep"}},
		State: stateWithTrust(0.5),
		Mode:  constant.RagModeMetadata,
		TopK:  5,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if res.Mode != constant.RagModeMetadata {
		t.Errorf("Mode = %q, want metadata", res.Mode)
	}
	got := candidateIds(res.Candidates)
	if !got[ids["public_sleep"]] || !got[ids["gated_sleep"]] {
		t.Errorf("expected both sleep fragments at trust 0.5, got %v", got)
	}
	if got[ids["hidden_sleep"]] {
		t.Error("hidden fragment leaked into candidates")
	}
	if got[ids["public_work"]] {
		t.Error("off-topic fragment returned in topic-filtered search")
	}
	for _, cand := range res.Candidates {
		if cand.DisclosureLevel != policy.DisclosureFull {
			t.Errorf("DisclosureLevel = %q, want full at trust 0.5", cand.DisclosureLevel)
		}
	}
}

func TestRetrieveGatedNeedsTrust(t *testing.T) {
	store, c, ids := seedCase(t)
	uow := memory.NewMemoryUnitOfWork(store)
	r := newRetriever(nil, 1)

	res, err := r.Retrieve(context.Background(), uow, Params{
		Case:  c,
		Norm:  dto.NormalizedInput{Topics: []string{"sleep"}},
		State: stateWithTrust(0.3),
		Mode:  constant.RagModeMetadata,
		TopK:  5,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	got := candidateIds(res.Candidates)
	if !got[ids["public_sleep"]] {
		t.Error("public fragment missing at low trust")
	}
	if got[ids["gated_sleep"]] {
		t.Error("gated fragment visible below min_trust_for_gated")
	}
}

func TestRetrieveHiddenNeverVisible(t *testing.T) {
	store, c, ids := seedCase(t)
	uow := memory.NewMemoryUnitOfWork(store)
	r := newRetriever(nil, 1)

	res, err := r.Retrieve(context.Background(), uow, Params{
		Case:  c,
		Norm:  dto.NormalizedInput{Topics: []string{"sleep"}},
		State: stateWithTrust(1.0),
		Mode:  constant.RagModeMetadata,
		TopK:  10,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if candidateIds(res.Candidates)[ids["hidden_sleep"]] {
		t.Error("hidden fragment returned at max trust")
	}
}

func TestRetrieveNoTopicsSkipsTopicFilter(t *testing.T) {
	store, c, _ := seedCase(t)
	uow := memory.NewMemoryUnitOfWork(store)
	r := newRetriever(nil, 1)

	res, err := r.Retrieve(context.Background(), uow, Params{
		Case:  c,
		Norm:  dto.NormalizedInput{},
		State: stateWithTrust(0.5),
		Mode:  constant.RagModeMetadata,
		TopK:  10,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	// All four visible fragments: topic filter off when no topics matched.
	if len(res.Candidates) != 4 {
		t.Errorf("candidates = %d, want 4", len(res.Candidates))
	}
}

func TestRetrieveTopKLimits(t *testing.T) {
	store, c, _ := seedCase(t)
	uow := memory.NewMemoryUnitOfWork(store)
	r := newRetriever(nil, 1)

	res, err := r.Retrieve(context.Background(), uow, Params{
		Case:  c,
		Norm:  dto.NormalizedInput{},
		State: stateWithTrust(0.5),
		Mode:  constant.RagModeMetadata,
		TopK:  2,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res.Candidates) != 2 {
		t.Errorf("candidates = %d, want 2", len(res.Candidates))
	}
}

func TestRetrieveNoiseAppended(t *testing.T) {
	store, c, ids := seedCase(t)
	uow := memory.NewMemoryUnitOfWork(store)
	r := newRetriever(nil, 1)

	res, err := r.Retrieve(context.Background(), uow, Params{
		Case:      c,
		Norm:      dto.NormalizedInput{Topics: []string{"sleep"}},
		State:     stateWithTrust(0.3),
		Mode:      constant.RagModeMetadata,
		TopK:      5,
		NoiseRate: 1.0,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if !res.NoiseInjected {
		t.Fatal("NoiseInjected = false with rate 1.0 and a non-empty pool")
	}
	// Relevant candidate plus one noise row; noise may exceed TopK by one.
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(res.Candidates))
	}

	noise := res.Candidates[len(res.Candidates)-1]
	if !noise.Noise {
		t.Error("last candidate not flagged as noise")
	}
	if noise.Topic == "sleep" {
		t.Errorf("noise fragment shares the matched topic: %q", noise.Topic)
	}
	if noise.Availability != constant.AvailabilityPublic {
		t.Errorf("noise availability = %q, want public", noise.Availability)
	}
	if noise.Id == ids["public_sleep"] {
		t.Error("noise duplicated an already chosen fragment")
	}
	if noise.Id != ids["public_work"] && noise.Id != ids["topicless"] {
		t.Errorf("noise drawn outside the eligible pool: %s", noise.Id)
	}
}

func TestRetrieveNoiseSkippedWhenNoCandidates(t *testing.T) {
	store, c, _ := seedCase(t)
	uow := memory.NewMemoryUnitOfWork(store)
	r := newRetriever(nil, 1)

	res, err := r.Retrieve(context.Background(), uow, Params{
		Case:      c,
		Norm:      dto.NormalizedInput{Topics: []string{"mood"}},
		State:     stateWithTrust(0.5),
		Mode:      constant.RagModeMetadata,
		TopK:      5,
		NoiseRate: 1.0,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if len(res.Candidates) != 0 {
		t.Errorf("candidates = %d, want 0 for unmatched topic", len(res.Candidates))
	}
	if res.NoiseInjected {
		t.Error("noise injected into an empty result")
	}
}

func TestRetrieveNoiseRateZero(t *testing.T) {
	store, c, _ := seedCase(t)
	uow := memory.NewMemoryUnitOfWork(store)
	r := newRetriever(nil, 1)

	for i := 0; i < 20; i++ {
		res, err := r.Retrieve(context.Background(), uow, Params{
			Case:      c,
			Norm:      dto.NormalizedInput{Topics: []string{"sleep"}},
			State:     stateWithTrust(0.5),
			Mode:      constant.RagModeMetadata,
			TopK:      5,
			NoiseRate: 0,
		})
		if err != nil {
			t.Fatalf("Retrieve: %v", err)
		}
		if res.NoiseInjected {
			t.Fatal("noise injected with rate 0")
		}
	}
}

func TestRetrieveVectorMode(t *testing.T) {
	store, c, ids := seedCase(t)
	uow := memory.NewMemoryUnitOfWork(store)
	r := newRetriever(&stubEmbedder{vec: []float32{1, 0, 0}}, 1)

	res, err := r.Retrieve(context.Background(), uow, Params{
		Case:            c,
		Norm:            dto.NormalizedInput{Topics: []string{"sleep"}},
		State:           stateWithTrust(0.5),
		Utterance:       "Как вы спите?",
		Mode:            constant.RagModeVector,
		TopK:            3,
		SimilarityFloor: 0.35,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if res.Mode != constant.RagModeVector {
		t.Fatalf("Mode = %q, want vector", res.Mode)
	}
	got := candidateIds(res.Candidates)
	if !got[ids["public_sleep"]] || !got[ids["gated_sleep"]] {
		t.Errorf("expected sleep fragments above floor, got %v", got)
	}
	if got[ids["hidden_sleep"]] {
		t.Error("hidden fragment surfaced through vector search")
	}
	if got[ids["public_work"]] {
		t.Error("orthogonal fragment passed the similarity floor")
	}

	// Ranked by similarity, best first, scores populated.
	for i, cand := range res.Candidates {
		if cand.Similarity == nil {
			t.Fatalf("candidate %d missing similarity score", i)
		}
		if i > 0 && *res.Candidates[i-1].Similarity < *cand.Similarity {
			t.Error("candidates not ordered by similarity")
		}
	}
	if res.Candidates[0].Id != ids["public_sleep"] {
		t.Errorf("best match = %s, want the exact-direction fragment", res.Candidates[0].Id)
	}
}

func TestRetrieveVectorFallsBackWithoutProvider(t *testing.T) {
	store, c, _ := seedCase(t)
	uow := memory.NewMemoryUnitOfWork(store)
	r := newRetriever(nil, 1)

	res, err := r.Retrieve(context.Background(), uow, Params{
		Case:  c,
		Norm:  dto.NormalizedInput{Topics: []string{"sleep"}},
		State: stateWithTrust(0.5),
		Mode:  constant.RagModeVector,
		TopK:  5,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if res.Mode != constant.RagModeMetadata {
		t.Errorf("Mode = %q, want metadata fallback", res.Mode)
	}
	if len(res.Candidates) == 0 {
		t.Error("fallback produced no candidates")
	}
}

func TestRetrieveVectorFallsBackOnEmbedError(t *testing.T) {
	store, c, _ := seedCase(t)
	uow := memory.NewMemoryUnitOfWork(store)
	r := newRetriever(&stubEmbedder{err: errors.New("connection refused")}, 1)

	res, err := r.Retrieve(context.Background(), uow, Params{
		Case:  c,
		Norm:  dto.NormalizedInput{Topics: []string{"sleep"}},
		State: stateWithTrust(0.5),
		Mode:  constant.RagModeVector,
		TopK:  5,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if res.Mode != constant.RagModeMetadata {
		t.Errorf("Mode = %q, want metadata after embed failure", res.Mode)
	}
}
