// FILE: pkg/dialog/retrieve/retriever.go
// PURPOSE: Candidate selection over the case knowledge base. Supports a
// metadata mode (topic intersection) and a vector mode (pgvector cosine
// search), plus the noise appendix that keeps trainees honest.
package retrieve

import (
	"context"
	"log"
	"math/rand"
	"sync"

	"rag-patient-be/internal/constant"
	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/specification"
	"rag-patient-be/internal/repository/unitofwork"
	"rag-patient-be/pkg/embedding"
	"rag-patient-be/pkg/policy"
)

// Retriever handles fragment search and the noise draw
type Retriever struct {
	embeddingProvider embedding.EmbeddingProvider
	logger            *log.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewRetriever creates a retriever. The rng is injected so tests can pin
// the noise draws; pass rand.New(rand.NewSource(time.Now().UnixNano()))
// in production wiring.
func NewRetriever(embeddingProvider embedding.EmbeddingProvider, rng *rand.Rand, logger *log.Logger) *Retriever {
	return &Retriever{
		embeddingProvider: embeddingProvider,
		rng:               rng,
		logger:            logger,
	}
}

// Params encapsulates one retrieval request
type Params struct {
	Case            *entity.Case
	Norm            dto.NormalizedInput
	State           entity.SessionState
	Utterance       string
	Mode            string
	TopK            int
	SimilarityFloor float64
	NoiseRate       float64
}

// Retrieve returns the candidate fragments for the turn. The result records
// the mode actually used: vector requests degrade to metadata when no
// embedding provider is wired or the query embedding fails.
func (r *Retriever) Retrieve(ctx context.Context, uow unitofwork.UnitOfWork, p Params) (dto.RetrievalResult, error) {
	topK := p.TopK
	if topK <= 0 {
		topK = 3
	}

	trust := p.State.Trust
	minTrust := p.Case.Policies.DisclosureRules.MinTrustForGated
	disclosure := policy.EffectiveDisclosureLevel(trust, p.Case.Policies.DisclosureRules)

	mode := p.Mode
	var candidates []dto.Candidate
	var err error

	if mode == constant.RagModeVector {
		candidates, err = r.vectorSearch(ctx, uow, p, topK, trust, minTrust, disclosure)
		if err != nil {
			return dto.RetrievalResult{}, err
		}
		if candidates == nil {
			// Embedding unavailable, recorded as a metadata turn
			mode = constant.RagModeMetadata
		}
	}

	if mode != constant.RagModeVector {
		mode = constant.RagModeMetadata
		candidates, err = r.metadataSearch(ctx, uow, p, topK, trust, minTrust, disclosure)
		if err != nil {
			return dto.RetrievalResult{}, err
		}
	}

	r.logger.Printf("[DEBUG] Retrieval mode=%s candidates=%d trust=%.2f", mode, len(candidates), trust)

	noiseInjected := false
	if len(candidates) > 0 && r.roll(p.NoiseRate) {
		noise, nErr := r.pickNoise(ctx, uow, p, candidates, disclosure)
		if nErr != nil {
			r.logger.Printf("[WARN] Noise selection failed: %v", nErr)
		} else if noise != nil {
			candidates = append(candidates, *noise)
			noiseInjected = true
			r.logger.Printf("[DEBUG] Noise fragment appended: %s", noise.Id)
		}
	}

	return dto.RetrievalResult{
		Candidates:    candidates,
		Mode:          mode,
		NoiseInjected: noiseInjected,
	}, nil
}

// vectorSearch returns nil candidates (no error) when the vector path is not
// usable, so the caller can degrade to metadata mode.
func (r *Retriever) vectorSearch(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	p Params,
	topK int,
	trust, minTrust float64,
	disclosure string,
) ([]dto.Candidate, error) {

	if r.embeddingProvider == nil {
		r.logger.Printf("[WARN] Vector mode requested without embedding provider, falling back to metadata")
		return nil, nil
	}

	embeddingRes, err := r.embeddingProvider.Generate(p.Utterance, embedding.TaskQuery)
	if err != nil {
		r.logger.Printf("[WARN] Query embedding failed, falling back to metadata: %v", err)
		return nil, nil
	}

	scored, err := uow.FragmentRepository().SearchSimilarWithScore(
		ctx,
		p.Case.Id,
		embeddingRes.Embedding.Values,
		trust,
		minTrust,
		topK,
		p.SimilarityFloor,
	)
	if err != nil {
		r.logger.Printf("[ERROR] Vector search failed: %v", err)
		return nil, err
	}

	candidates := make([]dto.Candidate, 0, len(scored))
	for _, s := range scored {
		sim := s.Similarity
		candidates = append(candidates, toCandidate(s.Fragment, disclosure, &sim, false))
	}
	return candidates, nil
}

func (r *Retriever) metadataSearch(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	p Params,
	topK int,
	trust, minTrust float64,
	disclosure string,
) ([]dto.Candidate, error) {

	specs := []specification.Specification{
		specification.ByCaseId{CaseId: p.Case.Id},
		specification.VisibleAt{Trust: trust, MinTrustForGated: minTrust},
	}
	if len(p.Norm.Topics) > 0 {
		specs = append(specs, specification.TopicIn{Topics: p.Norm.Topics})
	}
	specs = append(specs, specification.Pagination{Limit: topK})

	fragments, err := uow.FragmentRepository().FindAll(ctx, specs...)
	if err != nil {
		r.logger.Printf("[ERROR] Metadata search failed: %v", err)
		return nil, err
	}

	candidates := make([]dto.Candidate, 0, len(fragments))
	for _, f := range fragments {
		candidates = append(candidates, toCandidate(f, disclosure, nil, false))
	}
	return candidates, nil
}

// pickNoise draws one public off-topic fragment not already in the result.
// Returns nil when no such fragment exists.
func (r *Retriever) pickNoise(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	p Params,
	chosen []dto.Candidate,
	disclosure string,
) (*dto.Candidate, error) {

	specs := []specification.Specification{
		specification.ByCaseId{CaseId: p.Case.Id},
		specification.ByAvailability{Availability: constant.AvailabilityPublic},
	}
	if len(p.Norm.Topics) > 0 {
		specs = append(specs, specification.TopicNotIn{Topics: p.Norm.Topics})
	}

	pool, err := uow.FragmentRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(chosen))
	for _, c := range chosen {
		seen[c.Id.String()] = true
	}

	var eligible []*entity.Fragment
	for _, f := range pool {
		if seen[f.Id.String()] {
			continue
		}
		eligible = append(eligible, f)
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	picked := eligible[r.pick(len(eligible))]
	c := toCandidate(picked, disclosure, nil, true)
	return &c, nil
}

func (r *Retriever) roll(rate float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() < rate
}

func (r *Retriever) pick(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func toCandidate(f *entity.Fragment, disclosure string, similarity *float64, noise bool) dto.Candidate {
	return dto.Candidate{
		Id:              f.Id,
		Text:            f.Text,
		Topic:           f.Metadata.Topic,
		Availability:    f.Availability,
		EmotionLabel:    f.Metadata.EmotionLabel,
		Tags:            f.Metadata.Tags,
		DisclosureLevel: disclosure,
		Similarity:      similarity,
		Noise:           noise,
	}
}
