package executor

import (
	"context"
	"log"
	"math/rand"

	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/unitofwork"
	"rag-patient-be/pkg/dialog/generate"
	"rag-patient-be/pkg/dialog/guard"
	"rag-patient-be/pkg/dialog/normalize"
	"rag-patient-be/pkg/dialog/reason"
	"rag-patient-be/pkg/dialog/retrieve"
	"rag-patient-be/pkg/embedding"
	"rag-patient-be/pkg/llm"

	"github.com/google/uuid"
)

// PipelineExecutor orchestrates the five-phase turn pipeline
// Phase 1: Normalize → Phase 2: Retrieve → Phase 3: Reason → Phase 4: Guard → Phase 5: Generate
type PipelineExecutor struct {
	retriever *retrieve.Retriever
	planner   *reason.Planner
	advancer  *guard.Advancer
	generator *generate.Generator
	logger    *log.Logger
}

// NewPipelineExecutor creates a new five-phase pipeline executor. The LLM
// provider may be nil; reasoning and generation then always run their
// deterministic paths.
func NewPipelineExecutor(
	embeddingProvider embedding.EmbeddingProvider,
	llmProvider llm.LLMProvider,
	rng *rand.Rand,
	riskSticky bool,
	logger *log.Logger,
) *PipelineExecutor {
	return &PipelineExecutor{
		retriever: retrieve.NewRetriever(embeddingProvider, rng, logger),
		planner:   reason.NewPlanner(llmProvider, logger),
		advancer:  guard.NewAdvancer(riskSticky, logger),
		generator: generate.NewGenerator(llmProvider, logger),
		logger:    logger,
	}
}

// Flags are the per-turn pipeline switches, resolved by the caller from
// runtime settings and request options.
type Flags struct {
	RagMode         string
	TopK            int
	SimilarityFloor float64
	NoiseRate       float64
	UseReason       bool
	UseGen          bool
}

// Input is one turn to process against an already loaded case and session
// state. Completed carries prior trajectory completions for monotonicity.
type Input struct {
	Case      *entity.Case
	State     entity.SessionState
	Utterance string
	Completed map[string][]string
	Flags     Flags
}

// ExecutionResult contains the result of pipeline execution
type ExecutionResult struct {
	Reply         string
	Norm          dto.NormalizedInput
	Retrieval     dto.RetrievalResult
	Guard         dto.GuardResult
	UsedFragments []uuid.UUID
	ReasonUsed    bool
	GenUsed       bool
	FallbackUsed  bool
}

// Execute runs the complete five-phase pipeline. Model failures degrade to
// deterministic paths inside the phases; only storage failures propagate.
func (p *PipelineExecutor) Execute(ctx context.Context, uow unitofwork.UnitOfWork, in Input) (*ExecutionResult, error) {

	p.logger.Printf("[PIPELINE] Starting turn for case %s: %s", in.Case.Id, truncate(in.Utterance, 50))

	// ═══════════════════════════════════════════════════════════════
	// PHASE 1: NORMALIZE (deterministic classification)
	// ═══════════════════════════════════════════════════════════════
	p.logger.Printf("[PHASE 1] Normalizing utterance...")

	norm := normalize.Classify(in.Utterance, in.Case.Policies.RiskProtocol.TriggerKeywords)

	p.logger.Printf("[PHASE 1] Intent: %s (topics=%v, risk_flags=%d)",
		norm.Intent, norm.Topics, len(norm.RiskFlags))

	// ═══════════════════════════════════════════════════════════════
	// PHASE 2: RETRIEVE (knowledge base candidates)
	// ═══════════════════════════════════════════════════════════════
	p.logger.Printf("[PHASE 2] Retrieving candidates...")

	retrieval, err := p.retriever.Retrieve(ctx, uow, retrieve.Params{
		Case:            in.Case,
		Norm:            norm,
		State:           in.State,
		Utterance:       in.Utterance,
		Mode:            in.Flags.RagMode,
		TopK:            in.Flags.TopK,
		SimilarityFloor: in.Flags.SimilarityFloor,
		NoiseRate:       in.Flags.NoiseRate,
	})
	if err != nil {
		p.logger.Printf("[ERROR] Retrieval failed: %v", err)
		return nil, err
	}

	p.logger.Printf("[PHASE 2] Candidates: %d (mode=%s, noise=%v)",
		len(retrieval.Candidates), retrieval.Mode, retrieval.NoiseInjected)

	// ═══════════════════════════════════════════════════════════════
	// PHASE 3: REASON (reply planning)
	// ═══════════════════════════════════════════════════════════════
	p.logger.Printf("[PHASE 3] Planning reply...")

	planRes := p.planner.Plan(ctx, reason.Params{
		Case:       in.Case,
		State:      in.State,
		Norm:       norm,
		Candidates: retrieval.Candidates,
		UseReason:  in.Flags.UseReason,
	})

	p.logger.Printf("[PHASE 3] Plan: %d content items, %d chosen (model=%v, fallback=%v)",
		len(planRes.Plan.ContentPlan), len(planRes.Plan.ChosenIds), planRes.ReasonUsed, planRes.FallbackUsed)

	// ═══════════════════════════════════════════════════════════════
	// PHASE 4: GUARD (risk protocol and state advancement)
	// ═══════════════════════════════════════════════════════════════
	p.logger.Printf("[PHASE 4] Advancing state...")

	guardRes := p.advancer.Advance(guard.Params{
		Case:              in.Case,
		State:             in.State,
		Norm:              norm,
		Plan:              planRes.Plan,
		Candidates:        retrieval.Candidates,
		PlanDeltasRefined: planRes.ReasonUsed || planRes.FallbackUsed,
		Completed:         in.Completed,
	})

	p.logger.Printf("[PHASE 4] Risk: %s (trust %+.3f, fatigue %+.3f, affect=%s)",
		guardRes.RiskStatus, guardRes.TrustDelta, guardRes.FatigueDelta, guardRes.Affect)

	// ═══════════════════════════════════════════════════════════════
	// PHASE 5: GENERATE (patient reply)
	// ═══════════════════════════════════════════════════════════════
	p.logger.Printf("[PHASE 5] Rendering reply...")

	genRes := p.generator.Generate(ctx, generate.Params{
		Plan:       guardRes.Plan,
		Intent:     norm.Intent,
		RiskStatus: guardRes.RiskStatus,
		CaseTitle:  in.Case.Title,
		UseGen:     in.Flags.UseGen,
	})

	p.logger.Printf("[PHASE 5] Reply ready (model=%v, fallback=%v)", genRes.GenUsed, genRes.FallbackUsed)

	return &ExecutionResult{
		Reply:         genRes.Reply,
		Norm:          norm,
		Retrieval:     retrieval,
		Guard:         guardRes,
		UsedFragments: parseFragmentIds(guardRes.Plan.ChosenIds),
		ReasonUsed:    planRes.ReasonUsed,
		GenUsed:       genRes.GenUsed,
		FallbackUsed:  planRes.FallbackUsed || genRes.FallbackUsed,
	}, nil
}

func parseFragmentIds(ids []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if parsed, err := uuid.Parse(id); err == nil {
			out = append(out, parsed)
		}
	}
	return out
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
