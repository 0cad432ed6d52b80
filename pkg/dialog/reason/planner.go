// FILE: pkg/dialog/reason/planner.go
// PURPOSE: Reply planning. The deterministic stub mirrors the retrieval
// result into a plan; the LLM path asks the model for a strict-JSON plan and
// repairs what comes back. A failed model call never fails the turn.
package reason

import (
	"context"
	"log"

	"rag-patient-be/internal/constant"
	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/entity"
	"rag-patient-be/pkg/dialog/prompt"
	"rag-patient-be/pkg/llm"
	"rag-patient-be/pkg/llm/jsonx"
	"rag-patient-be/pkg/policy"
)

const (
	reasoningTemperature = 0.3
	reasoningMaxTokens   = 1000
)

// Planner handles plan construction for a turn
type Planner struct {
	llmProvider llm.LLMProvider // nil disables the model path
	logger      *log.Logger
}

func NewPlanner(llmProvider llm.LLMProvider, logger *log.Logger) *Planner {
	return &Planner{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Params encapsulates one planning request
type Params struct {
	Case       *entity.Case
	State      entity.SessionState
	Norm       dto.NormalizedInput
	Candidates []dto.Candidate
	UseReason  bool
}

// Result reports which path produced the plan
type Result struct {
	Plan         dto.ReasonPlan
	ReasonUsed   bool // model plan accepted
	FallbackUsed bool // model path attempted but replaced by the fallback
}

// Plan builds the reply plan. UseReason without a wired provider silently
// degrades to the stub.
func (p *Planner) Plan(ctx context.Context, params Params) Result {
	if !params.UseReason || p.llmProvider == nil {
		return Result{Plan: p.stubPlan(params)}
	}

	plan, ok := p.llmPlan(ctx, params)
	if !ok {
		return Result{Plan: p.fallbackPlan(params), FallbackUsed: true}
	}
	return Result{Plan: plan, ReasonUsed: true}
}

// stubPlan is the deterministic default: speak the first candidates, small
// trust move depending on whether retrieval found anything.
func (p *Planner) stubPlan(params Params) dto.ReasonPlan {
	contentPlan := make([]string, 0, maxContentItems)
	chosenIds := make([]string, 0, maxContentItems)
	for _, c := range params.Candidates {
		if c.Text == "" {
			continue
		}
		contentPlan = append(contentPlan, c.Text)
		chosenIds = append(chosenIds, c.Id.String())
		if len(contentPlan) == maxContentItems {
			break
		}
	}

	trustDelta := 0.02
	if len(params.Candidates) == 0 {
		trustDelta = -0.01
	}

	return dto.ReasonPlan{
		ContentPlan:     contentPlan,
		DistortionsPlan: []string{},
		StyleDirectives: styleFromPolicies(params.Case.Policies),
		StateUpdates:    dto.PlanDeltas{TrustDelta: trustDelta},
		ChosenIds:       chosenIds,
		DisclosureLevel: p.disclosure(params),
	}
}

// fallbackPlan replaces a broken model answer. The patient pulls back a
// little instead of going silent.
func (p *Planner) fallbackPlan(params Params) dto.ReasonPlan {
	style := styleFromPolicies(params.Case.Policies)
	style.Tempo = policy.TempoCalm
	style.Length = policy.LengthShort

	return dto.ReasonPlan{
		ContentPlan:     []string{constant.FallbackContentLine},
		DistortionsPlan: []string{},
		StyleDirectives: style,
		StateUpdates:    dto.PlanDeltas{TrustDelta: -0.1, FatigueDelta: 0.05},
		ChosenIds:       []string{},
		DisclosureLevel: p.disclosure(params),
	}
}

func (p *Planner) llmPlan(ctx context.Context, params Params) (dto.ReasonPlan, bool) {
	userBody, err := prompt.NewReasoningBuilder(
		params.Case.Truth,
		params.State,
		params.Candidates,
		params.Case.Policies,
	).Build()
	if err != nil {
		p.logger.Printf("[ERROR] Reasoning payload build failed: %v", err)
		return dto.ReasonPlan{}, false
	}

	history := []llm.Message{
		{Role: "system", Content: prompt.ReasoningSystem()},
		{Role: "user", Content: userBody},
	}

	raw, err := p.llmProvider.Chat(ctx, history,
		llm.WithTemperature(reasoningTemperature),
		llm.WithMaxTokens(reasoningMaxTokens),
	)
	if err != nil {
		p.logger.Printf("[WARN] Reasoning call failed: %v", err)
		return dto.ReasonPlan{}, false
	}

	var plan dto.ReasonPlan
	if err := jsonx.Unmarshal(raw, &plan); err != nil {
		p.logger.Printf("[WARN] Reasoning answer unparseable: %v", err)
		return dto.ReasonPlan{}, false
	}

	plan, warnings := ValidatePlan(plan, params.Candidates, p.disclosure(params))
	for _, w := range warnings {
		p.logger.Printf("[DEBUG] Plan repair: %s", w)
	}

	// A plan with nothing to say is no plan at all.
	if len(plan.ContentPlan) == 0 {
		p.logger.Printf("[WARN] Plan empty after validation, using fallback")
		return dto.ReasonPlan{}, false
	}

	return plan, true
}

func (p *Planner) disclosure(params Params) string {
	return policy.EffectiveDisclosureLevel(params.State.Trust, params.Case.Policies.DisclosureRules)
}

func styleFromPolicies(pol policy.Policies) dto.StyleDirectives {
	style := dto.StyleDirectives{
		Register: pol.StyleProfile.Register,
		Tempo:    pol.StyleProfile.Tempo,
		Length:   pol.StyleProfile.Length,
	}
	if style.Tempo == "" {
		style.Tempo = policy.TempoMedium
	}
	if style.Length == "" {
		style.Length = policy.LengthShort
	}
	return style
}
