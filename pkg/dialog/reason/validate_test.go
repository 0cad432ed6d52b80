package reason

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"rag-patient-be/internal/dto"
	"rag-patient-be/pkg/policy"

	"github.com/google/uuid"
)

func makeCandidates(texts ...string) []dto.Candidate {
	out := make([]dto.Candidate, len(texts))
	for i, text := range texts {
		out[i] = dto.Candidate{Id: uuid.New(), Text: text}
	}
	return out
}

func TestValidatePlanValidUnchanged(t *testing.T) {
	candidates := makeCandidates("Не сплю третью неделю", "Кофе не помогает")
	plan := dto.ReasonPlan{
		ContentPlan:     []string{"Не сплю третью неделю"},
		StyleDirectives: dto.StyleDirectives{Tempo: policy.TempoSlow, Length: policy.LengthMedium},
		StateUpdates:    dto.PlanDeltas{TrustDelta: 0.1, FatigueDelta: 0.05},
		ChosenIds:       []string{candidates[0].Id.String()},
		DisclosureLevel: policy.DisclosurePartial,
	}

	got, warnings := ValidatePlan(plan, candidates, policy.DisclosureNone)

	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none for a valid plan", warnings)
	}
	if !reflect.DeepEqual(got.ContentPlan, plan.ContentPlan) {
		t.Errorf("ContentPlan changed: %v", got.ContentPlan)
	}
	if got.StateUpdates != plan.StateUpdates {
		t.Errorf("StateUpdates changed: %+v", got.StateUpdates)
	}
	if got.DisclosureLevel != policy.DisclosurePartial {
		t.Errorf("DisclosureLevel = %q", got.DisclosureLevel)
	}
}

func TestValidatePlanDeltaClamping(t *testing.T) {
	tests := []struct {
		name        string
		deltas      dto.PlanDeltas
		wantTrust   float64
		wantFatigue float64
	}{
		{"trust above bound", dto.PlanDeltas{TrustDelta: 0.5}, 0.2, 0},
		{"trust below bound", dto.PlanDeltas{TrustDelta: -0.5}, -0.2, 0},
		{"fatigue above bound", dto.PlanDeltas{FatigueDelta: 0.9}, 0, 0.2},
		{"fatigue negative", dto.PlanDeltas{FatigueDelta: -0.1}, 0, 0},
		{"trust NaN", dto.PlanDeltas{TrustDelta: math.NaN()}, 0, 0},
		{"fatigue inf", dto.PlanDeltas{FatigueDelta: math.Inf(1)}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := dto.ReasonPlan{
				ContentPlan:  []string{"что-то"},
				StateUpdates: tt.deltas,
			}
			got, warnings := ValidatePlan(plan, nil, policy.DisclosureNone)

			if got.StateUpdates.TrustDelta != tt.wantTrust {
				t.Errorf("TrustDelta = %v, want %v", got.StateUpdates.TrustDelta, tt.wantTrust)
			}
			if got.StateUpdates.FatigueDelta != tt.wantFatigue {
				t.Errorf("FatigueDelta = %v, want %v", got.StateUpdates.FatigueDelta, tt.wantFatigue)
			}
			if len(warnings) == 0 {
				t.Error("expected a repair warning")
			}
		})
	}
}

func TestValidatePlanStyleRepair(t *testing.T) {
	plan := dto.ReasonPlan{
		ContentPlan:     []string{"ответ"},
		StyleDirectives: dto.StyleDirectives{Tempo: "frantic", Length: "verbose"},
	}

	got, _ := ValidatePlan(plan, nil, policy.DisclosureNone)

	if got.StyleDirectives.Tempo != policy.TempoMedium {
		t.Errorf("Tempo = %q, want medium", got.StyleDirectives.Tempo)
	}
	if got.StyleDirectives.Length != policy.LengthShort {
		t.Errorf("Length = %q, want short", got.StyleDirectives.Length)
	}
}

func TestValidatePlanChosenIdsFiltered(t *testing.T) {
	candidates := makeCandidates("a", "b")
	plan := dto.ReasonPlan{
		ContentPlan: []string{"ответ"},
		ChosenIds: []string{
			candidates[0].Id.String(),
			uuid.New().String(),       // not a candidate
			candidates[0].Id.String(), // duplicate
			candidates[1].Id.String(),
		},
	}

	got, _ := ValidatePlan(plan, candidates, policy.DisclosureNone)

	want := []string{candidates[0].Id.String(), candidates[1].Id.String()}
	if !reflect.DeepEqual(got.ChosenIds, want) {
		t.Errorf("ChosenIds = %v, want %v", got.ChosenIds, want)
	}
}

func TestValidatePlanEmptyChosenIdsSubstituted(t *testing.T) {
	candidates := makeCandidates("a", "b")
	plan := dto.ReasonPlan{ContentPlan: []string{"ответ"}}

	got, _ := ValidatePlan(plan, candidates, policy.DisclosureNone)

	if len(got.ChosenIds) != 2 {
		t.Fatalf("ChosenIds = %v, want both candidate ids", got.ChosenIds)
	}
}

func TestValidatePlanEmptyContentRebuiltFromCandidates(t *testing.T) {
	long := strings.Repeat("а", 300)
	candidates := makeCandidates(long, "короткий фрагмент", "лишний")
	plan := dto.ReasonPlan{ContentPlan: []string{"", "   "}}

	got, warnings := ValidatePlan(plan, candidates, policy.DisclosureNone)

	if len(got.ContentPlan) != 2 {
		t.Fatalf("ContentPlan = %v, want two snippets", got.ContentPlan)
	}
	if n := len([]rune(got.ContentPlan[0])); n != contentSnippetLen {
		t.Errorf("snippet length = %d runes, want %d", n, contentSnippetLen)
	}
	if got.ContentPlan[1] != "короткий фрагмент" {
		t.Errorf("second snippet = %q", got.ContentPlan[1])
	}
	if len(warnings) == 0 {
		t.Error("expected a rebuild warning")
	}
}

func TestValidatePlanContentTrimmedAndLimited(t *testing.T) {
	plan := dto.ReasonPlan{
		ContentPlan: []string{"  первый  ", "", "второй", "третий лишний"},
	}

	got, _ := ValidatePlan(plan, nil, policy.DisclosureNone)

	want := []string{"первый", "второй"}
	if !reflect.DeepEqual(got.ContentPlan, want) {
		t.Errorf("ContentPlan = %v, want %v", got.ContentPlan, want)
	}
}

func TestValidatePlanDisclosureFallback(t *testing.T) {
	plan := dto.ReasonPlan{
		ContentPlan:     []string{"ответ"},
		DisclosureLevel: "everything",
	}

	got, _ := ValidatePlan(plan, nil, policy.DisclosurePartial)

	if got.DisclosureLevel != policy.DisclosurePartial {
		t.Errorf("DisclosureLevel = %q, want partial fallback", got.DisclosureLevel)
	}
}
