package reason

import (
	"fmt"
	"math"
	"strings"

	"rag-patient-be/internal/dto"
	"rag-patient-be/pkg/policy"
)

const (
	maxContentItems   = 2
	contentSnippetLen = 200
	trustDeltaBound   = 0.2
	fatigueDeltaBound = 0.2
)

// ValidatePlan normalizes a model-produced plan so downstream stages never
// see out-of-range values. It repairs instead of rejecting: bad fields get
// defaults, the warnings describe every repair. Never returns an error.
func ValidatePlan(plan dto.ReasonPlan, candidates []dto.Candidate, fallbackDisclosure string) (dto.ReasonPlan, []string) {
	var warnings []string

	plan.ContentPlan, warnings = normalizeContentPlan(plan.ContentPlan, candidates, warnings)
	plan.StyleDirectives, warnings = normalizeStyle(plan.StyleDirectives, warnings)
	plan.StateUpdates, warnings = normalizeDeltas(plan.StateUpdates, warnings)
	plan.ChosenIds, warnings = normalizeChosenIds(plan.ChosenIds, candidates, warnings)

	switch plan.DisclosureLevel {
	case policy.DisclosureNone, policy.DisclosurePartial, policy.DisclosureFull:
	default:
		if plan.DisclosureLevel != "" {
			warnings = append(warnings, fmt.Sprintf("disclosure_level %q invalid, using %q", plan.DisclosureLevel, fallbackDisclosure))
		}
		plan.DisclosureLevel = fallbackDisclosure
	}

	if plan.DistortionsPlan == nil {
		plan.DistortionsPlan = []string{}
	}

	return plan, warnings
}

// normalizeContentPlan trims items, drops empties, caps at two. An empty
// plan is rebuilt from candidate snippets so the patient always has
// something to say.
func normalizeContentPlan(items []string, candidates []dto.Candidate, warnings []string) ([]string, []string) {
	normalized := make([]string, 0, maxContentItems)
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
		if len(normalized) == maxContentItems {
			break
		}
	}

	if len(normalized) == 0 && len(candidates) > 0 {
		for _, c := range candidates[:min(maxContentItems, len(candidates))] {
			snippet := snippetOf(c.Text, contentSnippetLen)
			if snippet != "" {
				normalized = append(normalized, snippet)
			}
		}
		if len(normalized) > 0 {
			warnings = append(warnings, "content_plan was empty, generated from candidates")
		}
	}

	return normalized, warnings
}

func normalizeStyle(style dto.StyleDirectives, warnings []string) (dto.StyleDirectives, []string) {
	switch style.Tempo {
	case policy.TempoSlow, policy.TempoMedium, policy.TempoFast:
	default:
		if style.Tempo != "" {
			warnings = append(warnings, fmt.Sprintf("tempo %q invalid, set to medium", style.Tempo))
		}
		style.Tempo = policy.TempoMedium
	}

	switch style.Length {
	case policy.LengthShort, policy.LengthMedium, policy.LengthLong:
	default:
		if style.Length != "" {
			warnings = append(warnings, fmt.Sprintf("length %q invalid, set to short", style.Length))
		}
		style.Length = policy.LengthShort
	}

	return style, warnings
}

func normalizeDeltas(deltas dto.PlanDeltas, warnings []string) (dto.PlanDeltas, []string) {
	trust := deltas.TrustDelta
	if math.IsNaN(trust) || math.IsInf(trust, 0) {
		warnings = append(warnings, "trust_delta was NaN/inf, set to 0")
		trust = 0
	}
	if clamped := clamp(trust, -trustDeltaBound, trustDeltaBound); clamped != trust {
		warnings = append(warnings, fmt.Sprintf("trust_delta %v clamped to %v", trust, clamped))
		trust = clamped
	}

	fatigue := deltas.FatigueDelta
	if math.IsNaN(fatigue) || math.IsInf(fatigue, 0) {
		warnings = append(warnings, "fatigue_delta was NaN/inf, set to 0")
		fatigue = 0
	}
	if clamped := clamp(fatigue, 0, fatigueDeltaBound); clamped != fatigue {
		warnings = append(warnings, fmt.Sprintf("fatigue_delta %v clamped to %v", fatigue, clamped))
		fatigue = clamped
	}

	return dto.PlanDeltas{TrustDelta: trust, FatigueDelta: fatigue}, warnings
}

// normalizeChosenIds keeps only ids of actual candidates, deduplicated in
// the order given. Empty result with candidates present substitutes every
// candidate id, matching the forgiving contract of the planner.
func normalizeChosenIds(ids []string, candidates []dto.Candidate, warnings []string) ([]string, []string) {
	valid := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		valid[c.Id.String()] = true
	}

	normalized := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !valid[id] {
			warnings = append(warnings, fmt.Sprintf("chosen_id %q not in candidates, removed", id))
			continue
		}
		if seen[id] {
			continue
		}
		normalized = append(normalized, id)
		seen[id] = true
	}

	if len(normalized) == 0 && len(candidates) > 0 {
		for _, c := range candidates {
			normalized = append(normalized, c.Id.String())
		}
		warnings = append(warnings, "chosen_ids was empty, substituted candidate ids")
	}

	return normalized, warnings
}

func snippetOf(text string, limit int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return strings.TrimSpace(string(runes))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
