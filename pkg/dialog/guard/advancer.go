// FILE: pkg/dialog/guard/advancer.go
// PURPOSE: Risk protocol and state advancement. Runs after planning: decides
// the turn's risk status, rewrites the plan when the protocol engages, moves
// trust/fatigue/affect and marks trajectory steps the turn completed.
package guard

import (
	"log"

	"rag-patient-be/internal/constant"
	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/entity"
	"rag-patient-be/pkg/policy"
)

// RiskProtocolLine replaces the content plan on a triggered turn.
const RiskProtocolLine = "[Риск-триггер: обращение к протоколу]"

// Trust movement per classified intent. Candidates found/missing adjust on
// top, an acute trigger overrides the whole thing.
var intentTrustDelta = map[string]float64{
	constant.IntentOpenQuestion: 0.04,
	constant.IntentRapport:      0.05,
	constant.IntentClarify:      0.02,
	constant.IntentRiskCheck:    -0.02,
}

const (
	candidatesFoundBonus   = 0.02
	candidatesMissingMalus = -0.01
	acuteTrustOverride     = -0.05
	turnFatigueCost        = 0.02
	acuteFatigueCost       = 0.03
	tiredFatigueThreshold  = 0.8
)

// Advancer is the risk and state engine
type Advancer struct {
	riskSticky bool
	logger     *log.Logger
}

// NewAdvancer creates the engine. With riskSticky an acute status carried in
// the session state stays acute on later turns; without it the status is
// re-derived from the current turn only.
func NewAdvancer(riskSticky bool, logger *log.Logger) *Advancer {
	return &Advancer{
		riskSticky: riskSticky,
		logger:     logger,
	}
}

// Params encapsulates one advancement request
type Params struct {
	Case       *entity.Case
	State      entity.SessionState
	Norm       dto.NormalizedInput
	Plan       dto.ReasonPlan
	Candidates []dto.Candidate

	// PlanDeltasRefined marks plans whose state_updates came from the
	// reasoning path (model answer or its fallback). Those deltas replace
	// the intent-derived base instead of stacking on it.
	PlanDeltasRefined bool

	// Completed holds step ids already done per trajectory, for
	// monotonicity. Never un-completes.
	Completed map[string][]string
}

// Advance applies the protocol and computes the turn's state movement. The
// returned deltas are effective: adding them to the incoming state always
// lands inside [0,1].
func (a *Advancer) Advance(p Params) dto.GuardResult {
	triggered := len(p.Norm.RiskFlags) > 0

	status := constant.RiskStatusNone
	switch {
	case triggered:
		status = constant.RiskStatusAcute
		a.logger.Printf("[WARN] Risk protocol engaged: flags=%v", p.Norm.RiskFlags)
	case a.riskSticky && p.State.RiskStatus == constant.RiskStatusAcute:
		status = constant.RiskStatusAcute
		a.logger.Printf("[DEBUG] Risk status held acute from prior turns")
	}

	plan := p.Plan
	var lockedTopics []string
	if status == constant.RiskStatusAcute {
		if triggered {
			plan.ContentPlan = []string{RiskProtocolLine}
		}
		plan.StyleDirectives.Tempo = policy.TempoCalm
		plan, lockedTopics = a.suppressLockedTopics(plan, p)
	}

	trustDelta := a.trustDelta(p, triggered)
	fatigueDelta := a.fatigueDelta(p, status)

	newTrust := clamp01(p.State.Trust + trustDelta)
	newFatigue := clamp01(p.State.Fatigue + fatigueDelta)

	affect := p.State.Affect
	switch {
	case status == constant.RiskStatusAcute:
		affect = constant.AffectDistressed
	case newFatigue > tiredFatigueThreshold:
		affect = constant.AffectTired
	}

	completed := a.advanceTrajectories(p, plan, newTrust)

	return dto.GuardResult{
		RiskStatus:     status,
		Plan:           plan,
		TrustDelta:     newTrust - p.State.Trust,
		FatigueDelta:   newFatigue - p.State.Fatigue,
		Affect:         affect,
		CompletedSteps: completed,
		LockedTopics:   lockedTopics,
	}
}

func (a *Advancer) trustDelta(p Params, triggered bool) float64 {
	if triggered {
		return acuteTrustOverride
	}
	if p.PlanDeltasRefined {
		return p.Plan.StateUpdates.TrustDelta
	}

	delta := intentTrustDelta[p.Norm.Intent]
	if len(p.Candidates) > 0 {
		delta += candidatesFoundBonus
	} else {
		delta += candidatesMissingMalus
	}
	return delta
}

func (a *Advancer) fatigueDelta(p Params, status string) float64 {
	cost := turnFatigueCost
	if status == constant.RiskStatusAcute {
		cost = acuteFatigueCost
	}
	if p.PlanDeltasRefined {
		cost += p.Plan.StateUpdates.FatigueDelta
	}
	return cost
}

// suppressLockedTopics drops plan material tied to topics the risk protocol
// locks. Content lines are matched through the candidate they were lifted
// from; free-form model lines stay.
func (a *Advancer) suppressLockedTopics(plan dto.ReasonPlan, p Params) (dto.ReasonPlan, []string) {
	lock := p.Case.Policies.RiskProtocol.LockTopics
	if len(lock) == 0 {
		return plan, nil
	}

	locked := make(map[string]bool, len(lock))
	for _, topic := range lock {
		locked[topic] = true
	}

	lockedIds := make(map[string]bool)
	lockedTexts := make(map[string]bool)
	for _, c := range p.Candidates {
		if locked[c.Topic] {
			lockedIds[c.Id.String()] = true
			lockedTexts[c.Text] = true
		}
	}
	if len(lockedIds) == 0 {
		return plan, lock
	}

	var keptIds []string
	for _, id := range plan.ChosenIds {
		if !lockedIds[id] {
			keptIds = append(keptIds, id)
		}
	}
	var keptContent []string
	for _, line := range plan.ContentPlan {
		if !lockedTexts[line] {
			keptContent = append(keptContent, line)
		}
	}

	if dropped := len(plan.ChosenIds) - len(keptIds); dropped > 0 {
		a.logger.Printf("[DEBUG] Suppressed %d fragment(s) under locked topics %v", dropped, lock)
	}
	plan.ChosenIds = keptIds
	plan.ContentPlan = keptContent
	return plan, lock
}

// advanceTrajectories marks steps whose condition tags intersect the turn's
// topics or the tags of fragments the plan actually used, provided trust
// reached the step threshold. Already completed steps are skipped.
func (a *Advancer) advanceTrajectories(p Params, plan dto.ReasonPlan, trust float64) map[string][]string {
	if len(p.Case.Truth.Trajectories) == 0 {
		return nil
	}

	touched := make(map[string]bool, len(p.Norm.Topics))
	for _, topic := range p.Norm.Topics {
		touched[topic] = true
	}
	chosen := make(map[string]bool, len(plan.ChosenIds))
	for _, id := range plan.ChosenIds {
		chosen[id] = true
	}
	for _, c := range p.Candidates {
		if !chosen[c.Id.String()] {
			continue
		}
		for _, tag := range c.Tags {
			touched[tag] = true
		}
	}

	done := make(map[string]map[string]bool, len(p.Completed))
	for trajectoryId, steps := range p.Completed {
		done[trajectoryId] = make(map[string]bool, len(steps))
		for _, step := range steps {
			done[trajectoryId][step] = true
		}
	}

	var completed map[string][]string
	for _, trajectory := range p.Case.Truth.Trajectories {
		for _, step := range trajectory.Steps {
			if done[trajectory.Id][step.Id] {
				continue
			}
			if trust < step.MinTrust {
				continue
			}
			if !anyTouched(step.ConditionTags, touched) {
				continue
			}
			if completed == nil {
				completed = make(map[string][]string)
			}
			completed[trajectory.Id] = append(completed[trajectory.Id], step.Id)
			a.logger.Printf("[INFO] Trajectory step completed: %s/%s", trajectory.Id, step.Id)
		}
	}
	return completed
}

func anyTouched(tags []string, touched map[string]bool) bool {
	for _, tag := range tags {
		if touched[tag] {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
