// FILE: pkg/policy/policy.go
// PURPOSE: Case policy model. Controls how much the simulated patient
// discloses, how distorted the recall is, when the risk protocol engages
// and what speech style the replies carry.
package policy

import (
	"encoding/json"
	"strings"
)

const (
	DisclosureFull    = "full"
	DisclosurePartial = "partial"
	DisclosureNone    = "none"
)

const (
	TempoSlow   = "slow"
	TempoMedium = "medium"
	TempoFast   = "fast"
	TempoCalm   = "calm"
)

const (
	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
)

// DisclosureRequirements is the optional per-fragment override carried in
// fragment metadata. A nil TrustGE defers to the case-level threshold.
type DisclosureRequirements struct {
	TrustGE       *float64 `json:"trust_ge,omitempty"`
	ExactQuestion *bool    `json:"exact_question,omitempty"`
}

type DisclosureRules struct {
	FullOnValidQuestion bool    `json:"full_on_valid_question"`
	PartialIfLowTrust   bool    `json:"partial_if_low_trust"`
	MinTrustForGated    float64 `json:"min_trust_for_gated" validate:"min=0,max=1"`
}

type DistortionRules struct {
	Enabled   bool               `json:"enabled"`
	ByDefense map[string]float64 `json:"by_defense" validate:"dive,min=0,max=1"`
}

type RiskProtocol struct {
	TriggerKeywords []string `json:"trigger_keywords"`
	ResponseStyle   string   `json:"response_style"`
	LockTopics      []string `json:"lock_topics"`
}

type StyleProfile struct {
	Register string `json:"register"`
	Tempo    string `json:"tempo" validate:"oneof=slow medium fast calm"`
	Length   string `json:"length" validate:"oneof=short medium long"`
}

// Policies groups the four rule sets every case must carry.
type Policies struct {
	DisclosureRules DisclosureRules `json:"disclosure_rules" validate:"required"`
	DistortionRules DistortionRules `json:"distortion_rules" validate:"required"`
	RiskProtocol    RiskProtocol    `json:"risk_protocol" validate:"required"`
	StyleProfile    StyleProfile    `json:"style_profile" validate:"required"`
}

func DefaultDisclosureRules() DisclosureRules {
	return DisclosureRules{
		FullOnValidQuestion: true,
		PartialIfLowTrust:   true,
		MinTrustForGated:    0.4,
	}
}

func DefaultDistortionRules() DistortionRules {
	return DistortionRules{
		Enabled:   true,
		ByDefense: map[string]float64{},
	}
}

func DefaultRiskProtocol() RiskProtocol {
	return RiskProtocol{
		TriggerKeywords: []string{"суицид", "убить себя", "не хочу жить"},
		ResponseStyle:   "stable",
		LockTopics:      []string{},
	}
}

func DefaultStyleProfile() StyleProfile {
	return StyleProfile{
		Register: "colloquial",
		Tempo:    TempoMedium,
		Length:   LengthShort,
	}
}

func DefaultPolicies() Policies {
	return Policies{
		DisclosureRules: DefaultDisclosureRules(),
		DistortionRules: DefaultDistortionRules(),
		RiskProtocol:    DefaultRiskProtocol(),
		StyleProfile:    DefaultStyleProfile(),
	}
}

// DecodePolicies unmarshals raw JSON on top of the defaults, so fields the
// author omitted keep their documented default instead of the zero value.
func DecodePolicies(raw []byte) (Policies, error) {
	p := DefaultPolicies()
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Policies{}, err
	}
	if p.RiskProtocol.TriggerKeywords == nil {
		p.RiskProtocol.TriggerKeywords = DefaultRiskProtocol().TriggerKeywords
	}
	if p.RiskProtocol.LockTopics == nil {
		p.RiskProtocol.LockTopics = []string{}
	}
	if p.DistortionRules.ByDefense == nil {
		p.DistortionRules.ByDefense = map[string]float64{}
	}
	return p, nil
}

// GatedAccessAllowed reports whether gated fragments open at this trust
// level. The boundary is inclusive.
func GatedAccessAllowed(trust, minTrust float64) bool {
	return trust >= minTrust
}

// IsRiskTrigger reports whether the text contains any protocol keyword,
// case-insensitive substring match.
func IsRiskTrigger(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// EffectiveDisclosureLevel maps trust against the disclosure rules to one of
// full, partial or none.
func EffectiveDisclosureLevel(trust float64, rules DisclosureRules) string {
	switch {
	case trust >= rules.MinTrustForGated:
		return DisclosureFull
	case rules.PartialIfLowTrust:
		return DisclosurePartial
	default:
		return DisclosureNone
	}
}
