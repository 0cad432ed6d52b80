package dto

import "github.com/google/uuid"

// NormalizedInput is the classifier output for one therapist utterance.
type NormalizedInput struct {
	Intent    string   `json:"intent"`
	Topics    []string `json:"topics"`
	RiskFlags []string `json:"risk_flags"`
	Summary   string   `json:"last_turn_summary"`
}

// Candidate is one retrieved knowledge fragment offered to the reason step.
type Candidate struct {
	Id              uuid.UUID `json:"id"`
	Text            string    `json:"text"`
	Topic           string    `json:"topic"`
	Availability    string    `json:"availability"`
	EmotionLabel    string    `json:"emotion_label,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	DisclosureLevel string    `json:"disclosure_level"`
	Similarity      *float64  `json:"similarity,omitempty"` // vector mode only
	Noise           bool      `json:"noise,omitempty"`
}

type RetrievalResult struct {
	Candidates    []Candidate
	Mode          string
	NoiseInjected bool
}

type StyleDirectives struct {
	Register string `json:"register,omitempty"`
	Tempo    string `json:"tempo"`
	Length   string `json:"length"`
}

// ReasonPlan represents the strict JSON output expected from the reasoning LLM.
// The deterministic stub produces the same shape.
type ReasonPlan struct {
	ContentPlan     []string        `json:"content_plan"`
	DistortionsPlan []string        `json:"distortions_plan"`
	StyleDirectives StyleDirectives `json:"style_directives"`
	StateUpdates    PlanDeltas      `json:"state_updates"`
	ChosenIds       []string        `json:"chosen_ids"`
	DisclosureLevel string          `json:"disclosure_level,omitempty"`
	Rationale       string          `json:"rationale,omitempty"` // For debugging/logging
}

type PlanDeltas struct {
	TrustDelta   float64 `json:"trust_delta"`
	FatigueDelta float64 `json:"fatigue_delta"`
}

// GuardResult is the risk engine verdict for the turn.
type GuardResult struct {
	RiskStatus     string
	Plan           ReasonPlan
	TrustDelta     float64
	FatigueDelta   float64
	Affect         string
	CompletedSteps map[string][]string // trajectory id -> step ids completed this turn
	LockedTopics   []string
}
