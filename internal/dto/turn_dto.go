package dto

import (
	"encoding/json"

	"rag-patient-be/internal/constant"

	"github.com/google/uuid"
)

// TurnOptions are per-request overrides for the pipeline flags. A nil field
// means "use the current runtime setting".
type TurnOptions struct {
	RagMode   string `json:"rag_mode,omitempty" validate:"omitempty,oneof=metadata vector"`
	UseReason *bool  `json:"use_reason,omitempty"`
	UseGen    *bool  `json:"use_gen,omitempty"`
}

type SessionStateCompact struct {
	Affect          string  `json:"affect"`
	Trust           float64 `json:"trust" validate:"min=0,max=1"`
	Fatigue         float64 `json:"fatigue" validate:"min=0,max=1"`
	AccessLevel     int     `json:"access_level"`
	RiskStatus      string  `json:"risk_status" validate:"omitempty,oneof=none acute"`
	LastTurnSummary string  `json:"last_turn_summary"`
}

// Omitted fields take the values of a fresh session state.
func (s *SessionStateCompact) UnmarshalJSON(data []byte) error {
	type plain SessionStateCompact
	tmp := plain{
		Affect:      constant.AffectNeutral,
		Trust:       0.3,
		Fatigue:     0.1,
		AccessLevel: 1,
		RiskStatus:  constant.RiskStatusNone,
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*s = SessionStateCompact(tmp)
	return nil
}

type TurnRequest struct {
	TherapistUtterance string               `json:"therapist_utterance" validate:"required,max=4000"`
	CaseId             uuid.UUID            `json:"case_id" validate:"required"`
	SessionId          *uuid.UUID           `json:"session_id,omitempty"`
	TurnNumber         int                  `json:"turn_number,omitempty" validate:"min=0"` // 0 = next turn
	SessionState       *SessionStateCompact `json:"session_state,omitempty"`
	Options            *TurnOptions         `json:"options,omitempty"`
}

// StateUpdates carries the deltas applied this turn, never the full state.
type StateUpdates struct {
	TrustDelta      float64 `json:"trust_delta"`
	FatigueDelta    float64 `json:"fatigue_delta"`
	Affect          string  `json:"affect,omitempty"`
	LastTurnSummary string  `json:"last_turn_summary"`
}

type TurnEvalMarkers struct {
	Intent          string   `json:"intent"`
	Topics          []string `json:"topics"`
	RiskFlags       []string `json:"risk_flags,omitempty"`
	ChosenFragments []string `json:"chosen_fragments,omitempty"`
	DisclosureLevel string   `json:"disclosure_level,omitempty"`
	RetrievalMode   string   `json:"retrieval_mode"`
	NoiseInjected   bool     `json:"noise_injected"`
	FallbackUsed    bool     `json:"fallback_used"`
	ReasonUsed      bool     `json:"reason_used"`
	GenUsed         bool     `json:"gen_used"`
}

type TurnResponse struct {
	SessionId     uuid.UUID       `json:"session_id"`
	TurnNumber    int             `json:"turn_number"`
	PatientReply  string          `json:"patient_reply"`
	StateUpdates  StateUpdates    `json:"state_updates"`
	UsedFragments []string        `json:"used_fragments"`
	RiskStatus    string          `json:"risk_status"`
	EvalMarkers   TurnEvalMarkers `json:"eval_markers"`
}
