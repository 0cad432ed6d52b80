package entity

import (
	"time"

	"github.com/google/uuid"
)

// EvalMarkers is the per-turn evidence trail supervisors score against.
type EvalMarkers struct {
	Intent          string   `json:"intent"`
	Topics          []string `json:"topics"`
	RiskFlags       []string `json:"risk_flags"`
	ChosenFragments []string `json:"chosen_fragments"`
	DisclosureLevel string   `json:"disclosure_level"`
	RetrievalMode   string   `json:"retrieval_mode"`
	NoiseInjected   bool     `json:"noise_injected"`
	FallbackUsed    bool     `json:"fallback_used"`
	ReasonUsed      bool     `json:"reason_used"`
	GenUsed         bool     `json:"gen_used"`
}

type TelemetryTurn struct {
	Id            uuid.UUID
	SessionId     uuid.UUID
	TurnNo        int
	UsedFragments []string
	RiskStatus    string
	EvalMarkers   EvalMarkers
	Timings       map[string]float64
	Costs         map[string]float64
	CreatedAt     time.Time
}

// SessionTrajectory tracks which steps of one trajectory a session has
// completed. Completion is monotonic, steps are never removed.
type SessionTrajectory struct {
	Id             uuid.UUID
	SessionId      uuid.UUID
	TrajectoryId   string
	CompletedSteps []string
	UpdatedAt      time.Time
}

func (st *SessionTrajectory) HasStep(stepId string) bool {
	for _, s := range st.CompletedSteps {
		if s == stepId {
			return true
		}
	}
	return false
}
