package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FragmentPayload is one knowledge fragment inside a case creation request.
type FragmentPayload struct {
	Text                   string          `json:"text" validate:"required"`
	Topic                  string          `json:"topic"`
	Availability           string          `json:"availability" validate:"required,oneof=public gated hidden"`
	EmotionLabel           string          `json:"emotion_label,omitempty"`
	Tags                   []string        `json:"tags,omitempty"`
	DisclosureRequirements json.RawMessage `json:"disclosure_requirements,omitempty"`
}

type CreateCaseRequest struct {
	Title     string            `json:"title"`
	CaseTruth json.RawMessage   `json:"case_truth" validate:"required"`
	Policies  json.RawMessage   `json:"policies,omitempty"`
	Fragments []FragmentPayload `json:"fragments,omitempty" validate:"dive"`
}

type CreateCaseResponse struct {
	CaseId uuid.UUID `json:"case_id"`
}

// CaseTruthSummary redacts the truth to what a trainee-facing client may see.
type CaseTruthSummary struct {
	DxTarget        []string `json:"dx_target"`
	HiddenFactCount int      `json:"hidden_fact_count"`
	RedFlagCount    int      `json:"red_flag_count"`
	TrajectoryCount int      `json:"trajectory_count"`
}

type ShowCaseResponse struct {
	Id            uuid.UUID        `json:"id"`
	Title         string           `json:"title"`
	Version       int              `json:"version"`
	TruthSummary  CaseTruthSummary `json:"truth_summary"`
	FragmentCount int64            `json:"fragment_count"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     *time.Time       `json:"updated_at"`

	// Populated only for ?full=1 with the admin surface enabled.
	CaseTruth json.RawMessage `json:"case_truth,omitempty"`
	Policies  json.RawMessage `json:"policies,omitempty"`
}

type GetAllCasesResponse struct {
	Id            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Version       int        `json:"version"`
	FragmentCount int64      `json:"fragment_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// PublishEmbedFragmentMessage asks the consumer to backfill one embedding.
type PublishEmbedFragmentMessage struct {
	FragmentId uuid.UUID `json:"fragment_id"`
}
