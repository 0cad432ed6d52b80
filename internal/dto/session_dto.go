package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	CaseId       uuid.UUID            `json:"case_id" validate:"required"`
	InitialState *SessionStateCompact `json:"initial_state,omitempty"`
}

type CreateSessionResponse struct {
	SessionId uuid.UUID `json:"session_id"`
}

type ShowSessionResponse struct {
	Id             uuid.UUID           `json:"id"`
	CaseId         uuid.UUID           `json:"case_id"`
	State          SessionStateCompact `json:"state"`
	LastTurnNumber int                 `json:"last_turn_number"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      *time.Time          `json:"updated_at"`
}

type LinkSessionRequest struct {
	SessionId     uuid.UUID  `json:"session_id" validate:"required"`
	CaseId        uuid.UUID  `json:"case_id" validate:"required"`
	PrevSessionId *uuid.UUID `json:"prev_session_id,omitempty"`
}

// LinkSessionResponse returns the ordered session chain for the case.
type LinkSessionResponse struct {
	CaseId   uuid.UUID   `json:"case_id"`
	Sessions []uuid.UUID `json:"sessions"`
}

type TrajectoryProgressItem struct {
	TrajectoryId   string   `json:"trajectory_id"`
	Completed      int      `json:"completed"`
	Total          int      `json:"total"`
	CompletedSteps []string `json:"completed_steps"`
}

type SessionTrajectoryResponse struct {
	SessionId uuid.UUID                `json:"session_id"`
	Progress  []TrajectoryProgressItem `json:"progress"`
}
