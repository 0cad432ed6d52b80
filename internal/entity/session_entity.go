package entity

import (
	"time"

	"rag-patient-be/internal/constant"

	"github.com/google/uuid"
)

// SessionState is the compact patient state carried between turns.
type SessionState struct {
	Affect          string  `json:"affect"`
	Trust           float64 `json:"trust"`
	Fatigue         float64 `json:"fatigue"`
	AccessLevel     int     `json:"access_level"`
	RiskStatus      string  `json:"risk_status"`
	LastTurnSummary string  `json:"last_turn_summary"`
}

func DefaultSessionState() SessionState {
	return SessionState{
		Affect:          constant.AffectNeutral,
		Trust:           0.3,
		Fatigue:         0.1,
		AccessLevel:     1,
		RiskStatus:      constant.RiskStatusNone,
		LastTurnSummary: "",
	}
}

type Session struct {
	Id             uuid.UUID
	CaseId         uuid.UUID
	State          SessionState
	LastTurnNumber int
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// SessionLink chains a session into the longitudinal patient file of a case.
type SessionLink struct {
	Id            uuid.UUID
	SessionId     uuid.UUID
	CaseId        uuid.UUID
	PrevSessionId *uuid.UUID
	CreatedAt     time.Time
}
