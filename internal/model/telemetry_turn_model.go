package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TelemetryTurn struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId     uuid.UUID      `gorm:"type:uuid;not null;index:idx_telemetry_session_turn,unique"`
	TurnNo        int            `gorm:"not null;index:idx_telemetry_session_turn,unique"`
	UsedFragments datatypes.JSON `gorm:"type:jsonb"`
	RiskStatus    string         `gorm:"type:varchar(16);not null"`
	EvalMarkers   datatypes.JSON `gorm:"type:jsonb"`
	Timings       datatypes.JSON `gorm:"type:jsonb"`
	Costs         datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
}

func (TelemetryTurn) TableName() string {
	return "telemetry_turns"
}
