package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Session struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CaseId         uuid.UUID      `gorm:"type:uuid;not null;index"`
	SessionState   datatypes.JSON `gorm:"type:jsonb;not null"`
	LastTurnNumber int            `gorm:"not null;default:0"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

func (Session) TableName() string {
	return "sessions"
}

type SessionLink struct {
	Id            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	CaseId        uuid.UUID  `gorm:"type:uuid;not null;index"`
	PrevSessionId *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
}

func (SessionLink) TableName() string {
	return "session_links"
}
