package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Case struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title     string         `gorm:"type:varchar(255);not null"`
	Version   int            `gorm:"not null;default:1"`
	CaseTruth datatypes.JSON `gorm:"type:jsonb;not null"`
	Policies  datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (Case) TableName() string {
	return "cases"
}
