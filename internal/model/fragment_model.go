package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type KBFragment struct {
	Id              uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CaseId          uuid.UUID        `gorm:"type:uuid;not null;index"`
	Type            string           `gorm:"type:varchar(50);not null"`
	Text            string           `gorm:"type:text;not null"`
	Availability    string           `gorm:"type:varchar(16);not null;index"`
	Metadata        datatypes.JSON   `gorm:"type:jsonb;column:metadata"`
	ConsistencyKeys datatypes.JSON   `gorm:"type:jsonb"`
	Embedding       *pgvector.Vector `gorm:"type:vector(1024)"` // bge-m3 is 1024-dimensional, nullable until backfilled
	CreatedAt       time.Time        `gorm:"autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime"`
}

func (KBFragment) TableName() string {
	return "kb_fragments"
}
