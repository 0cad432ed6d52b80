package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SessionTrajectory struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId      uuid.UUID      `gorm:"type:uuid;not null;index:idx_session_trajectory,unique"`
	TrajectoryId   string         `gorm:"type:varchar(64);not null;index:idx_session_trajectory,unique"`
	CompletedSteps datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

func (SessionTrajectory) TableName() string {
	return "session_trajectories"
}
