package entity

import (
	"time"

	"rag-patient-be/pkg/policy"

	"github.com/google/uuid"
)

type Case struct {
	Id        uuid.UUID
	Title     string
	Version   int
	Truth     policy.CaseTruth
	Policies  policy.Policies
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// KeyFragmentTags mark fragments that count toward recall scoring.
var KeyFragmentTags = []string{"hook", "key"}
