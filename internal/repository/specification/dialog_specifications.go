package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByCaseId filters by owning case
type ByCaseId struct {
	CaseId uuid.UUID
}

func (s ByCaseId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("case_id = ?", s.CaseId)
}

// BySessionId filters by owning session
type BySessionId struct {
	SessionId uuid.UUID
}

func (s BySessionId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionId)
}

// ByAvailability filters fragments by access tier
type ByAvailability struct {
	Availability string
}

func (s ByAvailability) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("availability = ?", s.Availability)
}

// VisibleAt keeps public fragments plus gated ones whose trust threshold is
// met. The per-fragment metadata threshold wins over the case default.
// Hidden fragments never match.
type VisibleAt struct {
	Trust            float64
	MinTrustForGated float64
}

func (s VisibleAt) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(
		"availability = 'public' OR (availability = 'gated' AND COALESCE((metadata -> 'disclosure_requirements' ->> 'trust_ge')::float, ?) <= ?)",
		s.MinTrustForGated, s.Trust,
	)
}

// TopicIn filters fragments whose metadata topic is one of the given topics
type TopicIn struct {
	Topics []string
}

func (s TopicIn) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("metadata ->> 'topic' IN ?", s.Topics)
}

// TopicNotIn excludes fragments from the given topics. Fragments without a
// topic survive the filter, matching the noise selection rules.
type TopicNotIn struct {
	Topics []string
}

func (s TopicNotIn) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("metadata ->> 'topic' IS NULL OR metadata ->> 'topic' NOT IN ?", s.Topics)
}

// WithoutEmbedding keeps fragments awaiting embedding backfill
type WithoutEmbedding struct{}

func (s WithoutEmbedding) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("embedding IS NULL")
}

// ByTrajectoryId filters session trajectory rows
type ByTrajectoryId struct {
	TrajectoryId string
}

func (s ByTrajectoryId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("trajectory_id = ?", s.TrajectoryId)
}
