package dto

import "github.com/google/uuid"

type MissedKeys struct {
	Ids   []string `json:"ids"`
	Count int      `json:"count"`
}

type QuestionQuality struct {
	Score  float64        `json:"score"`
	Counts map[string]int `json:"counts"`
	Known  int            `json:"known"`
	Good   int            `json:"good"`
}

// SessionMetrics is the per-session evaluation block.
type SessionMetrics struct {
	RecallKeys         float64                  `json:"recall_keys"`
	RiskTimeliness     float64                  `json:"risk_timeliness"`
	TurnsTotal         int                      `json:"turns_total"`
	UsedFragmentsTotal int                      `json:"used_fragments_total"`
	KeyFragmentsTotal  int                      `json:"key_fragments_total"`
	UsedKeyIds         []string                 `json:"used_key_ids"`
	AllKeyIds          []string                 `json:"all_key_ids"`
	MissedKeys         MissedKeys               `json:"missed_keys"`
	QuestionQuality    QuestionQuality          `json:"question_quality"`
	FirstAcuteTurn     *int                     `json:"first_acute_turn"`
	TrajectoryProgress []TrajectoryProgressItem `json:"trajectory_progress"`
}

type SessionReportResponse struct {
	SessionId  uuid.UUID      `json:"session_id"`
	CaseId     uuid.UUID      `json:"case_id"`
	Metrics    SessionMetrics `json:"metrics"`
	MissedKeys MissedKeys     `json:"missed_keys"`
}

type MissedKeysResponse struct {
	SessionId    uuid.UUID `json:"session_id"`
	CaseId       uuid.UUID `json:"case_id"`
	MissedKeyIds []string  `json:"missed_key_ids"`
	Count        int       `json:"count"`
}

type TrajectoryAggregateItem struct {
	TrajectoryId        string   `json:"trajectory_id"`
	CompletedStepsUnion []string `json:"completed_steps_union"`
	Coverage            float64  `json:"coverage"`
}

// CaseTrajectoryResponse aggregates trajectory completion across the linked
// session chain of a case.
type CaseTrajectoryResponse struct {
	CaseId       uuid.UUID                 `json:"case_id"`
	Sessions     []uuid.UUID               `json:"sessions"`
	Trajectories []TrajectoryAggregateItem `json:"trajectories"`
}
