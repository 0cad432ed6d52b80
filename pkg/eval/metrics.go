// FILE: pkg/eval/metrics.go
// PURPOSE: Session and case scorecards computed from telemetry. Scores how
// well the trainee surfaced key material, caught risk early, and kept the
// interview moving along the authored trajectories.
package eval

import (
	"context"
	"log"
	"math"
	"sort"

	"rag-patient-be/internal/constant"
	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/specification"
	"rag-patient-be/internal/repository/unitofwork"
	"rag-patient-be/pkg/policy"

	"github.com/google/uuid"
)

// Risk-Timeliness buckets: full credit inside the first three turns, half
// credit through turn six, nothing after that.
const (
	riskPromptTurns = 3
	riskLateTurns   = 6
)

// intentUnknown buckets turns whose recorded intent is missing or foreign.
const intentUnknown = "unknown"

// SessionMetrics is the scorecard for one finished session.
type SessionMetrics struct {
	RecallKeys         float64              `json:"recall_keys"`
	RiskTimeliness     float64              `json:"risk_timeliness"`
	TurnsTotal         int                  `json:"turns_total"`
	UsedFragmentsTotal int                  `json:"used_fragments_total"`
	KeyFragmentsTotal  int                  `json:"key_fragments_total"`
	UsedKeyIds         []string             `json:"used_key_ids"`
	AllKeyIds          []string             `json:"all_key_ids"`
	MissedKeys         MissedKeys           `json:"missed_keys"`
	QuestionQuality    QuestionQuality      `json:"question_quality"`
	FirstAcuteTurn     *int                 `json:"first_acute_turn"`
	TrajectoryProgress []TrajectoryProgress `json:"trajectory_progress"`
}

type MissedKeys struct {
	Ids   []string `json:"ids"`
	Count int      `json:"count"`
}

// QuestionQuality scores exploratory technique: the share of open questions
// and clarifications among turns with a known intent.
type QuestionQuality struct {
	Score  float64        `json:"score"`
	Counts map[string]int `json:"counts"`
	Known  int            `json:"known"`
	Good   int            `json:"good"`
}

type TrajectoryProgress struct {
	TrajectoryId   string   `json:"trajectory_id"`
	Completed      int      `json:"completed"`
	Total          int      `json:"total"`
	CompletedSteps []string `json:"completed_steps"`
}

// CaseTrajectoryReport aggregates trajectory coverage over every linked
// session of a case.
type CaseTrajectoryReport struct {
	CaseId       uuid.UUID             `json:"case_id"`
	Sessions     []uuid.UUID           `json:"sessions"`
	Trajectories []TrajectoryAggregate `json:"trajectories"`
}

type TrajectoryAggregate struct {
	TrajectoryId        string   `json:"trajectory_id"`
	CompletedStepsUnion []string `json:"completed_steps_union"`
	Coverage            float64  `json:"coverage"`
}

type Evaluator struct {
	logger *log.Logger
}

func NewEvaluator(logger *log.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// SessionMetrics scores one session against its case. The caller has already
// resolved the session, the case is loaded here for key fragments and truth.
func (e *Evaluator) SessionMetrics(ctx context.Context, uow unitofwork.UnitOfWork, sess *entity.Session) (*SessionMetrics, error) {
	patientCase, err := uow.CaseRepository().FindOne(ctx, specification.ByID{ID: sess.CaseId})
	if err != nil {
		return nil, err
	}

	fragments, err := uow.FragmentRepository().FindAll(ctx, specification.ByCaseId{CaseId: sess.CaseId})
	if err != nil {
		return nil, err
	}

	allKeyIds := make([]string, 0)
	for _, f := range fragments {
		if f.IsKey() {
			allKeyIds = append(allKeyIds, f.Id.String())
		}
	}

	turns, err := uow.TelemetryRepository().FindAllBySessionId(ctx, sess.Id)
	if err != nil {
		return nil, err
	}

	usedIds := make(map[string]bool)
	var firstAcute *int
	counts := map[string]int{
		constant.IntentOpenQuestion: 0,
		constant.IntentClarify:      0,
		constant.IntentRiskCheck:    0,
		constant.IntentRapport:      0,
		intentUnknown:               0,
	}

	for _, turn := range turns {
		for _, id := range turn.UsedFragments {
			usedIds[id] = true
		}
		if turn.RiskStatus == constant.RiskStatusAcute && firstAcute == nil {
			turnNo := turn.TurnNo
			firstAcute = &turnNo
		}
		if _, known := counts[turn.EvalMarkers.Intent]; known {
			counts[turn.EvalMarkers.Intent]++
		} else {
			counts[intentUnknown]++
		}
	}

	usedKeyIds := make([]string, 0)
	missedKeyIds := make([]string, 0)
	for _, id := range allKeyIds {
		if usedIds[id] {
			usedKeyIds = append(usedKeyIds, id)
		} else {
			missedKeyIds = append(missedKeyIds, id)
		}
	}

	recall := 1.0
	if len(allKeyIds) > 0 {
		recall = float64(len(usedKeyIds)) / float64(len(allKeyIds))
	}

	good := counts[constant.IntentOpenQuestion] + counts[constant.IntentClarify]
	known := len(turns) - counts[intentUnknown]
	quality := float64(good) / math.Max(float64(known), 1)

	e.logger.Printf("[DEBUG] Session %s scored: recall=%.2f keys=%d/%d turns=%d",
		sess.Id, recall, len(usedKeyIds), len(allKeyIds), len(turns))

	progress, err := e.trajectoryProgress(ctx, uow, sess, patientCase.Truth.Trajectories)
	if err != nil {
		return nil, err
	}

	return &SessionMetrics{
		RecallKeys:         recall,
		RiskTimeliness:     riskTimeliness(patientCase.Truth.RedFlags, firstAcute),
		TurnsTotal:         len(turns),
		UsedFragmentsTotal: len(usedIds),
		KeyFragmentsTotal:  len(allKeyIds),
		UsedKeyIds:         usedKeyIds,
		AllKeyIds:          allKeyIds,
		MissedKeys:         MissedKeys{Ids: missedKeyIds, Count: len(missedKeyIds)},
		QuestionQuality:    QuestionQuality{Score: quality, Counts: counts, Known: known, Good: good},
		FirstAcuteTurn:     firstAcute,
		TrajectoryProgress: progress,
	}, nil
}

func (e *Evaluator) trajectoryProgress(ctx context.Context, uow unitofwork.UnitOfWork, sess *entity.Session, trajectories []policy.Trajectory) ([]TrajectoryProgress, error) {
	progress := make([]TrajectoryProgress, 0, len(trajectories))
	if len(trajectories) == 0 {
		return progress, nil
	}

	records, err := uow.TrajectoryRepository().FindAllBySessionId(ctx, sess.Id)
	if err != nil {
		return nil, err
	}
	bySessionTrajectory := make(map[string]*entity.SessionTrajectory, len(records))
	for _, r := range records {
		bySessionTrajectory[r.TrajectoryId] = r
	}

	for _, tr := range trajectories {
		completed := make([]string, 0)
		if record, ok := bySessionTrajectory[tr.Id]; ok {
			completed = append(completed, record.CompletedSteps...)
		}
		progress = append(progress, TrajectoryProgress{
			TrajectoryId:   tr.Id,
			Completed:      len(completed),
			Total:          len(tr.Steps),
			CompletedSteps: completed,
		})
	}
	return progress, nil
}

// CaseTrajectories unions completed steps across the case's linked sessions.
// Only trajectories some session actually touched appear in the result.
func (e *Evaluator) CaseTrajectories(ctx context.Context, uow unitofwork.UnitOfWork, patientCase *entity.Case) (*CaseTrajectoryReport, error) {
	report := &CaseTrajectoryReport{
		CaseId:       patientCase.Id,
		Sessions:     make([]uuid.UUID, 0),
		Trajectories: make([]TrajectoryAggregate, 0),
	}

	links, err := uow.SessionLinkRepository().FindAllByCaseId(ctx, patientCase.Id)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return report, nil
	}

	unions := make(map[string]map[string]bool)
	for _, link := range links {
		report.Sessions = append(report.Sessions, link.SessionId)

		records, err := uow.TrajectoryRepository().FindAllBySessionId(ctx, link.SessionId)
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			union, ok := unions[record.TrajectoryId]
			if !ok {
				union = make(map[string]bool)
				unions[record.TrajectoryId] = union
			}
			for _, step := range record.CompletedSteps {
				union[step] = true
			}
		}
	}

	for _, trajectoryId := range sortedKeys(unions) {
		union := unions[trajectoryId]
		tr, declared := patientCase.Truth.TrajectoryById(trajectoryId)
		steps := orderSteps(union, tr, declared)

		total := 0
		if declared {
			total = len(tr.Steps)
		}
		coverage := 0.0
		if total > 0 {
			coverage = round2(float64(len(steps)) / float64(total))
		}

		report.Trajectories = append(report.Trajectories, TrajectoryAggregate{
			TrajectoryId:        trajectoryId,
			CompletedStepsUnion: steps,
			Coverage:            coverage,
		})
	}

	e.logger.Printf("[INFO] Case %s trajectory report: %d sessions, %d trajectories",
		patientCase.Id, len(report.Sessions), len(report.Trajectories))
	return report, nil
}

func riskTimeliness(redFlags []string, firstAcute *int) float64 {
	switch {
	case len(redFlags) == 0:
		return 1.0
	case firstAcute == nil:
		return 0.0
	case *firstAcute <= riskPromptTurns:
		return 1.0
	case *firstAcute <= riskLateTurns:
		return 0.5
	default:
		return 0.0
	}
}

// orderSteps lists the union in the trajectory's declared step order so the
// report reads like the authored plan. Steps the truth no longer declares go
// last, sorted.
func orderSteps(union map[string]bool, tr policy.Trajectory, declared bool) []string {
	out := make([]string, 0, len(union))
	seen := make(map[string]bool, len(union))
	if declared {
		for _, step := range tr.Steps {
			if union[step.Id] {
				out = append(out, step.Id)
				seen[step.Id] = true
			}
		}
	}
	var rest []string
	for step := range union {
		if !seen[step] {
			rest = append(rest, step)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func sortedKeys(m map[string]map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
