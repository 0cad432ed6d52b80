// FILE: internal/service/report_service_test.go
package service

import (
	"context"
	"errors"
	"io"
	"log"
	"math/rand"
	"testing"

	"rag-patient-be/internal/config"
	"rag-patient-be/internal/constant"
	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/memory"
	"rag-patient-be/internal/settings"
	"rag-patient-be/pkg/dialog/executor"
	"rag-patient-be/pkg/eval"

	"github.com/google/uuid"
)

func newReportFixture(t *testing.T) (ITurnService, ISessionService, IReportService, *entity.Case) {
	t.Helper()

	store := memory.NewStore()
	c := seedTurnCase(t, store)
	factory := memory.NewFactory(store)
	caseSvc := NewCaseService(factory, memory.NewCaseCache(), nil, nil)

	cfg := &config.Config{
		Dialog: config.DialogConfig{
			RagMode:         constant.RagModeMetadata,
			RagTopK:         3,
			SimilarityFloor: 0.35,
			RiskSticky:      true,
		},
	}
	logger := log.New(io.Discard, "", 0)
	exec := executor.NewPipelineExecutor(nil, nil, rand.New(rand.NewSource(7)), cfg.Dialog.RiskSticky, logger)

	turnSvc := NewTurnService(factory, caseSvc, exec, settings.NewStore(cfg), cfg.Dialog, nil, nil)
	sessionSvc := NewSessionService(factory, caseSvc, nil)
	reportSvc := NewReportService(factory, caseSvc, eval.NewEvaluator(logger))
	return turnSvc, sessionSvc, reportSvc, c
}

// playSession runs a sleep turn and a mood turn, returning the session id.
func playSession(t *testing.T, turnSvc ITurnService, caseId uuid.UUID) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	first, err := turnSvc.Process(ctx, &dto.TurnRequest{
		TherapistUtterance: "Расскажите, как вы спите в последнее время?",
		CaseId:             caseId,
	})
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if _, err := turnSvc.Process(ctx, &dto.TurnRequest{
		TherapistUtterance: "А какое у вас настроение по утрам?",
		CaseId:             caseId,
		SessionId:          &first.SessionId,
	}); err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	return first.SessionId
}

func TestSessionReportFromPlayedTurns(t *testing.T) {
	turnSvc, _, reportSvc, c := newReportFixture(t)
	sessionId := playSession(t, turnSvc, c.Id)

	report, err := reportSvc.SessionReport(context.Background(), sessionId)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.SessionId != sessionId || report.CaseId != c.Id {
		t.Errorf("report ids wrong: %+v", report)
	}

	m := report.Metrics
	if m.TurnsTotal != 2 {
		t.Errorf("turns total = %d", m.TurnsTotal)
	}
	if m.KeyFragmentsTotal != 1 {
		t.Errorf("key fragments = %d", m.KeyFragmentsTotal)
	}
	// The sleep turn surfaced the only key fragment.
	if !almostEqual(m.RecallKeys, 1.0) {
		t.Errorf("recall = %v", m.RecallKeys)
	}
	if m.MissedKeys.Count != 0 {
		t.Errorf("missed = %+v", m.MissedKeys)
	}
	// Red flags exist and risk never went acute.
	if !almostEqual(m.RiskTimeliness, 0.0) {
		t.Errorf("risk timeliness = %v", m.RiskTimeliness)
	}
	if len(m.TrajectoryProgress) != 1 {
		t.Fatalf("expected one trajectory, got %+v", m.TrajectoryProgress)
	}
	progress := m.TrajectoryProgress[0]
	if progress.TrajectoryId != "tr_sleep" || progress.Completed != 1 || progress.Total != 1 {
		t.Errorf("trajectory progress = %+v", progress)
	}
	if report.MissedKeys.Count != m.MissedKeys.Count {
		t.Error("top level missed_keys must mirror the metrics block")
	}
}

func TestSessionMissedKeysShape(t *testing.T) {
	turnSvc, _, reportSvc, c := newReportFixture(t)
	sessionId := playSession(t, turnSvc, c.Id)

	res, err := reportSvc.SessionMissedKeys(context.Background(), sessionId)
	if err != nil {
		t.Fatalf("missed keys: %v", err)
	}
	if res.SessionId != sessionId || res.CaseId != c.Id {
		t.Errorf("ids wrong: %+v", res)
	}
	if res.Count != len(res.MissedKeyIds) {
		t.Errorf("count %d does not match ids %v", res.Count, res.MissedKeyIds)
	}
}

func TestSessionReportUnknownSession(t *testing.T) {
	_, _, reportSvc, _ := newReportFixture(t)

	_, err := reportSvc.SessionReport(context.Background(), uuid.New())
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestCaseTrajectoriesAcrossLinkedSessions(t *testing.T) {
	turnSvc, sessionSvc, reportSvc, c := newReportFixture(t)
	ctx := context.Background()

	sessionId := playSession(t, turnSvc, c.Id)
	if _, err := sessionSvc.Link(ctx, &dto.LinkSessionRequest{
		SessionId: sessionId,
		CaseId:    c.Id,
	}); err != nil {
		t.Fatalf("link: %v", err)
	}

	report, err := reportSvc.CaseTrajectories(ctx, c.Id)
	if err != nil {
		t.Fatalf("case report: %v", err)
	}
	if report.CaseId != c.Id {
		t.Errorf("case id = %s", report.CaseId)
	}
	if len(report.Sessions) != 1 || report.Sessions[0] != sessionId {
		t.Errorf("sessions = %v", report.Sessions)
	}
	if len(report.Trajectories) != 1 {
		t.Fatalf("trajectories = %+v", report.Trajectories)
	}
	tr := report.Trajectories[0]
	if tr.TrajectoryId != "tr_sleep" || !almostEqual(tr.Coverage, 1.0) {
		t.Errorf("aggregate = %+v", tr)
	}
}

func TestCaseTrajectoriesUnknownCase(t *testing.T) {
	_, _, reportSvc, _ := newReportFixture(t)

	_, err := reportSvc.CaseTrajectories(context.Background(), uuid.New())
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
