// FILE: internal/service/report_service.go
package service

import (
	"context"

	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/specification"
	"rag-patient-be/internal/repository/unitofwork"
	"rag-patient-be/pkg/eval"

	"github.com/google/uuid"
)

type IReportService interface {
	SessionReport(ctx context.Context, sessionId uuid.UUID) (*dto.SessionReportResponse, error)
	SessionMissedKeys(ctx context.Context, sessionId uuid.UUID) (*dto.MissedKeysResponse, error)
	CaseTrajectories(ctx context.Context, caseId uuid.UUID) (*dto.CaseTrajectoryResponse, error)
}

type reportService struct {
	uowFactory  unitofwork.RepositoryFactory
	caseService ICaseService
	evaluator   *eval.Evaluator
}

func NewReportService(
	uowFactory unitofwork.RepositoryFactory,
	caseService ICaseService,
	evaluator *eval.Evaluator,
) IReportService {
	return &reportService{
		uowFactory:  uowFactory,
		caseService: caseService,
		evaluator:   evaluator,
	}
}

func (s *reportService) SessionReport(ctx context.Context, sessionId uuid.UUID) (*dto.SessionReportResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, metrics, err := s.sessionMetrics(ctx, uow, sessionId)
	if err != nil {
		return nil, err
	}

	missed := dto.MissedKeys{Ids: metrics.MissedKeys.Ids, Count: metrics.MissedKeys.Count}
	progress := make([]dto.TrajectoryProgressItem, 0, len(metrics.TrajectoryProgress))
	for _, p := range metrics.TrajectoryProgress {
		progress = append(progress, dto.TrajectoryProgressItem{
			TrajectoryId:   p.TrajectoryId,
			Completed:      p.Completed,
			Total:          p.Total,
			CompletedSteps: p.CompletedSteps,
		})
	}

	return &dto.SessionReportResponse{
		SessionId: sessionId,
		CaseId:    session.CaseId,
		Metrics: dto.SessionMetrics{
			RecallKeys:         metrics.RecallKeys,
			RiskTimeliness:     metrics.RiskTimeliness,
			TurnsTotal:         metrics.TurnsTotal,
			UsedFragmentsTotal: metrics.UsedFragmentsTotal,
			KeyFragmentsTotal:  metrics.KeyFragmentsTotal,
			UsedKeyIds:         metrics.UsedKeyIds,
			AllKeyIds:          metrics.AllKeyIds,
			MissedKeys:         missed,
			QuestionQuality: dto.QuestionQuality{
				Score:  metrics.QuestionQuality.Score,
				Counts: metrics.QuestionQuality.Counts,
				Known:  metrics.QuestionQuality.Known,
				Good:   metrics.QuestionQuality.Good,
			},
			FirstAcuteTurn:     metrics.FirstAcuteTurn,
			TrajectoryProgress: progress,
		},
		MissedKeys: missed,
	}, nil
}

func (s *reportService) SessionMissedKeys(ctx context.Context, sessionId uuid.UUID) (*dto.MissedKeysResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, metrics, err := s.sessionMetrics(ctx, uow, sessionId)
	if err != nil {
		return nil, err
	}

	return &dto.MissedKeysResponse{
		SessionId:    sessionId,
		CaseId:       session.CaseId,
		MissedKeyIds: metrics.MissedKeys.Ids,
		Count:        metrics.MissedKeys.Count,
	}, nil
}

func (s *reportService) CaseTrajectories(ctx context.Context, caseId uuid.UUID) (*dto.CaseTrajectoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	patientCase, err := s.caseService.Resolve(ctx, uow, caseId)
	if err != nil {
		return nil, err
	}

	report, err := s.evaluator.CaseTrajectories(ctx, uow, patientCase)
	if err != nil {
		return nil, err
	}

	trajectories := make([]dto.TrajectoryAggregateItem, 0, len(report.Trajectories))
	for _, tr := range report.Trajectories {
		trajectories = append(trajectories, dto.TrajectoryAggregateItem{
			TrajectoryId:        tr.TrajectoryId,
			CompletedStepsUnion: tr.CompletedStepsUnion,
			Coverage:            tr.Coverage,
		})
	}

	return &dto.CaseTrajectoryResponse{
		CaseId:       report.CaseId,
		Sessions:     report.Sessions,
		Trajectories: trajectories,
	}, nil
}

func (s *reportService) sessionMetrics(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID) (*entity.Session, *eval.SessionMetrics, error) {
	session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, &NotFoundError{Resource: "session"}
	}

	metrics, err := s.evaluator.SessionMetrics(ctx, uow, session)
	if err != nil {
		return nil, nil, err
	}
	return session, metrics, nil
}
