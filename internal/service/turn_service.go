// FILE: internal/service/turn_service.go
package service

import (
	"context"
	"log"
	"time"

	"rag-patient-be/internal/config"
	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/pkg/logger"
	"rag-patient-be/internal/repository/specification"
	"rag-patient-be/internal/repository/unitofwork"
	"rag-patient-be/internal/settings"
	"rag-patient-be/pkg/dialog/executor"
	"rag-patient-be/pkg/events"
	pktNats "rag-patient-be/pkg/nats"

	"github.com/google/uuid"
)

type ITurnService interface {
	Process(ctx context.Context, req *dto.TurnRequest) (*dto.TurnResponse, error)
}

type turnService struct {
	uowFactory     unitofwork.RepositoryFactory
	caseService    ICaseService
	executor       *executor.PipelineExecutor
	settings       *settings.Store
	dialogCfg      config.DialogConfig
	eventPublisher *pktNats.Publisher
	auditLogger    logger.ILogger
}

func NewTurnService(
	uowFactory unitofwork.RepositoryFactory,
	caseService ICaseService,
	pipelineExecutor *executor.PipelineExecutor,
	settingsStore *settings.Store,
	dialogCfg config.DialogConfig,
	eventPublisher *pktNats.Publisher,
	auditLogger logger.ILogger,
) ITurnService {
	return &turnService{
		uowFactory:     uowFactory,
		caseService:    caseService,
		executor:       pipelineExecutor,
		settings:       settingsStore,
		dialogCfg:      dialogCfg,
		eventPublisher: eventPublisher,
		auditLogger:    auditLogger,
	}
}

// Process runs one therapist turn through the pipeline and persists the
// outcome. The pipeline itself runs outside the transaction; the session row
// is locked only for the persist phase, where turn ordering is enforced
// again against the locked row.
func (s *turnService) Process(ctx context.Context, req *dto.TurnRequest) (*dto.TurnResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	patientCase, err := s.caseService.Resolve(ctx, uow, req.CaseId)
	if err != nil {
		return nil, err
	}

	var (
		sessionId uuid.UUID
		isNew     bool
		state     entity.SessionState
		lastTurn  int
	)
	if req.SessionId == nil {
		sessionId = uuid.New()
		isNew = true
		state = entity.DefaultSessionState()
	} else {
		sessionId = *req.SessionId
		session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, &NotFoundError{Resource: "session"}
		}
		if session.CaseId != req.CaseId {
			return nil, &BadRequestError{Reason: "session does not belong to case"}
		}
		state = session.State
		lastTurn = session.LastTurnNumber
	}
	if req.SessionState != nil {
		state = compactToState(*req.SessionState)
	}

	// Fast reject before the pipeline runs. The authoritative check happens
	// again under the row lock in persistTurn.
	if req.TurnNumber != 0 && req.TurnNumber <= lastTurn {
		return nil, &TurnOrderError{Requested: req.TurnNumber, LastTurnNumber: lastTurn}
	}

	completed := make(map[string][]string)
	if !isNew {
		records, err := uow.TrajectoryRepository().FindAllBySessionId(ctx, sessionId)
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			completed[record.TrajectoryId] = record.CompletedSteps
		}
	}

	started := time.Now()
	res, err := s.executor.Execute(ctx, uow, executor.Input{
		Case:      patientCase,
		State:     state,
		Utterance: req.TherapistUtterance,
		Completed: completed,
		Flags:     s.resolveFlags(req.Options),
	})
	if err != nil {
		return nil, err
	}
	pipelineMs := float64(time.Since(started).Microseconds()) / 1000.0

	usedFragments := make([]string, 0, len(res.UsedFragments))
	for _, id := range res.UsedFragments {
		usedFragments = append(usedFragments, id.String())
	}

	newState := state
	newState.Trust += res.Guard.TrustDelta
	newState.Fatigue += res.Guard.FatigueDelta
	newState.Affect = res.Guard.Affect
	newState.RiskStatus = res.Guard.RiskStatus
	newState.LastTurnSummary = res.Norm.Summary

	markers := entity.EvalMarkers{
		Intent:          res.Norm.Intent,
		Topics:          res.Norm.Topics,
		RiskFlags:       res.Norm.RiskFlags,
		ChosenFragments: usedFragments,
		DisclosureLevel: res.Guard.Plan.DisclosureLevel,
		RetrievalMode:   res.Retrieval.Mode,
		NoiseInjected:   res.Retrieval.NoiseInjected,
		FallbackUsed:    res.FallbackUsed,
		ReasonUsed:      res.ReasonUsed,
		GenUsed:         res.GenUsed,
	}

	turnNo, err := s.persistTurn(ctx, uow, persistInput{
		SessionId:     sessionId,
		CaseId:        req.CaseId,
		IsNew:         isNew,
		Requested:     req.TurnNumber,
		State:         newState,
		NewSteps:      res.Guard.CompletedSteps,
		UsedFragments: usedFragments,
		RiskStatus:    res.Guard.RiskStatus,
		Markers:       markers,
		Timings:       map[string]float64{"pipeline_ms": pipelineMs},
	})
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		evt := events.NewTurnCompleted(sessionId, req.CaseId, turnNo, res.Guard.RiskStatus, res.FallbackUsed)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish %s event: %v", events.TypeTurnCompleted, err)
		}
	}

	log.Printf("[INFO] Turn %d completed for session %s (risk=%s, fragments=%d)",
		turnNo, sessionId, res.Guard.RiskStatus, len(usedFragments))
	if s.auditLogger != nil {
		s.auditLogger.Info("turn", "Turn completed", map[string]interface{}{
			"session_id":  sessionId.String(),
			"case_id":     req.CaseId.String(),
			"turn_number": turnNo,
			"intent":      res.Norm.Intent,
			"risk_status": res.Guard.RiskStatus,
			"rag_mode":    res.Retrieval.Mode,
			"fragments":   len(usedFragments),
			"fallback":    res.FallbackUsed,
			"pipeline_ms": pipelineMs,
		})
	}

	return &dto.TurnResponse{
		SessionId:    sessionId,
		TurnNumber:   turnNo,
		PatientReply: res.Reply,
		StateUpdates: dto.StateUpdates{
			TrustDelta:      res.Guard.TrustDelta,
			FatigueDelta:    res.Guard.FatigueDelta,
			Affect:          res.Guard.Affect,
			LastTurnSummary: res.Norm.Summary,
		},
		UsedFragments: usedFragments,
		RiskStatus:    res.Guard.RiskStatus,
		EvalMarkers: dto.TurnEvalMarkers{
			Intent:          markers.Intent,
			Topics:          markers.Topics,
			RiskFlags:       markers.RiskFlags,
			ChosenFragments: markers.ChosenFragments,
			DisclosureLevel: markers.DisclosureLevel,
			RetrievalMode:   markers.RetrievalMode,
			NoiseInjected:   markers.NoiseInjected,
			FallbackUsed:    markers.FallbackUsed,
			ReasonUsed:      markers.ReasonUsed,
			GenUsed:         markers.GenUsed,
		},
	}, nil
}

// resolveFlags layers per-request options over the current runtime settings.
func (s *turnService) resolveFlags(opts *dto.TurnOptions) executor.Flags {
	snapshot := s.settings.Current()
	flags := executor.Flags{
		RagMode:         snapshot.RagMode,
		TopK:            s.dialogCfg.RagTopK,
		SimilarityFloor: s.dialogCfg.SimilarityFloor,
		NoiseRate:       s.dialogCfg.NoiseRate,
		UseReason:       snapshot.UseReason,
		UseGen:          snapshot.UseGen,
	}
	if opts == nil {
		return flags
	}
	if opts.RagMode != "" {
		flags.RagMode = opts.RagMode
	}
	if opts.UseReason != nil {
		flags.UseReason = *opts.UseReason
	}
	if opts.UseGen != nil {
		flags.UseGen = *opts.UseGen
	}
	return flags
}

type persistInput struct {
	SessionId     uuid.UUID
	CaseId        uuid.UUID
	IsNew         bool
	Requested     int
	State         entity.SessionState
	NewSteps      map[string][]string
	UsedFragments []string
	RiskStatus    string
	Markers       entity.EvalMarkers
	Timings       map[string]float64
}

// persistTurn writes the whole turn outcome in one transaction. A telemetry
// write failure rolls everything back; the turn is not acknowledged without
// its record.
func (s *turnService) persistTurn(ctx context.Context, uow unitofwork.UnitOfWork, in persistInput) (int, error) {
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	turnNo := in.Requested
	if in.IsNew {
		if turnNo == 0 {
			turnNo = 1
		}
		session := entity.Session{
			Id:             in.SessionId,
			CaseId:         in.CaseId,
			State:          in.State,
			LastTurnNumber: turnNo,
			CreatedAt:      time.Now(),
		}
		if err := uow.SessionRepository().Create(ctx, &session); err != nil {
			return 0, err
		}
	} else {
		locked, err := uow.SessionRepository().FindForUpdate(ctx, in.SessionId)
		if err != nil {
			return 0, err
		}
		if locked == nil {
			return 0, &NotFoundError{Resource: "session"}
		}
		if turnNo == 0 {
			turnNo = locked.LastTurnNumber + 1
		} else if turnNo <= locked.LastTurnNumber {
			return 0, &TurnOrderError{Requested: turnNo, LastTurnNumber: locked.LastTurnNumber}
		}
		now := time.Now()
		locked.State = in.State
		locked.LastTurnNumber = turnNo
		locked.UpdatedAt = &now
		if err := uow.SessionRepository().Update(ctx, locked); err != nil {
			return 0, err
		}
	}

	for trajectoryId, steps := range in.NewSteps {
		record, err := uow.TrajectoryRepository().FindOne(ctx, in.SessionId, trajectoryId)
		if err != nil {
			return 0, err
		}
		if record == nil {
			record = &entity.SessionTrajectory{
				SessionId:    in.SessionId,
				TrajectoryId: trajectoryId,
			}
		}
		for _, step := range steps {
			if !record.HasStep(step) {
				record.CompletedSteps = append(record.CompletedSteps, step)
			}
		}
		record.UpdatedAt = time.Now()
		if err := uow.TrajectoryRepository().Upsert(ctx, record); err != nil {
			return 0, err
		}
	}

	turn := entity.TelemetryTurn{
		SessionId:     in.SessionId,
		TurnNo:        turnNo,
		UsedFragments: in.UsedFragments,
		RiskStatus:    in.RiskStatus,
		EvalMarkers:   in.Markers,
		Timings:       in.Timings,
		Costs:         map[string]float64{},
		CreatedAt:     time.Now(),
	}
	if err := uow.TelemetryRepository().Create(ctx, &turn); err != nil {
		return 0, err
	}

	return turnNo, uow.Commit()
}
