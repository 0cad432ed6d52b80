// FILE: internal/service/session_service.go
package service

import (
	"context"
	"log"
	"time"

	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/specification"
	"rag-patient-be/internal/repository/unitofwork"
	"rag-patient-be/pkg/events"
	pktNats "rag-patient-be/pkg/nats"

	"github.com/google/uuid"
)

type ISessionService interface {
	Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.ShowSessionResponse, error)
	Link(ctx context.Context, req *dto.LinkSessionRequest) (*dto.LinkSessionResponse, error)
	Trajectory(ctx context.Context, sessionId uuid.UUID) (*dto.SessionTrajectoryResponse, error)
}

type sessionService struct {
	uowFactory     unitofwork.RepositoryFactory
	caseService    ICaseService
	eventPublisher *pktNats.Publisher
}

func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	caseService ICaseService,
	eventPublisher *pktNats.Publisher,
) ISessionService {
	return &sessionService{
		uowFactory:     uowFactory,
		caseService:    caseService,
		eventPublisher: eventPublisher,
	}
}

func (s *sessionService) Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.caseService.Resolve(ctx, uow, req.CaseId); err != nil {
		return nil, err
	}

	state := entity.DefaultSessionState()
	if req.InitialState != nil {
		state = compactToState(*req.InitialState)
	}

	session := entity.Session{
		Id:        uuid.New(),
		CaseId:    req.CaseId,
		State:     state,
		CreatedAt: time.Now(),
	}
	if err := uow.SessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	log.Printf("[INFO] Created session %s for case %s", session.Id, req.CaseId)
	return &dto.CreateSessionResponse{SessionId: session.Id}, nil
}

func (s *sessionService) Show(ctx context.Context, id uuid.UUID) (*dto.ShowSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &NotFoundError{Resource: "session"}
	}

	return &dto.ShowSessionResponse{
		Id:             session.Id,
		CaseId:         session.CaseId,
		State:          stateToCompact(session.State),
		LastTurnNumber: session.LastTurnNumber,
		CreatedAt:      session.CreatedAt,
		UpdatedAt:      session.UpdatedAt,
	}, nil
}

// Link chains a session into the longitudinal record of a case and returns
// the whole chain in creation order. Linking twice is a no-op.
func (s *sessionService) Link(ctx context.Context, req *dto.LinkSessionRequest) (*dto.LinkSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.caseService.Resolve(ctx, uow, req.CaseId); err != nil {
		return nil, err
	}

	session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: req.SessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &NotFoundError{Resource: "session"}
	}

	if req.PrevSessionId != nil {
		prev, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: *req.PrevSessionId})
		if err != nil {
			return nil, err
		}
		if prev == nil {
			return nil, &NotFoundError{Resource: "previous session"}
		}
	}

	existing, err := uow.SessionLinkRepository().FindBySessionId(ctx, req.SessionId)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		link := entity.SessionLink{
			SessionId:     req.SessionId,
			CaseId:        req.CaseId,
			PrevSessionId: req.PrevSessionId,
		}
		if err := uow.SessionLinkRepository().Create(ctx, &link); err != nil {
			return nil, err
		}

		if s.eventPublisher != nil {
			evt := events.NewSessionLinked(req.SessionId, req.CaseId, req.PrevSessionId)
			if err := s.eventPublisher.Publish(ctx, evt); err != nil {
				log.Printf("[WARN] Failed to publish %s event: %v", events.TypeSessionLinked, err)
			}
		}
	}

	links, err := uow.SessionLinkRepository().FindAllByCaseId(ctx, req.CaseId)
	if err != nil {
		return nil, err
	}
	chain := make([]uuid.UUID, 0, len(links))
	for _, l := range links {
		chain = append(chain, l.SessionId)
	}

	log.Printf("[INFO] Session %s linked into case %s (chain length %d)", req.SessionId, req.CaseId, len(chain))
	return &dto.LinkSessionResponse{CaseId: req.CaseId, Sessions: chain}, nil
}

// Trajectory reports progress for the trajectories this session has touched.
func (s *sessionService) Trajectory(ctx context.Context, sessionId uuid.UUID) (*dto.SessionTrajectoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &NotFoundError{Resource: "session"}
	}

	patientCase, err := s.caseService.Resolve(ctx, uow, session.CaseId)
	if err != nil {
		return nil, err
	}

	records, err := uow.TrajectoryRepository().FindAllBySessionId(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	progress := make([]dto.TrajectoryProgressItem, 0, len(records))
	for _, record := range records {
		total := 0
		if tr, ok := patientCase.Truth.TrajectoryById(record.TrajectoryId); ok {
			total = len(tr.Steps)
		}
		progress = append(progress, dto.TrajectoryProgressItem{
			TrajectoryId:   record.TrajectoryId,
			Completed:      len(record.CompletedSteps),
			Total:          total,
			CompletedSteps: record.CompletedSteps,
		})
	}

	return &dto.SessionTrajectoryResponse{SessionId: sessionId, Progress: progress}, nil
}

func compactToState(c dto.SessionStateCompact) entity.SessionState {
	return entity.SessionState{
		Affect:          c.Affect,
		Trust:           c.Trust,
		Fatigue:         c.Fatigue,
		AccessLevel:     c.AccessLevel,
		RiskStatus:      c.RiskStatus,
		LastTurnSummary: c.LastTurnSummary,
	}
}

func stateToCompact(s entity.SessionState) dto.SessionStateCompact {
	return dto.SessionStateCompact{
		Affect:          s.Affect,
		Trust:           s.Trust,
		Fatigue:         s.Fatigue,
		AccessLevel:     s.AccessLevel,
		RiskStatus:      s.RiskStatus,
		LastTurnSummary: s.LastTurnSummary,
	}
}
