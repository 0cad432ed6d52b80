// FILE: internal/service/case_service.go
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/memory"
	"rag-patient-be/internal/repository/specification"
	"rag-patient-be/internal/repository/unitofwork"
	"rag-patient-be/pkg/events"
	pktNats "rag-patient-be/pkg/nats"
	"rag-patient-be/pkg/policy"

	"github.com/google/uuid"
)

type ICaseService interface {
	Create(ctx context.Context, req *dto.CreateCaseRequest) (*dto.CreateCaseResponse, error)
	Show(ctx context.Context, id uuid.UUID, includeTruth bool) (*dto.ShowCaseResponse, error)
	GetAll(ctx context.Context) ([]*dto.GetAllCasesResponse, error)
	// Resolve returns the case through the cache. The turn pipeline calls
	// this on every request, so cache hits skip the store entirely.
	Resolve(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID) (*entity.Case, error)
}

type caseService struct {
	uowFactory       unitofwork.RepositoryFactory
	caseCache        *memory.CaseCache
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
}

func NewCaseService(
	uowFactory unitofwork.RepositoryFactory,
	caseCache *memory.CaseCache,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
) ICaseService {
	return &caseService{
		uowFactory:       uowFactory,
		caseCache:        caseCache,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
	}
}

func (c *caseService) Create(ctx context.Context, req *dto.CreateCaseRequest) (*dto.CreateCaseResponse, error) {
	truth, err := policy.DecodeCaseTruth(req.CaseTruth)
	if err != nil {
		return nil, &BadRequestError{Reason: "invalid case_truth: " + err.Error()}
	}
	policies, err := policy.DecodePolicies(req.Policies)
	if err != nil {
		return nil, &BadRequestError{Reason: "invalid policies: " + err.Error()}
	}

	patientCase := entity.Case{
		Id:        uuid.New(),
		Title:     req.Title,
		Version:   1,
		Truth:     truth,
		Policies:  policies,
		CreatedAt: time.Now(),
	}

	fragments := make([]*entity.Fragment, 0, len(req.Fragments))
	for _, p := range req.Fragments {
		var rules *policy.DisclosureRequirements
		if len(p.DisclosureRequirements) > 0 {
			rules = new(policy.DisclosureRequirements)
			if err := json.Unmarshal(p.DisclosureRequirements, rules); err != nil {
				return nil, &BadRequestError{Reason: "invalid disclosure_requirements: " + err.Error()}
			}
		}
		fragments = append(fragments, &entity.Fragment{
			Id:           uuid.New(),
			CaseId:       patientCase.Id,
			Text:         p.Text,
			Availability: p.Availability,
			Metadata: entity.FragmentMetadata{
				Topic:                  p.Topic,
				Tags:                   p.Tags,
				EmotionLabel:           p.EmotionLabel,
				DisclosureRequirements: rules,
			},
		})
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.CaseRepository().Create(ctx, &patientCase); err != nil {
		return nil, err
	}
	if len(fragments) > 0 {
		if err := uow.FragmentRepository().CreateBulk(ctx, fragments); err != nil {
			return nil, err
		}
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	c.caseCache.Save(&patientCase)

	// Embeddings backfill asynchronously, the request never waits on the
	// embedding provider.
	for _, f := range fragments {
		payload, err := json.Marshal(dto.PublishEmbedFragmentMessage{FragmentId: f.Id})
		if err != nil {
			continue
		}
		if err := c.publisherService.Publish(ctx, payload); err != nil {
			log.Printf("[WARN] Failed to queue embedding for fragment %s: %v", f.Id, err)
		}
	}

	if c.eventPublisher != nil {
		evt := events.NewCaseImported(patientCase.Id, patientCase.Title, patientCase.Version, len(fragments))
		if err := c.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish %s event: %v", events.TypeCaseImported, err)
		}
	}

	log.Printf("[INFO] Created case %s with %d fragments", patientCase.Id, len(fragments))
	return &dto.CreateCaseResponse{CaseId: patientCase.Id}, nil
}

func (c *caseService) Show(ctx context.Context, id uuid.UUID, includeTruth bool) (*dto.ShowCaseResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	patientCase, err := c.Resolve(ctx, uow, id)
	if err != nil {
		return nil, err
	}

	count, err := uow.FragmentRepository().Count(ctx, specification.ByCaseId{CaseId: id})
	if err != nil {
		return nil, err
	}

	res := &dto.ShowCaseResponse{
		Id:      patientCase.Id,
		Title:   patientCase.Title,
		Version: patientCase.Version,
		TruthSummary: dto.CaseTruthSummary{
			DxTarget:        patientCase.Truth.DxTarget,
			HiddenFactCount: len(patientCase.Truth.HiddenFacts),
			RedFlagCount:    len(patientCase.Truth.RedFlags),
			TrajectoryCount: len(patientCase.Truth.Trajectories),
		},
		FragmentCount: count,
		CreatedAt:     patientCase.CreatedAt,
		UpdatedAt:     patientCase.UpdatedAt,
	}

	if includeTruth {
		if res.CaseTruth, err = json.Marshal(patientCase.Truth); err != nil {
			return nil, err
		}
		if res.Policies, err = json.Marshal(patientCase.Policies); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func (c *caseService) GetAll(ctx context.Context) ([]*dto.GetAllCasesResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	cases, err := uow.CaseRepository().FindAll(ctx, specification.OrderBy{Field: "created_at"})
	if err != nil {
		return nil, err
	}

	result := make([]*dto.GetAllCasesResponse, 0, len(cases))
	for _, pc := range cases {
		count, err := uow.FragmentRepository().Count(ctx, specification.ByCaseId{CaseId: pc.Id})
		if err != nil {
			return nil, err
		}
		result = append(result, &dto.GetAllCasesResponse{
			Id:            pc.Id,
			Title:         pc.Title,
			Version:       pc.Version,
			FragmentCount: count,
			CreatedAt:     pc.CreatedAt,
			UpdatedAt:     pc.UpdatedAt,
		})
	}
	return result, nil
}

func (c *caseService) Resolve(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID) (*entity.Case, error) {
	if cached, ok := c.caseCache.Get(id); ok {
		return cached, nil
	}

	patientCase, err := uow.CaseRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if patientCase == nil {
		return nil, &NotFoundError{Resource: "case"}
	}

	c.caseCache.Save(patientCase)
	return patientCase, nil
}
