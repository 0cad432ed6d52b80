package mapper

import (
	"encoding/json"
	"time"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/model"
	"rag-patient-be/pkg/policy"
)

type CaseMapper struct{}

func NewCaseMapper() *CaseMapper {
	return &CaseMapper{}
}

func (m *CaseMapper) ToEntity(c *model.Case) (*entity.Case, error) {
	if c == nil {
		return nil, nil
	}

	truth, err := policy.DecodeCaseTruth(c.CaseTruth)
	if err != nil {
		return nil, err
	}

	policies, err := policy.DecodePolicies(c.Policies)
	if err != nil {
		return nil, err
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.Case{
		Id:        c.Id,
		Title:     c.Title,
		Version:   c.Version,
		Truth:     truth,
		Policies:  policies,
		CreatedAt: c.CreatedAt,
		UpdatedAt: updatedAt,
	}, nil
}

func (m *CaseMapper) ToModel(c *entity.Case) (*model.Case, error) {
	if c == nil {
		return nil, nil
	}

	truthRaw, err := json.Marshal(c.Truth)
	if err != nil {
		return nil, err
	}

	policiesRaw, err := json.Marshal(c.Policies)
	if err != nil {
		return nil, err
	}

	version := c.Version
	if version == 0 {
		version = 1
	}

	return &model.Case{
		Id:        c.Id,
		Title:     c.Title,
		Version:   version,
		CaseTruth: truthRaw,
		Policies:  policiesRaw,
		CreatedAt: c.CreatedAt,
	}, nil
}

func (m *CaseMapper) ToEntities(cases []*model.Case) ([]*entity.Case, error) {
	entities := make([]*entity.Case, 0, len(cases))
	for _, c := range cases {
		e, err := m.ToEntity(c)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}
