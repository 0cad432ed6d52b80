package mapper

import (
	"encoding/json"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/model"
)

type TelemetryMapper struct{}

func NewTelemetryMapper() *TelemetryMapper {
	return &TelemetryMapper{}
}

func (m *TelemetryMapper) ToEntity(t *model.TelemetryTurn) (*entity.TelemetryTurn, error) {
	if t == nil {
		return nil, nil
	}

	var used []string
	if len(t.UsedFragments) > 0 {
		if err := json.Unmarshal(t.UsedFragments, &used); err != nil {
			return nil, err
		}
	}

	var markers entity.EvalMarkers
	if len(t.EvalMarkers) > 0 {
		if err := json.Unmarshal(t.EvalMarkers, &markers); err != nil {
			return nil, err
		}
	}

	timings := map[string]float64{}
	if len(t.Timings) > 0 {
		if err := json.Unmarshal(t.Timings, &timings); err != nil {
			return nil, err
		}
	}

	costs := map[string]float64{}
	if len(t.Costs) > 0 {
		if err := json.Unmarshal(t.Costs, &costs); err != nil {
			return nil, err
		}
	}

	return &entity.TelemetryTurn{
		Id:            t.Id,
		SessionId:     t.SessionId,
		TurnNo:        t.TurnNo,
		UsedFragments: used,
		RiskStatus:    t.RiskStatus,
		EvalMarkers:   markers,
		Timings:       timings,
		Costs:         costs,
		CreatedAt:     t.CreatedAt,
	}, nil
}

func (m *TelemetryMapper) ToModel(t *entity.TelemetryTurn) (*model.TelemetryTurn, error) {
	if t == nil {
		return nil, nil
	}

	usedRaw, err := json.Marshal(t.UsedFragments)
	if err != nil {
		return nil, err
	}

	markersRaw, err := json.Marshal(t.EvalMarkers)
	if err != nil {
		return nil, err
	}

	timingsRaw, err := json.Marshal(t.Timings)
	if err != nil {
		return nil, err
	}

	costsRaw, err := json.Marshal(t.Costs)
	if err != nil {
		return nil, err
	}

	return &model.TelemetryTurn{
		Id:            t.Id,
		SessionId:     t.SessionId,
		TurnNo:        t.TurnNo,
		UsedFragments: usedRaw,
		RiskStatus:    t.RiskStatus,
		EvalMarkers:   markersRaw,
		Timings:       timingsRaw,
		Costs:         costsRaw,
		CreatedAt:     t.CreatedAt,
	}, nil
}

func (m *TelemetryMapper) ToEntities(turns []*model.TelemetryTurn) ([]*entity.TelemetryTurn, error) {
	entities := make([]*entity.TelemetryTurn, 0, len(turns))
	for _, t := range turns {
		e, err := m.ToEntity(t)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (m *TelemetryMapper) TrajectoryToEntity(t *model.SessionTrajectory) (*entity.SessionTrajectory, error) {
	if t == nil {
		return nil, nil
	}

	var steps []string
	if len(t.CompletedSteps) > 0 {
		if err := json.Unmarshal(t.CompletedSteps, &steps); err != nil {
			return nil, err
		}
	}

	return &entity.SessionTrajectory{
		Id:             t.Id,
		SessionId:      t.SessionId,
		TrajectoryId:   t.TrajectoryId,
		CompletedSteps: steps,
		UpdatedAt:      t.UpdatedAt,
	}, nil
}

func (m *TelemetryMapper) TrajectoryToModel(t *entity.SessionTrajectory) (*model.SessionTrajectory, error) {
	if t == nil {
		return nil, nil
	}

	stepsRaw, err := json.Marshal(t.CompletedSteps)
	if err != nil {
		return nil, err
	}

	return &model.SessionTrajectory{
		Id:             t.Id,
		SessionId:      t.SessionId,
		TrajectoryId:   t.TrajectoryId,
		CompletedSteps: stepsRaw,
	}, nil
}
