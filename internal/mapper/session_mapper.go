package mapper

import (
	"encoding/json"
	"time"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/model"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToEntity(s *model.Session) (*entity.Session, error) {
	if s == nil {
		return nil, nil
	}

	state := entity.DefaultSessionState()
	if len(s.SessionState) > 0 {
		if err := json.Unmarshal(s.SessionState, &state); err != nil {
			return nil, err
		}
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.Session{
		Id:             s.Id,
		CaseId:         s.CaseId,
		State:          state,
		LastTurnNumber: s.LastTurnNumber,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      updatedAt,
	}, nil
}

func (m *SessionMapper) ToModel(s *entity.Session) (*model.Session, error) {
	if s == nil {
		return nil, nil
	}

	stateRaw, err := json.Marshal(s.State)
	if err != nil {
		return nil, err
	}

	return &model.Session{
		Id:             s.Id,
		CaseId:         s.CaseId,
		SessionState:   stateRaw,
		LastTurnNumber: s.LastTurnNumber,
		CreatedAt:      s.CreatedAt,
	}, nil
}

func (m *SessionMapper) LinkToEntity(l *model.SessionLink) *entity.SessionLink {
	if l == nil {
		return nil
	}
	return &entity.SessionLink{
		Id:            l.Id,
		SessionId:     l.SessionId,
		CaseId:        l.CaseId,
		PrevSessionId: l.PrevSessionId,
		CreatedAt:     l.CreatedAt,
	}
}

func (m *SessionMapper) LinkToModel(l *entity.SessionLink) *model.SessionLink {
	if l == nil {
		return nil
	}
	return &model.SessionLink{
		Id:            l.Id,
		SessionId:     l.SessionId,
		CaseId:        l.CaseId,
		PrevSessionId: l.PrevSessionId,
		CreatedAt:     l.CreatedAt,
	}
}
