package mapper

import (
	"encoding/json"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type FragmentMapper struct{}

func NewFragmentMapper() *FragmentMapper {
	return &FragmentMapper{}
}

func (m *FragmentMapper) ToEntity(f *model.KBFragment) (*entity.Fragment, error) {
	if f == nil {
		return nil, nil
	}

	var meta entity.FragmentMetadata
	if len(f.Metadata) > 0 {
		if err := json.Unmarshal(f.Metadata, &meta); err != nil {
			return nil, err
		}
	}

	var keys []string
	if len(f.ConsistencyKeys) > 0 {
		if err := json.Unmarshal(f.ConsistencyKeys, &keys); err != nil {
			return nil, err
		}
	}

	var embedding []float32
	if f.Embedding != nil {
		embedding = f.Embedding.Slice()
	}

	return &entity.Fragment{
		Id:              f.Id,
		CaseId:          f.CaseId,
		Type:            f.Type,
		Text:            f.Text,
		Availability:    f.Availability,
		Metadata:        meta,
		ConsistencyKeys: keys,
		Embedding:       embedding,
		CreatedAt:       f.CreatedAt,
	}, nil
}

func (m *FragmentMapper) ToModel(f *entity.Fragment) (*model.KBFragment, error) {
	if f == nil {
		return nil, nil
	}

	metaRaw, err := json.Marshal(f.Metadata)
	if err != nil {
		return nil, err
	}

	keysRaw, err := json.Marshal(f.ConsistencyKeys)
	if err != nil {
		return nil, err
	}

	var embedding *pgvector.Vector
	if len(f.Embedding) > 0 {
		v := pgvector.NewVector(f.Embedding)
		embedding = &v
	}

	return &model.KBFragment{
		Id:              f.Id,
		CaseId:          f.CaseId,
		Type:            f.Type,
		Text:            f.Text,
		Availability:    f.Availability,
		Metadata:        metaRaw,
		ConsistencyKeys: keysRaw,
		Embedding:       embedding,
		CreatedAt:       f.CreatedAt,
	}, nil
}

func (m *FragmentMapper) ToEntities(fragments []*model.KBFragment) ([]*entity.Fragment, error) {
	entities := make([]*entity.Fragment, 0, len(fragments))
	for _, f := range fragments {
		e, err := m.ToEntity(f)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (m *FragmentMapper) ToModels(fragments []*entity.Fragment) ([]*model.KBFragment, error) {
	models := make([]*model.KBFragment, 0, len(fragments))
	for _, f := range fragments {
		mod, err := m.ToModel(f)
		if err != nil {
			return nil, err
		}
		models = append(models, mod)
	}
	return models, nil
}
