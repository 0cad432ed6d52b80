package memory

import (
	"fmt"
	"sort"
	"time"

	"rag-patient-be/internal/repository/specification"

	"github.com/google/uuid"
)

// specFilter is the in-memory evaluation of the query specifications the
// services actually use. Unknown specifications fail loudly instead of
// silently widening a result set.
type specFilter struct {
	id               *uuid.UUID
	ids              []uuid.UUID
	caseId           *uuid.UUID
	sessionId        *uuid.UUID
	availability     *string
	visibleAt        *specification.VisibleAt
	topicIn          []string
	topicNotIn       []string
	withoutEmbedding bool
	trajectoryId     *string
	orderBy          *specification.OrderBy
	limit            int
	offset           int
}

func buildFilter(specs ...specification.Specification) (*specFilter, error) {
	f := &specFilter{limit: -1}
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			id := s.ID
			f.id = &id
		case specification.ByIDs:
			f.ids = s.IDs
		case specification.ByCaseId:
			id := s.CaseId
			f.caseId = &id
		case specification.BySessionId:
			id := s.SessionId
			f.sessionId = &id
		case specification.ByAvailability:
			v := s.Availability
			f.availability = &v
		case specification.VisibleAt:
			v := s
			f.visibleAt = &v
		case specification.TopicIn:
			f.topicIn = s.Topics
		case specification.TopicNotIn:
			f.topicNotIn = s.Topics
		case specification.WithoutEmbedding:
			f.withoutEmbedding = true
		case specification.ByTrajectoryId:
			v := s.TrajectoryId
			f.trajectoryId = &v
		case specification.OrderBy:
			v := s
			f.orderBy = &v
		case specification.Pagination:
			f.limit = s.Limit
			f.offset = s.Offset
		default:
			return nil, fmt.Errorf("memory repository: unsupported specification %T", spec)
		}
	}
	return f, nil
}

func (f *specFilter) matchesId(id uuid.UUID) bool {
	if f.id != nil && *f.id != id {
		return false
	}
	if len(f.ids) > 0 {
		found := false
		for _, candidate := range f.ids {
			if candidate == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortByCreatedAt[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).Before(createdAt(items[j]))
	})
}

func paginate[T any](items []T, f *specFilter) []T {
	if f.offset > 0 {
		if f.offset >= len(items) {
			return nil
		}
		items = items[f.offset:]
	}
	if f.limit >= 0 && f.limit < len(items) {
		items = items[:f.limit]
	}
	return items
}
