package memory

import (
	"context"
	"fmt"
	"time"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SessionRepository struct {
	store *Store
}

func (r *SessionRepository) Create(ctx context.Context, session *entity.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if session.Id == uuid.Nil {
		session.Id = uuid.New()
	}
	session.CreatedAt = time.Now()

	cp := *session
	r.store.sessions[session.Id] = &cp
	return nil
}

func (r *SessionRepository) Update(ctx context.Context, session *entity.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cp := *session
	r.store.sessions[session.Id] = &cp
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.sessions, id)
	return nil
}

func (r *SessionRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *SessionRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, error) {
	f, err := buildFilter(specs...)
	if err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*entity.Session
	for id, s := range r.store.sessions {
		if !f.matchesId(id) {
			continue
		}
		if f.caseId != nil && s.CaseId != *f.caseId {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sortByCreatedAt(out, func(s *entity.Session) time.Time { return s.CreatedAt })
	return paginate(out, f), nil
}

func (r *SessionRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func (r *SessionRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	return r.FindOne(ctx, specification.ByID{ID: id})
}

type SessionLinkRepository struct {
	store *Store
}

func (r *SessionLinkRepository) Create(ctx context.Context, link *entity.SessionLink) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.links {
		if existing.SessionId == link.SessionId {
			return fmt.Errorf("session %s already linked", link.SessionId)
		}
	}

	if link.Id == uuid.Nil {
		link.Id = uuid.New()
	}
	link.CreatedAt = time.Now()

	cp := *link
	r.store.links[link.Id] = &cp
	r.store.linkOrder = append(r.store.linkOrder, link.Id)
	return nil
}

func (r *SessionLinkRepository) FindBySessionId(ctx context.Context, sessionId uuid.UUID) (*entity.SessionLink, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, l := range r.store.links {
		if l.SessionId == sessionId {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *SessionLinkRepository) FindAllByCaseId(ctx context.Context, caseId uuid.UUID) ([]*entity.SessionLink, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*entity.SessionLink
	for _, id := range r.store.linkOrder {
		l, ok := r.store.links[id]
		if !ok || l.CaseId != caseId {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}
