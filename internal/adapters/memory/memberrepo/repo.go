package memberrepo

import (
	"context"
	"sync"

	"github.com/Tominouu/covoit/internal/domain"
	"github.com/Tominouu/covoit/internal/ports/out/memberrepo"
)

// Repo is an in-memory implementation of memberrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu        sync.RWMutex
	byID      map[domain.MemberID]memberrepo.Member
	bySubject map[domain.SubjectID]domain.MemberID
}

func NewRepo() *Repo {
	return &Repo{
		byID:      make(map[domain.MemberID]memberrepo.Member),
		bySubject: make(map[domain.SubjectID]domain.MemberID),
	}
}

func (r *Repo) Create(ctx context.Context, m memberrepo.Member) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[m.ID]; ok {
		return memberrepo.ErrAlreadyExists
	}
	if _, ok := r.bySubject[m.Subject]; ok {
		return memberrepo.ErrSubjectAlreadyBound
	}
	r.byID[m.ID] = m
	r.bySubject[m.Subject] = m.ID
	return nil
}

func (r *Repo) Update(ctx context.Context, m memberrepo.Member) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[m.ID]
	if !ok {
		return memberrepo.ErrNotFound
	}
	// Subject binding is immutable.
	m.Subject = cur.Subject
	r.byID[m.ID] = m
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return m, nil
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (memberrepo.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySubject[subject]
	if !ok {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return r.byID[id], nil
}
