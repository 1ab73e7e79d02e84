package grouprepo

import (
	"context"
	"sort"
	"sync"

	"github.com/Tominouu/covoit/internal/domain"
	"github.com/Tominouu/covoit/internal/ports/out/grouprepo"
)

// Repo is an in-memory implementation of grouprepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu           sync.RWMutex
	byID         map[domain.GroupID]grouprepo.Group
	byInviteCode map[string]domain.GroupID
	memberships  map[domain.GroupID][]grouprepo.Membership
}

func NewRepo() *Repo {
	return &Repo{
		byID:         make(map[domain.GroupID]grouprepo.Group),
		byInviteCode: make(map[string]domain.GroupID),
		memberships:  make(map[domain.GroupID][]grouprepo.Membership),
	}
}

func (r *Repo) Create(ctx context.Context, g grouprepo.Group, owner grouprepo.Membership) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[g.ID]; ok {
		return grouprepo.ErrAlreadyExists
	}
	if _, ok := r.byInviteCode[g.InviteCode]; ok {
		return grouprepo.ErrInviteCodeTaken
	}
	r.byID[g.ID] = g
	r.byInviteCode[g.InviteCode] = g.ID
	r.memberships[g.ID] = []grouprepo.Membership{owner}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.GroupID) (grouprepo.Group, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byID[id]
	if !ok {
		return grouprepo.Group{}, grouprepo.ErrNotFound
	}
	return g, nil
}

func (r *Repo) GetByInviteCode(ctx context.Context, code string) (grouprepo.Group, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byInviteCode[code]
	if !ok {
		return grouprepo.Group{}, grouprepo.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *Repo) AddMember(ctx context.Context, m grouprepo.Membership) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[m.GroupID]; !ok {
		return grouprepo.ErrNotFound
	}
	for _, cur := range r.memberships[m.GroupID] {
		if cur.MemberID == m.MemberID {
			return grouprepo.ErrAlreadyMember
		}
	}
	r.memberships[m.GroupID] = append(r.memberships[m.GroupID], m)
	return nil
}

func (r *Repo) IsMember(ctx context.Context, groupID domain.GroupID, memberID domain.MemberID) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.memberships[groupID] {
		if m.MemberID == memberID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repo) ListMembers(ctx context.Context, groupID domain.GroupID) ([]grouprepo.Membership, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byID[groupID]; !ok {
		return nil, grouprepo.ErrNotFound
	}
	out := append([]grouprepo.Membership(nil), r.memberships[groupID]...)
	sortMemberships(out)
	return out, nil
}

func (r *Repo) ListForMember(ctx context.Context, memberID domain.MemberID) ([]grouprepo.Group, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]grouprepo.Group, 0)
	for gid, ms := range r.memberships {
		for _, m := range ms {
			if m.MemberID == memberID {
				out = append(out, r.byID[gid])
				break
			}
		}
	}
	sortGroups(out)
	return out, nil
}

func sortMemberships(ms []grouprepo.Membership) {
	sort.Slice(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.MemberID < b.MemberID
	})
}

func sortGroups(gs []grouprepo.Group) {
	sort.Slice(gs, func(i, j int) bool {
		a, b := gs[i], gs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
