package riderepo

import (
	"context"
	"sort"
	"sync"

	"github.com/Tominouu/covoit/internal/domain"
	"github.com/Tominouu/covoit/internal/ports/out/riderepo"
)

// Repo is an in-memory implementation of riderepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.RideID]riderepo.Ride
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.RideID]riderepo.Ride),
	}
}

func (r *Repo) Create(ctx context.Context, ride riderepo.Ride) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[ride.ID]; ok {
		return riderepo.ErrAlreadyExists
	}
	r.byID[ride.ID] = cloneRide(ride)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.RideID) (riderepo.Ride, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	ride, ok := r.byID[id]
	if !ok {
		return riderepo.Ride{}, riderepo.ErrNotFound
	}
	return cloneRide(ride), nil
}

func (r *Repo) ListByGroup(ctx context.Context, groupID domain.GroupID) ([]riderepo.Ride, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]riderepo.Ride, 0)
	for _, ride := range r.byID {
		if ride.GroupID == groupID {
			out = append(out, cloneRide(ride))
		}
	}
	sortRides(out)
	return out, nil
}

func cloneRide(r riderepo.Ride) riderepo.Ride {
	cp := r
	if r.ParticipantIDs != nil {
		cp.ParticipantIDs = append([]domain.MemberID(nil), r.ParticipantIDs...)
	}
	return cp
}

func sortRides(rs []riderepo.Ride) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
