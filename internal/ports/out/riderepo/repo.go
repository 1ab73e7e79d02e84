package riderepo

import (
	"context"
	"time"

	"github.com/Tominouu/covoit/internal/domain"
)

// Ride is the persistence shape used by the ride repository. Rides are
// immutable historical facts: the port deliberately has no update or delete.
type Ride struct {
	ID      domain.RideID
	GroupID domain.GroupID

	// Date is the calendar day of the ride, normalized to UTC midnight.
	Date        time.Time
	Origin      string
	Destination string

	ParticipantIDs []domain.MemberID
	DriverID       domain.MemberID

	CreatedAt time.Time
}

// Repository provides access to persisted rides.
//
// Result ordering expectations:
// - ListByGroup returns rides by Date ascending, then CreatedAt, then ID, so
//   history snapshots handed to callers are deterministic.
type Repository interface {
	Create(ctx context.Context, r Ride) error

	GetByID(ctx context.Context, id domain.RideID) (Ride, error)
	ListByGroup(ctx context.Context, groupID domain.GroupID) ([]Ride, error)
}
