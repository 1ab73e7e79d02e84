package rides

import (
	"time"

	"github.com/Tominouu/covoit/internal/domain"
	"github.com/Tominouu/covoit/internal/fairness"
)

type CreateRideInput struct {
	Date        time.Time
	Origin      string
	Destination string

	ParticipantIDs []domain.MemberID
	DriverID       domain.MemberID
}

type SuggestDriverInput struct {
	// PresentMemberIDs is the set of members attending the ride being
	// scheduled. Empty means "everyone": the full roster in join order.
	PresentMemberIDs []domain.MemberID

	// ReferenceTime overrides "now" for the decay computation. Nil means the
	// service clock; tests and replays pass an explicit instant.
	ReferenceTime *time.Time
}

// DriverSuggestion is the engine's decision plus the ranking behind it, so
// callers can show members why someone is up next.
type DriverSuggestion struct {
	GroupID  domain.GroupID
	DriverID domain.MemberID

	ReferenceTime time.Time
	Standings     []fairness.Standing
}
