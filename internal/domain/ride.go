package domain

import "time"

// Ride is an immutable historical fact: on Date, DriverID drove ParticipantIDs
// from Origin to Destination for one group. Rides are never edited or deleted.
//
// Date carries day granularity only; it is normalized to UTC midnight at the
// edges and no time-of-day semantics are attached to it.
type Ride struct {
	ID      RideID
	GroupID GroupID

	Date        time.Time
	Origin      string
	Destination string

	// ParticipantIDs is non-empty and contains DriverID.
	ParticipantIDs []MemberID
	DriverID       MemberID

	CreatedAt time.Time
}
