package domain

import "time"

// Member is the domain representation of a member profile.
// Equality is by ID; only the display name may change after creation.
type Member struct {
	ID      MemberID
	Subject SubjectID

	DisplayName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemberSummary is the roster entry exposed to other group members.
type MemberSummary struct {
	ID          MemberID
	DisplayName string
}
