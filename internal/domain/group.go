package domain

import "time"

// Group is a carpool group: a named roster of members that shares a ride history.
type Group struct {
	ID   GroupID
	Name string

	// InviteCode is the short token members use to join the group.
	InviteCode string

	OwnerMemberID MemberID

	CreatedAt time.Time
}

// GroupSummary is the list read model for a member's groups.
type GroupSummary struct {
	ID         GroupID
	Name       string
	InviteCode string

	MemberCount int
}

// GroupDetails is the full read model: the group plus its roster in join order.
type GroupDetails struct {
	GroupSummary

	OwnerMemberID MemberID
	Members       []MemberSummary

	CreatedAt time.Time
}
