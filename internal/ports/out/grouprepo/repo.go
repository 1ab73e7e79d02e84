package grouprepo

import (
	"context"
	"time"

	"github.com/Tominouu/covoit/internal/domain"
)

// Group is the persistence shape used by the group repository.
type Group struct {
	ID   domain.GroupID
	Name string

	// InviteCode is unique across all groups.
	InviteCode string

	OwnerMemberID domain.MemberID

	CreatedAt time.Time
}

// Membership links one member to one group. JoinedAt drives roster ordering.
type Membership struct {
	GroupID  domain.GroupID
	MemberID domain.MemberID

	JoinedAt time.Time
}

// Repository provides access to persisted groups and their rosters.
//
// Result ordering expectations:
// - ListMembers returns memberships in join order (JoinedAt ascending, MemberID as tie-break).
// - ListForMember returns groups by CreatedAt ascending, ID as tie-break.
type Repository interface {
	// Create persists the group together with the owner's membership in one
	// atomic write. A group never exists without its owner on the roster.
	Create(ctx context.Context, g Group, owner Membership) error

	GetByID(ctx context.Context, id domain.GroupID) (Group, error)
	GetByInviteCode(ctx context.Context, code string) (Group, error)

	AddMember(ctx context.Context, m Membership) error
	IsMember(ctx context.Context, groupID domain.GroupID, memberID domain.MemberID) (bool, error)
	ListMembers(ctx context.Context, groupID domain.GroupID) ([]Membership, error)

	ListForMember(ctx context.Context, memberID domain.MemberID) ([]Group, error)
}
