package groups

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Tominouu/covoit/internal/domain"
	clockport "github.com/Tominouu/covoit/internal/ports/out/clock"
	"github.com/Tominouu/covoit/internal/ports/out/events"
	"github.com/Tominouu/covoit/internal/ports/out/grouprepo"
	"github.com/Tominouu/covoit/internal/ports/out/memberrepo"
)

// inviteCodeAttempts bounds regeneration when a generated code collides.
const inviteCodeAttempts = 5

type Service struct {
	groups  grouprepo.Repository
	members memberrepo.Repository
	clk     clockport.Clock
	pub     events.Publisher

	newGroupID    func() domain.GroupID
	newInviteCode func() string
}

func NewService(groupsRepo grouprepo.Repository, membersRepo memberrepo.Repository, clk clockport.Clock, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		groups:  groupsRepo,
		members: membersRepo,
		clk:     clk,
		pub:     pub,
		newGroupID: func() domain.GroupID {
			return domain.GroupID(uuid.NewString())
		},
		newInviteCode: NewInviteCode,
	}
}

// NewInviteCode derives a short join token from a fresh UUID.
// 8 hex characters is plenty for club-sized deployments; collisions are
// handled by bounded regeneration at create time.
func NewInviteCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:8])
}

// SetNewGroupIDForTest overrides group ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewGroupIDForTest(fn func() domain.GroupID) {
	if fn != nil {
		s.newGroupID = fn
	}
}

// SetNewInviteCodeForTest overrides invite code generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewInviteCodeForTest(fn func() string) {
	if fn != nil {
		s.newInviteCode = fn
	}
}

func (s *Service) CreateGroup(ctx context.Context, caller domain.MemberID, in CreateGroupInput) (domain.GroupDetails, error) {
	if _, err := s.members.GetByID(ctx, caller); err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.GroupDetails{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid caller", Details: map[string]any{"memberId": "caller does not exist"}}
		}
		return domain.GroupDetails{}, err
	}

	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return domain.GroupDetails{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid name", Details: map[string]any{"name": "must be non-empty"}}
	}

	now := s.clk.Now()
	g := grouprepo.Group{
		ID:            s.newGroupID(),
		Name:          name,
		OwnerMemberID: caller,
		CreatedAt:     now,
	}

	ownership := grouprepo.Membership{GroupID: g.ID, MemberID: caller, JoinedAt: now}

	var created bool
	for i := 0; i < inviteCodeAttempts; i++ {
		g.InviteCode = s.newInviteCode()
		err := s.groups.Create(ctx, g, ownership)
		if err == nil {
			created = true
			break
		}
		if errors.Is(err, grouprepo.ErrInviteCodeTaken) {
			continue
		}
		if errors.Is(err, grouprepo.ErrAlreadyExists) {
			return domain.GroupDetails{}, &Error{Status: 409, Code: "GROUP_ID_CONFLICT", Message: "group id conflict"}
		}
		return domain.GroupDetails{}, err
	}
	if !created {
		return domain.GroupDetails{}, &Error{Status: 409, Code: "INVITE_CODE_EXHAUSTED", Message: "could not allocate a unique invite code"}
	}

	s.pub.Publish(ctx, events.Event{
		Type:    events.TypeGroupCreated,
		GroupID: g.ID,
		Payload: map[string]any{"name": g.Name},
		At:      now,
	})

	return s.groupDetails(ctx, g)
}

func (s *Service) JoinGroup(ctx context.Context, caller domain.MemberID, in JoinGroupInput) (domain.GroupDetails, error) {
	code := strings.ToUpper(strings.TrimSpace(in.InviteCode))
	if code == "" {
		return domain.GroupDetails{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid inviteCode", Details: map[string]any{"inviteCode": "must be non-empty"}}
	}

	g, err := s.groups.GetByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return domain.GroupDetails{}, &Error{Status: 404, Code: "INVITE_NOT_FOUND", Message: "no group for this invite code"}
		}
		return domain.GroupDetails{}, err
	}

	now := s.clk.Now()
	if err := s.groups.AddMember(ctx, grouprepo.Membership{GroupID: g.ID, MemberID: caller, JoinedAt: now}); err != nil {
		if errors.Is(err, grouprepo.ErrAlreadyMember) {
			return domain.GroupDetails{}, &Error{Status: 409, Code: "ALREADY_MEMBER", Message: "caller is already a member of this group"}
		}
		return domain.GroupDetails{}, err
	}

	s.pub.Publish(ctx, events.Event{
		Type:    events.TypeMemberJoined,
		GroupID: g.ID,
		Payload: map[string]any{"memberId": string(caller)},
		At:      now,
	})

	return s.groupDetails(ctx, g)
}

func (s *Service) GetGroupDetails(ctx context.Context, caller domain.MemberID, groupID domain.GroupID) (domain.GroupDetails, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return domain.GroupDetails{}, &Error{Status: 404, Code: "GROUP_NOT_FOUND", Message: "group not found"}
		}
		return domain.GroupDetails{}, err
	}

	// Non-members get 404, not 403: group existence is not disclosed.
	ok, err := s.groups.IsMember(ctx, groupID, caller)
	if err != nil {
		return domain.GroupDetails{}, err
	}
	if !ok {
		return domain.GroupDetails{}, &Error{Status: 404, Code: "GROUP_NOT_FOUND", Message: "group not found"}
	}

	return s.groupDetails(ctx, g)
}

func (s *Service) ListMyGroups(ctx context.Context, caller domain.MemberID) ([]domain.GroupSummary, error) {
	gs, err := s.groups.ListForMember(ctx, caller)
	if err != nil {
		return nil, err
	}
	out := make([]domain.GroupSummary, 0, len(gs))
	for _, g := range gs {
		ms, err := s.groups.ListMembers(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.GroupSummary{
			ID:          g.ID,
			Name:        g.Name,
			InviteCode:  g.InviteCode,
			MemberCount: len(ms),
		})
	}
	return out, nil
}

func (s *Service) groupDetails(ctx context.Context, g grouprepo.Group) (domain.GroupDetails, error) {
	ms, err := s.groups.ListMembers(ctx, g.ID)
	if err != nil {
		return domain.GroupDetails{}, err
	}

	roster := make([]domain.MemberSummary, 0, len(ms))
	for _, m := range ms {
		rec, err := s.members.GetByID(ctx, m.MemberID)
		if err != nil {
			return domain.GroupDetails{}, err
		}
		roster = append(roster, domain.MemberSummary{ID: rec.ID, DisplayName: rec.DisplayName})
	}

	return domain.GroupDetails{
		GroupSummary: domain.GroupSummary{
			ID:          g.ID,
			Name:        g.Name,
			InviteCode:  g.InviteCode,
			MemberCount: len(roster),
		},
		OwnerMemberID: g.OwnerMemberID,
		Members:       roster,
		CreatedAt:     g.CreatedAt,
	}, nil
}
