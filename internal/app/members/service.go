package members

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Tominouu/covoit/internal/domain"
	clockport "github.com/Tominouu/covoit/internal/ports/out/clock"
	"github.com/Tominouu/covoit/internal/ports/out/memberrepo"
)

type Service struct {
	repo memberrepo.Repository
	clk  clockport.Clock

	newMemberID func() domain.MemberID
}

func NewService(repo memberrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		newMemberID: func() domain.MemberID {
			return domain.MemberID(uuid.NewString())
		},
	}
}

// SetNewMemberIDForTest overrides member ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewMemberIDForTest(fn func() domain.MemberID) {
	if fn != nil {
		s.newMemberID = fn
	}
}

func (s *Service) GetMyMemberProfile(ctx context.Context, subject domain.SubjectID) (domain.Member, error) {
	m, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, &Error{
				Status:  404,
				Code:    "MEMBER_NOT_PROVISIONED",
				Message: "No member profile exists for the authenticated subject.",
			}
		}
		return domain.Member{}, err
	}
	return toDomain(m), nil
}

func (s *Service) CreateMyMember(ctx context.Context, subject domain.SubjectID, in CreateMyMemberInput) (domain.Member, error) {
	// Ensure no existing binding.
	if _, err := s.repo.GetBySubject(ctx, subject); err == nil {
		return domain.Member{}, &Error{
			Status:  409,
			Code:    "MEMBER_ALREADY_EXISTS",
			Message: "A member profile already exists for the authenticated subject.",
		}
	} else if err != nil && !errors.Is(err, memberrepo.ErrNotFound) {
		return domain.Member{}, err
	}

	displayName := domain.NormalizeHumanName(in.DisplayName)
	if displayName == "" {
		return domain.Member{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid displayName",
			Details: map[string]any{"displayName": "must be non-empty"},
		}
	}

	now := s.clk.Now()
	m := memberrepo.Member{
		ID:          s.newMemberID(),
		Subject:     subject,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, memberrepo.ErrSubjectAlreadyBound) {
			return domain.Member{}, &Error{
				Status:  409,
				Code:    "MEMBER_ALREADY_EXISTS",
				Message: "A member profile already exists for the authenticated subject.",
			}
		}
		return domain.Member{}, err
	}
	return toDomain(m), nil
}

func (s *Service) UpdateMyMemberProfile(ctx context.Context, subject domain.SubjectID, in UpdateMyMemberProfileInput) (domain.Member, error) {
	m, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, &Error{
				Status:  404,
				Code:    "MEMBER_NOT_PROVISIONED",
				Message: "No member profile exists for the authenticated subject.",
			}
		}
		return domain.Member{}, err
	}

	if in.DisplayName.IsSpecified() {
		if in.DisplayName.IsNull() {
			return domain.Member{}, &Error{
				Status:  422,
				Code:    "VALIDATION_ERROR",
				Message: "invalid displayName",
				Details: map[string]any{"displayName": "cannot be null"},
			}
		}
		displayName := domain.NormalizeHumanName(in.DisplayName.Value())
		if displayName == "" {
			return domain.Member{}, &Error{
				Status:  422,
				Code:    "VALIDATION_ERROR",
				Message: "invalid displayName",
				Details: map[string]any{"displayName": "must be non-empty"},
			}
		}
		m.DisplayName = displayName
	}

	m.UpdatedAt = s.clk.Now()
	if err := s.repo.Update(ctx, m); err != nil {
		return domain.Member{}, err
	}
	return toDomain(m), nil
}

func toDomain(m memberrepo.Member) domain.Member {
	return domain.Member{
		ID:          m.ID,
		Subject:     m.Subject,
		DisplayName: m.DisplayName,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
