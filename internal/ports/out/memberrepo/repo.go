package memberrepo

import (
	"context"
	"time"

	"github.com/Tominouu/covoit/internal/domain"
)

// Member is the persistence shape used by the member repository.
// It is an internal record, not an HTTP DTO.
type Member struct {
	ID      domain.MemberID
	Subject domain.SubjectID

	// DisplayName is the member's preferred display name.
	DisplayName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted members.
type Repository interface {
	Create(ctx context.Context, m Member) error
	Update(ctx context.Context, m Member) error

	GetByID(ctx context.Context, id domain.MemberID) (Member, error)
	GetBySubject(ctx context.Context, subject domain.SubjectID) (Member, error)
}
