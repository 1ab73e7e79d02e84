package riderepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	pggrouprepo "github.com/Tominouu/covoit/internal/adapters/postgres/grouprepo"
	pgmemberrepo "github.com/Tominouu/covoit/internal/adapters/postgres/memberrepo"
	"github.com/Tominouu/covoit/internal/adapters/postgres/testutil"
	"github.com/Tominouu/covoit/internal/domain"
	"github.com/Tominouu/covoit/internal/ports/out/grouprepo"
	"github.com/Tominouu/covoit/internal/ports/out/memberrepo"
	"github.com/Tominouu/covoit/internal/ports/out/riderepo"
)

const testIssuer = "https://issuer.test/"

type fixture struct {
	repo    *Repo
	groupID domain.GroupID
	alice   domain.MemberID
	bob     domain.MemberID
}

func setup(t *testing.T) (context.Context, fixture) {
	t.Helper()
	pool := testutil.OpenMigratedPool(t)
	ctx := context.Background()

	members := pgmemberrepo.NewRepo(pool, testIssuer)
	now := time.Now().UTC().Truncate(time.Microsecond)
	seed := func(subject string) domain.MemberID {
		m := memberrepo.Member{
			ID:          domain.MemberID(uuid.NewString()),
			Subject:     domain.SubjectID(subject),
			DisplayName: "Member " + subject,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := members.Create(ctx, m); err != nil {
			t.Fatalf("seed member: %v", err)
		}
		return m.ID
	}

	f := fixture{
		repo:  NewRepo(pool),
		alice: seed("auth0|alice"),
		bob:   seed("auth0|bob"),
	}

	groups := pggrouprepo.NewRepo(pool)
	f.groupID = domain.GroupID(uuid.NewString())
	if err := groups.Create(ctx, grouprepo.Group{
		ID:            f.groupID,
		Name:          "Morning Commute",
		InviteCode:    "AB12CD34",
		OwnerMemberID: f.alice,
		CreatedAt:     now,
	}, grouprepo.Membership{GroupID: f.groupID, MemberID: f.alice, JoinedAt: now}); err != nil {
		t.Fatalf("seed group: %v", err)
	}
	if err := groups.AddMember(ctx, grouprepo.Membership{GroupID: f.groupID, MemberID: f.bob, JoinedAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	return ctx, f
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestContract_PostgresRideRepo(t *testing.T) {
	ctx, f := setup(t)

	r1 := riderepo.Ride{
		ID:             domain.RideID(uuid.NewString()),
		GroupID:        f.groupID,
		Date:           day(2024, 5, 14),
		Origin:         "Lyon",
		Destination:    "Grenoble",
		ParticipantIDs: []domain.MemberID{f.bob, f.alice},
		DriverID:       f.alice,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := f.repo.Create(ctx, r1); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := r1
	if err := f.repo.Create(ctx, dup); !errors.Is(err, riderepo.ErrAlreadyExists) {
		t.Fatalf("Create duplicate = %v, want ErrAlreadyExists", err)
	}

	got, err := f.repo.GetByID(ctx, r1.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Date.Equal(r1.Date) || got.Origin != "Lyon" || got.DriverID != f.alice {
		t.Fatalf("GetByID = %+v, want %+v", got, r1)
	}
	// Participant order as supplied at creation.
	if len(got.ParticipantIDs) != 2 || got.ParticipantIDs[0] != f.bob || got.ParticipantIDs[1] != f.alice {
		t.Fatalf("ParticipantIDs = %v, want [bob alice]", got.ParticipantIDs)
	}

	r2 := riderepo.Ride{
		ID:             domain.RideID(uuid.NewString()),
		GroupID:        f.groupID,
		Date:           day(2024, 5, 10),
		Origin:         "Lyon",
		Destination:    "Annecy",
		ParticipantIDs: []domain.MemberID{f.alice, f.bob},
		DriverID:       f.bob,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := f.repo.Create(ctx, r2); err != nil {
		t.Fatalf("Create second: %v", err)
	}

	rs, err := f.repo.ListByGroup(ctx, f.groupID)
	if err != nil {
		t.Fatalf("ListByGroup: %v", err)
	}
	if len(rs) != 2 || rs[0].ID != r2.ID || rs[1].ID != r1.ID {
		t.Fatalf("ListByGroup order = %v, want date ascending [r2 r1]", rs)
	}

	if _, err := f.repo.GetByID(ctx, domain.RideID(uuid.NewString())); !errors.Is(err, riderepo.ErrNotFound) {
		t.Fatalf("GetByID unknown = %v, want ErrNotFound", err)
	}
	empty, err := f.repo.ListByGroup(ctx, domain.GroupID(uuid.NewString()))
	if err != nil || len(empty) != 0 {
		t.Fatalf("ListByGroup unknown = %v, %v; want empty", empty, err)
	}
}
