package grouprepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	pgmemberrepo "github.com/Tominouu/covoit/internal/adapters/postgres/memberrepo"
	"github.com/Tominouu/covoit/internal/adapters/postgres/testutil"
	"github.com/Tominouu/covoit/internal/domain"
	"github.com/Tominouu/covoit/internal/ports/out/grouprepo"
	"github.com/Tominouu/covoit/internal/ports/out/memberrepo"
)

const testIssuer = "https://issuer.test/"

func seedMember(t *testing.T, repo *pgmemberrepo.Repo, subject string) domain.MemberID {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	m := memberrepo.Member{
		ID:          domain.MemberID(uuid.NewString()),
		Subject:     domain.SubjectID(subject),
		DisplayName: "Member " + subject,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(context.Background(), m); err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return m.ID
}

func TestContract_PostgresGroupRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)
	members := pgmemberrepo.NewRepo(pool, testIssuer)
	repo := NewRepo(pool)
	ctx := context.Background()

	owner := seedMember(t, members, "auth0|owner")
	joiner := seedMember(t, members, "auth0|joiner")

	now := time.Now().UTC().Truncate(time.Microsecond)
	g := grouprepo.Group{
		ID:            domain.GroupID(uuid.NewString()),
		Name:          "Morning Commute",
		InviteCode:    "AB12CD34",
		OwnerMemberID: owner,
		CreatedAt:     now,
	}
	if err := repo.Create(ctx, g, grouprepo.Membership{GroupID: g.ID, MemberID: owner, JoinedAt: now}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Create writes the owner membership in the same transaction.
	ok, err := repo.IsMember(ctx, g.ID, owner)
	if err != nil || !ok {
		t.Fatalf("IsMember(owner) = %v, %v; want true", ok, err)
	}

	clash := g
	clash.ID = domain.GroupID(uuid.NewString())
	if err := repo.Create(ctx, clash, grouprepo.Membership{GroupID: clash.ID, MemberID: owner, JoinedAt: now}); !errors.Is(err, grouprepo.ErrInviteCodeTaken) {
		t.Fatalf("Create duplicate code = %v, want ErrInviteCodeTaken", err)
	}
	// The rolled-back clash must not leave a membership row behind.
	gs, err := repo.ListForMember(ctx, owner)
	if err != nil {
		t.Fatalf("ListForMember: %v", err)
	}
	if len(gs) != 1 || gs[0].ID != g.ID {
		t.Fatalf("ListForMember(owner) = %+v, want only %s", gs, g.ID)
	}

	got, err := repo.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != g.Name || got.InviteCode != g.InviteCode || got.OwnerMemberID != owner {
		t.Fatalf("GetByID = %+v, want %+v", got, g)
	}

	byCode, err := repo.GetByInviteCode(ctx, "AB12CD34")
	if err != nil {
		t.Fatalf("GetByInviteCode: %v", err)
	}
	if byCode.ID != g.ID {
		t.Fatalf("GetByInviteCode ID = %s, want %s", byCode.ID, g.ID)
	}
	if _, err := repo.GetByInviteCode(ctx, "ZZZZZZZZ"); !errors.Is(err, grouprepo.ErrNotFound) {
		t.Fatalf("GetByInviteCode unknown = %v, want ErrNotFound", err)
	}

	if err := repo.AddMember(ctx, grouprepo.Membership{GroupID: g.ID, MemberID: joiner, JoinedAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("AddMember joiner: %v", err)
	}
	if err := repo.AddMember(ctx, grouprepo.Membership{GroupID: g.ID, MemberID: joiner, JoinedAt: now.Add(2 * time.Minute)}); !errors.Is(err, grouprepo.ErrAlreadyMember) {
		t.Fatalf("AddMember duplicate = %v, want ErrAlreadyMember", err)
	}

	ok, err = repo.IsMember(ctx, g.ID, joiner)
	if err != nil || !ok {
		t.Fatalf("IsMember(joiner) = %v, %v; want true", ok, err)
	}
	stranger := seedMember(t, members, "auth0|stranger")
	ok, err = repo.IsMember(ctx, g.ID, stranger)
	if err != nil || ok {
		t.Fatalf("IsMember(stranger) = %v, %v; want false", ok, err)
	}

	ms, err := repo.ListMembers(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(ms) != 2 || ms[0].MemberID != owner || ms[1].MemberID != joiner {
		t.Fatalf("ListMembers = %+v, want [owner joiner] in join order", ms)
	}

	gs, err = repo.ListForMember(ctx, joiner)
	if err != nil {
		t.Fatalf("ListForMember: %v", err)
	}
	if len(gs) != 1 || gs[0].ID != g.ID {
		t.Fatalf("ListForMember = %+v, want [%s]", gs, g.ID)
	}

	if _, err := repo.GetByID(ctx, domain.GroupID(uuid.NewString())); !errors.Is(err, grouprepo.ErrNotFound) {
		t.Fatalf("GetByID unknown = %v, want ErrNotFound", err)
	}
}
