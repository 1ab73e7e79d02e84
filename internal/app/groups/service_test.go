package groups_test

import (
	"context"
	"errors"
	"testing"
	"time"

	memclock "github.com/Tominouu/covoit/internal/adapters/memory/clock"
	memgrouprepo "github.com/Tominouu/covoit/internal/adapters/memory/grouprepo"
	memmemberrepo "github.com/Tominouu/covoit/internal/adapters/memory/memberrepo"
	"github.com/Tominouu/covoit/internal/app/groups"
	"github.com/Tominouu/covoit/internal/domain"
	portmemberrepo "github.com/Tominouu/covoit/internal/ports/out/memberrepo"
)

type fixture struct {
	svc     *groups.Service
	members *memmemberrepo.Repo
	clk     *memclock.ManualClock
}

func newFixture(t *testing.T, memberIDs ...domain.MemberID) fixture {
	t.Helper()
	membersRepo := memmemberrepo.NewRepo()
	clk := memclock.NewManualClock(time.Unix(5000, 0))
	for _, id := range memberIDs {
		now := clk.Now()
		if err := membersRepo.Create(context.Background(), portmemberrepo.Member{
			ID:          id,
			Subject:     domain.SubjectID("sub-" + string(id)),
			DisplayName: "Member " + string(id),
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			t.Fatalf("create member %s: %v", id, err)
		}
	}
	svc := groups.NewService(memgrouprepo.NewRepo(), membersRepo, clk, nil)
	return fixture{svc: svc, members: membersRepo, clk: clk}
}

func TestService_CreateGroup_OwnerBecomesFirstMember(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "m1")
	f.svc.SetNewGroupIDForTest(func() domain.GroupID { return "g1" })
	f.svc.SetNewInviteCodeForTest(func() string { return "CAFE1234" })

	d, err := f.svc.CreateGroup(context.Background(), "m1", groups.CreateGroupInput{Name: "  Campus   Run "})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if d.ID != "g1" || d.Name != "Campus Run" || d.InviteCode != "CAFE1234" {
		t.Fatalf("details=%+v", d)
	}
	if d.OwnerMemberID != "m1" || d.MemberCount != 1 || len(d.Members) != 1 || d.Members[0].ID != "m1" {
		t.Fatalf("roster=%+v", d)
	}
}

func TestService_CreateGroup_RetriesTakenInviteCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "m1")
	f.svc.SetNewInviteCodeForTest(func() string { return "DUP0DUP0" })
	if _, err := f.svc.CreateGroup(context.Background(), "m1", groups.CreateGroupInput{Name: "First"}); err != nil {
		t.Fatalf("first CreateGroup: %v", err)
	}

	// Second create first collides, then succeeds on the regenerated code.
	codes := []string{"DUP0DUP0", "FRESH123"}
	f.svc.SetNewInviteCodeForTest(func() string {
		c := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return c
	})
	d, err := f.svc.CreateGroup(context.Background(), "m1", groups.CreateGroupInput{Name: "Second"})
	if err != nil {
		t.Fatalf("second CreateGroup: %v", err)
	}
	if d.InviteCode != "FRESH123" {
		t.Fatalf("InviteCode=%q, want regenerated FRESH123", d.InviteCode)
	}
}

func TestService_CreateGroup_UnknownCaller(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.CreateGroup(context.Background(), "ghost", groups.CreateGroupInput{Name: "X"})
	var ae *groups.Error
	if !errors.As(err, &ae) || ae.Status != 422 {
		t.Fatalf("err=%v, want 422", err)
	}
}

func TestService_JoinGroup(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "m1", "m2")
	f.svc.SetNewInviteCodeForTest(func() string { return "JOINME00" })
	if _, err := f.svc.CreateGroup(context.Background(), "m1", groups.CreateGroupInput{Name: "Pool"}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	f.clk.Advance(time.Minute)
	d, err := f.svc.JoinGroup(context.Background(), "m2", groups.JoinGroupInput{InviteCode: " joinme00 "})
	if err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}
	if d.MemberCount != 2 || d.Members[0].ID != "m1" || d.Members[1].ID != "m2" {
		t.Fatalf("roster=%+v, want join order [m1 m2]", d.Members)
	}

	_, err = f.svc.JoinGroup(context.Background(), "m2", groups.JoinGroupInput{InviteCode: "JOINME00"})
	var ae *groups.Error
	if !errors.As(err, &ae) || ae.Status != 409 || ae.Code != "ALREADY_MEMBER" {
		t.Fatalf("err=%v, want 409 ALREADY_MEMBER", err)
	}

	_, err = f.svc.JoinGroup(context.Background(), "m2", groups.JoinGroupInput{InviteCode: "WRONG000"})
	if !errors.As(err, &ae) || ae.Status != 404 || ae.Code != "INVITE_NOT_FOUND" {
		t.Fatalf("err=%v, want 404 INVITE_NOT_FOUND", err)
	}
}

func TestService_GetGroupDetails_NonMemberGets404(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "m1", "m2")
	f.svc.SetNewGroupIDForTest(func() domain.GroupID { return "g1" })
	if _, err := f.svc.CreateGroup(context.Background(), "m1", groups.CreateGroupInput{Name: "Pool"}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	if _, err := f.svc.GetGroupDetails(context.Background(), "m1", "g1"); err != nil {
		t.Fatalf("member GetGroupDetails: %v", err)
	}

	_, err := f.svc.GetGroupDetails(context.Background(), "m2", "g1")
	var ae *groups.Error
	if !errors.As(err, &ae) || ae.Status != 404 || ae.Code != "GROUP_NOT_FOUND" {
		t.Fatalf("err=%v, want 404 GROUP_NOT_FOUND", err)
	}
}

func TestService_ListMyGroups(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "m1", "m2")
	f.svc.SetNewInviteCodeForTest(groups.NewInviteCode)

	var firstCode string
	f.clk.Set(time.Unix(6000, 0))
	d, err := f.svc.CreateGroup(context.Background(), "m1", groups.CreateGroupInput{Name: "One"})
	if err != nil {
		t.Fatalf("CreateGroup One: %v", err)
	}
	firstCode = d.InviteCode

	f.clk.Set(time.Unix(7000, 0))
	if _, err := f.svc.CreateGroup(context.Background(), "m1", groups.CreateGroupInput{Name: "Two"}); err != nil {
		t.Fatalf("CreateGroup Two: %v", err)
	}
	if _, err := f.svc.JoinGroup(context.Background(), "m2", groups.JoinGroupInput{InviteCode: firstCode}); err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}

	gs, err := f.svc.ListMyGroups(context.Background(), "m1")
	if err != nil {
		t.Fatalf("ListMyGroups(m1): %v", err)
	}
	if len(gs) != 2 || gs[0].Name != "One" || gs[1].Name != "Two" {
		t.Fatalf("groups=%+v, want [One Two] by creation order", gs)
	}
	if gs[0].MemberCount != 2 || gs[1].MemberCount != 1 {
		t.Fatalf("member counts=%d/%d, want 2/1", gs[0].MemberCount, gs[1].MemberCount)
	}

	gs, err = f.svc.ListMyGroups(context.Background(), "m2")
	if err != nil || len(gs) != 1 || gs[0].Name != "One" {
		t.Fatalf("ListMyGroups(m2)=%+v err=%v", gs, err)
	}
}
