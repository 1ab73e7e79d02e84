package members_test

import (
	"context"
	"errors"
	"testing"
	"time"

	memclock "github.com/Tominouu/covoit/internal/adapters/memory/clock"
	memmemberrepo "github.com/Tominouu/covoit/internal/adapters/memory/memberrepo"
	"github.com/Tominouu/covoit/internal/app/members"
	"github.com/Tominouu/covoit/internal/domain"
)

func newService() (*members.Service, *memclock.ManualClock) {
	clk := memclock.NewManualClock(time.Unix(1000, 0))
	svc := members.NewService(memmemberrepo.NewRepo(), clk)
	return svc, clk
}

func TestService_CreateMyMember_NormalizesDisplayName(t *testing.T) {
	t.Parallel()

	svc, clk := newService()
	svc.SetNewMemberIDForTest(func() domain.MemberID { return "m1" })

	m, err := svc.CreateMyMember(context.Background(), "sub-1", members.CreateMyMemberInput{DisplayName: "  Jean   Dupont "})
	if err != nil {
		t.Fatalf("CreateMyMember: %v", err)
	}
	if m.ID != "m1" || m.DisplayName != "Jean Dupont" {
		t.Fatalf("member=%+v", m)
	}
	if !m.CreatedAt.Equal(clk.Now()) {
		t.Fatalf("CreatedAt=%v, want %v", m.CreatedAt, clk.Now())
	}
}

func TestService_CreateMyMember_RejectsEmptyName(t *testing.T) {
	t.Parallel()

	svc, _ := newService()
	_, err := svc.CreateMyMember(context.Background(), "sub-1", members.CreateMyMemberInput{DisplayName: "   "})
	var ae *members.Error
	if !errors.As(err, &ae) || ae.Status != 422 {
		t.Fatalf("err=%v, want 422 app error", err)
	}
}

func TestService_CreateMyMember_RejectsRebind(t *testing.T) {
	t.Parallel()

	svc, _ := newService()
	if _, err := svc.CreateMyMember(context.Background(), "sub-1", members.CreateMyMemberInput{DisplayName: "A"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateMyMember(context.Background(), "sub-1", members.CreateMyMemberInput{DisplayName: "B"})
	var ae *members.Error
	if !errors.As(err, &ae) || ae.Status != 409 || ae.Code != "MEMBER_ALREADY_EXISTS" {
		t.Fatalf("err=%v, want 409 MEMBER_ALREADY_EXISTS", err)
	}
}

func TestService_GetMyMemberProfile_NotProvisioned(t *testing.T) {
	t.Parallel()

	svc, _ := newService()
	_, err := svc.GetMyMemberProfile(context.Background(), "unknown")
	var ae *members.Error
	if !errors.As(err, &ae) || ae.Status != 404 || ae.Code != "MEMBER_NOT_PROVISIONED" {
		t.Fatalf("err=%v, want 404 MEMBER_NOT_PROVISIONED", err)
	}
}

func TestService_UpdateMyMemberProfile(t *testing.T) {
	t.Parallel()

	svc, clk := newService()
	if _, err := svc.CreateMyMember(context.Background(), "sub-1", members.CreateMyMemberInput{DisplayName: "Jean"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	clk.Advance(time.Hour)
	m, err := svc.UpdateMyMemberProfile(context.Background(), "sub-1", members.UpdateMyMemberProfileInput{DisplayName: members.Some("  Jean  D ")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if m.DisplayName != "Jean D" {
		t.Fatalf("DisplayName=%q", m.DisplayName)
	}
	if !m.UpdatedAt.Equal(clk.Now()) {
		t.Fatalf("UpdatedAt=%v, want %v", m.UpdatedAt, clk.Now())
	}

	_, err = svc.UpdateMyMemberProfile(context.Background(), "sub-1", members.UpdateMyMemberProfileInput{DisplayName: members.Null[string]()})
	var ae *members.Error
	if !errors.As(err, &ae) || ae.Status != 422 {
		t.Fatalf("err=%v, want 422 for null displayName", err)
	}
}
