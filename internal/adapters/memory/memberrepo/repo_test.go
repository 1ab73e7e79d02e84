package memberrepo

import (
	"context"
	"testing"
	"time"

	"github.com/Tominouu/covoit/internal/domain"
	"github.com/Tominouu/covoit/internal/ports/out/memberrepo"
)

func TestRepo_CreateAndGet(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	now := time.Unix(100, 0).UTC()

	m := memberrepo.Member{
		ID:          domain.MemberID("m1"),
		Subject:     domain.SubjectID("sub-1"),
		DisplayName: "Alice Martin",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.Create(context.Background(), m); err != nil {
		t.Fatalf("Create() err=%v", err)
	}

	gotByID, err := r.GetByID(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("GetByID() err=%v", err)
	}
	if gotByID.ID != m.ID || gotByID.Subject != m.Subject || gotByID.DisplayName != m.DisplayName {
		t.Fatalf("GetByID()=%+v, want %+v", gotByID, m)
	}

	gotBySub, err := r.GetBySubject(context.Background(), m.Subject)
	if err != nil {
		t.Fatalf("GetBySubject() err=%v", err)
	}
	if gotBySub.ID != m.ID {
		t.Fatalf("GetBySubject().ID=%q, want %q", gotBySub.ID, m.ID)
	}
}

func TestRepo_CreateRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	m1 := memberrepo.Member{ID: "m1", Subject: "sub-1", DisplayName: "A"}
	m2 := memberrepo.Member{ID: "m1", Subject: "sub-2", DisplayName: "B"}

	if err := r.Create(context.Background(), m1); err != nil {
		t.Fatalf("Create(m1) err=%v", err)
	}
	if err := r.Create(context.Background(), m2); err != memberrepo.ErrAlreadyExists {
		t.Fatalf("Create(m2) err=%v, want %v", err, memberrepo.ErrAlreadyExists)
	}
}

func TestRepo_CreateRejectsDuplicateSubject(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	m1 := memberrepo.Member{ID: "m1", Subject: "sub-1", DisplayName: "A"}
	m2 := memberrepo.Member{ID: "m2", Subject: "sub-1", DisplayName: "B"}

	if err := r.Create(context.Background(), m1); err != nil {
		t.Fatalf("Create(m1) err=%v", err)
	}
	if err := r.Create(context.Background(), m2); err != memberrepo.ErrSubjectAlreadyBound {
		t.Fatalf("Create(m2) err=%v, want %v", err, memberrepo.ErrSubjectAlreadyBound)
	}
}

func TestRepo_UpdateRequiresExistingAndKeepsSubject(t *testing.T) {
	t.Parallel()

	r := NewRepo()

	m := memberrepo.Member{ID: "m1", Subject: "sub-1", DisplayName: "Alice"}
	if err := r.Update(context.Background(), m); err != memberrepo.ErrNotFound {
		t.Fatalf("Update(nonexistent) err=%v, want %v", err, memberrepo.ErrNotFound)
	}

	if err := r.Create(context.Background(), m); err != nil {
		t.Fatalf("Create() err=%v", err)
	}

	m.DisplayName = "Alice M"
	m.Subject = "sub-other"
	if err := r.Update(context.Background(), m); err != nil {
		t.Fatalf("Update() err=%v", err)
	}

	got, err := r.GetByID(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetByID() err=%v", err)
	}
	if got.DisplayName != "Alice M" {
		t.Fatalf("DisplayName=%q, want %q", got.DisplayName, "Alice M")
	}
	if got.Subject != "sub-1" {
		t.Fatalf("Subject=%q, want immutable %q", got.Subject, "sub-1")
	}
}
