package grouprepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Tominouu/covoit/internal/adapters/postgres"
	"github.com/Tominouu/covoit/internal/domain"
	"github.com/Tominouu/covoit/internal/ports/out/grouprepo"
)

// Repo is a Postgres implementation of grouprepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, g grouprepo.Group, owner grouprepo.Membership) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(g.ID))
	if err != nil {
		return fmt.Errorf("invalid group id: %w", err)
	}
	ownerID, err := uuid.Parse(string(g.OwnerMemberID))
	if err != nil {
		return fmt.Errorf("invalid owner member id: %w", err)
	}

	// Group row and owner membership commit together; a group must never be
	// visible without its owner on the roster.
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO groups (external_id, name, invite_code, owner_member_id, created_at)
			VALUES ($1, $2, $3, (SELECT id FROM members WHERE external_id = $4), $5)
		`,
			id,
			g.Name,
			g.InviteCode,
			ownerID,
			g.CreatedAt.UTC(),
		)
		if err != nil {
			return err
		}

		ct, err := tx.Exec(ctx, `
			INSERT INTO group_members (group_id, member_id, joined_at)
			SELECT g.id, m.id, $3
			FROM groups g, members m
			WHERE g.external_id = $1 AND m.external_id = $2
		`, id, ownerID, owner.JoinedAt.UTC())
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return grouprepo.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "groups_invite_code_unique":
				return grouprepo.ErrInviteCodeTaken
			case "groups_external_id_unique":
				return grouprepo.ErrAlreadyExists
			default:
				return err
			}
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.GroupID) (grouprepo.Group, error) {
	if r.pool == nil {
		return grouprepo.Group{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return grouprepo.Group{}, grouprepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, groupSelect+` WHERE g.external_id = $1`, uid)
	return scanGroup(row)
}

func (r *Repo) GetByInviteCode(ctx context.Context, code string) (grouprepo.Group, error) {
	if r.pool == nil {
		return grouprepo.Group{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, groupSelect+` WHERE g.invite_code = $1`, code)
	return scanGroup(row)
}

func (r *Repo) AddMember(ctx context.Context, m grouprepo.Membership) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	groupID, err := uuid.Parse(string(m.GroupID))
	if err != nil {
		return grouprepo.ErrNotFound
	}
	memberID, err := uuid.Parse(string(m.MemberID))
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}

	ct, err := r.pool.Exec(ctx, `
		INSERT INTO group_members (group_id, member_id, joined_at)
		SELECT g.id, m.id, $3
		FROM groups g, members m
		WHERE g.external_id = $1 AND m.external_id = $2
	`, groupID, memberID, m.JoinedAt.UTC())
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			if pe.ConstraintName == "group_members_pkey" {
				return grouprepo.ErrAlreadyMember
			}
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		// Either the group or the member does not exist.
		return grouprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) IsMember(ctx context.Context, groupID domain.GroupID, memberID domain.MemberID) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	gid, err := uuid.Parse(string(groupID))
	if err != nil {
		return false, nil
	}
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return false, nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM group_members gm
			JOIN groups g ON g.id = gm.group_id
			JOIN members m ON m.id = gm.member_id
			WHERE g.external_id = $1 AND m.external_id = $2
		)
	`, gid, mid).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repo) ListMembers(ctx context.Context, groupID domain.GroupID) ([]grouprepo.Membership, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	gid, err := uuid.Parse(string(groupID))
	if err != nil {
		return []grouprepo.Membership{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT g.external_id, m.external_id, gm.joined_at
		FROM group_members gm
		JOIN groups g ON g.id = gm.group_id
		JOIN members m ON m.id = gm.member_id
		WHERE g.external_id = $1
		ORDER BY gm.joined_at ASC, m.external_id ASC
	`, gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]grouprepo.Membership, 0)
	for rows.Next() {
		var (
			gExt     uuid.UUID
			mExt     uuid.UUID
			joinedAt time.Time
		)
		if err := rows.Scan(&gExt, &mExt, &joinedAt); err != nil {
			return nil, err
		}
		out = append(out, grouprepo.Membership{
			GroupID:  domain.GroupID(gExt.String()),
			MemberID: domain.MemberID(mExt.String()),
			JoinedAt: joinedAt.UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ListForMember(ctx context.Context, memberID domain.MemberID) ([]grouprepo.Group, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return []grouprepo.Group{}, nil
	}

	rows, err := r.pool.Query(ctx, groupSelect+`
		JOIN group_members gm ON gm.group_id = g.id
		JOIN members m ON m.id = gm.member_id
		WHERE m.external_id = $1
		ORDER BY g.created_at ASC, g.external_id ASC
	`, mid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]grouprepo.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// --- helpers ---

const groupSelect = `
	SELECT g.external_id, g.name, g.invite_code, o.external_id, g.created_at
	FROM groups g
	JOIN members o ON o.id = g.owner_member_id
`

func scanGroup(row pgx.Row) (grouprepo.Group, error) {
	var (
		externalID uuid.UUID
		name       string
		inviteCode string
		ownerExt   uuid.UUID
		createdAt  time.Time
	)
	if err := row.Scan(&externalID, &name, &inviteCode, &ownerExt, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return grouprepo.Group{}, grouprepo.ErrNotFound
		}
		return grouprepo.Group{}, err
	}
	return grouprepo.Group{
		ID:            domain.GroupID(externalID.String()),
		Name:          name,
		InviteCode:    inviteCode,
		OwnerMemberID: domain.MemberID(ownerExt.String()),
		CreatedAt:     createdAt.UTC(),
	}, nil
}
