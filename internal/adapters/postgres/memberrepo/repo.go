package memberrepo

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
	"github.com/Tominouu/covoit/internal/ports/out/memberrepo"
)

// Repo is a Postgres implementation of memberrepo.Repository.
//
// Subjects are stored as (issuer, sub) pairs so tokens from different issuers
// can never collide on the same sub.
type Repo struct {
	pool   *pgxpool.Pool
	issuer string
}

func NewRepo(pool *pgxpool.Pool, jwtIssuer string) *Repo {
	return &Repo{pool: pool, issuer: jwtIssuer}
}

func (r *Repo) Create(ctx context.Context, m memberrepo.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO members (
			external_id,
			subject_iss,
			subject_sub,
			display_name,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`,
		id,
		r.issuer,
		string(m.Subject),
		m.DisplayName,
		m.CreatedAt.UTC(),
		m.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "members_subject_unique":
				return memberrepo.ErrSubjectAlreadyBound
			case "members_external_id_unique":
				return memberrepo.ErrAlreadyExists
			default:
				return err
			}
		}
		return err
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, m memberrepo.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		existing, err := getByExternalID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing.Subject != m.Subject {
			return memberrepo.ErrSubjectAlreadyBound
		}

		ct, err := tx.Exec(ctx, `
			UPDATE members
			SET display_name = $2,
			    updated_at = $3
			WHERE external_id = $1
		`,
			id,
			m.DisplayName,
			m.UpdatedAt.UTC(),
		)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return memberrepo.ErrNotFound
		}
		return nil
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	if r.pool == nil {
		return memberrepo.Member{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return getByExternalID(ctx, r.pool, uid)
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (memberrepo.Member, error) {
	if r.pool == nil {
		return memberrepo.Member{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT external_id, subject_sub, display_name, created_at, updated_at
		FROM members
		WHERE subject_iss = $1 AND subject_sub = $2
	`, r.issuer, string(subject))
	return scanMember(row)
}

// --- helpers ---

func getByExternalID(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, id uuid.UUID) (memberrepo.Member, error) {
	row := q.QueryRow(ctx, `
		SELECT external_id, subject_sub, display_name, created_at, updated_at
		FROM members
		WHERE external_id = $1
	`, id)
	return scanMember(row)
}

func scanMember(row pgx.Row) (memberrepo.Member, error) {
	var (
		externalID  uuid.UUID
		sub         string
		displayName string
		createdAt   time.Time
		updatedAt   time.Time
	)
	if err := row.Scan(&externalID, &sub, &displayName, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return memberrepo.Member{}, memberrepo.ErrNotFound
		}
		return memberrepo.Member{}, err
	}
	return memberrepo.Member{
		ID:          domain.MemberID(externalID.String()),
		Subject:     domain.SubjectID(sub),
		DisplayName: displayName,
		CreatedAt:   createdAt.UTC(),
		UpdatedAt:   updatedAt.UTC(),
	}, nil
}
