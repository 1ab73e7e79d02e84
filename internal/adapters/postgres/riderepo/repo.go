package riderepo

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
	"github.com/Tominouu/covoit/internal/ports/out/riderepo"
)

// Repo is a Postgres implementation of riderepo.Repository. The ride row and
// its participant rows are written in one transaction so a ride can never be
// observed without its roster.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, ride riderepo.Ride) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(ride.ID))
	if err != nil {
		return fmt.Errorf("invalid ride id: %w", err)
	}
	groupID, err := uuid.Parse(string(ride.GroupID))
	if err != nil {
		return fmt.Errorf("invalid group id: %w", err)
	}
	driverID, err := uuid.Parse(string(ride.DriverID))
	if err != nil {
		return fmt.Errorf("invalid driver id: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO rides (
				external_id,
				group_id,
				ride_date,
				origin,
				destination,
				driver_member_id,
				created_at
			) VALUES (
				$1,
				(SELECT id FROM groups WHERE external_id = $2),
				$3, $4, $5,
				(SELECT id FROM members WHERE external_id = $6),
				$7
			)
		`,
			id,
			groupID,
			ride.Date.UTC(),
			ride.Origin,
			ride.Destination,
			driverID,
			ride.CreatedAt.UTC(),
		)
		if err != nil {
			if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
				if pe.ConstraintName == "rides_external_id_unique" {
					return riderepo.ErrAlreadyExists
				}
			}
			return err
		}

		for i, pid := range ride.ParticipantIDs {
			participantID, err := uuid.Parse(string(pid))
			if err != nil {
				return fmt.Errorf("invalid participant id: %w", err)
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO ride_participants (ride_id, member_id, position)
				VALUES (
					(SELECT id FROM rides WHERE external_id = $1),
					(SELECT id FROM members WHERE external_id = $2),
					$3
				)
			`, id, participantID, i)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.RideID) (riderepo.Ride, error) {
	if r.pool == nil {
		return riderepo.Ride{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return riderepo.Ride{}, riderepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, rideSelect+` WHERE r.external_id = $1`, uid)
	ride, err := scanRide(row)
	if err != nil {
		return riderepo.Ride{}, err
	}
	rs := []riderepo.Ride{ride}
	if err := r.loadParticipants(ctx, rs); err != nil {
		return riderepo.Ride{}, err
	}
	return rs[0], nil
}

func (r *Repo) ListByGroup(ctx context.Context, groupID domain.GroupID) ([]riderepo.Ride, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	gid, err := uuid.Parse(string(groupID))
	if err != nil {
		return []riderepo.Ride{}, nil
	}

	rows, err := r.pool.Query(ctx, rideSelect+`
		WHERE g.external_id = $1
		ORDER BY r.ride_date ASC, r.created_at ASC, r.external_id ASC
	`, gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]riderepo.Ride, 0)
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadParticipants(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- helpers ---

const rideSelect = `
	SELECT r.external_id, g.external_id, r.ride_date, r.origin, r.destination, d.external_id, r.created_at
	FROM rides r
	JOIN groups g ON g.id = r.group_id
	JOIN members d ON d.id = r.driver_member_id
`

func scanRide(row pgx.Row) (riderepo.Ride, error) {
	var (
		externalID  uuid.UUID
		groupExt    uuid.UUID
		rideDate    time.Time
		origin      string
		destination string
		driverExt   uuid.UUID
		createdAt   time.Time
	)
	if err := row.Scan(&externalID, &groupExt, &rideDate, &origin, &destination, &driverExt, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return riderepo.Ride{}, riderepo.ErrNotFound
		}
		return riderepo.Ride{}, err
	}
	return riderepo.Ride{
		ID:          domain.RideID(externalID.String()),
		GroupID:     domain.GroupID(groupExt.String()),
		Date:        domain.NormalizeRideDate(rideDate),
		Origin:      origin,
		Destination: destination,
		DriverID:    domain.MemberID(driverExt.String()),
		CreatedAt:   createdAt.UTC(),
	}, nil
}

// loadParticipants fills ParticipantIDs for the given rides, preserving the
// stored position order.
func (r *Repo) loadParticipants(ctx context.Context, rs []riderepo.Ride) error {
	if len(rs) == 0 {
		return nil
	}

	byID := make(map[domain.RideID]int, len(rs))
	ids := make([]uuid.UUID, 0, len(rs))
	for i, ride := range rs {
		byID[ride.ID] = i
		id, err := uuid.Parse(string(ride.ID))
		if err != nil {
			return fmt.Errorf("invalid ride id: %w", err)
		}
		ids = append(ids, id)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT r.external_id, m.external_id
		FROM ride_participants rp
		JOIN rides r ON r.id = rp.ride_id
		JOIN members m ON m.id = rp.member_id
		WHERE r.external_id = ANY($1)
		ORDER BY rp.ride_id ASC, rp.position ASC
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rideExt, memberExt uuid.UUID
		if err := rows.Scan(&rideExt, &memberExt); err != nil {
			return err
		}
		if i, ok := byID[domain.RideID(rideExt.String())]; ok {
			rs[i].ParticipantIDs = append(rs[i].ParticipantIDs, domain.MemberID(memberExt.String()))
		}
	}
	return rows.Err()
}
