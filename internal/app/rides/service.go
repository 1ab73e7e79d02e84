package rides

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Tominouu/covoit/internal/domain"
	"github.com/Tominouu/covoit/internal/fairness"
	clockport "github.com/Tominouu/covoit/internal/ports/out/clock"
	"github.com/Tominouu/covoit/internal/ports/out/events"
	"github.com/Tominouu/covoit/internal/ports/out/grouprepo"
	"github.com/Tominouu/covoit/internal/ports/out/riderepo"
)

type Service struct {
	rides  riderepo.Repository
	groups grouprepo.Repository
	clk    clockport.Clock
	pub    events.Publisher

	newRideID func() domain.RideID
}

func NewService(ridesRepo riderepo.Repository, groupsRepo grouprepo.Repository, clk clockport.Clock, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		rides:  ridesRepo,
		groups: groupsRepo,
		clk:    clk,
		pub:    pub,
		newRideID: func() domain.RideID {
			return domain.RideID(uuid.NewString())
		},
	}
}

// SetNewRideIDForTest overrides ride ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewRideIDForTest(fn func() domain.RideID) {
	if fn != nil {
		s.newRideID = fn
	}
}

// CreateRide validates and persists a new immutable ride record.
//
// The engine itself does not enforce that the driver participated; this is the
// correct-caller boundary, so the service enforces it here: participants must
// all be group members and the driver must be a participant.
func (s *Service) CreateRide(ctx context.Context, caller domain.MemberID, groupID domain.GroupID, in CreateRideInput) (domain.Ride, error) {
	if err := s.requireMembership(ctx, caller, groupID); err != nil {
		return domain.Ride{}, err
	}

	if in.Date.IsZero() {
		return domain.Ride{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid date", Details: map[string]any{"date": "must be set"}}
	}
	origin := domain.NormalizeHumanName(in.Origin)
	if origin == "" {
		return domain.Ride{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid origin", Details: map[string]any{"origin": "must be non-empty"}}
	}
	destination := domain.NormalizeHumanName(in.Destination)
	if destination == "" {
		return domain.Ride{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid destination", Details: map[string]any{"destination": "must be non-empty"}}
	}

	participants := dedupeIDs(in.ParticipantIDs)
	if len(participants) == 0 {
		return domain.Ride{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid participants", Details: map[string]any{"participantMemberIds": "must be non-empty"}}
	}
	for _, id := range participants {
		ok, err := s.groups.IsMember(ctx, groupID, id)
		if err != nil {
			return domain.Ride{}, err
		}
		if !ok {
			return domain.Ride{}, &Error{
				Status:  422,
				Code:    "VALIDATION_ERROR",
				Message: "invalid participants",
				Details: map[string]any{"participantMemberIds": fmt.Sprintf("not a group member: %s", id)},
			}
		}
	}
	if !containsID(participants, in.DriverID) {
		return domain.Ride{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid driver",
			Details: map[string]any{"driverMemberId": "must be one of the participants"},
		}
	}

	now := s.clk.Now()
	r := riderepo.Ride{
		ID:             s.newRideID(),
		GroupID:        groupID,
		Date:           domain.NormalizeRideDate(in.Date),
		Origin:         origin,
		Destination:    destination,
		ParticipantIDs: participants,
		DriverID:       in.DriverID,
		CreatedAt:      now,
	}
	if err := s.rides.Create(ctx, r); err != nil {
		if errors.Is(err, riderepo.ErrAlreadyExists) {
			return domain.Ride{}, &Error{Status: 409, Code: "RIDE_ID_CONFLICT", Message: "ride id conflict"}
		}
		return domain.Ride{}, err
	}

	s.pub.Publish(ctx, events.Event{
		Type:    events.TypeRideCreated,
		GroupID: groupID,
		Payload: map[string]any{
			"rideId":   string(r.ID),
			"driverId": string(r.DriverID),
			"date":     r.Date.Format("2006-01-02"),
		},
		At: now,
	})

	return toDomain(r), nil
}

func (s *Service) ListGroupRides(ctx context.Context, caller domain.MemberID, groupID domain.GroupID) ([]domain.Ride, error) {
	if err := s.requireMembership(ctx, caller, groupID); err != nil {
		return nil, err
	}
	rs, err := s.rides.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Ride, 0, len(rs))
	for _, r := range rs {
		out = append(out, toDomain(r))
	}
	return out, nil
}

// SuggestDriver runs the fairness engine against the group's ride history.
//
// The present set defaults to the full roster in join order. The reference
// time defaults to the service clock; it is explicit in the input so callers
// can pin it for reproducible results.
func (s *Service) SuggestDriver(ctx context.Context, caller domain.MemberID, groupID domain.GroupID, in SuggestDriverInput) (DriverSuggestion, error) {
	if err := s.requireMembership(ctx, caller, groupID); err != nil {
		return DriverSuggestion{}, err
	}

	present := dedupeIDs(in.PresentMemberIDs)
	if len(present) == 0 {
		ms, err := s.groups.ListMembers(ctx, groupID)
		if err != nil {
			return DriverSuggestion{}, err
		}
		for _, m := range ms {
			present = append(present, m.MemberID)
		}
	} else {
		for _, id := range present {
			ok, err := s.groups.IsMember(ctx, groupID, id)
			if err != nil {
				return DriverSuggestion{}, err
			}
			if !ok {
				return DriverSuggestion{}, &Error{
					Status:  422,
					Code:    "VALIDATION_ERROR",
					Message: "invalid present set",
					Details: map[string]any{"presentMemberIds": fmt.Sprintf("not a group member: %s", id)},
				}
			}
		}
	}

	ref := s.clk.Now()
	if in.ReferenceTime != nil {
		ref = in.ReferenceTime.UTC()
	}

	rs, err := s.rides.ListByGroup(ctx, groupID)
	if err != nil {
		return DriverSuggestion{}, err
	}
	history := make([]fairness.Entry, 0, len(rs))
	for _, r := range rs {
		history = append(history, fairness.Entry{Date: r.Date, DriverID: r.DriverID})
	}

	driverID, ok := fairness.SelectDriver(present, history, ref)
	if !ok {
		// Only reachable when the roster itself is empty, which cannot happen
		// for a caller that passed the membership check; kept as a guard for
		// the engine's documented sentinel.
		return DriverSuggestion{}, &Error{Status: 409, Code: "NO_CANDIDATES", Message: "no present members to choose from"}
	}

	return DriverSuggestion{
		GroupID:       groupID,
		DriverID:      driverID,
		ReferenceTime: ref,
		Standings:     fairness.Rank(present, history, ref),
	}, nil
}

func (s *Service) requireMembership(ctx context.Context, caller domain.MemberID, groupID domain.GroupID) error {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return &Error{Status: 404, Code: "GROUP_NOT_FOUND", Message: "group not found"}
		}
		return err
	}
	ok, err := s.groups.IsMember(ctx, groupID, caller)
	if err != nil {
		return err
	}
	if !ok {
		// Same shape as groups: membership is not disclosed to outsiders.
		return &Error{Status: 404, Code: "GROUP_NOT_FOUND", Message: "group not found"}
	}
	return nil
}

func dedupeIDs(ids []domain.MemberID) []domain.MemberID {
	out := make([]domain.MemberID, 0, len(ids))
	seen := make(map[domain.MemberID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func containsID(ids []domain.MemberID, target domain.MemberID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

func toDomain(r riderepo.Ride) domain.Ride {
	return domain.Ride{
		ID:             r.ID,
		GroupID:        r.GroupID,
		Date:           r.Date,
		Origin:         r.Origin,
		Destination:    r.Destination,
		ParticipantIDs: append([]domain.MemberID(nil), r.ParticipantIDs...),
		DriverID:       r.DriverID,
		CreatedAt:      r.CreatedAt,
	}
}
