package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Tominouu/covoit/internal/app/rides"
	"github.com/Tominouu/covoit/internal/domain"
	"github.com/Tominouu/covoit/internal/ports/out/idempotency"
)

type ride struct {
	RideID  string `json:"rideId"`
	GroupID string `json:"groupId"`

	Date        openapi_types.Date `json:"date"`
	Origin      string             `json:"origin"`
	Destination string             `json:"destination"`

	ParticipantMemberIDs []string `json:"participantMemberIds"`
	DriverMemberID       string   `json:"driverMemberId"`

	CreatedAt time.Time `json:"createdAt"`
}

type rideResponse struct {
	Ride ride `json:"ride"`
}

type listGroupRidesResponse struct {
	Rides []ride `json:"rides"`
}

func rideFromDomain(r domain.Ride) ride {
	out := ride{
		RideID:               string(r.ID),
		GroupID:              string(r.GroupID),
		Date:                 openapi_types.Date{Time: r.Date},
		Origin:               r.Origin,
		Destination:          r.Destination,
		ParticipantMemberIDs: make([]string, 0, len(r.ParticipantIDs)),
		DriverMemberID:       string(r.DriverID),
		CreatedAt:            r.CreatedAt,
	}
	for _, id := range r.ParticipantIDs {
		out.ParticipantMemberIDs = append(out.ParticipantMemberIDs, string(id))
	}
	return out
}

type createRideRequest struct {
	Date        openapi_types.Date `json:"date"`
	Origin      string             `json:"origin"`
	Destination string             `json:"destination"`

	ParticipantMemberIDs []string `json:"participantMemberIds"`
	DriverMemberID       string   `json:"driverMemberId"`
}

// handleCreateRide logs an immutable ride. Because rides are append-only
// facts, a retried POST must not log the same ride twice: the Idempotency-Key
// header (when present) makes the retry replay the original response.
func (s *Server) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	me, ok := s.caller(w, r)
	if !ok {
		return
	}
	groupID := domain.GroupID(chi.URLParam(r, "groupId"))

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unreadable request body", nil)
		return
	}
	var req createRideRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	var bodyHash string
	var metaFP idempotency.Fingerprint
	if idemKey != "" && s.Idem != nil {
		sum := sha256.Sum256(body)
		bodyHash = hex.EncodeToString(sum[:])
		metaFP = idempotency.Fingerprint{
			Key:      idempotency.Key(idemKey),
			Subject:  me.Subject,
			Method:   http.MethodPost,
			Route:    "/groups/{groupId}/rides",
			BodyHash: "",
		}

		// Replay if same actor+key+route+bodyHash; reject reuse with a
		// different payload.
		if meta, found, err := s.Idem.Get(r.Context(), metaFP); err != nil {
			s.writeServiceError(w, r, err)
			return
		} else if found {
			if string(meta.Body) != bodyHash {
				writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
				return
			}
		} else {
			_ = s.Idem.Put(r.Context(), metaFP, idempotency.Record{
				StatusCode:  0,
				ContentType: "text/plain",
				Body:        []byte(bodyHash),
				CreatedAt:   time.Now().UTC(),
			})
		}

		respFP := metaFP
		respFP.BodyHash = bodyHash
		if rec, found, err := s.Idem.Get(r.Context(), respFP); err != nil {
			s.writeServiceError(w, r, err)
			return
		} else if found && rec.StatusCode == http.StatusCreated && strings.HasPrefix(rec.ContentType, "application/json") {
			w.Header().Set("Content-Type", rec.ContentType)
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	in := rides.CreateRideInput{
		Date:           req.Date.Time,
		Origin:         req.Origin,
		Destination:    req.Destination,
		ParticipantIDs: toMemberIDs(req.ParticipantMemberIDs),
		DriverID:       domain.MemberID(req.DriverMemberID),
	}
	created, err := s.Rides.CreateRide(r.Context(), me.ID, groupID, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := rideResponse{Ride: rideFromDomain(created)}
	if idemKey != "" && s.Idem != nil {
		respFP := metaFP
		respFP.BodyHash = bodyHash
		if b, err := json.Marshal(resp); err == nil {
			_ = s.Idem.Put(r.Context(), respFP, idempotency.Record{
				StatusCode:  http.StatusCreated,
				ContentType: "application/json",
				Body:        b,
				CreatedAt:   time.Now().UTC(),
			})
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListGroupRides(w http.ResponseWriter, r *http.Request) {
	me, ok := s.caller(w, r)
	if !ok {
		return
	}

	rs, err := s.Rides.ListGroupRides(r.Context(), me.ID, domain.GroupID(chi.URLParam(r, "groupId")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]ride, 0, len(rs))
	for _, x := range rs {
		out = append(out, rideFromDomain(x))
	}
	writeJSON(w, http.StatusOK, listGroupRidesResponse{Rides: out})
}

type suggestDriverRequest struct {
	PresentMemberIDs []string   `json:"presentMemberIds"`
	ReferenceTime    *time.Time `json:"referenceTime"`
}

type standing struct {
	MemberID      string  `json:"memberId"`
	WeightedCount float64 `json:"weightedCount"`

	// LastDroveOn is null for a member who has never driven.
	LastDroveOn *openapi_types.Date `json:"lastDroveOn"`
}

type driverSuggestion struct {
	GroupID        string `json:"groupId"`
	DriverMemberID string `json:"driverMemberId"`

	ReferenceTime time.Time  `json:"referenceTime"`
	Standings     []standing `json:"standings"`
}

type driverSuggestionResponse struct {
	Suggestion driverSuggestion `json:"suggestion"`
}

// handleSuggestDriver runs the fairness ranking for the group. The body is
// optional: no body means "everyone is present, as of now".
func (s *Server) handleSuggestDriver(w http.ResponseWriter, r *http.Request) {
	me, ok := s.caller(w, r)
	if !ok {
		return
	}
	groupID := domain.GroupID(chi.URLParam(r, "groupId"))

	var req suggestDriverRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unreadable request body", nil)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
			return
		}
	}

	sug, err := s.Rides.SuggestDriver(r.Context(), me.ID, groupID, rides.SuggestDriverInput{
		PresentMemberIDs: toMemberIDs(req.PresentMemberIDs),
		ReferenceTime:    req.ReferenceTime,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := driverSuggestion{
		GroupID:        string(sug.GroupID),
		DriverMemberID: string(sug.DriverID),
		ReferenceTime:  sug.ReferenceTime,
		Standings:      make([]standing, 0, len(sug.Standings)),
	}
	for _, st := range sug.Standings {
		entry := standing{
			MemberID:      string(st.MemberID),
			WeightedCount: st.WeightedCount,
		}
		if !st.LastDrove.IsZero() {
			entry.LastDroveOn = &openapi_types.Date{Time: st.LastDrove}
		}
		out.Standings = append(out.Standings, entry)
	}
	writeJSON(w, http.StatusOK, driverSuggestionResponse{Suggestion: out})
}

func toMemberIDs(ids []string) []domain.MemberID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]domain.MemberID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.MemberID(id))
	}
	return out
}
