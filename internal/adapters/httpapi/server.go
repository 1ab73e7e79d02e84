package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Tominouu/covoit/internal/app/groups"
	"github.com/Tominouu/covoit/internal/app/members"
	"github.com/Tominouu/covoit/internal/app/rides"
	"github.com/Tominouu/covoit/internal/domain"
	"github.com/Tominouu/covoit/internal/ports/out/idempotency"
)

// Server is the HTTP adapter: it decodes requests, resolves the caller's
// member profile, and delegates to the application services.
type Server struct {
	Members *members.Service
	Groups  *groups.Service
	Rides   *rides.Service
	Idem    idempotency.Store

	// Feed serves the per-group realtime feed. It runs after the membership
	// check, so it can upgrade the connection without doing its own authz.
	Feed http.Handler
}

func NewServer(membersSvc *members.Service, groupsSvc *groups.Service, ridesSvc *rides.Service, idem idempotency.Store, feed http.Handler) *Server {
	return &Server{
		Members: membersSvc,
		Groups:  groupsSvc,
		Rides:   ridesSvc,
		Idem:    idem,
		Feed:    feed,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// subject extracts the authenticated subject or writes a 401.
func (s *Server) subject(w http.ResponseWriter, r *http.Request) (domain.SubjectID, bool) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return "", false
	}
	return domain.SubjectID(sub), true
}

// caller resolves the authenticated subject to a provisioned member profile.
// An unprovisioned subject gets 401, matching the contract that every in-app
// action requires a profile.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) (domain.Member, bool) {
	sub, ok := s.subject(w, r)
	if !ok {
		return domain.Member{}, false
	}
	me, err := s.Members.GetMyMemberProfile(r.Context(), sub)
	if err != nil {
		if isMemberNotProvisioned(err) {
			writeError(w, r, http.StatusUnauthorized, "MEMBER_NOT_PROVISIONED", "No member profile exists for the authenticated subject.", nil)
			return domain.Member{}, false
		}
		s.writeServiceError(w, r, err)
		return domain.Member{}, false
	}
	return me, true
}

func isMemberNotProvisioned(err error) bool {
	ae := (*members.Error)(nil)
	if errors.As(err, &ae) {
		return ae.Code == "MEMBER_NOT_PROVISIONED"
	}
	return false
}

// writeServiceError maps application-layer errors onto the wire envelope.
// Anything that is not a tagged service error is an internal failure and is
// deliberately not echoed to the client.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if me := (*members.Error)(nil); errors.As(err, &me) {
		writeError(w, r, me.Status, me.Code, me.Message, me.Details)
		return
	}
	if ge := (*groups.Error)(nil); errors.As(err, &ge) {
		writeError(w, r, ge.Status, ge.Code, ge.Message, ge.Details)
		return
	}
	if re := (*rides.Error)(nil); errors.As(err, &re) {
		writeError(w, r, re.Status, re.Code, re.Message, re.Details)
		return
	}
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}
