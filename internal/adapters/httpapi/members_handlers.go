package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/Tominouu/covoit/internal/app/members"
	"github.com/Tominouu/covoit/internal/domain"
)

type memberProfile struct {
	MemberID    string    `json:"memberId"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type memberResponse struct {
	Member memberProfile `json:"member"`
}

func memberProfileFromDomain(m domain.Member) memberProfile {
	return memberProfile{
		MemberID:    string(m.ID),
		DisplayName: m.DisplayName,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type createMyMemberRequest struct {
	DisplayName string `json:"displayName"`
}

func (s *Server) handleCreateMyMember(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}

	var req createMyMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}

	m, err := s.Members.CreateMyMember(r.Context(), sub, members.CreateMyMemberInput{DisplayName: req.DisplayName})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, memberResponse{Member: memberProfileFromDomain(m)})
}

func (s *Server) handleGetMyMemberProfile(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}

	m, err := s.Members.GetMyMemberProfile(r.Context(), sub)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{Member: memberProfileFromDomain(m)})
}

type updateMyMemberProfileRequest struct {
	// DisplayName is tri-state: omitted leaves the name unchanged, null is
	// rejected, a string replaces it.
	DisplayName nullable.Nullable[string] `json:"displayName"`
}

func (s *Server) handleUpdateMyMemberProfile(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}

	var req updateMyMemberProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}

	in := members.UpdateMyMemberProfileInput{}
	if req.DisplayName.IsSpecified() {
		if req.DisplayName.IsNull() {
			in.DisplayName = members.Null[string]()
		} else {
			v, err := req.DisplayName.Get()
			if err != nil {
				writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid displayName", nil)
				return
			}
			in.DisplayName = members.Some(v)
		}
	}

	m, err := s.Members.UpdateMyMemberProfile(r.Context(), sub, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{Member: memberProfileFromDomain(m)})
}
