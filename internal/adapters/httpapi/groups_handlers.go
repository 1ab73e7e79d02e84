package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Tominouu/covoit/internal/app/groups"
	"github.com/Tominouu/covoit/internal/domain"
)

type memberSummary struct {
	MemberID    string `json:"memberId"`
	DisplayName string `json:"displayName"`
}

type groupSummary struct {
	GroupID     string `json:"groupId"`
	Name        string `json:"name"`
	InviteCode  string `json:"inviteCode"`
	MemberCount int    `json:"memberCount"`
}

type groupDetails struct {
	groupSummary

	OwnerMemberID string          `json:"ownerMemberId"`
	Members       []memberSummary `json:"members"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type groupResponse struct {
	Group groupDetails `json:"group"`
}

type listMyGroupsResponse struct {
	Groups []groupSummary `json:"groups"`
}

func groupSummaryFromDomain(g domain.GroupSummary) groupSummary {
	return groupSummary{
		GroupID:     string(g.ID),
		Name:        g.Name,
		InviteCode:  g.InviteCode,
		MemberCount: g.MemberCount,
	}
}

func groupDetailsFromDomain(g domain.GroupDetails) groupDetails {
	out := groupDetails{
		groupSummary:  groupSummaryFromDomain(g.GroupSummary),
		OwnerMemberID: string(g.OwnerMemberID),
		Members:       make([]memberSummary, 0, len(g.Members)),
		CreatedAt:     g.CreatedAt,
	}
	for _, m := range g.Members {
		out.Members = append(out.Members, memberSummary{
			MemberID:    string(m.ID),
			DisplayName: m.DisplayName,
		})
	}
	return out
}

type createGroupRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	me, ok := s.caller(w, r)
	if !ok {
		return
	}

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}

	gd, err := s.Groups.CreateGroup(r.Context(), me.ID, groups.CreateGroupInput{Name: req.Name})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupResponse{Group: groupDetailsFromDomain(gd)})
}

type joinGroupRequest struct {
	InviteCode string `json:"inviteCode"`
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	me, ok := s.caller(w, r)
	if !ok {
		return
	}

	var req joinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}

	gd, err := s.Groups.JoinGroup(r.Context(), me.ID, groups.JoinGroupInput{InviteCode: req.InviteCode})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupResponse{Group: groupDetailsFromDomain(gd)})
}

func (s *Server) handleGetGroupDetails(w http.ResponseWriter, r *http.Request) {
	me, ok := s.caller(w, r)
	if !ok {
		return
	}

	gd, err := s.Groups.GetGroupDetails(r.Context(), me.ID, domain.GroupID(chi.URLParam(r, "groupId")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupResponse{Group: groupDetailsFromDomain(gd)})
}

func (s *Server) handleListMyGroups(w http.ResponseWriter, r *http.Request) {
	me, ok := s.caller(w, r)
	if !ok {
		return
	}

	gs, err := s.Groups.ListMyGroups(r.Context(), me.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]groupSummary, 0, len(gs))
	for _, g := range gs {
		out = append(out, groupSummaryFromDomain(g))
	}
	writeJSON(w, http.StatusOK, listMyGroupsResponse{Groups: out})
}

type listGroupMembersResponse struct {
	Members []memberSummary `json:"members"`
}

func (s *Server) handleListGroupMembers(w http.ResponseWriter, r *http.Request) {
	me, ok := s.caller(w, r)
	if !ok {
		return
	}

	gd, err := s.Groups.GetGroupDetails(r.Context(), me.ID, domain.GroupID(chi.URLParam(r, "groupId")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listGroupMembersResponse{Members: groupDetailsFromDomain(gd).Members})
}

// handleGroupFeed authorizes the caller against the group, then hands the
// connection to the realtime feed for the websocket upgrade.
func (s *Server) handleGroupFeed(w http.ResponseWriter, r *http.Request) {
	me, ok := s.caller(w, r)
	if !ok {
		return
	}

	groupID := domain.GroupID(chi.URLParam(r, "groupId"))
	if _, err := s.Groups.GetGroupDetails(r.Context(), me.ID, groupID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if s.Feed == nil {
		writeError(w, r, http.StatusServiceUnavailable, "FEED_UNAVAILABLE", "realtime feed is not enabled", nil)
		return
	}
	s.Feed.ServeHTTP(w, r)
}
