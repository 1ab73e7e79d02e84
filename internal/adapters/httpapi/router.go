package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Tominouu/covoit/internal/platform/httplog"
)

// RouterOptions carries the cross-cutting pieces the router cannot construct
// itself.
type RouterOptions struct {
	// AuthMiddleware authenticates requests and stores the subject in context.
	// Required; use NewAuthMiddleware or NewDevAuthMiddleware.
	AuthMiddleware func(http.Handler) http.Handler

	// Logger, when set, enables per-request structured logging.
	Logger *zerolog.Logger
}

// NewRouter constructs the API HTTP router.
//
// This is intentionally a thin adapter: it wires routes and middleware and
// delegates every endpoint to the Server's handlers.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.Logger != nil {
		r.Use(httplog.Middleware(*opts.Logger))
	}
	if opts.AuthMiddleware != nil {
		r.Use(opts.AuthMiddleware)
	}

	// Health endpoint is deliberately unauthenticated (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/members", func(r chi.Router) {
		r.Post("/", s.handleCreateMyMember)
		r.Get("/me", s.handleGetMyMemberProfile)
		r.Patch("/me", s.handleUpdateMyMemberProfile)
	})

	r.Route("/groups", func(r chi.Router) {
		r.Post("/", s.handleCreateGroup)
		r.Get("/", s.handleListMyGroups)
		r.Post("/join", s.handleJoinGroup)

		r.Route("/{groupId}", func(r chi.Router) {
			r.Get("/", s.handleGetGroupDetails)
			r.Get("/members", s.handleListGroupMembers)
			r.Post("/rides", s.handleCreateRide)
			r.Get("/rides", s.handleListGroupRides)
			r.Post("/driver-suggestion", s.handleSuggestDriver)
			r.Get("/feed", s.handleGroupFeed)
		})
	})

	return r
}
