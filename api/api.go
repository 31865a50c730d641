// Package api maps the HTTP interface of the server onto the profile, match
// and conversation components.
package api

import (
	"context"
	"net/http"

	"swipeserver/apicodes"
	"swipeserver/collabauth"
	"swipeserver/conversation"
	"swipeserver/hub"
	"swipeserver/match"
	"swipeserver/profile"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Verifier turns an Authorization header into the caller's identity.
type Verifier interface {
	Verify(ctx context.Context, header string) (*collabauth.Claim, error)
}

// Server holds the components behind the routes.
type Server struct {
	verifier      Verifier
	profiles      *profile.Service
	matches       *match.Engine
	conversations *conversation.Service
	live          *hub.Connector
	corsOrigins   []string
}

// Deps lists what NewServer wires together.
type Deps struct {
	Verifier      Verifier
	Profiles      *profile.Service
	Matches       *match.Engine
	Conversations *conversation.Service
	Live          *hub.Connector
	CORSOrigins   []string
}

// NewServer returns a Server. Every dependency is required.
func NewServer(deps Deps) *Server {
	return &Server{
		verifier:      deps.Verifier,
		profiles:      deps.Profiles,
		matches:       deps.Matches,
		conversations: deps.Conversations,
		live:          deps.Live,
		corsOrigins:   deps.CORSOrigins,
	}
}

// Handler returns the complete HTTP handler: routes, auth, CORS, request logging.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Handle("/health", appHandler(s.health)).Methods(http.MethodGet)

	public := router.PathPrefix("/api").Subrouter()
	public.Handle("/create_user", appHandler(s.createUser)).Methods(http.MethodPost)

	private := router.PathPrefix("/api").Subrouter()
	private.Use(s.authenticate)
	private.Handle("/profile", appHandler(s.getProfile)).Methods(http.MethodGet)
	private.Handle("/update_settings", appHandler(s.updateSettings)).Methods(http.MethodPut)
	private.Handle("/update_profile", appHandler(s.updateProfile)).Methods(http.MethodPut)
	private.Handle("/delete_account", appHandler(s.deleteAccount)).Methods(http.MethodDelete)
	private.Handle("/set_notification_token", appHandler(s.setNotificationToken)).Methods(http.MethodPost)
	private.Handle("/suggested_users", appHandler(s.suggestedUsers)).Methods(http.MethodPost)
	private.Handle("/swipe", appHandler(s.swipe)).Methods(http.MethodPost)
	private.Handle("/matches", appHandler(s.getMatches)).Methods(http.MethodGet)
	private.Handle("/conversation/live", appHandler(s.liveConversation)).Methods(http.MethodGet)
	private.Handle("/conversation", appHandler(s.getConversation)).Methods(http.MethodGet)
	private.Handle("/message", appHandler(s.sendMessage)).Methods(http.MethodPost)

	router.NotFoundHandler = appHandler(func(w http.ResponseWriter, r *http.Request) *apicodes.Error {
		return apicodes.Errorf(apicodes.NotFound, "Not found")
	})

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.corsOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{collabauth.Header, "Content-Type", RequestIDHeader}),
	)
	return logRequests(handlers.RecoveryHandler()(cors(router)))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) *apicodes.Error {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}
