package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/tourney/internal/api/handler"
	"github.com/mcoot/tourney/internal/api/middleware"
	"github.com/mcoot/tourney/internal/events"
	sharedmw "github.com/mcoot/tourney/internal/middleware"
	"github.com/mcoot/tourney/internal/services/auth"
	"github.com/mcoot/tourney/internal/services/registration"
	"github.com/mcoot/tourney/internal/services/team"
	"github.com/mcoot/tourney/internal/services/tournament"
	"github.com/mcoot/tourney/internal/services/user"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger             *slog.Logger
	AuthService        *auth.Service
	TournamentEngine   *tournament.Engine
	RegistrationEngine *registration.Engine
	TeamService        *team.Service
	UserService        *user.Service
	HubManager         *events.HubManager
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	tournamentHandler := handler.NewTournamentHandler(cfg.TournamentEngine, cfg.HubManager)
	registrationHandler := handler.NewRegistrationHandler(cfg.RegistrationEngine)
	teamHandler := handler.NewTeamHandler(cfg.TeamService)
	userHandler := handler.NewUserHandler(cfg.UserService)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	optionalAuthMiddleware := middleware.OptionalAuth(cfg.AuthService)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(sharedmw.Logging(cfg.Logger))
	api.Use(middleware.Recovery(cfg.Logger))

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Authentication is applied per handler
	public := func(h http.HandlerFunc) http.Handler { return optionalAuthMiddleware(h) }
	protected := func(h http.HandlerFunc) http.Handler { return authMiddleware(h) }

	// Auth routes
	api.Handle("/auth/register", public(authHandler.Register)).Methods(http.MethodPost)
	api.Handle("/auth/login", public(authHandler.Login)).Methods(http.MethodPost)
	api.Handle("/auth/me", protected(authHandler.Me)).Methods(http.MethodGet)

	// Tournament routes
	api.Handle("/tournaments", public(tournamentHandler.List)).Methods(http.MethodGet)
	api.Handle("/tournaments", protected(tournamentHandler.Create)).Methods(http.MethodPost)
	api.Handle("/tournaments/{id}", public(tournamentHandler.Get)).Methods(http.MethodGet)
	api.Handle("/tournaments/{id}", protected(tournamentHandler.Update)).Methods(http.MethodPut)
	api.Handle("/tournaments/{id}", protected(tournamentHandler.Delete)).Methods(http.MethodDelete)
	api.Handle("/tournaments/{id}/status", protected(tournamentHandler.ChangeStatus)).Methods(http.MethodPatch)
	api.Handle("/tournaments/{id}/events", public(tournamentHandler.Events)).Methods(http.MethodGet)

	// Registration routes
	api.Handle("/tournaments/{id}/registrations", public(registrationHandler.List)).Methods(http.MethodGet)
	api.Handle("/tournaments/{id}/registrations", protected(registrationHandler.Create)).Methods(http.MethodPost)
	api.Handle("/registrations/{id}/status", protected(registrationHandler.UpdateStatus)).Methods(http.MethodPatch)
	api.Handle("/registrations/{id}", protected(registrationHandler.Delete)).Methods(http.MethodDelete)

	// Team routes
	api.Handle("/teams", public(teamHandler.List)).Methods(http.MethodGet)
	api.Handle("/teams", protected(teamHandler.Create)).Methods(http.MethodPost)
	api.Handle("/teams/{id}", public(teamHandler.Get)).Methods(http.MethodGet)
	api.Handle("/teams/{id}", protected(teamHandler.Update)).Methods(http.MethodPut)
	api.Handle("/teams/{id}", protected(teamHandler.Delete)).Methods(http.MethodDelete)

	// User routes
	api.Handle("/users", protected(userHandler.List)).Methods(http.MethodGet)
	api.Handle("/users/{id}", protected(userHandler.Get)).Methods(http.MethodGet)
	api.Handle("/users/{id}", protected(userHandler.Delete)).Methods(http.MethodDelete)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
