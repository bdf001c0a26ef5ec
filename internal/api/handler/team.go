package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/tourney/internal/api/middleware"
	"github.com/mcoot/tourney/internal/api/request"
	"github.com/mcoot/tourney/internal/api/response"
	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/services/team"
)

// TeamHandler handles team endpoints
type TeamHandler struct {
	teamService *team.Service
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(teamService *team.Service) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
	}
}

// Create handles POST /api/v1/teams
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.CreateTeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.teamService.Create(r.Context(), identity, req.Name, req.Tag)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, "/api/v1/teams/"+string(t.ID), response.TeamFromModel(t))
}

// List handles GET /api/v1/teams
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teamService.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TeamListFromModel(teams))
}

// Get handles GET /api/v1/teams/{id}
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.teamService.Get(r.Context(), teamID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TeamFromModel(t))
}

// Update handles PUT /api/v1/teams/{id}
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.UpdateTeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.teamService.Update(r.Context(), identity, teamID(r), team.UpdateInput{Name: req.Name, Tag: req.Tag})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TeamFromModel(t))
}

// Delete handles DELETE /api/v1/teams/{id}
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	if err := h.teamService.Delete(r.Context(), identity, teamID(r)); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

func teamID(r *http.Request) model.TeamID {
	return model.TeamID(mux.Vars(r)["id"])
}
