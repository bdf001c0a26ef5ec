package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/tourney/internal/api/middleware"
	"github.com/mcoot/tourney/internal/api/request"
	"github.com/mcoot/tourney/internal/api/response"
	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/services/registration"
)

// RegistrationHandler handles registration endpoints
type RegistrationHandler struct {
	engine *registration.Engine
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(engine *registration.Engine) *RegistrationHandler {
	return &RegistrationHandler{
		engine: engine,
	}
}

// Create handles POST /api/v1/tournaments/{id}/registrations
func (h *RegistrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.CreateRegistrationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reg, err := h.engine.Create(r.Context(), identity, registration.CreateInput{
		TournamentID: tournamentID(r),
		PlayerID:     model.UserID(req.PlayerID),
		TeamID:       model.TeamID(req.TeamID),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RegistrationFromModel(reg))
}

// List handles GET /api/v1/tournaments/{id}/registrations
func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	regs, err := h.engine.ListForTournament(r.Context(), tournamentID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RegistrationListFromModel(regs))
}

// UpdateStatus handles PATCH /api/v1/registrations/{id}/status
func (h *RegistrationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.ChangeStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reg, err := h.engine.UpdateStatus(r.Context(), identity, registrationID(r), model.RegistrationStatus(req.Status))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RegistrationFromModel(reg))
}

// Delete handles DELETE /api/v1/registrations/{id}
func (h *RegistrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	if err := h.engine.Remove(r.Context(), identity, registrationID(r)); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

func registrationID(r *http.Request) model.RegistrationID {
	return model.RegistrationID(mux.Vars(r)["id"])
}
