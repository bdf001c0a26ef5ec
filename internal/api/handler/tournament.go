package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/tourney/internal/api/middleware"
	"github.com/mcoot/tourney/internal/api/request"
	"github.com/mcoot/tourney/internal/api/response"
	"github.com/mcoot/tourney/internal/events"
	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/services/tournament"
)

// TournamentHandler handles tournament endpoints
type TournamentHandler struct {
	engine     *tournament.Engine
	hubManager *events.HubManager
}

// NewTournamentHandler creates a new tournament handler
func NewTournamentHandler(engine *tournament.Engine, hubManager *events.HubManager) *TournamentHandler {
	return &TournamentHandler{
		engine:     engine,
		hubManager: hubManager,
	}
}

// List handles GET /api/v1/tournaments
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TournamentFilter{
		Status: model.TournamentStatus(q.Get("status")),
		Game:   q.Get("game"),
		Format: model.TournamentFormat(q.Get("format")),
	}

	var ok bool
	if filter.Page, ok = intParam(w, q.Get("page"), "page"); !ok {
		return
	}
	if filter.Limit, ok = intParam(w, q.Get("limit"), "limit"); !ok {
		return
	}

	tournaments, err := h.engine.List(r.Context(), filter)
	if err != nil {
		WriteError(w, err)
		return
	}

	paged := tournament.NormalizeFilter(filter)
	response.JSON(w, http.StatusOK, response.TournamentListFromModel(tournaments, paged.Page, paged.Limit))
}

// Create handles POST /api/v1/tournaments
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.CreateTournamentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.engine.Create(r.Context(), identity, tournament.CreateInput{
		Name:            req.Name,
		Game:            req.Game,
		Format:          model.TournamentFormat(req.Format),
		MaxParticipants: req.MaxParticipants,
		PrizePool:       req.PrizePool,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, "/api/v1/tournaments/"+string(t.ID), response.TournamentFromModel(t))
}

// Get handles GET /api/v1/tournaments/{id}
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.engine.Get(r.Context(), tournamentID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TournamentFromModel(t))
}

// Update handles PUT /api/v1/tournaments/{id}
func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.UpdateTournamentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := tournament.UpdateInput{
		Name:            req.Name,
		Game:            req.Game,
		MaxParticipants: req.MaxParticipants,
		PrizePool:       req.PrizePool,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
	}
	if req.Format != nil {
		format := model.TournamentFormat(*req.Format)
		in.Format = &format
	}

	t, err := h.engine.Update(r.Context(), identity, tournamentID(r), in)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TournamentFromModel(t))
}

// ChangeStatus handles PATCH /api/v1/tournaments/{id}/status
func (h *TournamentHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.ChangeStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.engine.ChangeStatus(r.Context(), identity, tournamentID(r), model.TournamentStatus(req.Status))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TournamentFromModel(t))
}

// Delete handles DELETE /api/v1/tournaments/{id}
func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	if err := h.engine.Delete(r.Context(), identity, tournamentID(r)); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Events handles GET /api/v1/tournaments/{id}/events (SSE endpoint)
func (h *TournamentHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := tournamentID(r)

	// 404 before opening a stream for an unknown tournament
	if _, err := h.engine.Get(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}

	var userID model.UserID
	if identity, ok := middleware.GetIdentity(r.Context()); ok {
		userID = identity.UserID
	}

	hub := h.hubManager.GetOrCreateHub(id)
	events.ServeSSE(w, r, hub, userID)
}

func tournamentID(r *http.Request) model.TournamentID {
	return model.TournamentID(mux.Vars(r)["id"])
}

// intParam parses an optional integer query parameter, writing a 400 on failure
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		WriteError(w, NewInvalidRequestError(name+" must be an integer"))
		return 0, false
	}
	return n, true
}
