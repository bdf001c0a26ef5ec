// Package registration implements the registration lifecycle: entry into a
// tournament, status changes and removal.
package registration

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/tourney/internal/dependencies/clock"
	"github.com/mcoot/tourney/internal/dependencies/ids"
	"github.com/mcoot/tourney/internal/events"
	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/services/authz"
	"github.com/mcoot/tourney/internal/services/eligibility"
	"github.com/mcoot/tourney/internal/storage"
)

// CreateInput names the tournament and the entrant. Exactly one of PlayerID
// and TeamID must be set, matching the tournament format.
type CreateInput struct {
	TournamentID model.TournamentID
	PlayerID     model.UserID
	TeamID       model.TeamID
}

// Engine manages registrations
type Engine struct {
	storage   storage.Storage
	clock     clock.Clock
	ids       ids.Generator
	publisher events.Publisher
	logger    *slog.Logger
}

// NewEngine creates a new registration Engine
func NewEngine(
	storage storage.Storage,
	clock clock.Clock,
	ids ids.Generator,
	publisher events.Publisher,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		storage:   storage,
		clock:     clock,
		ids:       ids,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "registration")),
	}
}

// Create registers a player or team for an OPEN tournament. The new
// registration is PENDING.
//
// The checks run in order: tournament exists, tournament is open, entry
// matches the format, the caller may enter this entrant, a confirmed slot is
// still free, and the entrant has no registration yet. Storage repeats the
// last two atomically with the insert.
func (e *Engine) Create(ctx context.Context, caller model.Identity, in CreateInput) (*model.Registration, error) {
	t, err := e.storage.GetTournament(ctx, in.TournamentID)
	if err != nil {
		return nil, err
	}
	if err := eligibility.TournamentOpenForRegistration(t.Status); err != nil {
		return nil, err
	}
	if err := eligibility.FormatCompatible(t.Format, in.PlayerID, in.TeamID); err != nil {
		return nil, err
	}
	if err := e.checkEntrant(ctx, caller, t.Format, in); err != nil {
		return nil, err
	}

	existing, err := e.storage.ListRegistrations(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if err := eligibility.CapacityAvailable(model.CountConfirmed(existing), t.MaxParticipants); err != nil {
		return nil, err
	}
	if err := eligibility.NotDuplicate(existing, in.PlayerID, in.TeamID); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	reg := &model.Registration{
		ID:           model.RegistrationID(e.ids.NewID(ids.PrefixRegistration)),
		TournamentID: t.ID,
		PlayerID:     in.PlayerID,
		TeamID:       in.TeamID,
		Status:       model.RegistrationPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.storage.CreateRegistration(ctx, reg); err != nil {
		e.logger.Debug("registration rejected by storage",
			slog.String("tournament_id", string(t.ID)),
			slog.Any("error", err))
		return nil, err
	}

	e.logger.Info("registration created",
		slog.String("registration_id", string(reg.ID)),
		slog.String("tournament_id", string(t.ID)),
		slog.String("player_id", string(reg.PlayerID)),
		slog.String("team_id", string(reg.TeamID)))
	e.publish(ctx, model.EventRegistrationCreated, reg.TournamentID, caller.UserID, payloadFor(reg))
	return reg, nil
}

// checkEntrant verifies the entrant exists and the caller may enter it: a
// team's captain for TEAM entries, the player themselves or staff for SOLO ones
func (e *Engine) checkEntrant(ctx context.Context, caller model.Identity, format model.TournamentFormat, in CreateInput) error {
	if format == model.FormatTeam {
		team, err := e.storage.GetTeam(ctx, in.TeamID)
		if err != nil {
			return err
		}
		if team.CaptainID != caller.UserID {
			return model.ErrNotCaptain
		}
		return nil
	}

	if _, err := e.storage.GetUser(ctx, in.PlayerID); err != nil {
		return err
	}
	return authz.Require(authz.OpManageRegistration, caller, in.PlayerID)
}

// Get retrieves a registration by ID
func (e *Engine) Get(ctx context.Context, id model.RegistrationID) (*model.Registration, error) {
	return e.storage.GetRegistration(ctx, id)
}

// ListForTournament returns a tournament's registrations, oldest first
func (e *Engine) ListForTournament(ctx context.Context, id model.TournamentID) ([]*model.Registration, error) {
	if _, err := e.storage.GetTournament(ctx, id); err != nil {
		return nil, err
	}
	return e.storage.ListRegistrations(ctx, id)
}

// UpdateStatus moves a registration to any of the four statuses. Staff may
// set any status; the registrant may only withdraw. Confirming is capacity
// checked and stamps ConfirmedAt the first time only.
func (e *Engine) UpdateStatus(ctx context.Context, caller model.Identity, id model.RegistrationID, status model.RegistrationStatus) (*model.Registration, error) {
	current, err := e.storage.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	owner, err := e.registrant(ctx, current)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(authz.OpManageRegistration, caller, owner); err != nil {
		return nil, err
	}
	if !caller.IsStaff() && status != model.RegistrationWithdrawn {
		return nil, model.ErrForbidden
	}

	updated, err := e.storage.SetRegistrationStatus(ctx, id, status, e.clock.Now())
	if err != nil {
		e.logger.Debug("registration status change rejected",
			slog.String("registration_id", string(id)),
			slog.String("to", string(status)),
			slog.Any("error", err))
		return nil, err
	}

	e.logger.Info("registration status changed",
		slog.String("registration_id", string(id)),
		slog.String("from", string(current.Status)),
		slog.String("to", string(status)),
		slog.String("actor_id", string(caller.UserID)))
	e.publish(ctx, model.EventRegistrationStatusChanged, updated.TournamentID, caller.UserID, model.RegistrationStatusChangedPayload{
		RegistrationID: id,
		From:           current.Status,
		To:             status,
	})
	return updated, nil
}

// Remove deletes a registration that is not CONFIRMED. The registrant may
// only remove a PENDING one.
func (e *Engine) Remove(ctx context.Context, caller model.Identity, id model.RegistrationID) error {
	current, err := e.storage.GetRegistration(ctx, id)
	if err != nil {
		return err
	}

	owner, err := e.registrant(ctx, current)
	if err != nil {
		return err
	}
	if err := authz.Require(authz.OpManageRegistration, caller, owner); err != nil {
		return err
	}
	if current.Status == model.RegistrationConfirmed {
		return model.ErrCannotDeleteConfirmed
	}
	if !caller.IsStaff() && current.Status != model.RegistrationPending {
		return model.ErrForbidden
	}

	if err := e.storage.DeleteRegistration(ctx, id); err != nil {
		return err
	}

	e.logger.Info("registration deleted",
		slog.String("registration_id", string(id)),
		slog.String("tournament_id", string(current.TournamentID)))
	e.publish(ctx, model.EventRegistrationDeleted, current.TournamentID, caller.UserID, payloadFor(current))
	return nil
}

// registrant returns the user who owns a registration: the player, or the
// captain of the team. A team that no longer exists has no owner.
func (e *Engine) registrant(ctx context.Context, reg *model.Registration) (model.UserID, error) {
	if !reg.IsTeamEntry() {
		return reg.PlayerID, nil
	}
	team, err := e.storage.GetTeam(ctx, reg.TeamID)
	if errors.Is(err, model.ErrTeamNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return team.CaptainID, nil
}

func (e *Engine) publish(ctx context.Context, eventType model.EventType, id model.TournamentID, actor model.UserID, payload any) {
	e.publisher.Publish(ctx, model.Event{
		Type:         eventType,
		Timestamp:    e.clock.Now(),
		TournamentID: id,
		ActorID:      actor,
		Payload:      payload,
	})
}

func payloadFor(reg *model.Registration) model.RegistrationPayload {
	return model.RegistrationPayload{
		RegistrationID: reg.ID,
		PlayerID:       reg.PlayerID,
		TeamID:         reg.TeamID,
		Status:         reg.Status,
	}
}
