// Package tournament implements the tournament lifecycle: creation, edits,
// status transitions and deletion.
package tournament

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/mcoot/tourney/internal/dependencies/clock"
	"github.com/mcoot/tourney/internal/dependencies/ids"
	"github.com/mcoot/tourney/internal/events"
	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/services/authz"
	"github.com/mcoot/tourney/internal/storage"
)

const (
	// DefaultPageSize is used when a list request does not name a limit
	DefaultPageSize = 10
	// MaxPageSize caps the limit of a list request
	MaxPageSize = 100

	minNameLength = 3
	maxNameLength = 100
)

// CreateInput holds the caller-supplied fields of a new tournament
type CreateInput struct {
	Name            string
	Game            string
	Format          model.TournamentFormat
	MaxParticipants int
	PrizePool       float64
	StartDate       time.Time
	EndDate         *time.Time
}

// UpdateInput holds the fields to change; nil fields are left as they are
type UpdateInput struct {
	Name            *string
	Game            *string
	Format          *model.TournamentFormat
	MaxParticipants *int
	PrizePool       *float64
	StartDate       *time.Time
	EndDate         *time.Time
}

// Engine manages the tournament state machine
type Engine struct {
	storage   storage.Storage
	clock     clock.Clock
	ids       ids.Generator
	publisher events.Publisher
	logger    *slog.Logger
}

// NewEngine creates a new tournament Engine
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
		logger:    logger.With(slog.String("component", "tournament")),
	}
}

// Create validates the input and stores a new DRAFT tournament owned by the caller
func (e *Engine) Create(ctx context.Context, caller model.Identity, in CreateInput) (*model.Tournament, error) {
	if err := authz.Require(authz.OpCreateTournament, caller, ""); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	t := &model.Tournament{
		ID:              model.TournamentID(e.ids.NewID(ids.PrefixTournament)),
		Name:            strings.TrimSpace(in.Name),
		Game:            strings.TrimSpace(in.Game),
		Format:          in.Format,
		MaxParticipants: in.MaxParticipants,
		PrizePool:       in.PrizePool,
		StartDate:       in.StartDate.UTC(),
		EndDate:         utcPtr(in.EndDate),
		Status:          model.TournamentDraft,
		OrganizerID:     caller.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	if !t.StartDate.After(now) {
		return nil, model.ErrStartDateNotFuture
	}

	if err := e.storage.CreateTournament(ctx, t); err != nil {
		return nil, err
	}

	e.logger.Info("tournament created",
		slog.String("tournament_id", string(t.ID)),
		slog.String("organizer_id", string(t.OrganizerID)),
		slog.String("format", string(t.Format)))
	e.publish(ctx, model.EventTournamentCreated, t.ID, caller.UserID, nil)
	return t, nil
}

// Get retrieves a tournament by ID
func (e *Engine) Get(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	return e.storage.GetTournament(ctx, id)
}

// List returns tournaments matching the filter, newest first, paged per NormalizeFilter
func (e *Engine) List(ctx context.Context, filter model.TournamentFilter) ([]*model.Tournament, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, model.Invalid("status", "is not a tournament status")
	}
	if filter.Format != "" && !filter.Format.Valid() {
		return nil, model.Invalid("format", "must be SOLO or TEAM")
	}
	return e.storage.ListTournaments(ctx, NormalizeFilter(filter))
}

// NormalizeFilter applies the list paging rules: page defaults to 1, limit
// to DefaultPageSize and at most MaxPageSize. The page is capped so its
// offset fits in an int.
func NormalizeFilter(filter model.TournamentFilter) model.TournamentFilter {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	if maxPage := math.MaxInt / filter.Limit; filter.Page > maxPage {
		filter.Page = maxPage
	}
	return filter
}

// Update edits a tournament that has not reached a terminal status
func (e *Engine) Update(ctx context.Context, caller model.Identity, id model.TournamentID, in UpdateInput) (*model.Tournament, error) {
	current, err := e.storage.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(authz.OpUpdateTournament, caller, current.OrganizerID); err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, model.ErrTournamentClosed
	}

	updated := *current
	if in.Name != nil {
		updated.Name = strings.TrimSpace(*in.Name)
	}
	if in.Game != nil {
		updated.Game = strings.TrimSpace(*in.Game)
	}
	if in.Format != nil {
		updated.Format = *in.Format
	}
	if in.MaxParticipants != nil {
		updated.MaxParticipants = *in.MaxParticipants
	}
	if in.PrizePool != nil {
		updated.PrizePool = *in.PrizePool
	}
	if in.StartDate != nil {
		updated.StartDate = in.StartDate.UTC()
	}
	if in.EndDate != nil {
		updated.EndDate = utcPtr(in.EndDate)
	}
	if err := validate(&updated); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if in.StartDate != nil && !updated.StartDate.After(now) {
		return nil, model.ErrStartDateNotFuture
	}
	updated.UpdatedAt = now

	if err := e.storage.UpdateTournament(ctx, &updated, current.Status); err != nil {
		return nil, err
	}

	e.logger.Info("tournament updated", slog.String("tournament_id", string(id)))
	e.publish(ctx, model.EventTournamentUpdated, id, caller.UserID, nil)
	return &updated, nil
}

// ChangeStatus moves a tournament along its state machine:
//
//	DRAFT -> OPEN          start date still in the future
//	OPEN -> ONGOING        at least MinParticipantsToStart confirmed registrations
//	ONGOING -> COMPLETED   admins only
//	non-terminal -> CANCELLED  organizer or admin
//
// X -> X is a no-op that returns the tournament unchanged, after the cancel
// guard for CANCELLED. Every other pair is an illegal transition.
func (e *Engine) ChangeStatus(ctx context.Context, caller model.Identity, id model.TournamentID, to model.TournamentStatus) (*model.Tournament, error) {
	if !to.Valid() {
		return nil, model.ErrInvalidStatus
	}

	current, err := e.storage.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	from := current.Status
	now := e.clock.Now()

	if from == to {
		if to == model.TournamentCancelled {
			if err := authz.Require(authz.OpCancelTournament, caller, current.OrganizerID); err != nil {
				return nil, err
			}
		}
		return current, nil
	}

	minConfirmed := 0
	switch {
	case from.Terminal():
		return nil, model.IllegalTransition(from, to)
	case to == model.TournamentCancelled:
		if err := authz.Require(authz.OpCancelTournament, caller, current.OrganizerID); err != nil {
			return nil, err
		}
	case from == model.TournamentDraft && to == model.TournamentOpen:
		if !current.StartDate.After(now) {
			return nil, model.ErrStartDateNotFuture
		}
	case from == model.TournamentOpen && to == model.TournamentOngoing:
		minConfirmed = model.MinParticipantsToStart
	case from == model.TournamentOngoing && to == model.TournamentCompleted:
		if err := authz.Require(authz.OpCompleteTournament, caller, current.OrganizerID); err != nil {
			return nil, err
		}
	default:
		return nil, model.IllegalTransition(from, to)
	}

	updated, err := e.storage.SetTournamentStatus(ctx, id, from, to, minConfirmed, now)
	if err != nil {
		e.logger.Debug("tournament status change rejected",
			slog.String("tournament_id", string(id)),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.Any("error", err))
		return nil, err
	}

	e.logger.Info("tournament status changed",
		slog.String("tournament_id", string(id)),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.String("actor_id", string(caller.UserID)))
	e.publish(ctx, model.EventTournamentStatusChanged, id, caller.UserID, model.TournamentStatusChangedPayload{From: from, To: to})
	return updated, nil
}

// Delete removes a tournament without confirmed registrations, along with
// its remaining registrations
func (e *Engine) Delete(ctx context.Context, caller model.Identity, id model.TournamentID) error {
	current, err := e.storage.GetTournament(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Require(authz.OpDeleteTournament, caller, current.OrganizerID); err != nil {
		return err
	}
	if err := e.storage.DeleteTournament(ctx, id); err != nil {
		return err
	}

	e.logger.Info("tournament deleted", slog.String("tournament_id", string(id)))
	e.publish(ctx, model.EventTournamentDeleted, id, caller.UserID, nil)
	return nil
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

// validate checks the field constraints shared by create and update
func validate(t *model.Tournament) error {
	if n := len([]rune(t.Name)); n < minNameLength || n > maxNameLength {
		return model.Invalid("name", "must be between 3 and 100 characters")
	}
	if t.Game == "" {
		return model.Invalid("game", "is required")
	}
	if !t.Format.Valid() {
		return model.Invalid("format", "must be SOLO or TEAM")
	}
	if t.MaxParticipants < model.MinParticipantsToStart {
		return model.Invalid("maxParticipants", "must be at least 2")
	}
	if t.PrizePool < 0 {
		return model.Invalid("prizePool", "must not be negative")
	}
	if t.StartDate.IsZero() {
		return model.Invalid("startDate", "is required")
	}
	if t.EndDate != nil && !t.EndDate.After(t.StartDate) {
		return model.Invalid("endDate", "must be after startDate")
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
