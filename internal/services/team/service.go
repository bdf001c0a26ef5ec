package team

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mcoot/tourney/internal/dependencies/clock"
	"github.com/mcoot/tourney/internal/dependencies/ids"
	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/services/authz"
	"github.com/mcoot/tourney/internal/storage"
)

var tagPattern = regexp.MustCompile(`^[A-Z0-9]{3,5}$`)

const (
	minNameLength = 3
	maxNameLength = 50
)

// UpdateInput holds the fields to change; nil fields are left as they are
type UpdateInput struct {
	Name *string
	Tag  *string
}

// Service manages teams and their captains
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     ids.Generator
	logger  *slog.Logger
}

// New creates a new team Service
func New(storage storage.Storage, clock clock.Clock, ids ids.Generator, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		ids:     ids,
		logger:  logger.With(slog.String("component", "team")),
	}
}

// Create stores a new team captained by the caller
func (s *Service) Create(ctx context.Context, caller model.Identity, name, tag string) (*model.Team, error) {
	now := s.clock.Now()
	t := &model.Team{
		ID:        model.TeamID(s.ids.NewID(ids.PrefixTeam)),
		Name:      strings.TrimSpace(name),
		Tag:       strings.TrimSpace(tag),
		CaptainID: caller.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	if err := s.storage.CreateTeam(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("team created",
		slog.String("team_id", string(t.ID)),
		slog.String("captain_id", string(t.CaptainID)))
	return t, nil
}

// Get retrieves a team by ID
func (s *Service) Get(ctx context.Context, id model.TeamID) (*model.Team, error) {
	return s.storage.GetTeam(ctx, id)
}

// List returns every team, oldest first
func (s *Service) List(ctx context.Context) ([]*model.Team, error) {
	return s.storage.ListTeams(ctx)
}

// Update renames or re-tags a team. Only the captain may do so.
func (s *Service) Update(ctx context.Context, caller model.Identity, id model.TeamID, in UpdateInput) (*model.Team, error) {
	current, err := s.storage.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(authz.OpUpdateTeam, caller, current.CaptainID); err != nil {
		return nil, err
	}

	updated := *current
	if in.Name != nil {
		updated.Name = strings.TrimSpace(*in.Name)
	}
	if in.Tag != nil {
		updated.Tag = strings.TrimSpace(*in.Tag)
	}
	if err := validate(&updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.clock.Now()

	if err := s.storage.UpdateTeam(ctx, &updated); err != nil {
		return nil, err
	}

	s.logger.Info("team updated", slog.String("team_id", string(id)))
	return &updated, nil
}

// Delete removes a team that holds no registrations. Only the captain may do so.
func (s *Service) Delete(ctx context.Context, caller model.Identity, id model.TeamID) error {
	current, err := s.storage.GetTeam(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Require(authz.OpDeleteTeam, caller, current.CaptainID); err != nil {
		return err
	}
	if err := s.storage.DeleteTeam(ctx, id); err != nil {
		return err
	}

	s.logger.Info("team deleted", slog.String("team_id", string(id)))
	return nil
}

func validate(t *model.Team) error {
	if n := len([]rune(t.Name)); n < minNameLength || n > maxNameLength {
		return model.Invalid("name", "must be between 3 and 50 characters")
	}
	if !tagPattern.MatchString(t.Tag) {
		return model.Invalid("tag", "must be 3 to 5 uppercase letters or digits")
	}
	return nil
}
