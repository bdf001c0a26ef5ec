package user

import (
	"context"
	"log/slog"

	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/services/authz"
	"github.com/mcoot/tourney/internal/storage"
)

// Service exposes account administration
type Service struct {
	storage storage.Storage
	logger  *slog.Logger
}

// New creates a new user Service
func New(storage storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger.With(slog.String("component", "user")),
	}
}

// Get retrieves a user by ID
func (s *Service) Get(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.storage.GetUser(ctx, id)
}

// List returns every account. Admins only.
func (s *Service) List(ctx context.Context, caller model.Identity) ([]*model.User, error) {
	if err := authz.Require(authz.OpListUsers, caller, ""); err != nil {
		return nil, err
	}
	return s.storage.ListUsers(ctx)
}

// Remove deletes another user's account. Admins only, and never their own.
func (s *Service) Remove(ctx context.Context, caller model.Identity, id model.UserID) error {
	if err := authz.Require(authz.OpRemoveUser, caller, ""); err != nil {
		return err
	}
	if caller.UserID == id {
		return model.ErrCannotRemoveSelf
	}
	if err := s.storage.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user removed",
		slog.String("user_id", string(id)),
		slog.String("actor_id", string(caller.UserID)))
	return nil
}
