package storage

import (
	"context"
	"time"

	"github.com/mcoot/tourney/internal/model"
)

// Storage defines the interface for data persistence.
//
// Plain reads and writes behave like ordinary CRUD. The guarded writes
// (CreateRegistration, SetRegistrationStatus, SetTournamentStatus,
// UpdateTournament and the Delete* operations) evaluate their guards and the
// write as one atomic unit, so two callers racing on the same tournament can
// never both pass a capacity or uniqueness check. Guard failures are reported
// with the model sentinel errors.
type Storage interface {
	// User operations
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	// DeleteUser fails with ErrUserInUse while the user organizes a
	// tournament, captains a team or holds a registration.
	DeleteUser(ctx context.Context, id model.UserID) error

	// Team operations
	CreateTeam(ctx context.Context, team *model.Team) error
	GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error)
	ListTeams(ctx context.Context) ([]*model.Team, error)
	UpdateTeam(ctx context.Context, team *model.Team) error
	// DeleteTeam fails with ErrTeamHasRegistrations while any registration references the team.
	DeleteTeam(ctx context.Context, id model.TeamID) error

	// Tournament operations
	CreateTournament(ctx context.Context, tournament *model.Tournament) error
	GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error)
	// ListTournaments returns matching tournaments newest first, paginated by the filter.
	ListTournaments(ctx context.Context, filter model.TournamentFilter) ([]*model.Tournament, error)
	// UpdateTournament writes every field except Status, provided the stored
	// status still equals expected (ErrConcurrentModification otherwise). It
	// rejects a format change once registrations exist and a capacity below
	// the confirmed count.
	UpdateTournament(ctx context.Context, tournament *model.Tournament, expected model.TournamentStatus) error
	// SetTournamentStatus moves a tournament from one status to another,
	// requiring at least minConfirmed CONFIRMED registrations.
	SetTournamentStatus(ctx context.Context, id model.TournamentID, from, to model.TournamentStatus, minConfirmed int, at time.Time) (*model.Tournament, error)
	// DeleteTournament removes a tournament and its registrations, failing
	// with ErrHasConfirmedRegistrations if any registration is CONFIRMED.
	DeleteTournament(ctx context.Context, id model.TournamentID) error

	// Registration operations

	// CreateRegistration inserts a registration if its tournament is OPEN,
	// below capacity (CONFIRMED only) and the entrant has no registration yet.
	CreateRegistration(ctx context.Context, registration *model.Registration) error
	GetRegistration(ctx context.Context, id model.RegistrationID) (*model.Registration, error)
	ListRegistrations(ctx context.Context, tournamentID model.TournamentID) ([]*model.Registration, error)
	// SetRegistrationStatus writes a new status. Moving into CONFIRMED is
	// capacity checked and stamps ConfirmedAt if it was never set.
	SetRegistrationStatus(ctx context.Context, id model.RegistrationID, status model.RegistrationStatus, at time.Time) (*model.Registration, error)
	// DeleteRegistration refuses CONFIRMED registrations with ErrCannotDeleteConfirmed.
	DeleteRegistration(ctx context.Context, id model.RegistrationID) error
}

// Closer is implemented by backends holding connections
type Closer interface {
	Close() error
}
