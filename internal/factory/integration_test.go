package factory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/services/registration"
	"github.com/mcoot/tourney/internal/services/tournament"
	"github.com/mcoot/tourney/internal/storage"
	"github.com/mcoot/tourney/internal/storage/memory"
	redisstorage "github.com/mcoot/tourney/internal/storage/redis"
	"github.com/mcoot/tourney/internal/storage/sqlstore"
)

// IntegrationSuite drives whole lifecycles through the wired services.
// It runs once per storage backend.
type IntegrationSuite struct {
	suite.Suite
	newStorage func() storage.Storage
	app        *TestApp
	ctx        context.Context

	organizer model.Identity
	admin     model.Identity
}

func TestIntegrationMemory(t *testing.T) {
	suite.Run(t, &IntegrationSuite{newStorage: func() storage.Storage { return memory.New() }})
}

func TestIntegrationSQLite(t *testing.T) {
	s := &IntegrationSuite{}
	s.newStorage = func() storage.Storage {
		store, err := sqlstore.Open(context.Background(), sqlstore.Config{
			Dialect: sqlstore.DialectSQLite,
			DSN:     filepath.Join(s.T().TempDir(), "tourney.db"),
		})
		s.Require().NoError(err)
		return store
	}
	suite.Run(t, s)
}

func TestIntegrationRedis(t *testing.T) {
	s := &IntegrationSuite{}
	s.newStorage = func() storage.Storage {
		mr := miniredis.RunT(s.T())
		cfg := redisstorage.DefaultConfig()
		cfg.URL = "redis://" + mr.Addr()
		store, err := redisstorage.New(context.Background(), cfg)
		s.Require().NoError(err)
		return store
	}
	suite.Run(t, s)
}

func (s *IntegrationSuite) SetupTest() {
	s.ctx = context.Background()
	s.app = NewTestAppWithStorage(s.newStorage())

	var err error
	s.organizer, _, err = s.app.RegisterUser(s.ctx, "organizer", model.RoleOrganizer)
	s.Require().NoError(err)
	s.admin, _, err = s.app.CreateAdmin(s.ctx, "admin")
	s.Require().NoError(err)
}

func (s *IntegrationSuite) TearDownTest() {
	s.NoError(s.app.Close())
}

func (s *IntegrationSuite) player(name string) model.Identity {
	id, _, err := s.app.RegisterUser(s.ctx, name, model.RolePlayer)
	s.Require().NoError(err)
	return id
}

func (s *IntegrationSuite) openTournament(format model.TournamentFormat, capacity int) *model.Tournament {
	t, err := s.app.TournamentEngine.Create(s.ctx, s.organizer, tournament.CreateInput{
		Name:            "Integration Cup",
		Game:            "chess",
		Format:          format,
		MaxParticipants: capacity,
		StartDate:       s.app.MockClock.Now().Add(7 * 24 * time.Hour),
	})
	s.Require().NoError(err)
	t, err = s.app.TournamentEngine.ChangeStatus(s.ctx, s.organizer, t.ID, model.TournamentOpen)
	s.Require().NoError(err)
	return t
}

// retry repeats fn while storage reports an optimistic-transaction conflict
func retry[T any](fn func() (T, error)) (T, error) {
	for {
		v, err := fn()
		if !errors.Is(err, model.ErrConcurrentModification) {
			return v, err
		}
	}
}

func (s *IntegrationSuite) TestTeamTournamentLifecycle() {
	t := s.openTournament(model.FormatTeam, 2)
	regs := s.app.RegistrationEngine

	captains := make([]model.Identity, 3)
	teams := make([]*model.Team, 3)
	for i := range teams {
		captains[i] = s.player(fmt.Sprintf("captain%d", i))
		team, err := s.app.TeamService.Create(s.ctx, captains[i], fmt.Sprintf("Team %d", i), fmt.Sprintf("TM%d", i))
		s.Require().NoError(err)
		teams[i] = team
	}

	// Team A registers and is confirmed
	regA, err := regs.Create(s.ctx, captains[0], registration.CreateInput{TournamentID: t.ID, TeamID: teams[0].ID})
	s.Require().NoError(err)
	s.Equal(model.RegistrationPending, regA.Status)
	regA, err = regs.UpdateStatus(s.ctx, s.organizer, regA.ID, model.RegistrationConfirmed)
	s.Require().NoError(err)
	s.Require().NotNil(regA.ConfirmedAt)

	// Too early to start with one confirmed team
	_, err = s.app.TournamentEngine.ChangeStatus(s.ctx, captains[0], t.ID, model.TournamentOngoing)
	s.ErrorIs(err, model.ErrNotEnoughParticipants)

	// Team B registers and is confirmed
	regB, err := regs.Create(s.ctx, captains[1], registration.CreateInput{TournamentID: t.ID, TeamID: teams[1].ID})
	s.Require().NoError(err)
	_, err = regs.UpdateStatus(s.ctx, s.organizer, regB.ID, model.RegistrationConfirmed)
	s.Require().NoError(err)

	// A player entry is never accepted in a TEAM tournament
	_, err = regs.Create(s.ctx, captains[2], registration.CreateInput{TournamentID: t.ID, PlayerID: captains[2].UserID})
	s.ErrorIs(err, model.ErrFormatMismatch)

	// Team C finds the tournament full
	_, err = regs.Create(s.ctx, captains[2], registration.CreateInput{TournamentID: t.ID, TeamID: teams[2].ID})
	s.ErrorIs(err, model.ErrCapacityExceeded)

	// Any caller may start it
	started, err := s.app.TournamentEngine.ChangeStatus(s.ctx, captains[2], t.ID, model.TournamentOngoing)
	s.Require().NoError(err)
	s.Equal(model.TournamentOngoing, started.Status)

	// Registration is closed and confirmed entries stay put
	_, err = regs.Create(s.ctx, captains[2], registration.CreateInput{TournamentID: t.ID, TeamID: teams[2].ID})
	s.ErrorIs(err, model.ErrTournamentNotOpen)
	s.ErrorIs(regs.Remove(s.ctx, s.organizer, regA.ID), model.ErrCannotDeleteConfirmed)
	s.ErrorIs(s.app.TeamService.Delete(s.ctx, captains[0], teams[0].ID), model.ErrTeamHasRegistrations)

	// Only an admin completes it, and nothing leaves COMPLETED
	_, err = s.app.TournamentEngine.ChangeStatus(s.ctx, s.organizer, t.ID, model.TournamentCompleted)
	s.ErrorIs(err, model.ErrForbidden)
	_, err = s.app.TournamentEngine.ChangeStatus(s.ctx, s.admin, t.ID, model.TournamentCompleted)
	s.Require().NoError(err)
	_, err = s.app.TournamentEngine.ChangeStatus(s.ctx, s.admin, t.ID, model.TournamentCancelled)
	s.ErrorIs(err, model.ErrIllegalTransition)
	s.ErrorIs(s.app.TournamentEngine.Delete(s.ctx, s.organizer, t.ID), model.ErrHasConfirmedRegistrations)
}

func (s *IntegrationSuite) TestSoloRegistrationRules() {
	t := s.openTournament(model.FormatSolo, 2)
	regs := s.app.RegistrationEngine
	alice := s.player("alice")
	bob := s.player("bob")
	carol := s.player("carol")

	regAlice, err := regs.Create(s.ctx, alice, registration.CreateInput{TournamentID: t.ID, PlayerID: alice.UserID})
	s.Require().NoError(err)
	_, err = regs.UpdateStatus(s.ctx, s.organizer, regAlice.ID, model.RegistrationConfirmed)
	s.Require().NoError(err)

	// One confirmed and one pending still leave room for a third entry
	_, err = regs.Create(s.ctx, bob, registration.CreateInput{TournamentID: t.ID, PlayerID: bob.UserID})
	s.Require().NoError(err)
	regCarol, err := regs.Create(s.ctx, carol, registration.CreateInput{TournamentID: t.ID, PlayerID: carol.UserID})
	s.Require().NoError(err)

	// Registering twice is rejected whatever the first registration's status
	_, err = regs.Create(s.ctx, alice, registration.CreateInput{TournamentID: t.ID, PlayerID: alice.UserID})
	s.ErrorIs(err, model.ErrDuplicateRegistration)

	// Carol withdraws; she cannot come back
	_, err = regs.UpdateStatus(s.ctx, carol, regCarol.ID, model.RegistrationWithdrawn)
	s.Require().NoError(err)
	_, err = regs.Create(s.ctx, carol, registration.CreateInput{TournamentID: t.ID, PlayerID: carol.UserID})
	s.ErrorIs(err, model.ErrDuplicateRegistration)

	// Withdrawing a confirmed entry keeps its confirmation time
	s.app.MockClock.Advance(time.Hour)
	withdrawn, err := regs.UpdateStatus(s.ctx, alice, regAlice.ID, model.RegistrationWithdrawn)
	s.Require().NoError(err)
	s.Require().NotNil(withdrawn.ConfirmedAt)
	s.Equal(s.app.MockClock.Now().Add(-time.Hour), withdrawn.ConfirmedAt.UTC())

	list, err := regs.ListForTournament(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Len(list, 3)
}

func (s *IntegrationSuite) TestConcurrentConfirmationsRespectCapacity() {
	const capacity = 3
	const entrants = 8
	t := s.openTournament(model.FormatSolo, capacity)

	ids := make([]model.RegistrationID, entrants)
	for i := range ids {
		p := s.player(fmt.Sprintf("racer%d", i))
		reg, err := s.app.RegistrationEngine.Create(s.ctx, p, registration.CreateInput{TournamentID: t.ID, PlayerID: p.UserID})
		s.Require().NoError(err)
		ids[i] = reg.ID
	}

	var wg sync.WaitGroup
	results := make(chan error, entrants)
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := retry(func() (*model.Registration, error) {
				return s.app.RegistrationEngine.UpdateStatus(s.ctx, s.organizer, id, model.RegistrationConfirmed)
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	confirmed := 0
	for err := range results {
		if err == nil {
			confirmed++
			continue
		}
		s.ErrorIs(err, model.ErrCapacityExceeded)
	}
	s.Equal(capacity, confirmed)

	list, err := s.app.RegistrationEngine.ListForTournament(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(capacity, model.CountConfirmed(list))
}

func (s *IntegrationSuite) TestConcurrentRegistrationsForOneTeam() {
	t := s.openTournament(model.FormatTeam, 4)
	captain := s.player("captain")
	team, err := s.app.TeamService.Create(s.ctx, captain, "Racers", "RACE")
	s.Require().NoError(err)

	const attempts = 6
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := retry(func() (*model.Registration, error) {
				return s.app.RegistrationEngine.Create(s.ctx, captain, registration.CreateInput{TournamentID: t.ID, TeamID: team.ID})
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	for err := range results {
		if err == nil {
			created++
			continue
		}
		s.ErrorIs(err, model.ErrDuplicateRegistration)
	}
	s.Equal(1, created)
}

func (s *IntegrationSuite) TestUserRemoval() {
	alice := s.player("alice")
	t := s.openTournament(model.FormatSolo, 4)
	reg, err := s.app.RegistrationEngine.Create(s.ctx, alice, registration.CreateInput{TournamentID: t.ID, PlayerID: alice.UserID})
	s.Require().NoError(err)

	s.ErrorIs(s.app.UserService.Remove(s.ctx, s.admin, alice.UserID), model.ErrUserInUse)
	s.ErrorIs(s.app.UserService.Remove(s.ctx, s.admin, s.admin.UserID), model.ErrCannotRemoveSelf)

	s.Require().NoError(s.app.RegistrationEngine.Remove(s.ctx, alice, reg.ID))
	s.Require().NoError(s.app.UserService.Remove(s.ctx, s.admin, alice.UserID))

	_, err = s.app.AuthService.Login(s.ctx, "alice@example.com", "Password1")
	s.ErrorIs(err, model.ErrInvalidCredentials)
}

func (s *IntegrationSuite) TestDeleteTournamentCascades() {
	alice := s.player("alice")
	t := s.openTournament(model.FormatSolo, 4)
	reg, err := s.app.RegistrationEngine.Create(s.ctx, alice, registration.CreateInput{TournamentID: t.ID, PlayerID: alice.UserID})
	s.Require().NoError(err)

	s.Require().NoError(s.app.TournamentEngine.Delete(s.ctx, s.organizer, t.ID))

	_, err = s.app.RegistrationEngine.Get(s.ctx, reg.ID)
	s.ErrorIs(err, model.ErrRegistrationNotFound)
	s.Require().NoError(s.app.UserService.Remove(s.ctx, s.admin, alice.UserID))
}
