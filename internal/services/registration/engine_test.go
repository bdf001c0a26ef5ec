package registration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tourney/internal/dependencies/mocks"
	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/storage/memory"
	"github.com/mcoot/tourney/internal/testutil"
)

type EngineSuite struct {
	suite.Suite
	storage   *memory.Storage
	clock     *mocks.MockClock
	ids       *mocks.MockIDs
	publisher *mocks.MockPublisher
	engine    *Engine
	ctx       context.Context

	organizer model.Identity
	admin     model.Identity
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC))
	s.ids = mocks.NewMockIDs()
	s.publisher = mocks.NewMockPublisher()
	s.engine = NewEngine(s.storage, s.clock, s.ids, s.publisher, testutil.NopLogger())
	s.ctx = context.Background()

	s.organizer = model.Identity{UserID: "usr_org", Role: model.RoleOrganizer}
	s.admin = model.Identity{UserID: "usr_admin", Role: model.RoleAdmin}
}

// Fixtures

func (s *EngineSuite) createPlayer(id string) model.Identity {
	s.Require().NoError(s.storage.CreateUser(s.ctx, &model.User{
		ID:        model.UserID(id),
		Username:  id,
		Email:     id + "@example.com",
		Role:      model.RolePlayer,
		CreatedAt: s.clock.Now(),
	}))
	return model.Identity{UserID: model.UserID(id), Role: model.RolePlayer}
}

func (s *EngineSuite) createTeam(id, tag string, captain model.UserID) *model.Team {
	team := &model.Team{
		ID:        model.TeamID(id),
		Name:      "Team " + id,
		Tag:       tag,
		CaptainID: captain,
		CreatedAt: s.clock.Now(),
	}
	s.Require().NoError(s.storage.CreateTeam(s.ctx, team))
	return team
}

func (s *EngineSuite) createTournament(id string, format model.TournamentFormat, status model.TournamentStatus, capacity int) *model.Tournament {
	t := &model.Tournament{
		ID:              model.TournamentID(id),
		Name:            "Cup " + id,
		Game:            "chess",
		Format:          format,
		MaxParticipants: capacity,
		StartDate:       s.clock.Now().Add(24 * time.Hour),
		Status:          status,
		OrganizerID:     s.organizer.UserID,
		CreatedAt:       s.clock.Now(),
	}
	s.Require().NoError(s.storage.CreateTournament(s.ctx, t))
	return t
}

func (s *EngineSuite) registerPlayer(tid model.TournamentID, player model.Identity) *model.Registration {
	reg, err := s.engine.Create(s.ctx, player, CreateInput{TournamentID: tid, PlayerID: player.UserID})
	s.Require().NoError(err)
	return reg
}

func (s *EngineSuite) confirm(id model.RegistrationID) *model.Registration {
	reg, err := s.engine.UpdateStatus(s.ctx, s.organizer, id, model.RegistrationConfirmed)
	s.Require().NoError(err)
	return reg
}

// Create tests

func (s *EngineSuite) TestCreateSoloSucceeds() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	player := s.createPlayer("usr_p1")
	s.ids.Queue("reg_1")

	reg, err := s.engine.Create(s.ctx, player, CreateInput{TournamentID: t.ID, PlayerID: player.UserID})
	s.Require().NoError(err)

	s.Equal(model.RegistrationID("reg_1"), reg.ID)
	s.Equal(model.RegistrationPending, reg.Status)
	s.Nil(reg.ConfirmedAt)

	stored, err := s.engine.Get(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(player.UserID, stored.PlayerID)

	events := s.publisher.Events()
	s.Require().Len(events, 1)
	s.Equal(model.EventRegistrationCreated, events[0].Type)
	s.Equal(t.ID, events[0].TournamentID)
	s.Equal(model.RegistrationPayload{RegistrationID: "reg_1", PlayerID: player.UserID, Status: model.RegistrationPending}, events[0].Payload)
}

func (s *EngineSuite) TestCreateTeamByCaptainSucceeds() {
	t := s.createTournament("trn_1", model.FormatTeam, model.TournamentOpen, 4)
	captain := s.createPlayer("usr_cap")
	team := s.createTeam("team_a", "AAA", captain.UserID)

	reg, err := s.engine.Create(s.ctx, captain, CreateInput{TournamentID: t.ID, TeamID: team.ID})
	s.Require().NoError(err)
	s.Equal(team.ID, reg.TeamID)
	s.True(reg.IsTeamEntry())
}

func (s *EngineSuite) TestCreateTeamByNonCaptainFails() {
	t := s.createTournament("trn_1", model.FormatTeam, model.TournamentOpen, 4)
	captain := s.createPlayer("usr_cap")
	other := s.createPlayer("usr_other")
	team := s.createTeam("team_a", "AAA", captain.UserID)

	_, err := s.engine.Create(s.ctx, other, CreateInput{TournamentID: t.ID, TeamID: team.ID})
	s.ErrorIs(err, model.ErrNotCaptain)
}

func (s *EngineSuite) TestCreateTeamUnknownTeam() {
	t := s.createTournament("trn_1", model.FormatTeam, model.TournamentOpen, 4)
	captain := s.createPlayer("usr_cap")

	_, err := s.engine.Create(s.ctx, captain, CreateInput{TournamentID: t.ID, TeamID: "team_missing"})
	s.ErrorIs(err, model.ErrTeamNotFound)
}

func (s *EngineSuite) TestCreateSoloUnknownPlayer() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)

	_, err := s.engine.Create(s.ctx, s.organizer, CreateInput{TournamentID: t.ID, PlayerID: "usr_ghost"})
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *EngineSuite) TestCreateSoloForAnotherPlayerForbidden() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	p1 := s.createPlayer("usr_p1")
	p2 := s.createPlayer("usr_p2")

	_, err := s.engine.Create(s.ctx, p1, CreateInput{TournamentID: t.ID, PlayerID: p2.UserID})
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *EngineSuite) TestCreateSoloByStaffOnBehalfOfPlayer() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	player := s.createPlayer("usr_p1")

	reg, err := s.engine.Create(s.ctx, s.organizer, CreateInput{TournamentID: t.ID, PlayerID: player.UserID})
	s.Require().NoError(err)
	s.Equal(player.UserID, reg.PlayerID)
}

func (s *EngineSuite) TestCreateTournamentNotFound() {
	player := s.createPlayer("usr_p1")

	_, err := s.engine.Create(s.ctx, player, CreateInput{TournamentID: "trn_missing", PlayerID: player.UserID})
	s.ErrorIs(err, model.ErrTournamentNotFound)
	s.Equal(model.CategoryNotFound, model.CategoryOf(err))
}

func (s *EngineSuite) TestCreateRequiresOpenTournament() {
	player := s.createPlayer("usr_p1")
	statuses := []model.TournamentStatus{
		model.TournamentDraft,
		model.TournamentOngoing,
		model.TournamentCompleted,
		model.TournamentCancelled,
	}
	for i, status := range statuses {
		s.Run(string(status), func() {
			t := s.createTournament(fmt.Sprintf("trn_%d", i), model.FormatSolo, status, 4)

			_, err := s.engine.Create(s.ctx, player, CreateInput{TournamentID: t.ID, PlayerID: player.UserID})
			s.ErrorIs(err, model.ErrTournamentNotOpen)
		})
	}
}

func (s *EngineSuite) TestCreateFormatMismatch() {
	solo := s.createTournament("trn_solo", model.FormatSolo, model.TournamentOpen, 4)
	team := s.createTournament("trn_team", model.FormatTeam, model.TournamentOpen, 4)
	captain := s.createPlayer("usr_cap")
	s.createTeam("team_a", "AAA", captain.UserID)

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"team entry in solo", CreateInput{TournamentID: solo.ID, TeamID: "team_a"}},
		{"both in solo", CreateInput{TournamentID: solo.ID, PlayerID: captain.UserID, TeamID: "team_a"}},
		{"neither in solo", CreateInput{TournamentID: solo.ID}},
		{"player entry in team", CreateInput{TournamentID: team.ID, PlayerID: captain.UserID}},
		{"both in team", CreateInput{TournamentID: team.ID, PlayerID: captain.UserID, TeamID: "team_a"}},
		{"unknown player in team", CreateInput{TournamentID: team.ID, PlayerID: "usr_ghost"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.engine.Create(s.ctx, captain, tc.in)
			s.ErrorIs(err, model.ErrFormatMismatch)
			s.Equal(model.CategoryRuleViolation, model.CategoryOf(err))
		})
	}
}

func (s *EngineSuite) TestCreateCapacityCountsConfirmedOnly() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 2)
	p1 := s.createPlayer("usr_p1")
	p2 := s.createPlayer("usr_p2")
	p3 := s.createPlayer("usr_p3")

	s.confirm(s.registerPlayer(t.ID, p1).ID)
	s.registerPlayer(t.ID, p2)

	// One CONFIRMED and one PENDING leave room
	reg, err := s.engine.Create(s.ctx, p3, CreateInput{TournamentID: t.ID, PlayerID: p3.UserID})
	s.Require().NoError(err)
	s.Equal(model.RegistrationPending, reg.Status)
}

func (s *EngineSuite) TestCreateCapacityExceeded() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 2)
	p1 := s.createPlayer("usr_p1")
	p2 := s.createPlayer("usr_p2")
	p3 := s.createPlayer("usr_p3")
	s.confirm(s.registerPlayer(t.ID, p1).ID)
	s.confirm(s.registerPlayer(t.ID, p2).ID)

	_, err := s.engine.Create(s.ctx, p3, CreateInput{TournamentID: t.ID, PlayerID: p3.UserID})
	s.ErrorIs(err, model.ErrCapacityExceeded)
}

func (s *EngineSuite) TestCreateDuplicateAnyStatus() {
	statuses := []model.RegistrationStatus{
		model.RegistrationPending,
		model.RegistrationConfirmed,
		model.RegistrationRejected,
		model.RegistrationWithdrawn,
	}
	for i, status := range statuses {
		s.Run(string(status), func() {
			t := s.createTournament(fmt.Sprintf("trn_%d", i), model.FormatSolo, model.TournamentOpen, 4)
			player := s.createPlayer(fmt.Sprintf("usr_dup%d", i))
			reg := s.registerPlayer(t.ID, player)
			if status != model.RegistrationPending {
				_, err := s.engine.UpdateStatus(s.ctx, s.organizer, reg.ID, status)
				s.Require().NoError(err)
			}

			_, err := s.engine.Create(s.ctx, player, CreateInput{TournamentID: t.ID, PlayerID: player.UserID})
			s.ErrorIs(err, model.ErrDuplicateRegistration)
			s.Equal(model.CategoryConflict, model.CategoryOf(err))
		})
	}
}

func (s *EngineSuite) TestCreateFailureWritesNothing() {
	t := s.createTournament("trn_1", model.FormatTeam, model.TournamentOpen, 4)
	player := s.createPlayer("usr_p1")

	_, err := s.engine.Create(s.ctx, player, CreateInput{TournamentID: t.ID, PlayerID: player.UserID})
	s.Require().Error(err)

	regs, err := s.engine.ListForTournament(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Empty(regs)
	s.Empty(s.publisher.Events())
}

// UpdateStatus tests

func (s *EngineSuite) TestConfirmStampsConfirmedAtOnce() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	player := s.createPlayer("usr_p1")
	reg := s.registerPlayer(t.ID, player)

	confirmed := s.confirm(reg.ID)
	s.Equal(model.RegistrationConfirmed, confirmed.Status)
	s.Require().NotNil(confirmed.ConfirmedAt)
	firstStamp := *confirmed.ConfirmedAt
	s.Equal(s.clock.Now(), firstStamp)

	s.clock.Advance(time.Hour)
	again := s.confirm(reg.ID)
	s.Equal(firstStamp, *again.ConfirmedAt)

	s.clock.Advance(time.Hour)
	withdrawn, err := s.engine.UpdateStatus(s.ctx, s.organizer, reg.ID, model.RegistrationWithdrawn)
	s.Require().NoError(err)
	s.Equal(model.RegistrationWithdrawn, withdrawn.Status)
	s.Require().NotNil(withdrawn.ConfirmedAt)
	s.Equal(firstStamp, *withdrawn.ConfirmedAt)
}

func (s *EngineSuite) TestUpdateStatusIsPermissive() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	player := s.createPlayer("usr_p1")
	reg := s.registerPlayer(t.ID, player)

	for _, status := range []model.RegistrationStatus{
		model.RegistrationRejected,
		model.RegistrationConfirmed,
		model.RegistrationPending,
		model.RegistrationWithdrawn,
		model.RegistrationConfirmed,
	} {
		updated, err := s.engine.UpdateStatus(s.ctx, s.admin, reg.ID, status)
		s.Require().NoError(err)
		s.Equal(status, updated.Status)
	}
}

func (s *EngineSuite) TestUpdateStatusInvalid() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	reg := s.registerPlayer(t.ID, s.createPlayer("usr_p1"))

	_, err := s.engine.UpdateStatus(s.ctx, s.organizer, reg.ID, "APPROVED")
	s.ErrorIs(err, model.ErrInvalidStatus)
	s.Equal(model.CategoryValidation, model.CategoryOf(err))
}

func (s *EngineSuite) TestUpdateStatusNotFound() {
	_, err := s.engine.UpdateStatus(s.ctx, s.organizer, "reg_missing", model.RegistrationConfirmed)
	s.ErrorIs(err, model.ErrRegistrationNotFound)
}

func (s *EngineSuite) TestConfirmBeyondCapacityFails() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 2)
	regs := make([]*model.Registration, 3)
	for i := range regs {
		regs[i] = s.registerPlayer(t.ID, s.createPlayer(fmt.Sprintf("usr_p%d", i)))
	}
	s.confirm(regs[0].ID)
	s.confirm(regs[1].ID)

	_, err := s.engine.UpdateStatus(s.ctx, s.organizer, regs[2].ID, model.RegistrationConfirmed)
	s.ErrorIs(err, model.ErrCapacityExceeded)

	stored, _ := s.engine.Get(s.ctx, regs[2].ID)
	s.Equal(model.RegistrationPending, stored.Status)
}

func (s *EngineSuite) TestRegistrantMayWithdraw() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	player := s.createPlayer("usr_p1")
	reg := s.registerPlayer(t.ID, player)
	s.confirm(reg.ID)

	updated, err := s.engine.UpdateStatus(s.ctx, player, reg.ID, model.RegistrationWithdrawn)
	s.Require().NoError(err)
	s.Equal(model.RegistrationWithdrawn, updated.Status)
}

func (s *EngineSuite) TestRegistrantCannotConfirm() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	player := s.createPlayer("usr_p1")
	reg := s.registerPlayer(t.ID, player)

	_, err := s.engine.UpdateStatus(s.ctx, player, reg.ID, model.RegistrationConfirmed)
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *EngineSuite) TestOtherPlayerCannotChangeStatus() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	reg := s.registerPlayer(t.ID, s.createPlayer("usr_p1"))
	other := s.createPlayer("usr_p2")

	_, err := s.engine.UpdateStatus(s.ctx, other, reg.ID, model.RegistrationWithdrawn)
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *EngineSuite) TestCaptainMayWithdrawTeam() {
	t := s.createTournament("trn_1", model.FormatTeam, model.TournamentOpen, 4)
	captain := s.createPlayer("usr_cap")
	team := s.createTeam("team_a", "AAA", captain.UserID)
	reg, err := s.engine.Create(s.ctx, captain, CreateInput{TournamentID: t.ID, TeamID: team.ID})
	s.Require().NoError(err)

	updated, err := s.engine.UpdateStatus(s.ctx, captain, reg.ID, model.RegistrationWithdrawn)
	s.Require().NoError(err)
	s.Equal(model.RegistrationWithdrawn, updated.Status)
}

func (s *EngineSuite) TestUpdateStatusPublishesTransition() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	reg := s.registerPlayer(t.ID, s.createPlayer("usr_p1"))
	s.publisher.Reset()

	s.confirm(reg.ID)

	events := s.publisher.Events()
	s.Require().Len(events, 1)
	s.Equal(model.EventRegistrationStatusChanged, events[0].Type)
	s.Equal(s.organizer.UserID, events[0].ActorID)
	s.Equal(model.RegistrationStatusChangedPayload{
		RegistrationID: reg.ID,
		From:           model.RegistrationPending,
		To:             model.RegistrationConfirmed,
	}, events[0].Payload)
}

// Remove tests

func (s *EngineSuite) TestRemovePending() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	player := s.createPlayer("usr_p1")
	reg := s.registerPlayer(t.ID, player)

	s.Require().NoError(s.engine.Remove(s.ctx, player, reg.ID))

	_, err := s.engine.Get(s.ctx, reg.ID)
	s.ErrorIs(err, model.ErrRegistrationNotFound)
	s.Contains(s.publisher.Types(), model.EventRegistrationDeleted)
}

func (s *EngineSuite) TestRemoveConfirmedFails() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	reg := s.registerPlayer(t.ID, s.createPlayer("usr_p1"))
	s.confirm(reg.ID)

	err := s.engine.Remove(s.ctx, s.admin, reg.ID)
	s.ErrorIs(err, model.ErrCannotDeleteConfirmed)
	s.Equal(model.CategoryRuleViolation, model.CategoryOf(err))

	_, err = s.engine.Get(s.ctx, reg.ID)
	s.NoError(err)
}

func (s *EngineSuite) TestRemoveWithdrawnByStaff() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	reg := s.registerPlayer(t.ID, s.createPlayer("usr_p1"))
	_, err := s.engine.UpdateStatus(s.ctx, s.organizer, reg.ID, model.RegistrationWithdrawn)
	s.Require().NoError(err)

	s.NoError(s.engine.Remove(s.ctx, s.organizer, reg.ID))
}

func (s *EngineSuite) TestRegistrantCannotRemoveRejected() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	player := s.createPlayer("usr_p1")
	reg := s.registerPlayer(t.ID, player)
	_, err := s.engine.UpdateStatus(s.ctx, s.organizer, reg.ID, model.RegistrationRejected)
	s.Require().NoError(err)

	err = s.engine.Remove(s.ctx, player, reg.ID)
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *EngineSuite) TestRemoveByStrangerForbidden() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	reg := s.registerPlayer(t.ID, s.createPlayer("usr_p1"))

	err := s.engine.Remove(s.ctx, s.createPlayer("usr_p2"), reg.ID)
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *EngineSuite) TestRemoveNotFound() {
	err := s.engine.Remove(s.ctx, s.admin, "reg_missing")
	s.ErrorIs(err, model.ErrRegistrationNotFound)
}

// ListForTournament tests

func (s *EngineSuite) TestListForTournament() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	other := s.createTournament("trn_2", model.FormatSolo, model.TournamentOpen, 4)
	first := s.registerPlayer(t.ID, s.createPlayer("usr_p1"))
	s.clock.Advance(time.Minute)
	second := s.registerPlayer(t.ID, s.createPlayer("usr_p2"))
	s.registerPlayer(other.ID, s.createPlayer("usr_p3"))

	regs, err := s.engine.ListForTournament(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Require().Len(regs, 2)
	s.Equal(first.ID, regs[0].ID)
	s.Equal(second.ID, regs[1].ID)
}

func (s *EngineSuite) TestListForUnknownTournament() {
	_, err := s.engine.ListForTournament(s.ctx, "trn_missing")
	s.ErrorIs(err, model.ErrTournamentNotFound)
}

// Concurrency

func (s *EngineSuite) TestConcurrentCreatesForSameEntrant() {
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4)
	player := s.createPlayer("usr_p1")

	const attempts = 8
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := s.engine.Create(s.ctx, player, CreateInput{TournamentID: t.ID, PlayerID: player.UserID})
			errs <- err
		}()
	}

	succeeded := 0
	for i := 0; i < attempts; i++ {
		err := <-errs
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrDuplicateRegistration)
	}
	s.Equal(1, succeeded)
}

// Scenario

func (s *EngineSuite) TestTeamTournamentFillsUp() {
	t := s.createTournament("trn_1", model.FormatTeam, model.TournamentOpen, 2)
	teams := make([]*model.Team, 3)
	captains := make([]model.Identity, 3)
	for i := range teams {
		captains[i] = s.createPlayer(fmt.Sprintf("usr_cap%d", i))
		teams[i] = s.createTeam(fmt.Sprintf("team_%d", i), fmt.Sprintf("TM%d", i), captains[i].UserID)
	}

	for i := 0; i < 2; i++ {
		reg, err := s.engine.Create(s.ctx, captains[i], CreateInput{TournamentID: t.ID, TeamID: teams[i].ID})
		s.Require().NoError(err)
		s.Equal(model.RegistrationPending, reg.Status)

		confirmed := s.confirm(reg.ID)
		s.NotNil(confirmed.ConfirmedAt)
	}

	_, err := s.engine.Create(s.ctx, captains[2], CreateInput{TournamentID: t.ID, TeamID: teams[2].ID})
	s.ErrorIs(err, model.ErrCapacityExceeded)
}
