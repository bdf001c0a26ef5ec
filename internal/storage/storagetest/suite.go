// Package storagetest holds the behavioural suite every storage backend must pass.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/storage"
)

// Suite exercises a storage.Storage implementation. Backends embed it and
// assign Storage in their own SetupTest before calling Suite.SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
	Now     time.Time
}

func (s *Suite) SetupTest() {
	s.Ctx = context.Background()
	s.Now = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
}

// Fixtures

func (s *Suite) createUser(id, username string) *model.User {
	u := &model.User{
		ID:           model.UserID(id),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         model.RolePlayer,
		CreatedAt:    s.Now,
		UpdatedAt:    s.Now,
	}
	s.Require().NoError(s.Storage.CreateUser(s.Ctx, u))
	return u
}

func (s *Suite) createTeam(id, name, tag string, captain model.UserID) *model.Team {
	t := &model.Team{
		ID:        model.TeamID(id),
		Name:      name,
		Tag:       tag,
		CaptainID: captain,
		CreatedAt: s.Now,
		UpdatedAt: s.Now,
	}
	s.Require().NoError(s.Storage.CreateTeam(s.Ctx, t))
	return t
}

func (s *Suite) createTournament(id string, format model.TournamentFormat, status model.TournamentStatus, capacity int, organizer model.UserID, createdAt time.Time) *model.Tournament {
	t := &model.Tournament{
		ID:              model.TournamentID(id),
		Name:            "Cup " + id,
		Game:            "chess",
		Format:          format,
		MaxParticipants: capacity,
		PrizePool:       100,
		StartDate:       s.Now.Add(24 * time.Hour),
		Status:          status,
		OrganizerID:     organizer,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	s.Require().NoError(s.Storage.CreateTournament(s.Ctx, t))
	return t
}

func (s *Suite) soloRegistration(id string, tid model.TournamentID, player model.UserID) *model.Registration {
	return &model.Registration{
		ID:           model.RegistrationID(id),
		TournamentID: tid,
		PlayerID:     player,
		Status:       model.RegistrationPending,
		CreatedAt:    s.Now,
		UpdatedAt:    s.Now,
	}
}

func (s *Suite) teamRegistration(id string, tid model.TournamentID, team model.TeamID) *model.Registration {
	return &model.Registration{
		ID:           model.RegistrationID(id),
		TournamentID: tid,
		TeamID:       team,
		Status:       model.RegistrationPending,
		CreatedAt:    s.Now,
		UpdatedAt:    s.Now,
	}
}

// User tests

func (s *Suite) TestCreateAndGetUser() {
	u := s.createUser("usr_1", "alice")

	got, err := s.Storage.GetUser(s.Ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("alice", got.Username)
	s.Equal("alice@example.com", got.Email)
	s.Equal(model.RolePlayer, got.Role)
	s.True(got.CreatedAt.Equal(s.Now))

	byEmail, err := s.Storage.GetUserByEmail(s.Ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)

	byName, err := s.Storage.GetUserByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(u.ID, byName.ID)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Storage.GetUser(s.Ctx, "usr_missing")
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.Storage.GetUserByEmail(s.Ctx, "nobody@example.com")
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.Storage.GetUserByUsername(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestCreateUserDuplicates() {
	s.createUser("usr_1", "alice")

	dupName := &model.User{ID: "usr_2", Username: "alice", Email: "other@example.com", Role: model.RolePlayer, CreatedAt: s.Now}
	s.ErrorIs(s.Storage.CreateUser(s.Ctx, dupName), model.ErrUsernameTaken)

	dupEmail := &model.User{ID: "usr_3", Username: "bob", Email: "alice@example.com", Role: model.RolePlayer, CreatedAt: s.Now}
	s.ErrorIs(s.Storage.CreateUser(s.Ctx, dupEmail), model.ErrEmailTaken)
}

func (s *Suite) TestListAndDeleteUsers() {
	s.createUser("usr_1", "alice")
	s.createUser("usr_2", "bob")

	users, err := s.Storage.ListUsers(s.Ctx)
	s.Require().NoError(err)
	s.Len(users, 2)

	s.Require().NoError(s.Storage.DeleteUser(s.Ctx, "usr_2"))
	_, err = s.Storage.GetUser(s.Ctx, "usr_2")
	s.ErrorIs(err, model.ErrUserNotFound)

	// The freed username can be taken again
	s.createUser("usr_3", "bob")

	s.ErrorIs(s.Storage.DeleteUser(s.Ctx, "usr_missing"), model.ErrUserNotFound)
}

func (s *Suite) TestDeleteUserInUse() {
	org := s.createUser("usr_org", "org")
	captain := s.createUser("usr_cap", "cap")
	player := s.createUser("usr_p", "player")
	s.createTeam("team_1", "Lions", "LIO", captain.ID)
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4, org.ID, s.Now)
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_1", t.ID, player.ID)))

	s.ErrorIs(s.Storage.DeleteUser(s.Ctx, org.ID), model.ErrUserInUse)
	s.ErrorIs(s.Storage.DeleteUser(s.Ctx, captain.ID), model.ErrUserInUse)
	s.ErrorIs(s.Storage.DeleteUser(s.Ctx, player.ID), model.ErrUserInUse)
}

// Team tests

func (s *Suite) TestTeamLifecycle() {
	captain := s.createUser("usr_cap", "cap")
	team := s.createTeam("team_1", "Lions", "LIO", captain.ID)

	got, err := s.Storage.GetTeam(s.Ctx, team.ID)
	s.Require().NoError(err)
	s.Equal("Lions", got.Name)
	s.Equal(captain.ID, got.CaptainID)

	dup := &model.Team{ID: "team_2", Name: "Lions", Tag: "OTH", CaptainID: captain.ID, CreatedAt: s.Now}
	s.ErrorIs(s.Storage.CreateTeam(s.Ctx, dup), model.ErrTeamNameTaken)
	dup = &model.Team{ID: "team_2", Name: "Tigers", Tag: "LIO", CaptainID: captain.ID, CreatedAt: s.Now}
	s.ErrorIs(s.Storage.CreateTeam(s.Ctx, dup), model.ErrTeamTagTaken)

	got.Name = "Big Lions"
	s.Require().NoError(s.Storage.UpdateTeam(s.Ctx, got))
	s.createTeam("team_3", "Lions", "NEW", captain.ID)

	teams, err := s.Storage.ListTeams(s.Ctx)
	s.Require().NoError(err)
	s.Len(teams, 2)

	s.Require().NoError(s.Storage.DeleteTeam(s.Ctx, team.ID))
	_, err = s.Storage.GetTeam(s.Ctx, team.ID)
	s.ErrorIs(err, model.ErrTeamNotFound)
}

func (s *Suite) TestUpdateTeamNameConflict() {
	captain := s.createUser("usr_cap", "cap")
	s.createTeam("team_1", "Lions", "LIO", captain.ID)
	other := s.createTeam("team_2", "Tigers", "TIG", captain.ID)

	other.Name = "Lions"
	s.ErrorIs(s.Storage.UpdateTeam(s.Ctx, other), model.ErrTeamNameTaken)

	missing := &model.Team{ID: "team_missing", Name: "X", Tag: "X"}
	s.ErrorIs(s.Storage.UpdateTeam(s.Ctx, missing), model.ErrTeamNotFound)
}

func (s *Suite) TestDeleteTeamWithRegistrations() {
	org := s.createUser("usr_org", "org")
	captain := s.createUser("usr_cap", "cap")
	team := s.createTeam("team_1", "Lions", "LIO", captain.ID)
	t := s.createTournament("trn_1", model.FormatTeam, model.TournamentOpen, 4, org.ID, s.Now)
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.teamRegistration("reg_1", t.ID, team.ID)))

	s.ErrorIs(s.Storage.DeleteTeam(s.Ctx, team.ID), model.ErrTeamHasRegistrations)
}

// Tournament tests

func (s *Suite) TestCreateAndGetTournament() {
	org := s.createUser("usr_org", "org")
	end := s.Now.Add(48 * time.Hour)
	t := &model.Tournament{
		ID:              "trn_1",
		Name:            "Spring Cup",
		Game:            "chess",
		Format:          model.FormatSolo,
		MaxParticipants: 8,
		PrizePool:       250.5,
		StartDate:       s.Now.Add(24 * time.Hour),
		EndDate:         &end,
		Status:          model.TournamentDraft,
		OrganizerID:     org.ID,
		CreatedAt:       s.Now,
		UpdatedAt:       s.Now,
	}
	s.Require().NoError(s.Storage.CreateTournament(s.Ctx, t))

	got, err := s.Storage.GetTournament(s.Ctx, "trn_1")
	s.Require().NoError(err)
	s.Equal("Spring Cup", got.Name)
	s.Equal(model.FormatSolo, got.Format)
	s.Equal(8, got.MaxParticipants)
	s.InDelta(250.5, got.PrizePool, 0.001)
	s.True(got.StartDate.Equal(t.StartDate))
	s.Require().NotNil(got.EndDate)
	s.True(got.EndDate.Equal(end))
	s.Equal(model.TournamentDraft, got.Status)
	s.Equal(org.ID, got.OrganizerID)

	_, err = s.Storage.GetTournament(s.Ctx, "trn_missing")
	s.ErrorIs(err, model.ErrTournamentNotFound)
}

func (s *Suite) TestListTournamentsFilterAndPaging() {
	org := s.createUser("usr_org", "org")
	for i := 0; i < 5; i++ {
		status := model.TournamentOpen
		if i%2 == 1 {
			status = model.TournamentDraft
		}
		s.createTournament(fmt.Sprintf("trn_%d", i), model.FormatSolo, status, 4, org.ID, s.Now.Add(time.Duration(i)*time.Minute))
	}

	all, err := s.Storage.ListTournaments(s.Ctx, model.TournamentFilter{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(all, 5)
	s.Equal(model.TournamentID("trn_4"), all[0].ID)
	s.Equal(model.TournamentID("trn_0"), all[4].ID)

	open, err := s.Storage.ListTournaments(s.Ctx, model.TournamentFilter{Status: model.TournamentOpen, Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Len(open, 3)

	page2, err := s.Storage.ListTournaments(s.Ctx, model.TournamentFilter{Page: 2, Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(page2, 2)
	s.Equal(model.TournamentID("trn_2"), page2[0].ID)

	beyond, err := s.Storage.ListTournaments(s.Ctx, model.TournamentFilter{Page: 9, Limit: 2})
	s.Require().NoError(err)
	s.Empty(beyond)

	team, err := s.Storage.ListTournaments(s.Ctx, model.TournamentFilter{Format: model.FormatTeam, Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Empty(team)
}

func (s *Suite) TestUpdateTournament() {
	org := s.createUser("usr_org", "org")
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentDraft, 4, org.ID, s.Now)

	t.Name = "Renamed"
	t.MaxParticipants = 16
	t.Status = model.TournamentCompleted // ignored
	s.Require().NoError(s.Storage.UpdateTournament(s.Ctx, t, model.TournamentDraft))

	got, err := s.Storage.GetTournament(s.Ctx, t.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", got.Name)
	s.Equal(16, got.MaxParticipants)
	s.Equal(model.TournamentDraft, got.Status)
}

func (s *Suite) TestUpdateTournamentStaleStatus() {
	org := s.createUser("usr_org", "org")
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4, org.ID, s.Now)

	s.ErrorIs(s.Storage.UpdateTournament(s.Ctx, t, model.TournamentDraft), model.ErrConcurrentModification)

	missing := &model.Tournament{ID: "trn_missing"}
	s.ErrorIs(s.Storage.UpdateTournament(s.Ctx, missing, model.TournamentDraft), model.ErrTournamentNotFound)
}

func (s *Suite) TestUpdateTournamentGuards() {
	org := s.createUser("usr_org", "org")
	p1 := s.createUser("usr_1", "p1")
	p2 := s.createUser("usr_2", "p2")
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4, org.ID, s.Now)
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_1", t.ID, p1.ID)))
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_2", t.ID, p2.ID)))
	_, err := s.Storage.SetRegistrationStatus(s.Ctx, "reg_1", model.RegistrationConfirmed, s.Now)
	s.Require().NoError(err)
	_, err = s.Storage.SetRegistrationStatus(s.Ctx, "reg_2", model.RegistrationConfirmed, s.Now)
	s.Require().NoError(err)

	changed := *t
	changed.Format = model.FormatTeam
	s.ErrorIs(s.Storage.UpdateTournament(s.Ctx, &changed, model.TournamentOpen), model.ErrFormatLocked)

	shrunk := *t
	shrunk.MaxParticipants = 1
	s.ErrorIs(s.Storage.UpdateTournament(s.Ctx, &shrunk, model.TournamentOpen), model.ErrCapacityBelowConfirmed)

	exact := *t
	exact.MaxParticipants = 2
	s.NoError(s.Storage.UpdateTournament(s.Ctx, &exact, model.TournamentOpen))
}

func (s *Suite) TestSetTournamentStatus() {
	org := s.createUser("usr_org", "org")
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentDraft, 4, org.ID, s.Now)
	later := s.Now.Add(time.Hour)

	got, err := s.Storage.SetTournamentStatus(s.Ctx, t.ID, model.TournamentDraft, model.TournamentOpen, 0, later)
	s.Require().NoError(err)
	s.Equal(model.TournamentOpen, got.Status)
	s.True(got.UpdatedAt.Equal(later))

	_, err = s.Storage.SetTournamentStatus(s.Ctx, t.ID, model.TournamentDraft, model.TournamentOpen, 0, later)
	s.ErrorIs(err, model.ErrConcurrentModification)

	_, err = s.Storage.SetTournamentStatus(s.Ctx, "trn_missing", model.TournamentDraft, model.TournamentOpen, 0, later)
	s.ErrorIs(err, model.ErrTournamentNotFound)
}

func (s *Suite) TestSetTournamentStatusNeedsConfirmed() {
	org := s.createUser("usr_org", "org")
	p1 := s.createUser("usr_1", "p1")
	p2 := s.createUser("usr_2", "p2")
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4, org.ID, s.Now)
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_1", t.ID, p1.ID)))
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_2", t.ID, p2.ID)))
	_, err := s.Storage.SetRegistrationStatus(s.Ctx, "reg_1", model.RegistrationConfirmed, s.Now)
	s.Require().NoError(err)

	_, err = s.Storage.SetTournamentStatus(s.Ctx, t.ID, model.TournamentOpen, model.TournamentOngoing, 2, s.Now)
	s.ErrorIs(err, model.ErrNotEnoughParticipants)

	_, err = s.Storage.SetRegistrationStatus(s.Ctx, "reg_2", model.RegistrationConfirmed, s.Now)
	s.Require().NoError(err)
	got, err := s.Storage.SetTournamentStatus(s.Ctx, t.ID, model.TournamentOpen, model.TournamentOngoing, 2, s.Now)
	s.Require().NoError(err)
	s.Equal(model.TournamentOngoing, got.Status)
}

func (s *Suite) TestDeleteTournamentCascades() {
	org := s.createUser("usr_org", "org")
	p1 := s.createUser("usr_1", "p1")
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4, org.ID, s.Now)
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_1", t.ID, p1.ID)))

	s.Require().NoError(s.Storage.DeleteTournament(s.Ctx, t.ID))

	_, err := s.Storage.GetTournament(s.Ctx, t.ID)
	s.ErrorIs(err, model.ErrTournamentNotFound)
	_, err = s.Storage.GetRegistration(s.Ctx, "reg_1")
	s.ErrorIs(err, model.ErrRegistrationNotFound)

	// The player is no longer referenced
	s.NoError(s.Storage.DeleteUser(s.Ctx, p1.ID))
	s.ErrorIs(s.Storage.DeleteTournament(s.Ctx, t.ID), model.ErrTournamentNotFound)
}

func (s *Suite) TestDeleteTournamentWithConfirmed() {
	org := s.createUser("usr_org", "org")
	p1 := s.createUser("usr_1", "p1")
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4, org.ID, s.Now)
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_1", t.ID, p1.ID)))
	_, err := s.Storage.SetRegistrationStatus(s.Ctx, "reg_1", model.RegistrationConfirmed, s.Now)
	s.Require().NoError(err)

	s.ErrorIs(s.Storage.DeleteTournament(s.Ctx, t.ID), model.ErrHasConfirmedRegistrations)
}

// Registration tests

func (s *Suite) TestCreateRegistration() {
	org := s.createUser("usr_org", "org")
	p1 := s.createUser("usr_1", "p1")
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4, org.ID, s.Now)

	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_1", t.ID, p1.ID)))

	got, err := s.Storage.GetRegistration(s.Ctx, "reg_1")
	s.Require().NoError(err)
	s.Equal(t.ID, got.TournamentID)
	s.Equal(p1.ID, got.PlayerID)
	s.Empty(got.TeamID)
	s.Equal(model.RegistrationPending, got.Status)
	s.Nil(got.ConfirmedAt)

	_, err = s.Storage.GetRegistration(s.Ctx, "reg_missing")
	s.ErrorIs(err, model.ErrRegistrationNotFound)
}

func (s *Suite) TestCreateRegistrationGuards() {
	org := s.createUser("usr_org", "org")
	p1 := s.createUser("usr_1", "p1")
	p2 := s.createUser("usr_2", "p2")
	draft := s.createTournament("trn_draft", model.FormatSolo, model.TournamentDraft, 4, org.ID, s.Now)
	full := s.createTournament("trn_full", model.FormatSolo, model.TournamentOpen, 1, org.ID, s.Now)

	s.ErrorIs(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_1", "trn_missing", p1.ID)), model.ErrTournamentNotFound)
	s.ErrorIs(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_1", draft.ID, p1.ID)), model.ErrTournamentNotOpen)

	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_1", full.ID, p1.ID)))
	s.ErrorIs(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_dup", full.ID, p1.ID)), model.ErrDuplicateRegistration)

	_, err := s.Storage.SetRegistrationStatus(s.Ctx, "reg_1", model.RegistrationConfirmed, s.Now)
	s.Require().NoError(err)
	s.ErrorIs(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_2", full.ID, p2.ID)), model.ErrCapacityExceeded)
}

func (s *Suite) TestPendingDoesNotConsumeCapacity() {
	org := s.createUser("usr_org", "org")
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 2, org.ID, s.Now)
	for i := 0; i < 4; i++ {
		p := s.createUser(fmt.Sprintf("usr_%d", i), fmt.Sprintf("p%d", i))
		s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration(fmt.Sprintf("reg_%d", i), t.ID, p.ID)))
	}

	regs, err := s.Storage.ListRegistrations(s.Ctx, t.ID)
	s.Require().NoError(err)
	s.Len(regs, 4)
}

func (s *Suite) TestDuplicateTeamRegistration() {
	org := s.createUser("usr_org", "org")
	captain := s.createUser("usr_cap", "cap")
	team := s.createTeam("team_1", "Lions", "LIO", captain.ID)
	t := s.createTournament("trn_1", model.FormatTeam, model.TournamentOpen, 4, org.ID, s.Now)

	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.teamRegistration("reg_1", t.ID, team.ID)))
	s.ErrorIs(s.Storage.CreateRegistration(s.Ctx, s.teamRegistration("reg_2", t.ID, team.ID)), model.ErrDuplicateRegistration)
}

func (s *Suite) TestSetRegistrationStatus() {
	org := s.createUser("usr_org", "org")
	p1 := s.createUser("usr_1", "p1")
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4, org.ID, s.Now)
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_1", t.ID, p1.ID)))

	first := s.Now.Add(time.Minute)
	got, err := s.Storage.SetRegistrationStatus(s.Ctx, "reg_1", model.RegistrationConfirmed, first)
	s.Require().NoError(err)
	s.Equal(model.RegistrationConfirmed, got.Status)
	s.Require().NotNil(got.ConfirmedAt)
	s.True(got.ConfirmedAt.Equal(first))

	got, err = s.Storage.SetRegistrationStatus(s.Ctx, "reg_1", model.RegistrationPending, first.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(model.RegistrationPending, got.Status)

	// ConfirmedAt keeps its first stamp
	got, err = s.Storage.SetRegistrationStatus(s.Ctx, "reg_1", model.RegistrationConfirmed, first.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Require().NotNil(got.ConfirmedAt)
	s.True(got.ConfirmedAt.Equal(first))

	_, err = s.Storage.SetRegistrationStatus(s.Ctx, "reg_missing", model.RegistrationConfirmed, first)
	s.ErrorIs(err, model.ErrRegistrationNotFound)
}

func (s *Suite) TestConfirmRespectsCapacity() {
	org := s.createUser("usr_org", "org")
	p1 := s.createUser("usr_1", "p1")
	p2 := s.createUser("usr_2", "p2")
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 1, org.ID, s.Now)
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_1", t.ID, p1.ID)))
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_2", t.ID, p2.ID)))

	_, err := s.Storage.SetRegistrationStatus(s.Ctx, "reg_1", model.RegistrationConfirmed, s.Now)
	s.Require().NoError(err)
	_, err = s.Storage.SetRegistrationStatus(s.Ctx, "reg_2", model.RegistrationConfirmed, s.Now)
	s.ErrorIs(err, model.ErrCapacityExceeded)

	// Re-confirming an already confirmed registration is not a new slot
	_, err = s.Storage.SetRegistrationStatus(s.Ctx, "reg_1", model.RegistrationConfirmed, s.Now)
	s.NoError(err)
}

func (s *Suite) TestDeleteRegistration() {
	org := s.createUser("usr_org", "org")
	p1 := s.createUser("usr_1", "p1")
	p2 := s.createUser("usr_2", "p2")
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4, org.ID, s.Now)
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_1", t.ID, p1.ID)))
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_2", t.ID, p2.ID)))
	_, err := s.Storage.SetRegistrationStatus(s.Ctx, "reg_2", model.RegistrationConfirmed, s.Now)
	s.Require().NoError(err)

	s.Require().NoError(s.Storage.DeleteRegistration(s.Ctx, "reg_1"))
	_, err = s.Storage.GetRegistration(s.Ctx, "reg_1")
	s.ErrorIs(err, model.ErrRegistrationNotFound)

	// The entrant may register again once the row is gone
	s.NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_3", t.ID, p1.ID)))

	s.ErrorIs(s.Storage.DeleteRegistration(s.Ctx, "reg_2"), model.ErrCannotDeleteConfirmed)
	s.ErrorIs(s.Storage.DeleteRegistration(s.Ctx, "reg_missing"), model.ErrRegistrationNotFound)
}

func (s *Suite) TestListRegistrationsScoped() {
	org := s.createUser("usr_org", "org")
	p1 := s.createUser("usr_1", "p1")
	a := s.createTournament("trn_a", model.FormatSolo, model.TournamentOpen, 4, org.ID, s.Now)
	b := s.createTournament("trn_b", model.FormatSolo, model.TournamentOpen, 4, org.ID, s.Now)
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_a", a.ID, p1.ID)))
	s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration("reg_b", b.ID, p1.ID)))

	regs, err := s.Storage.ListRegistrations(s.Ctx, a.ID)
	s.Require().NoError(err)
	s.Require().Len(regs, 1)
	s.Equal(model.RegistrationID("reg_a"), regs[0].ID)

	none, err := s.Storage.ListRegistrations(s.Ctx, "trn_missing")
	s.Require().NoError(err)
	s.Empty(none)
}

// Concurrency

func (s *Suite) TestConcurrentConfirmsNeverOvercommit() {
	org := s.createUser("usr_org", "org")
	const capacity = 3
	const entrants = 10
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, capacity, org.ID, s.Now)
	for i := 0; i < entrants; i++ {
		p := s.createUser(fmt.Sprintf("usr_%d", i), fmt.Sprintf("p%d", i))
		s.Require().NoError(s.Storage.CreateRegistration(s.Ctx, s.soloRegistration(fmt.Sprintf("reg_%d", i), t.ID, p.ID)))
	}

	var wg sync.WaitGroup
	for i := 0; i < entrants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				_, err := s.Storage.SetRegistrationStatus(s.Ctx, model.RegistrationID(fmt.Sprintf("reg_%d", i)), model.RegistrationConfirmed, s.Now)
				if err == nil || !isRetryable(err) {
					return
				}
			}
		}(i)
	}
	wg.Wait()

	regs, err := s.Storage.ListRegistrations(s.Ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(capacity, model.CountConfirmed(regs))
}

func (s *Suite) TestConcurrentDuplicateRegistrations() {
	org := s.createUser("usr_org", "org")
	p1 := s.createUser("usr_1", "p1")
	t := s.createTournament("trn_1", model.FormatSolo, model.TournamentOpen, 4, org.ID, s.Now)

	const attempts = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				err := s.Storage.CreateRegistration(s.Ctx, s.soloRegistration(fmt.Sprintf("reg_%d", i), t.ID, p1.ID))
				if err != nil && isRetryable(err) {
					continue
				}
				if err == nil {
					mu.Lock()
					created++
					mu.Unlock()
				}
				return
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, created)
	regs, err := s.Storage.ListRegistrations(s.Ctx, t.ID)
	s.Require().NoError(err)
	s.Len(regs, 1)
}

func isRetryable(err error) bool {
	return errors.Is(err, model.ErrConcurrentModification)
}
