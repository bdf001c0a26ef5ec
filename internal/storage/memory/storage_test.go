package memory

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.Storage = s.storage
	s.Suite.SetupTest()
}

func (s *StorageSuite) TestReturnedEntitiesAreCopies() {
	u := &model.User{ID: "usr_1", Username: "alice", Email: "alice@example.com", Role: model.RolePlayer}
	s.Require().NoError(s.storage.CreateUser(s.Ctx, u))

	got, err := s.storage.GetUser(s.Ctx, "usr_1")
	s.Require().NoError(err)
	got.Username = "mallory"

	again, err := s.storage.GetUser(s.Ctx, "usr_1")
	s.Require().NoError(err)
	s.Equal("alice", again.Username)
}

func (s *StorageSuite) TestConfirmedAtNotShared() {
	org := &model.User{ID: "usr_org", Username: "org", Email: "org@example.com", Role: model.RoleOrganizer}
	p := &model.User{ID: "usr_p", Username: "p", Email: "p@example.com", Role: model.RolePlayer}
	s.Require().NoError(s.storage.CreateUser(s.Ctx, org))
	s.Require().NoError(s.storage.CreateUser(s.Ctx, p))
	s.Require().NoError(s.storage.CreateTournament(s.Ctx, &model.Tournament{
		ID: "trn_1", Format: model.FormatSolo, Status: model.TournamentOpen, MaxParticipants: 2, OrganizerID: org.ID,
	}))
	s.Require().NoError(s.storage.CreateRegistration(s.Ctx, &model.Registration{
		ID: "reg_1", TournamentID: "trn_1", PlayerID: p.ID, Status: model.RegistrationPending,
	}))

	got, err := s.storage.SetRegistrationStatus(s.Ctx, "reg_1", model.RegistrationConfirmed, s.Now)
	s.Require().NoError(err)
	*got.ConfirmedAt = got.ConfirmedAt.AddDate(1, 0, 0)

	again, err := s.storage.GetRegistration(s.Ctx, "reg_1")
	s.Require().NoError(err)
	s.True(again.ConfirmedAt.Equal(s.Now))
}
