package redis

import (
	"fmt"

	"github.com/mcoot/tourney/internal/model"
)

// Key prefix for all tournament data
const keyPrefix = "tourney"

// Entity keys hold JSON documents

func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

func teamKey(id model.TeamID) string {
	return fmt.Sprintf("%s:team:%s", keyPrefix, id)
}

func tournamentKey(id model.TournamentID) string {
	return fmt.Sprintf("%s:tournament:%s", keyPrefix, id)
}

func registrationKey(id model.RegistrationID) string {
	return fmt.Sprintf("%s:registration:%s", keyPrefix, id)
}

// Listing indexes are ZSETs scored by creation time in unix millis

func usersIndexKey() string {
	return fmt.Sprintf("%s:idx:users", keyPrefix)
}

func teamsIndexKey() string {
	return fmt.Sprintf("%s:idx:teams", keyPrefix)
}

func tournamentsIndexKey() string {
	return fmt.Sprintf("%s:idx:tournaments", keyPrefix)
}

// Uniqueness indexes map a natural key to the owning ID

func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", keyPrefix, email)
}

func teamNameIndexKey(name string) string {
	return fmt.Sprintf("%s:idx:team_name:%s", keyPrefix, name)
}

func teamTagIndexKey(tag string) string {
	return fmt.Sprintf("%s:idx:team_tag:%s", keyPrefix, tag)
}

// entrantIndexKey maps (tournament, player or team) to its registration ID
func entrantIndexKey(r *model.Registration) string {
	if r.IsTeamEntry() {
		return fmt.Sprintf("%s:idx:entrant:%s:team:%s", keyPrefix, r.TournamentID, r.TeamID)
	}
	return fmt.Sprintf("%s:idx:entrant:%s:player:%s", keyPrefix, r.TournamentID, r.PlayerID)
}

// Per-tournament SETs of registration IDs

func tournamentRegistrationsKey(id model.TournamentID) string {
	return fmt.Sprintf("%s:idx:tournament_registrations:%s", keyPrefix, id)
}

func tournamentConfirmedKey(id model.TournamentID) string {
	return fmt.Sprintf("%s:idx:tournament_confirmed:%s", keyPrefix, id)
}

// Reference SETs guarding user and team deletion

func organizerTournamentsKey(id model.UserID) string {
	return fmt.Sprintf("%s:idx:organizer_tournaments:%s", keyPrefix, id)
}

func captainTeamsKey(id model.UserID) string {
	return fmt.Sprintf("%s:idx:captain_teams:%s", keyPrefix, id)
}

func playerRegistrationsKey(id model.UserID) string {
	return fmt.Sprintf("%s:idx:player_registrations:%s", keyPrefix, id)
}

func teamRegistrationsKey(id model.TeamID) string {
	return fmt.Sprintf("%s:idx:team_registrations:%s", keyPrefix, id)
}

// entrantRegistrationsKey is the reference SET a registration belongs to
func entrantRegistrationsKey(r *model.Registration) string {
	if r.IsTeamEntry() {
		return teamRegistrationsKey(r.TeamID)
	}
	return playerRegistrationsKey(r.PlayerID)
}
