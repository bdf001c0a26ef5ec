package model

import "time"

// RegistrationID uniquely identifies a registration
type RegistrationID string

// RegistrationStatus is a registration's lifecycle state
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "PENDING"
	RegistrationConfirmed RegistrationStatus = "CONFIRMED"
	RegistrationRejected  RegistrationStatus = "REJECTED"
	RegistrationWithdrawn RegistrationStatus = "WITHDRAWN"
)

// Valid reports whether s is one of the four registration statuses
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationConfirmed, RegistrationRejected, RegistrationWithdrawn:
		return true
	}
	return false
}

// Registration is a player's or a team's claim to a slot in a tournament.
// Exactly one of PlayerID and TeamID is set.
type Registration struct {
	ID           RegistrationID
	TournamentID TournamentID
	PlayerID     UserID // set for SOLO tournaments
	TeamID       TeamID // set for TEAM tournaments
	Status       RegistrationStatus
	ConfirmedAt  *time.Time // stamped the first time the status becomes CONFIRMED
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsTeamEntry reports whether the registration was made by a team
func (r *Registration) IsTeamEntry() bool {
	return r.TeamID != ""
}

// SameEntrant reports whether r was made by the given player or team
func (r *Registration) SameEntrant(playerID UserID, teamID TeamID) bool {
	if playerID != "" && r.PlayerID == playerID {
		return true
	}
	if teamID != "" && r.TeamID == teamID {
		return true
	}
	return false
}

// CountConfirmed returns how many of regs are CONFIRMED
func CountConfirmed(regs []*Registration) int {
	n := 0
	for _, r := range regs {
		if r.Status == RegistrationConfirmed {
			n++
		}
	}
	return n
}
