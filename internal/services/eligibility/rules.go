// Package eligibility holds the pure rules that decide whether an entrant
// may register for a tournament.
package eligibility

import "github.com/mcoot/tourney/internal/model"

// FormatCompatible checks that a SOLO entry names only a player and a TEAM
// entry names only a team.
func FormatCompatible(format model.TournamentFormat, playerID model.UserID, teamID model.TeamID) error {
	switch format {
	case model.FormatSolo:
		if playerID == "" || teamID != "" {
			return model.ErrFormatMismatch
		}
	case model.FormatTeam:
		if teamID == "" || playerID != "" {
			return model.ErrFormatMismatch
		}
	default:
		return model.ErrFormatMismatch
	}
	return nil
}

// CapacityAvailable checks there is room for one more confirmed entrant.
// Only CONFIRMED registrations count; the PENDING queue is unbounded.
func CapacityAvailable(confirmedCount, maxParticipants int) error {
	if confirmedCount >= maxParticipants {
		return model.ErrCapacityExceeded
	}
	return nil
}

// NotDuplicate checks that neither the player nor the team already holds a
// registration for the tournament, whatever its status.
func NotDuplicate(existing []*model.Registration, playerID model.UserID, teamID model.TeamID) error {
	for _, r := range existing {
		if r.SameEntrant(playerID, teamID) {
			return model.ErrDuplicateRegistration
		}
	}
	return nil
}

// TournamentOpenForRegistration checks the tournament is accepting entries
func TournamentOpenForRegistration(status model.TournamentStatus) error {
	if status != model.TournamentOpen {
		return model.ErrTournamentNotOpen
	}
	return nil
}
