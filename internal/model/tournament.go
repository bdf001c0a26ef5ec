package model

import (
	"math"
	"time"
)

// TournamentID uniquely identifies a tournament
type TournamentID string

// TournamentFormat decides whether players or teams register
type TournamentFormat string

const (
	FormatSolo TournamentFormat = "SOLO"
	FormatTeam TournamentFormat = "TEAM"
)

// Valid reports whether f is a known format
func (f TournamentFormat) Valid() bool {
	return f == FormatSolo || f == FormatTeam
}

// TournamentStatus is a tournament's lifecycle state
type TournamentStatus string

const (
	TournamentDraft     TournamentStatus = "DRAFT"     // Initial, invisible to registration
	TournamentOpen      TournamentStatus = "OPEN"      // Accepting registrations
	TournamentOngoing   TournamentStatus = "ONGOING"   // Matches being played
	TournamentCompleted TournamentStatus = "COMPLETED" // Terminal
	TournamentCancelled TournamentStatus = "CANCELLED" // Terminal
)

// Valid reports whether s is a known tournament status
func (s TournamentStatus) Valid() bool {
	switch s {
	case TournamentDraft, TournamentOpen, TournamentOngoing, TournamentCompleted, TournamentCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions leave s
func (s TournamentStatus) Terminal() bool {
	return s == TournamentCompleted || s == TournamentCancelled
}

// MinParticipantsToStart is the confirmed count an OPEN tournament needs before it can start
const MinParticipantsToStart = 2

// Tournament is a competitive event with a capacity, a format and a status lifecycle
type Tournament struct {
	ID              TournamentID
	Name            string
	Game            string
	Format          TournamentFormat
	MaxParticipants int
	PrizePool       float64
	StartDate       time.Time
	EndDate         *time.Time // nil when open-ended
	Status          TournamentStatus
	OrganizerID     UserID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TournamentFilter selects tournaments for listing. Zero-valued fields do not filter.
type TournamentFilter struct {
	Status TournamentStatus
	Game   string
	Format TournamentFormat
	Page   int // 1-indexed
	Limit  int
}

// Offset returns the number of rows skipped by the filter's page,
// saturating at math.MaxInt
func (f TournamentFilter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

// Matches reports whether t passes the filter's predicates (pagination ignored)
func (f TournamentFilter) Matches(t *Tournament) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Game != "" && t.Game != f.Game {
		return false
	}
	if f.Format != "" && t.Format != f.Format {
		return false
	}
	return true
}
