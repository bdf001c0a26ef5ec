package request

import "time"

// RegisterRequest is the request body for creating an account
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateTournamentRequest is the request body for creating a tournament
type CreateTournamentRequest struct {
	Name            string     `json:"name"`
	Game            string     `json:"game"`
	Format          string     `json:"format"`
	MaxParticipants int        `json:"max_participants"`
	PrizePool       float64    `json:"prize_pool"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
}

// UpdateTournamentRequest is the request body for editing a tournament.
// Omitted fields are left unchanged.
type UpdateTournamentRequest struct {
	Name            *string    `json:"name,omitempty"`
	Game            *string    `json:"game,omitempty"`
	Format          *string    `json:"format,omitempty"`
	MaxParticipants *int       `json:"max_participants,omitempty"`
	PrizePool       *float64   `json:"prize_pool,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
}

// ChangeStatusRequest is the request body for tournament and registration status changes
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// CreateRegistrationRequest is the request body for entering a tournament.
// SOLO tournaments take a player_id, TEAM tournaments a team_id.
type CreateRegistrationRequest struct {
	PlayerID string `json:"player_id,omitempty"`
	TeamID   string `json:"team_id,omitempty"`
}

// CreateTeamRequest is the request body for creating a team
type CreateTeamRequest struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

// UpdateTeamRequest is the request body for editing a team
type UpdateTeamRequest struct {
	Name *string `json:"name,omitempty"`
	Tag  *string `json:"tag,omitempty"`
}
