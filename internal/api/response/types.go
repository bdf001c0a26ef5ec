package response

import (
	"time"

	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/services/auth"
)

// User represents an account in API responses. Credentials are never included.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:        string(u.ID),
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

// UserList is the response for user listings
type UserList struct {
	Users []User `json:"users"`
}

// UserListFromModel converts a slice of model.User
func UserListFromModel(users []*model.User) UserList {
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = UserFromModel(u)
	}
	return UserList{Users: out}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		User:      UserFromModel(s.User),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}

// Identity is the response for GET /auth/me
type Identity struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Tournament represents a tournament in API responses
type Tournament struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Game            string     `json:"game"`
	Format          string     `json:"format"`
	MaxParticipants int        `json:"max_participants"`
	PrizePool       float64    `json:"prize_pool"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	Status          string     `json:"status"`
	OrganizerID     string     `json:"organizer_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TournamentFromModel converts model.Tournament
func TournamentFromModel(t *model.Tournament) Tournament {
	return Tournament{
		ID:              string(t.ID),
		Name:            t.Name,
		Game:            t.Game,
		Format:          string(t.Format),
		MaxParticipants: t.MaxParticipants,
		PrizePool:       t.PrizePool,
		StartDate:       t.StartDate,
		EndDate:         t.EndDate,
		Status:          string(t.Status),
		OrganizerID:     string(t.OrganizerID),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// TournamentList is a page of tournaments
type TournamentList struct {
	Tournaments []Tournament `json:"tournaments"`
	Page        int          `json:"page"`
	Limit       int          `json:"limit"`
}

// TournamentListFromModel converts a page of model.Tournament
func TournamentListFromModel(ts []*model.Tournament, page, limit int) TournamentList {
	out := make([]Tournament, len(ts))
	for i, t := range ts {
		out[i] = TournamentFromModel(t)
	}
	return TournamentList{Tournaments: out, Page: page, Limit: limit}
}

// Registration represents a registration in API responses
type Registration struct {
	ID           string     `json:"id"`
	TournamentID string     `json:"tournament_id"`
	PlayerID     string     `json:"player_id,omitempty"`
	TeamID       string     `json:"team_id,omitempty"`
	Status       string     `json:"status"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// RegistrationFromModel converts model.Registration
func RegistrationFromModel(r *model.Registration) Registration {
	return Registration{
		ID:           string(r.ID),
		TournamentID: string(r.TournamentID),
		PlayerID:     string(r.PlayerID),
		TeamID:       string(r.TeamID),
		Status:       string(r.Status),
		ConfirmedAt:  r.ConfirmedAt,
		CreatedAt:    r.CreatedAt,
	}
}

// RegistrationList is the response for a tournament's registrations
type RegistrationList struct {
	Registrations []Registration `json:"registrations"`
	Confirmed     int            `json:"confirmed"`
}

// RegistrationListFromModel converts a slice of model.Registration
func RegistrationListFromModel(regs []*model.Registration) RegistrationList {
	out := make([]Registration, len(regs))
	for i, r := range regs {
		out[i] = RegistrationFromModel(r)
	}
	return RegistrationList{Registrations: out, Confirmed: model.CountConfirmed(regs)}
}

// Team represents a team in API responses
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tag       string    `json:"tag"`
	CaptainID string    `json:"captain_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamFromModel converts model.Team
func TeamFromModel(t *model.Team) Team {
	return Team{
		ID:        string(t.ID),
		Name:      t.Name,
		Tag:       t.Tag,
		CaptainID: string(t.CaptainID),
		CreatedAt: t.CreatedAt,
	}
}

// TeamList is the response for team listings
type TeamList struct {
	Teams []Team `json:"teams"`
}

// TeamListFromModel converts a slice of model.Team
func TeamListFromModel(teams []*model.Team) TeamList {
	out := make([]Team, len(teams))
	for i, t := range teams {
		out[i] = TeamFromModel(t)
	}
	return TeamList{Teams: out}
}
