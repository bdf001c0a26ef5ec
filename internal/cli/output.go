package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	if w == nil {
		w = os.Stdout
	}
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case UserList:
		for _, u := range v.Users {
			fmt.Fprintf(o.w, "%s  %-20s %-10s %s\n", u.ID, u.Username, u.Role, u.Email)
		}
	case AuthResult:
		o.printUser(v.User)
		fmt.Fprintf(o.w, "Token: %s\n", v.Token)
		fmt.Fprintf(o.w, "Expires: %s\n", v.ExpiresAt.Format(time.RFC3339))
	case Identity:
		fmt.Fprintf(o.w, "User: %s\n", v.UserID)
		fmt.Fprintf(o.w, "Role: %s\n", v.Role)
	case Tournament:
		o.printTournament(v)
	case TournamentList:
		fmt.Fprintf(o.w, "Page %d (limit %d)\n", v.Page, v.Limit)
		for _, t := range v.Tournaments {
			fmt.Fprintf(o.w, "%s  %-30s %-10s %-4s %-9s %s\n",
				t.ID, t.Name, t.Game, t.Format, t.Status, t.StartDate.Format(time.RFC3339))
		}
	case Registration:
		o.printRegistration(v)
	case RegistrationList:
		fmt.Fprintf(o.w, "Confirmed: %d\n", v.Confirmed)
		for _, r := range v.Registrations {
			fmt.Fprintf(o.w, "%s  %-10s %s\n", r.ID, r.Status, r.entrant())
		}
	case Team:
		fmt.Fprintf(o.w, "Team: %s [%s] (%s)\n", v.Name, v.Tag, v.ID)
		fmt.Fprintf(o.w, "Captain: %s\n", v.CaptainID)
	case TeamList:
		for _, t := range v.Teams {
			fmt.Fprintf(o.w, "%s  [%s] %s\n", t.ID, t.Tag, t.Name)
		}
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserList response type
type UserList struct {
	Users []User `json:"users"`
}

// AuthResult combines user and token
type AuthResult struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity response type
type Identity struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Tournament response type
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
}

// TournamentList response type
type TournamentList struct {
	Tournaments []Tournament `json:"tournaments"`
	Page        int          `json:"page"`
	Limit       int          `json:"limit"`
}

// Registration response type
type Registration struct {
	ID           string     `json:"id"`
	TournamentID string     `json:"tournament_id"`
	PlayerID     string     `json:"player_id,omitempty"`
	TeamID       string     `json:"team_id,omitempty"`
	Status       string     `json:"status"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
}

func (r Registration) entrant() string {
	if r.TeamID != "" {
		return "team " + r.TeamID
	}
	return "player " + r.PlayerID
}

// RegistrationList response type
type RegistrationList struct {
	Registrations []Registration `json:"registrations"`
	Confirmed     int            `json:"confirmed"`
}

// Team response type
type Team struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Tag       string `json:"tag"`
	CaptainID string `json:"captain_id"`
}

// TeamList response type
type TeamList struct {
	Teams []Team `json:"teams"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printUser(u User) {
	fmt.Fprintf(o.w, "User: %s (%s)\n", u.Username, u.ID)
	fmt.Fprintf(o.w, "Email: %s\n", u.Email)
	fmt.Fprintf(o.w, "Role: %s\n", u.Role)
}

func (o *Output) printTournament(t Tournament) {
	fmt.Fprintf(o.w, "Tournament: %s (%s)\n", t.Name, t.ID)
	fmt.Fprintf(o.w, "Game: %s\n", t.Game)
	fmt.Fprintf(o.w, "Format: %s\n", t.Format)
	fmt.Fprintf(o.w, "Status: %s\n", t.Status)
	fmt.Fprintf(o.w, "Max Participants: %d\n", t.MaxParticipants)
	fmt.Fprintf(o.w, "Prize Pool: %.2f\n", t.PrizePool)
	fmt.Fprintf(o.w, "Start: %s\n", t.StartDate.Format(time.RFC3339))
	if t.EndDate != nil {
		fmt.Fprintf(o.w, "End: %s\n", t.EndDate.Format(time.RFC3339))
	}
	fmt.Fprintf(o.w, "Organizer: %s\n", t.OrganizerID)
}

func (o *Output) printRegistration(r Registration) {
	fmt.Fprintf(o.w, "Registration: %s\n", r.ID)
	fmt.Fprintf(o.w, "Tournament: %s\n", r.TournamentID)
	fmt.Fprintf(o.w, "Entrant: %s\n", r.entrant())
	fmt.Fprintf(o.w, "Status: %s\n", r.Status)
	if r.ConfirmedAt != nil {
		fmt.Fprintf(o.w, "Confirmed: %s\n", r.ConfirmedAt.Format(time.RFC3339))
	}
}
