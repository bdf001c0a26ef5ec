package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Tournament events
	EventTournamentCreated       EventType = "tournament.created"
	EventTournamentUpdated       EventType = "tournament.updated"
	EventTournamentStatusChanged EventType = "tournament.status_changed"
	EventTournamentDeleted       EventType = "tournament.deleted"

	// Registration events
	EventRegistrationCreated       EventType = "registration.created"
	EventRegistrationStatusChanged EventType = "registration.status_changed"
	EventRegistrationDeleted       EventType = "registration.deleted"
)

// Event records an accepted lifecycle write
type Event struct {
	Type         EventType    `json:"type"`
	Timestamp    time.Time    `json:"timestamp"`
	TournamentID TournamentID `json:"tournament_id"`
	ActorID      UserID       `json:"actor_id"`          // The caller who triggered the change
	Payload      any          `json:"payload,omitempty"` // Type-specific data
}

// TournamentStatusChangedPayload contains data for tournament status events
type TournamentStatusChangedPayload struct {
	From TournamentStatus `json:"from"`
	To   TournamentStatus `json:"to"`
}

// RegistrationPayload contains data for registration created/deleted events
type RegistrationPayload struct {
	RegistrationID RegistrationID     `json:"registration_id"`
	PlayerID       UserID             `json:"player_id,omitempty"`
	TeamID         TeamID             `json:"team_id,omitempty"`
	Status         RegistrationStatus `json:"status"`
}

// RegistrationStatusChangedPayload contains data for registration status events
type RegistrationStatusChangedPayload struct {
	RegistrationID RegistrationID     `json:"registration_id"`
	From           RegistrationStatus `json:"from"`
	To             RegistrationStatus `json:"to"`
}
