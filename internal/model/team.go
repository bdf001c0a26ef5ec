package model

import "time"

// TeamID uniquely identifies a team
type TeamID string

// Team is a named group represented by its captain. Name and tag are globally unique.
type Team struct {
	ID        TeamID
	Name      string
	Tag       string // uppercase alphanumeric, 3-5 chars
	CaptainID UserID
	CreatedAt time.Time
	UpdatedAt time.Time
}
