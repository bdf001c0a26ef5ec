package ids

import "github.com/google/uuid"

// Prefixes used for generated entity identifiers
const (
	PrefixUser         = "usr_"
	PrefixTeam         = "team_"
	PrefixTournament   = "trn_"
	PrefixRegistration = "reg_"
)

// Generator produces entity identifiers and can be mocked for testing
type Generator interface {
	NewID(prefix string) string
}

// UUIDGenerator implements Generator with random (v4) UUIDs
type UUIDGenerator struct{}

// New creates a new UUIDGenerator
func New() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewID returns prefix followed by a fresh UUID
func (g *UUIDGenerator) NewID(prefix string) string {
	return prefix + uuid.NewString()
}
