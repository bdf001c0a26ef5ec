package model

import (
	"errors"
	"fmt"
)

// Category groups errors by how a caller should react to them
type Category string

const (
	CategoryNotFound        Category = "not_found"
	CategoryValidation      Category = "validation_failed"
	CategoryConflict        Category = "conflict"
	CategoryRuleViolation   Category = "rule_violation"
	CategoryForbidden       Category = "forbidden"
	CategoryUnauthenticated Category = "unauthenticated"
)

// Error is a categorized domain error with a stable machine-readable code
type Error struct {
	Category Category
	Code     string
	Message  string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(category Category, code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

// Common errors used across the application
var (
	// Not found
	ErrTournamentNotFound   = newError(CategoryNotFound, "TOURNAMENT_NOT_FOUND", "tournament not found")
	ErrRegistrationNotFound = newError(CategoryNotFound, "REGISTRATION_NOT_FOUND", "registration not found")
	ErrTeamNotFound         = newError(CategoryNotFound, "TEAM_NOT_FOUND", "team not found")
	ErrUserNotFound         = newError(CategoryNotFound, "USER_NOT_FOUND", "user not found")

	// Validation
	ErrValidation    = newError(CategoryValidation, "VALIDATION_FAILED", "validation failed")
	ErrInvalidStatus = newError(CategoryValidation, "INVALID_STATUS", "invalid status")

	// Conflicts
	ErrDuplicateRegistration  = newError(CategoryConflict, "DUPLICATE_REGISTRATION", "already registered for this tournament")
	ErrTeamNameTaken          = newError(CategoryConflict, "TEAM_NAME_TAKEN", "team name is already in use")
	ErrTeamTagTaken           = newError(CategoryConflict, "TEAM_TAG_TAKEN", "team tag is already in use")
	ErrUsernameTaken          = newError(CategoryConflict, "USERNAME_TAKEN", "username is already taken")
	ErrEmailTaken             = newError(CategoryConflict, "EMAIL_TAKEN", "email is already in use")
	ErrUserInUse              = newError(CategoryConflict, "USER_IN_USE", "user still owns tournaments, teams or registrations")
	ErrConcurrentModification = newError(CategoryConflict, "CONCURRENT_MODIFICATION", "resource was modified concurrently")

	// Business rules
	ErrTournamentNotOpen         = newError(CategoryRuleViolation, "TOURNAMENT_NOT_OPEN", "tournament is not open for registration")
	ErrFormatMismatch            = newError(CategoryRuleViolation, "FORMAT_MISMATCH", "registration does not match the tournament format")
	ErrCapacityExceeded          = newError(CategoryRuleViolation, "CAPACITY_EXCEEDED", "tournament has reached its maximum participants")
	ErrIllegalTransition         = newError(CategoryRuleViolation, "ILLEGAL_TRANSITION", "illegal status transition")
	ErrStartDateNotFuture        = newError(CategoryRuleViolation, "START_DATE_NOT_FUTURE", "start date must be in the future")
	ErrNotEnoughParticipants     = newError(CategoryRuleViolation, "NOT_ENOUGH_PARTICIPANTS", "at least 2 confirmed participants are required to start")
	ErrTournamentClosed          = newError(CategoryRuleViolation, "TOURNAMENT_CLOSED", "completed or cancelled tournaments cannot be modified")
	ErrHasConfirmedRegistrations = newError(CategoryRuleViolation, "HAS_CONFIRMED_REGISTRATIONS", "tournament has confirmed registrations")
	ErrCannotDeleteConfirmed     = newError(CategoryRuleViolation, "CANNOT_DELETE_CONFIRMED", "confirmed registrations cannot be deleted, withdraw them instead")
	ErrFormatLocked              = newError(CategoryRuleViolation, "FORMAT_LOCKED", "format cannot change once registrations exist")
	ErrCapacityBelowConfirmed    = newError(CategoryRuleViolation, "CAPACITY_BELOW_CONFIRMED", "max participants cannot be lower than the confirmed count")
	ErrTeamHasRegistrations      = newError(CategoryRuleViolation, "TEAM_HAS_REGISTRATIONS", "team has registrations")
	ErrCannotRemoveSelf          = newError(CategoryRuleViolation, "CANNOT_REMOVE_SELF", "you cannot remove your own account")

	// Authorization
	ErrForbidden  = newError(CategoryForbidden, "FORBIDDEN", "operation not permitted")
	ErrNotCaptain = newError(CategoryForbidden, "NOT_CAPTAIN", "only the team captain can perform this action")

	// Authentication
	ErrInvalidCredentials = newError(CategoryUnauthenticated, "INVALID_CREDENTIALS", "invalid email or password")
	ErrInvalidToken       = newError(CategoryUnauthenticated, "UNAUTHORIZED", "invalid or expired token")
)

// CategoryOf returns the category of the first *Error in err's chain, or "" if there is none
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// IllegalTransition reports a status change that the lifecycle does not allow
func IllegalTransition[S ~string](from, to S) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// Invalid wraps ErrValidation with a field-level reason
func Invalid(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}
