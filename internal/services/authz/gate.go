// Package authz decides which callers may perform which operations.
package authz

import "github.com/mcoot/tourney/internal/model"

// Operation names a guarded action
type Operation string

const (
	OpCreateTournament   Operation = "tournament.create"
	OpUpdateTournament   Operation = "tournament.update"
	OpDeleteTournament   Operation = "tournament.delete"
	OpCancelTournament   Operation = "tournament.cancel"
	OpCompleteTournament Operation = "tournament.complete"
	OpManageRegistration Operation = "registration.manage"
	OpUpdateTeam         Operation = "team.update"
	OpDeleteTeam         Operation = "team.delete"
	OpListUsers          Operation = "user.list"
	OpRemoveUser         Operation = "user.remove"
)

// Allowed reports whether caller may perform op on a resource owned by ownerID.
// ownerID is the tournament organizer, the registrant, or the team captain;
// it is ignored by operations that do not depend on ownership.
func Allowed(op Operation, caller model.Identity, ownerID model.UserID) bool {
	isOwner := ownerID != "" && caller.UserID == ownerID

	switch op {
	case OpCreateTournament, OpUpdateTournament, OpDeleteTournament:
		return caller.IsStaff()
	case OpCancelTournament:
		return isOwner || caller.Role == model.RoleAdmin
	case OpCompleteTournament:
		return caller.Role == model.RoleAdmin
	case OpManageRegistration:
		return caller.IsStaff() || isOwner
	case OpUpdateTeam, OpDeleteTeam:
		return isOwner
	case OpListUsers, OpRemoveUser:
		return caller.Role == model.RoleAdmin
	}
	return false
}

// Require is Allowed as an error: nil when permitted, otherwise the
// operation's Forbidden error.
func Require(op Operation, caller model.Identity, ownerID model.UserID) error {
	if Allowed(op, caller, ownerID) {
		return nil
	}
	if op == OpUpdateTeam || op == OpDeleteTeam {
		return model.ErrNotCaptain
	}
	return model.ErrForbidden
}
