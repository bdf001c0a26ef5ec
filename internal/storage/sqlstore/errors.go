package sqlstore

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mcoot/tourney/internal/model"
)

// errForeignKey marks a foreign key violation; callers map it to the
// sentinel that fits the operation.
var errForeignKey = errors.New("foreign key violation")

// uniqueConstraints maps PostgreSQL constraint names and SQLite column
// references to the conflict they represent.
var uniqueConstraints = []struct {
	pgConstraint string
	sqliteColumn string
	err          error
}{
	{"users_username_key", "users.username", model.ErrUsernameTaken},
	{"users_email_key", "users.email", model.ErrEmailTaken},
	{"teams_name_key", "teams.name", model.ErrTeamNameTaken},
	{"teams_tag_key", "teams.tag", model.ErrTeamTagTaken},
	{"registrations_player_key", "registrations.player_id", model.ErrDuplicateRegistration},
	{"registrations_team_key", "registrations.team_id", model.ErrDuplicateRegistration},
}

// PostgreSQL SQLSTATE codes
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// translateError converts driver constraint errors into model sentinels.
// Unrecognised errors are returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			for _, c := range uniqueConstraints {
				if pgErr.ConstraintName == c.pgConstraint {
					return c.err
				}
			}
		case pgForeignKeyViolation:
			return errForeignKey
		case pgSerializationFailure, pgDeadlockDetected:
			return model.ErrConcurrentModification
		}
		return err
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			message := sqliteErr.Error()
			for _, c := range uniqueConstraints {
				if strings.Contains(message, c.sqliteColumn) {
					return c.err
				}
			}
		case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return errForeignKey
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return model.ErrConcurrentModification
		}
	}
	return err
}

// foreignKeyAs replaces errForeignKey with the operation's own sentinel
func foreignKeyAs(err, replacement error) error {
	err = translateError(err)
	if errors.Is(err, errForeignKey) {
		return replacement
	}
	return err
}
