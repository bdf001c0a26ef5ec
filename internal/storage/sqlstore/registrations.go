package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mcoot/tourney/internal/model"
)

var registrationColumns = []string{
	"id", "tournament_id", "player_id", "team_id", "status", "confirmed_at", "created_at", "updated_at",
}

func scanRegistration(row scanner) (*model.Registration, error) {
	var r model.Registration
	var playerID, teamID sql.NullString
	var confirmedAt sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(&r.ID, &r.TournamentID, &playerID, &teamID, &r.Status, &confirmedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.PlayerID = model.UserID(playerID.String)
	r.TeamID = model.TeamID(teamID.String)
	r.ConfirmedAt = fromNullMillis(confirmedAt)
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return &r, nil
}

func (s *Store) getRegistration(ctx context.Context, r runner, id model.RegistrationID) (*model.Registration, error) {
	row, err := qRow(ctx, r, s.sb.Select(registrationColumns...).From("registrations").Where(sq.Eq{"id": string(id)}))
	if err != nil {
		return nil, err
	}
	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRegistrationNotFound
	}
	return reg, err
}

func (s *Store) CreateRegistration(ctx context.Context, registration *model.Registration) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := s.getTournament(ctx, tx, registration.TournamentID, true)
		if err != nil {
			return err
		}
		if t.Status != model.TournamentOpen {
			return model.ErrTournamentNotOpen
		}
		confirmed, err := s.countRegistrations(ctx, tx, t.ID, model.RegistrationConfirmed)
		if err != nil {
			return err
		}
		if confirmed >= t.MaxParticipants {
			return model.ErrCapacityExceeded
		}

		entrant := sq.Eq{"tournament_id": string(t.ID)}
		if registration.IsTeamEntry() {
			entrant["team_id"] = string(registration.TeamID)
		} else {
			entrant["player_id"] = string(registration.PlayerID)
		}
		n, err := qCount(ctx, tx, s.sb.Select("COUNT(*)").From("registrations").Where(entrant))
		if err != nil {
			return err
		}
		if n > 0 {
			return model.ErrDuplicateRegistration
		}

		q := s.sb.Insert("registrations").
			Columns(registrationColumns...).
			Values(
				string(registration.ID),
				string(registration.TournamentID),
				nullString(string(registration.PlayerID)),
				nullString(string(registration.TeamID)),
				string(registration.Status),
				nullMillis(registration.ConfirmedAt),
				toMillis(registration.CreatedAt),
				toMillis(registration.UpdatedAt),
			)
		_, err = qExec(ctx, tx, q)
		return err
	})
	return foreignKeyAs(err, model.Invalid("entrant", "does not exist"))
}

func (s *Store) GetRegistration(ctx context.Context, id model.RegistrationID) (*model.Registration, error) {
	return s.getRegistration(ctx, s.db, id)
}

func (s *Store) ListRegistrations(ctx context.Context, tournamentID model.TournamentID) ([]*model.Registration, error) {
	q := s.sb.Select(registrationColumns...).
		From("registrations").
		Where(sq.Eq{"tournament_id": string(tournamentID)}).
		OrderBy("created_at", "id")
	rows, err := qQuery(ctx, s.db, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := []*model.Registration{}
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

func (s *Store) SetRegistrationStatus(ctx context.Context, id model.RegistrationID, status model.RegistrationStatus, at time.Time) (*model.Registration, error) {
	// The tournament of a registration never changes; resolving it first
	// lets the transaction lock the tournament row before the registration.
	existing, err := s.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}

	var result *model.Registration
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := s.getTournament(ctx, tx, existing.TournamentID, true)
		if err != nil {
			return err
		}
		r, err := s.getRegistration(ctx, tx, id)
		if err != nil {
			return err
		}

		if status == model.RegistrationConfirmed && r.Status != model.RegistrationConfirmed {
			confirmed, err := s.countRegistrations(ctx, tx, t.ID, model.RegistrationConfirmed)
			if err != nil {
				return err
			}
			if confirmed >= t.MaxParticipants {
				return model.ErrCapacityExceeded
			}
		}

		r.Status = status
		if status == model.RegistrationConfirmed && r.ConfirmedAt == nil {
			confirmedAt := fromMillis(toMillis(at))
			r.ConfirmedAt = &confirmedAt
		}
		r.UpdatedAt = fromMillis(toMillis(at))

		q := s.sb.Update("registrations").
			Set("status", string(r.Status)).
			Set("confirmed_at", nullMillis(r.ConfirmedAt)).
			Set("updated_at", toMillis(r.UpdatedAt)).
			Where(sq.Eq{"id": string(id)})
		if _, err := qExec(ctx, tx, q); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

func (s *Store) DeleteRegistration(ctx context.Context, id model.RegistrationID) error {
	existing, err := s.GetRegistration(ctx, id)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getTournament(ctx, tx, existing.TournamentID, true); err != nil {
			if errors.Is(err, model.ErrTournamentNotFound) {
				return model.ErrRegistrationNotFound
			}
			return err
		}
		r, err := s.getRegistration(ctx, tx, id)
		if err != nil {
			return err
		}
		if r.Status == model.RegistrationConfirmed {
			return model.ErrCannotDeleteConfirmed
		}
		_, err = qExec(ctx, tx, s.sb.Delete("registrations").Where(sq.Eq{"id": string(id)}))
		return err
	})
	return translateError(err)
}
