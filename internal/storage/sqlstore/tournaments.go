package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mcoot/tourney/internal/model"
)

var tournamentColumns = []string{
	"id", "name", "game", "format", "max_participants", "prize_pool",
	"start_date", "end_date", "status", "organizer_id", "created_at", "updated_at",
}

func scanTournament(row scanner) (*model.Tournament, error) {
	var t model.Tournament
	var startDate, createdAt, updatedAt int64
	var endDate sql.NullInt64
	err := row.Scan(
		&t.ID, &t.Name, &t.Game, &t.Format, &t.MaxParticipants, &t.PrizePool,
		&startDate, &endDate, &t.Status, &t.OrganizerID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.StartDate = fromMillis(startDate)
	t.EndDate = fromNullMillis(endDate)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return &t, nil
}

// getTournament reads a tournament, row-locking it when r is a transaction
func (s *Store) getTournament(ctx context.Context, r runner, id model.TournamentID, lock bool) (*model.Tournament, error) {
	q := s.sb.Select(tournamentColumns...).From("tournaments").Where(sq.Eq{"id": string(id)})
	if lock {
		q = s.locked(q)
	}
	row, err := qRow(ctx, r, q)
	if err != nil {
		return nil, err
	}
	t, err := scanTournament(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrTournamentNotFound
	}
	return t, err
}

func (s *Store) countRegistrations(ctx context.Context, r runner, id model.TournamentID, status model.RegistrationStatus) (int, error) {
	pred := sq.Eq{"tournament_id": string(id)}
	if status != "" {
		pred["status"] = string(status)
	}
	return qCount(ctx, r, s.sb.Select("COUNT(*)").From("registrations").Where(pred))
}

func (s *Store) CreateTournament(ctx context.Context, tournament *model.Tournament) error {
	q := s.sb.Insert("tournaments").
		Columns(tournamentColumns...).
		Values(
			string(tournament.ID),
			tournament.Name,
			tournament.Game,
			string(tournament.Format),
			tournament.MaxParticipants,
			tournament.PrizePool,
			toMillis(tournament.StartDate),
			nullMillis(tournament.EndDate),
			string(tournament.Status),
			string(tournament.OrganizerID),
			toMillis(tournament.CreatedAt),
			toMillis(tournament.UpdatedAt),
		)
	_, err := qExec(ctx, s.db, q)
	return foreignKeyAs(err, model.ErrUserNotFound)
}

func (s *Store) GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	return s.getTournament(ctx, s.db, id, false)
}

func (s *Store) ListTournaments(ctx context.Context, filter model.TournamentFilter) ([]*model.Tournament, error) {
	q := s.sb.Select(tournamentColumns...).From("tournaments").OrderBy("created_at DESC", "id DESC")
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Game != "" {
		q = q.Where(sq.Eq{"game": filter.Game})
	}
	if filter.Format != "" {
		q = q.Where(sq.Eq{"format": string(filter.Format)})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if offset := filter.Offset(); offset > 0 {
		q = q.Offset(uint64(offset))
	}

	rows, err := qQuery(ctx, s.db, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := []*model.Tournament{}
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, err
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (s *Store) UpdateTournament(ctx context.Context, tournament *model.Tournament, expected model.TournamentStatus) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getTournament(ctx, tx, tournament.ID, true)
		if err != nil {
			return err
		}
		if current.Status != expected {
			return model.ErrConcurrentModification
		}
		if tournament.Format != current.Format {
			n, err := s.countRegistrations(ctx, tx, tournament.ID, "")
			if err != nil {
				return err
			}
			if n > 0 {
				return model.ErrFormatLocked
			}
		}
		confirmed, err := s.countRegistrations(ctx, tx, tournament.ID, model.RegistrationConfirmed)
		if err != nil {
			return err
		}
		if tournament.MaxParticipants < confirmed {
			return model.ErrCapacityBelowConfirmed
		}

		q := s.sb.Update("tournaments").
			Set("name", tournament.Name).
			Set("game", tournament.Game).
			Set("format", string(tournament.Format)).
			Set("max_participants", tournament.MaxParticipants).
			Set("prize_pool", tournament.PrizePool).
			Set("start_date", toMillis(tournament.StartDate)).
			Set("end_date", nullMillis(tournament.EndDate)).
			Set("updated_at", toMillis(tournament.UpdatedAt)).
			Where(sq.Eq{"id": string(tournament.ID)})
		_, err = qExec(ctx, tx, q)
		return err
	})
	return translateError(err)
}

func (s *Store) SetTournamentStatus(ctx context.Context, id model.TournamentID, from, to model.TournamentStatus, minConfirmed int, at time.Time) (*model.Tournament, error) {
	var result *model.Tournament
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := s.getTournament(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if t.Status != from {
			return model.ErrConcurrentModification
		}
		if minConfirmed > 0 {
			confirmed, err := s.countRegistrations(ctx, tx, id, model.RegistrationConfirmed)
			if err != nil {
				return err
			}
			if confirmed < minConfirmed {
				return model.ErrNotEnoughParticipants
			}
		}

		q := s.sb.Update("tournaments").
			Set("status", string(to)).
			Set("updated_at", toMillis(at)).
			Where(sq.Eq{"id": string(id)})
		if _, err := qExec(ctx, tx, q); err != nil {
			return err
		}
		t.Status = to
		t.UpdatedAt = fromMillis(toMillis(at))
		result = t
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

func (s *Store) DeleteTournament(ctx context.Context, id model.TournamentID) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getTournament(ctx, tx, id, true); err != nil {
			return err
		}
		confirmed, err := s.countRegistrations(ctx, tx, id, model.RegistrationConfirmed)
		if err != nil {
			return err
		}
		if confirmed > 0 {
			return model.ErrHasConfirmedRegistrations
		}

		// Explicit so the cascade holds even where foreign keys are off
		if _, err := qExec(ctx, tx, s.sb.Delete("registrations").Where(sq.Eq{"tournament_id": string(id)})); err != nil {
			return err
		}
		_, err = qExec(ctx, tx, s.sb.Delete("tournaments").Where(sq.Eq{"id": string(id)}))
		return err
	})
	return translateError(err)
}
