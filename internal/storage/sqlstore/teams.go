package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/mcoot/tourney/internal/model"
)

var teamColumns = []string{"id", "name", "tag", "captain_id", "created_at", "updated_at"}

func scanTeam(row scanner) (*model.Team, error) {
	var t model.Team
	var createdAt, updatedAt int64
	if err := row.Scan(&t.ID, &t.Name, &t.Tag, &t.CaptainID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return &t, nil
}

func (s *Store) CreateTeam(ctx context.Context, team *model.Team) error {
	q := s.sb.Insert("teams").
		Columns(teamColumns...).
		Values(
			string(team.ID),
			team.Name,
			team.Tag,
			string(team.CaptainID),
			toMillis(team.CreatedAt),
			toMillis(team.UpdatedAt),
		)
	_, err := qExec(ctx, s.db, q)
	return foreignKeyAs(err, model.ErrUserNotFound)
}

func (s *Store) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	row, err := qRow(ctx, s.db, s.sb.Select(teamColumns...).From("teams").Where(sq.Eq{"id": string(id)}))
	if err != nil {
		return nil, err
	}
	t, err := scanTeam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrTeamNotFound
	}
	return t, err
}

func (s *Store) ListTeams(ctx context.Context) ([]*model.Team, error) {
	rows, err := qQuery(ctx, s.db, s.sb.Select(teamColumns...).From("teams").OrderBy("created_at", "id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := []*model.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (s *Store) UpdateTeam(ctx context.Context, team *model.Team) error {
	q := s.sb.Update("teams").
		Set("name", team.Name).
		Set("tag", team.Tag).
		Set("captain_id", string(team.CaptainID)).
		Set("updated_at", toMillis(team.UpdatedAt)).
		Where(sq.Eq{"id": string(team.ID)})
	res, err := qExec(ctx, s.db, q)
	if err != nil {
		return foreignKeyAs(err, model.ErrUserNotFound)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrTeamNotFound
	}
	return nil
}

func (s *Store) DeleteTeam(ctx context.Context, id model.TeamID) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := qRow(ctx, tx, s.locked(s.sb.Select("id").From("teams").Where(sq.Eq{"id": string(id)})))
		if err != nil {
			return err
		}
		var found string
		if err := row.Scan(&found); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrTeamNotFound
			}
			return err
		}

		n, err := qCount(ctx, tx, s.sb.Select("COUNT(*)").From("registrations").Where(sq.Eq{"team_id": string(id)}))
		if err != nil {
			return err
		}
		if n > 0 {
			return model.ErrTeamHasRegistrations
		}

		_, err = qExec(ctx, tx, s.sb.Delete("teams").Where(sq.Eq{"id": string(id)}))
		return err
	})
	return foreignKeyAs(err, model.ErrTeamHasRegistrations)
}
