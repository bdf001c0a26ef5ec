package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/mcoot/tourney/internal/model"
)

var userColumns = []string{"id", "username", "email", "password_hash", "role", "created_at", "updated_at"}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	var createdAt, updatedAt int64
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	q := s.sb.Insert("users").
		Columns(userColumns...).
		Values(
			string(user.ID),
			user.Username,
			user.Email,
			user.PasswordHash,
			string(user.Role),
			toMillis(user.CreatedAt),
			toMillis(user.UpdatedAt),
		)
	_, err := qExec(ctx, s.db, q)
	return translateError(err)
}

func (s *Store) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.getUserWhere(ctx, sq.Eq{"id": string(id)})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUserWhere(ctx, sq.Eq{"email": email})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUserWhere(ctx, sq.Eq{"username": username})
}

func (s *Store) getUserWhere(ctx context.Context, pred sq.Eq) (*model.User, error) {
	row, err := qRow(ctx, s.db, s.sb.Select(userColumns...).From("users").Where(pred))
	if err != nil {
		return nil, err
	}
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]*model.User, error) {
	rows, err := qQuery(ctx, s.db, s.sb.Select(userColumns...).From("users").OrderBy("created_at", "id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) DeleteUser(ctx context.Context, id model.UserID) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := qRow(ctx, tx, s.locked(s.sb.Select("id").From("users").Where(sq.Eq{"id": string(id)})))
		if err != nil {
			return err
		}
		var found string
		if err := row.Scan(&found); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrUserNotFound
			}
			return err
		}

		references := []sq.SelectBuilder{
			s.sb.Select("COUNT(*)").From("tournaments").Where(sq.Eq{"organizer_id": string(id)}),
			s.sb.Select("COUNT(*)").From("teams").Where(sq.Eq{"captain_id": string(id)}),
			s.sb.Select("COUNT(*)").From("registrations").Where(sq.Eq{"player_id": string(id)}),
		}
		for _, q := range references {
			n, err := qCount(ctx, tx, q)
			if err != nil {
				return err
			}
			if n > 0 {
				return model.ErrUserInUse
			}
		}

		_, err = qExec(ctx, tx, s.sb.Delete("users").Where(sq.Eq{"id": string(id)}))
		return err
	})
	return foreignKeyAs(err, model.ErrUserInUse)
}
