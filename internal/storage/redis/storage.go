package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Guarded writes run as WATCH/MULTI/EXEC transactions and are retried
// when a watched key changes before EXEC.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New connects to Redis and verifies the connection with a ping
func New(ctx context.Context, cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = DefaultConfig().MaxTxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// getter is satisfied by both the client and a watching transaction
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getJSON[T any](ctx context.Context, g getter, key string, notFound error) (*T, error) {
	data, err := g.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound
		}
		return nil, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// mgetJSON fetches every key in one round trip, skipping keys that vanished
func mgetJSON[T any](ctx context.Context, client *redis.Client, keys []string) ([]*T, error) {
	if len(keys) == 0 {
		return []*T{}, nil
	}

	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Deleted between index read and MGET
		}
		var v T
		if err := json.Unmarshal([]byte(str), &v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, nil
}

// watch runs fn under WATCH on keys, retrying while the transaction aborts
func (s *Storage) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < s.cfg.MaxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return model.ErrConcurrentModification
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	nameKey := usernameIndexKey(user.Username)
	mailKey := emailIndexKey(user.Email)

	return s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, nameKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return model.ErrUsernameTaken
		}
		n, err = tx.Exists(ctx, mailKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return model.ErrEmailTaken
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(user.ID), data, 0)
			pipe.Set(ctx, nameKey, string(user.ID), 0)
			pipe.Set(ctx, mailKey, string(user.ID), 0)
			pipe.ZAdd(ctx, usersIndexKey(), redis.Z{Score: score(user.CreatedAt), Member: string(user.ID)})
			return nil
		})
		return err
	}, nameKey, mailKey)
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return getJSON[model.User](ctx, s.client, userKey(id), model.ErrUserNotFound)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUserByIndex(ctx, emailIndexKey(email))
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUserByIndex(ctx, usernameIndexKey(username))
}

func (s *Storage) getUserByIndex(ctx context.Context, indexKey string) (*model.User, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetUser(ctx, model.UserID(id))
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	ids, err := s.client.ZRange(ctx, usersIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(model.UserID(id))
	}
	return mgetJSON[model.User](ctx, s.client, keys)
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	key := userKey(id)
	refKeys := []string{organizerTournamentsKey(id), captainTeamsKey(id), playerRegistrationsKey(id)}

	return s.watch(ctx, func(tx *redis.Tx) error {
		user, err := getJSON[model.User](ctx, tx, key, model.ErrUserNotFound)
		if err != nil {
			return err
		}
		for _, ref := range refKeys {
			n, err := tx.SCard(ctx, ref).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return model.ErrUserInUse
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key, usernameIndexKey(user.Username), emailIndexKey(user.Email))
			pipe.ZRem(ctx, usersIndexKey(), string(id))
			return nil
		})
		return err
	}, append([]string{key}, refKeys...)...)
}

// Team operations

func (s *Storage) CreateTeam(ctx context.Context, team *model.Team) error {
	data, err := json.Marshal(team)
	if err != nil {
		return err
	}

	nameKey := teamNameIndexKey(team.Name)
	tagKey := teamTagIndexKey(team.Tag)

	return s.watch(ctx, func(tx *redis.Tx) error {
		if err := checkOwner(ctx, tx, nameKey, "", model.ErrTeamNameTaken); err != nil {
			return err
		}
		if err := checkOwner(ctx, tx, tagKey, "", model.ErrTeamTagTaken); err != nil {
			return err
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, teamKey(team.ID), data, 0)
			pipe.Set(ctx, nameKey, string(team.ID), 0)
			pipe.Set(ctx, tagKey, string(team.ID), 0)
			pipe.ZAdd(ctx, teamsIndexKey(), redis.Z{Score: score(team.CreatedAt), Member: string(team.ID)})
			pipe.SAdd(ctx, captainTeamsKey(team.CaptainID), string(team.ID))
			return nil
		})
		return err
	}, nameKey, tagKey)
}

// checkOwner fails with taken when indexKey is held by anyone other than owner
func checkOwner(ctx context.Context, tx *redis.Tx, indexKey, owner string, taken error) error {
	current, err := tx.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if current != owner {
		return taken
	}
	return nil
}

func (s *Storage) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	return getJSON[model.Team](ctx, s.client, teamKey(id), model.ErrTeamNotFound)
}

func (s *Storage) ListTeams(ctx context.Context) ([]*model.Team, error) {
	ids, err := s.client.ZRange(ctx, teamsIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = teamKey(model.TeamID(id))
	}
	return mgetJSON[model.Team](ctx, s.client, keys)
}

func (s *Storage) UpdateTeam(ctx context.Context, team *model.Team) error {
	data, err := json.Marshal(team)
	if err != nil {
		return err
	}

	key := teamKey(team.ID)
	nameKey := teamNameIndexKey(team.Name)
	tagKey := teamTagIndexKey(team.Tag)

	return s.watch(ctx, func(tx *redis.Tx) error {
		current, err := getJSON[model.Team](ctx, tx, key, model.ErrTeamNotFound)
		if err != nil {
			return err
		}
		if err := checkOwner(ctx, tx, nameKey, string(team.ID), model.ErrTeamNameTaken); err != nil {
			return err
		}
		if err := checkOwner(ctx, tx, tagKey, string(team.ID), model.ErrTeamTagTaken); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, teamNameIndexKey(current.Name), teamTagIndexKey(current.Tag))
			pipe.Set(ctx, key, data, 0)
			pipe.Set(ctx, nameKey, string(team.ID), 0)
			pipe.Set(ctx, tagKey, string(team.ID), 0)
			if current.CaptainID != team.CaptainID {
				pipe.SRem(ctx, captainTeamsKey(current.CaptainID), string(team.ID))
				pipe.SAdd(ctx, captainTeamsKey(team.CaptainID), string(team.ID))
			}
			return nil
		})
		return err
	}, key, nameKey, tagKey)
}

func (s *Storage) DeleteTeam(ctx context.Context, id model.TeamID) error {
	key := teamKey(id)
	refKey := teamRegistrationsKey(id)

	return s.watch(ctx, func(tx *redis.Tx) error {
		team, err := getJSON[model.Team](ctx, tx, key, model.ErrTeamNotFound)
		if err != nil {
			return err
		}
		n, err := tx.SCard(ctx, refKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return model.ErrTeamHasRegistrations
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key, teamNameIndexKey(team.Name), teamTagIndexKey(team.Tag))
			pipe.ZRem(ctx, teamsIndexKey(), string(id))
			pipe.SRem(ctx, captainTeamsKey(team.CaptainID), string(id))
			return nil
		})
		return err
	}, key, refKey)
}

// Tournament operations

func (s *Storage) CreateTournament(ctx context.Context, tournament *model.Tournament) error {
	data, err := json.Marshal(tournament)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tournamentKey(tournament.ID), data, 0)
	pipe.ZAdd(ctx, tournamentsIndexKey(), redis.Z{Score: score(tournament.CreatedAt), Member: string(tournament.ID)})
	pipe.SAdd(ctx, organizerTournamentsKey(tournament.OrganizerID), string(tournament.ID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	return getJSON[model.Tournament](ctx, s.client, tournamentKey(id), model.ErrTournamentNotFound)
}

func (s *Storage) ListTournaments(ctx context.Context, filter model.TournamentFilter) ([]*model.Tournament, error) {
	// Newest first; equal scores fall back to reverse lexicographic member order
	ids, err := s.client.ZRevRange(ctx, tournamentsIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = tournamentKey(model.TournamentID(id))
	}
	all, err := mgetJSON[model.Tournament](ctx, s.client, keys)
	if err != nil {
		return nil, err
	}

	matched := make([]*model.Tournament, 0, len(all))
	for _, t := range all {
		if filter.Matches(t) {
			matched = append(matched, t)
		}
	}

	offset := filter.Offset()
	if offset >= len(matched) {
		return []*model.Tournament{}, nil
	}
	end := len(matched)
	if filter.Limit > 0 && offset+filter.Limit < end {
		end = offset + filter.Limit
	}
	return matched[offset:end], nil
}

func (s *Storage) UpdateTournament(ctx context.Context, tournament *model.Tournament, expected model.TournamentStatus) error {
	key := tournamentKey(tournament.ID)
	regsKey := tournamentRegistrationsKey(tournament.ID)
	confirmedKey := tournamentConfirmedKey(tournament.ID)

	return s.watch(ctx, func(tx *redis.Tx) error {
		current, err := getJSON[model.Tournament](ctx, tx, key, model.ErrTournamentNotFound)
		if err != nil {
			return err
		}
		if current.Status != expected {
			return model.ErrConcurrentModification
		}
		if tournament.Format != current.Format {
			n, err := tx.SCard(ctx, regsKey).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return model.ErrFormatLocked
			}
		}
		confirmed, err := tx.SCard(ctx, confirmedKey).Result()
		if err != nil {
			return err
		}
		if int64(tournament.MaxParticipants) < confirmed {
			return model.ErrCapacityBelowConfirmed
		}

		updated := *tournament
		updated.Status = current.Status
		updated.OrganizerID = current.OrganizerID
		updated.CreatedAt = current.CreatedAt
		data, err := json.Marshal(&updated)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key, regsKey, confirmedKey)
}

func (s *Storage) SetTournamentStatus(ctx context.Context, id model.TournamentID, from, to model.TournamentStatus, minConfirmed int, at time.Time) (*model.Tournament, error) {
	key := tournamentKey(id)
	confirmedKey := tournamentConfirmedKey(id)

	var result *model.Tournament
	err := s.watch(ctx, func(tx *redis.Tx) error {
		t, err := getJSON[model.Tournament](ctx, tx, key, model.ErrTournamentNotFound)
		if err != nil {
			return err
		}
		if t.Status != from {
			return model.ErrConcurrentModification
		}
		if minConfirmed > 0 {
			confirmed, err := tx.SCard(ctx, confirmedKey).Result()
			if err != nil {
				return err
			}
			if confirmed < int64(minConfirmed) {
				return model.ErrNotEnoughParticipants
			}
		}

		t.Status = to
		t.UpdatedAt = at
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			result = t
		}
		return err
	}, key, confirmedKey)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) DeleteTournament(ctx context.Context, id model.TournamentID) error {
	key := tournamentKey(id)
	regsKey := tournamentRegistrationsKey(id)
	confirmedKey := tournamentConfirmedKey(id)

	return s.watch(ctx, func(tx *redis.Tx) error {
		t, err := getJSON[model.Tournament](ctx, tx, key, model.ErrTournamentNotFound)
		if err != nil {
			return err
		}
		confirmed, err := tx.SCard(ctx, confirmedKey).Result()
		if err != nil {
			return err
		}
		if confirmed > 0 {
			return model.ErrHasConfirmedRegistrations
		}

		regIDs, err := tx.SMembers(ctx, regsKey).Result()
		if err != nil {
			return err
		}
		regs := make([]*model.Registration, 0, len(regIDs))
		for _, regID := range regIDs {
			r, err := getJSON[model.Registration](ctx, tx, registrationKey(model.RegistrationID(regID)), model.ErrRegistrationNotFound)
			if errors.Is(err, model.ErrRegistrationNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			regs = append(regs, r)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, r := range regs {
				pipe.Del(ctx, registrationKey(r.ID), entrantIndexKey(r))
				pipe.SRem(ctx, entrantRegistrationsKey(r), string(r.ID))
			}
			pipe.Del(ctx, key, regsKey, confirmedKey)
			pipe.ZRem(ctx, tournamentsIndexKey(), string(id))
			pipe.SRem(ctx, organizerTournamentsKey(t.OrganizerID), string(id))
			return nil
		})
		return err
	}, key, regsKey, confirmedKey)
}

// Registration operations

func (s *Storage) CreateRegistration(ctx context.Context, registration *model.Registration) error {
	data, err := json.Marshal(registration)
	if err != nil {
		return err
	}

	tKey := tournamentKey(registration.TournamentID)
	confirmedKey := tournamentConfirmedKey(registration.TournamentID)
	entrantKey := entrantIndexKey(registration)

	return s.watch(ctx, func(tx *redis.Tx) error {
		t, err := getJSON[model.Tournament](ctx, tx, tKey, model.ErrTournamentNotFound)
		if err != nil {
			return err
		}
		if t.Status != model.TournamentOpen {
			return model.ErrTournamentNotOpen
		}
		confirmed, err := tx.SCard(ctx, confirmedKey).Result()
		if err != nil {
			return err
		}
		if confirmed >= int64(t.MaxParticipants) {
			return model.ErrCapacityExceeded
		}
		n, err := tx.Exists(ctx, entrantKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return model.ErrDuplicateRegistration
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, registrationKey(registration.ID), data, 0)
			pipe.Set(ctx, entrantKey, string(registration.ID), 0)
			pipe.SAdd(ctx, tournamentRegistrationsKey(t.ID), string(registration.ID))
			pipe.SAdd(ctx, entrantRegistrationsKey(registration), string(registration.ID))
			if registration.Status == model.RegistrationConfirmed {
				pipe.SAdd(ctx, confirmedKey, string(registration.ID))
			}
			return nil
		})
		return err
	}, tKey, confirmedKey, entrantKey)
}

func (s *Storage) GetRegistration(ctx context.Context, id model.RegistrationID) (*model.Registration, error) {
	return getJSON[model.Registration](ctx, s.client, registrationKey(id), model.ErrRegistrationNotFound)
}

func (s *Storage) ListRegistrations(ctx context.Context, tournamentID model.TournamentID) ([]*model.Registration, error) {
	ids, err := s.client.SMembers(ctx, tournamentRegistrationsKey(tournamentID)).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = registrationKey(model.RegistrationID(id))
	}
	regs, err := mgetJSON[model.Registration](ctx, s.client, keys)
	if err != nil {
		return nil, err
	}
	sortRegistrations(regs)
	return regs, nil
}

func (s *Storage) SetRegistrationStatus(ctx context.Context, id model.RegistrationID, status model.RegistrationStatus, at time.Time) (*model.Registration, error) {
	key := registrationKey(id)

	// The tournament of a registration never changes, so it is safe to
	// resolve it before watching.
	existing, err := s.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	tKey := tournamentKey(existing.TournamentID)
	confirmedKey := tournamentConfirmedKey(existing.TournamentID)

	var result *model.Registration
	err = s.watch(ctx, func(tx *redis.Tx) error {
		r, err := getJSON[model.Registration](ctx, tx, key, model.ErrRegistrationNotFound)
		if err != nil {
			return err
		}

		if status == model.RegistrationConfirmed && r.Status != model.RegistrationConfirmed {
			t, err := getJSON[model.Tournament](ctx, tx, tKey, model.ErrTournamentNotFound)
			if err != nil {
				return err
			}
			confirmed, err := tx.SCard(ctx, confirmedKey).Result()
			if err != nil {
				return err
			}
			if confirmed >= int64(t.MaxParticipants) {
				return model.ErrCapacityExceeded
			}
		}

		r.Status = status
		if status == model.RegistrationConfirmed && r.ConfirmedAt == nil {
			confirmedAt := at
			r.ConfirmedAt = &confirmedAt
		}
		r.UpdatedAt = at
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if status == model.RegistrationConfirmed {
				pipe.SAdd(ctx, confirmedKey, string(id))
			} else {
				pipe.SRem(ctx, confirmedKey, string(id))
			}
			return nil
		})
		if err == nil {
			result = r
		}
		return err
	}, key, tKey, confirmedKey)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) DeleteRegistration(ctx context.Context, id model.RegistrationID) error {
	key := registrationKey(id)

	return s.watch(ctx, func(tx *redis.Tx) error {
		r, err := getJSON[model.Registration](ctx, tx, key, model.ErrRegistrationNotFound)
		if err != nil {
			return err
		}
		if r.Status == model.RegistrationConfirmed {
			return model.ErrCannotDeleteConfirmed
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key, entrantIndexKey(r))
			pipe.SRem(ctx, tournamentRegistrationsKey(r.TournamentID), string(id))
			pipe.SRem(ctx, entrantRegistrationsKey(r), string(id))
			return nil
		})
		return err
	}, key)
}
