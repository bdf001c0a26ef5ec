package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// A single mutex makes every guarded write a serializable unit.
type Storage struct {
	mu sync.RWMutex

	users         map[model.UserID]*model.User
	usernameIndex map[string]model.UserID
	emailIndex    map[string]model.UserID
	teams         map[model.TeamID]*model.Team
	teamNameIndex map[string]model.TeamID
	teamTagIndex  map[string]model.TeamID
	tournaments   map[model.TournamentID]*model.Tournament
	registrations map[model.RegistrationID]*model.Registration
	entrantIndex  map[entrantKey]model.RegistrationID
}

// entrantKey enforces one registration per (tournament, player) and (tournament, team)
type entrantKey struct {
	tournamentID model.TournamentID
	playerID     model.UserID
	teamID       model.TeamID
}

func entrantKeyFor(r *model.Registration) entrantKey {
	return entrantKey{tournamentID: r.TournamentID, playerID: r.PlayerID, teamID: r.TeamID}
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]*model.User),
		usernameIndex: make(map[string]model.UserID),
		emailIndex:    make(map[string]model.UserID),
		teams:         make(map[model.TeamID]*model.Team),
		teamNameIndex: make(map[string]model.TeamID),
		teamTagIndex:  make(map[string]model.TeamID),
		tournaments:   make(map[model.TournamentID]*model.Tournament),
		registrations: make(map[model.RegistrationID]*model.Registration),
		entrantIndex:  make(map[entrantKey]model.RegistrationID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usernameIndex[user.Username]; ok {
		return model.ErrUsernameTaken
	}
	if _, ok := s.emailIndex[user.Email]; ok {
		return model.ErrEmailTaken
	}
	u := *user
	s.users[u.ID] = &u
	s.usernameIndex[u.Username] = u.ID
	s.emailIndex[u.Email] = u.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	id, ok := s.emailIndex[email]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	id, ok := s.usernameIndex[username]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		out := *u
		users = append(users, &out)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	for _, t := range s.tournaments {
		if t.OrganizerID == id {
			return model.ErrUserInUse
		}
	}
	for _, t := range s.teams {
		if t.CaptainID == id {
			return model.ErrUserInUse
		}
	}
	for _, r := range s.registrations {
		if r.PlayerID == id {
			return model.ErrUserInUse
		}
	}
	delete(s.usernameIndex, u.Username)
	delete(s.emailIndex, u.Email)
	delete(s.users, id)
	return nil
}

// Team operations

func (s *Storage) CreateTeam(ctx context.Context, team *model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teamNameIndex[team.Name]; ok {
		return model.ErrTeamNameTaken
	}
	if _, ok := s.teamTagIndex[team.Tag]; ok {
		return model.ErrTeamTagTaken
	}
	t := *team
	s.teams[t.ID] = &t
	s.teamNameIndex[t.Name] = t.ID
	s.teamTagIndex[t.Tag] = t.ID
	return nil
}

func (s *Storage) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, model.ErrTeamNotFound
	}
	out := *t
	return &out, nil
}

func (s *Storage) ListTeams(ctx context.Context) ([]*model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	teams := make([]*model.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out := *t
		teams = append(teams, &out)
	}
	sort.Slice(teams, func(i, j int) bool {
		return teams[i].CreatedAt.Before(teams[j].CreatedAt)
	})
	return teams, nil
}

func (s *Storage) UpdateTeam(ctx context.Context, team *model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.teams[team.ID]
	if !ok {
		return model.ErrTeamNotFound
	}
	if owner, ok := s.teamNameIndex[team.Name]; ok && owner != team.ID {
		return model.ErrTeamNameTaken
	}
	if owner, ok := s.teamTagIndex[team.Tag]; ok && owner != team.ID {
		return model.ErrTeamTagTaken
	}
	delete(s.teamNameIndex, current.Name)
	delete(s.teamTagIndex, current.Tag)
	t := *team
	s.teams[t.ID] = &t
	s.teamNameIndex[t.Name] = t.ID
	s.teamTagIndex[t.Tag] = t.ID
	return nil
}

func (s *Storage) DeleteTeam(ctx context.Context, id model.TeamID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return model.ErrTeamNotFound
	}
	for _, r := range s.registrations {
		if r.TeamID == id {
			return model.ErrTeamHasRegistrations
		}
	}
	delete(s.teamNameIndex, t.Name)
	delete(s.teamTagIndex, t.Tag)
	delete(s.teams, id)
	return nil
}

// Tournament operations

func (s *Storage) CreateTournament(ctx context.Context, tournament *model.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := cloneTournament(tournament)
	s.tournaments[t.ID] = t
	return nil
}

func (s *Storage) GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, model.ErrTournamentNotFound
	}
	return cloneTournament(t), nil
}

func (s *Storage) ListTournaments(ctx context.Context, filter model.TournamentFilter) ([]*model.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*model.Tournament
	for _, t := range s.tournaments {
		if filter.Matches(t) {
			matched = append(matched, cloneTournament(t))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter), nil
}

func (s *Storage) UpdateTournament(ctx context.Context, tournament *model.Tournament, expected model.TournamentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tournaments[tournament.ID]
	if !ok {
		return model.ErrTournamentNotFound
	}
	if current.Status != expected {
		return model.ErrConcurrentModification
	}
	regs := s.registrationsFor(tournament.ID)
	if tournament.Format != current.Format && len(regs) > 0 {
		return model.ErrFormatLocked
	}
	if tournament.MaxParticipants < model.CountConfirmed(regs) {
		return model.ErrCapacityBelowConfirmed
	}
	t := cloneTournament(tournament)
	t.Status = current.Status
	t.OrganizerID = current.OrganizerID
	t.CreatedAt = current.CreatedAt
	s.tournaments[t.ID] = t
	return nil
}

func (s *Storage) SetTournamentStatus(ctx context.Context, id model.TournamentID, from, to model.TournamentStatus, minConfirmed int, at time.Time) (*model.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, model.ErrTournamentNotFound
	}
	if t.Status != from {
		return nil, model.ErrConcurrentModification
	}
	if minConfirmed > 0 && model.CountConfirmed(s.registrationsFor(id)) < minConfirmed {
		return nil, model.ErrNotEnoughParticipants
	}
	t.Status = to
	t.UpdatedAt = at
	return cloneTournament(t), nil
}

func (s *Storage) DeleteTournament(ctx context.Context, id model.TournamentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tournaments[id]; !ok {
		return model.ErrTournamentNotFound
	}
	regs := s.registrationsFor(id)
	if model.CountConfirmed(regs) > 0 {
		return model.ErrHasConfirmedRegistrations
	}
	for _, r := range regs {
		delete(s.entrantIndex, entrantKeyFor(r))
		delete(s.registrations, r.ID)
	}
	delete(s.tournaments, id)
	return nil
}

// Registration operations

func (s *Storage) CreateRegistration(ctx context.Context, registration *model.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[registration.TournamentID]
	if !ok {
		return model.ErrTournamentNotFound
	}
	if t.Status != model.TournamentOpen {
		return model.ErrTournamentNotOpen
	}
	if model.CountConfirmed(s.registrationsFor(t.ID)) >= t.MaxParticipants {
		return model.ErrCapacityExceeded
	}
	key := entrantKeyFor(registration)
	if _, ok := s.entrantIndex[key]; ok {
		return model.ErrDuplicateRegistration
	}
	r := cloneRegistration(registration)
	s.registrations[r.ID] = r
	s.entrantIndex[key] = r.ID
	return nil
}

func (s *Storage) GetRegistration(ctx context.Context, id model.RegistrationID) (*model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.registrations[id]
	if !ok {
		return nil, model.ErrRegistrationNotFound
	}
	return cloneRegistration(r), nil
}

func (s *Storage) ListRegistrations(ctx context.Context, tournamentID model.TournamentID) ([]*model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regs := s.registrationsFor(tournamentID)
	out := make([]*model.Registration, len(regs))
	for i, r := range regs {
		out[i] = cloneRegistration(r)
	}
	return out, nil
}

func (s *Storage) SetRegistrationStatus(ctx context.Context, id model.RegistrationID, status model.RegistrationStatus, at time.Time) (*model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[id]
	if !ok {
		return nil, model.ErrRegistrationNotFound
	}
	if status == model.RegistrationConfirmed && r.Status != model.RegistrationConfirmed {
		t, ok := s.tournaments[r.TournamentID]
		if !ok {
			return nil, model.ErrTournamentNotFound
		}
		if model.CountConfirmed(s.registrationsFor(t.ID)) >= t.MaxParticipants {
			return nil, model.ErrCapacityExceeded
		}
	}
	r.Status = status
	if status == model.RegistrationConfirmed && r.ConfirmedAt == nil {
		confirmedAt := at
		r.ConfirmedAt = &confirmedAt
	}
	r.UpdatedAt = at
	return cloneRegistration(r), nil
}

func (s *Storage) DeleteRegistration(ctx context.Context, id model.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[id]
	if !ok {
		return model.ErrRegistrationNotFound
	}
	if r.Status == model.RegistrationConfirmed {
		return model.ErrCannotDeleteConfirmed
	}
	delete(s.entrantIndex, entrantKeyFor(r))
	delete(s.registrations, id)
	return nil
}

// registrationsFor returns the stored registrations of a tournament, oldest first.
// Callers must hold the lock and must not hand the pointers out.
func (s *Storage) registrationsFor(tournamentID model.TournamentID) []*model.Registration {
	var regs []*model.Registration
	for _, r := range s.registrations {
		if r.TournamentID == tournamentID {
			regs = append(regs, r)
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		if regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].ID < regs[j].ID
		}
		return regs[i].CreatedAt.Before(regs[j].CreatedAt)
	})
	return regs
}

func paginate(ts []*model.Tournament, filter model.TournamentFilter) []*model.Tournament {
	offset := filter.Offset()
	if offset >= len(ts) {
		return []*model.Tournament{}
	}
	end := len(ts)
	if filter.Limit > 0 && offset+filter.Limit < end {
		end = offset + filter.Limit
	}
	return ts[offset:end]
}

func cloneTournament(t *model.Tournament) *model.Tournament {
	out := *t
	if t.EndDate != nil {
		end := *t.EndDate
		out.EndDate = &end
	}
	return &out
}

func cloneRegistration(r *model.Registration) *model.Registration {
	out := *r
	if r.ConfirmedAt != nil {
		confirmedAt := *r.ConfirmedAt
		out.ConfirmedAt = &confirmedAt
	}
	return &out
}
