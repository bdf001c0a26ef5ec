package api_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/tourney/internal/api"
	"github.com/mcoot/tourney/internal/api/apierr"
	"github.com/mcoot/tourney/internal/api/response"
	"github.com/mcoot/tourney/internal/factory"
	"github.com/mcoot/tourney/internal/model"
)

// testServer wires the router over a test app
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:             logger,
		AuthService:        app.AuthService,
		TournamentEngine:   app.TournamentEngine,
		RegistrationEngine: app.RegistrationEngine,
		TeamService:        app.TeamService,
		UserService:        app.UserService,
		HubManager:         app.HubManager,
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apierr.ErrorResponse](t, rr).Error.Code
}

// register creates an account over HTTP and returns its token and user
func register(t *testing.T, ts *testServer, username, role string) (string, response.User) {
	t.Helper()
	body := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "Password1",
		"role":     role,
	}
	rr := ts.request(http.MethodPost, "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decode[response.AuthResponse](t, rr)
	return resp.Token, resp.User
}

func createTournament(t *testing.T, ts *testServer, token, format string, capacity int) response.Tournament {
	t.Helper()
	body := map[string]any{
		"name":             "Spring Cup",
		"game":             "chess",
		"format":           format,
		"max_participants": capacity,
		"prize_pool":       100,
		"start_date":       "2030-02-01T10:00:00Z",
	}
	rr := ts.request(http.MethodPost, "/api/v1/tournaments", body, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[response.Tournament](t, rr)
	require.Equal(t, "/api/v1/tournaments/"+created.ID, rr.Header().Get("Location"))
	return created
}

func setTournamentStatus(t *testing.T, ts *testServer, token, id, status string) *httptest.ResponseRecorder {
	t.Helper()
	return ts.request(http.MethodPatch, "/api/v1/tournaments/"+id+"/status", map[string]string{"status": status}, token)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	_, user := register(t, ts, "alice", "")
	assert.Equal(t, "PLAYER", user.Role)
	assert.Equal(t, "alice@example.com", user.Email)

	rr := ts.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "ALICE@example.com",
		"password": "Password1",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[response.AuthResponse](t, rr)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.NotEmpty(t, resp.Token)

	rr = ts.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRegisterErrors(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "alice", "")

	rr := ts.request(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "Password1",
	}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "USERNAME_TAKEN", errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "root",
		"email":    "root@example.com",
		"password": "Password1",
		"role":     "ADMIN",
	}, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("{not json"))
	bad := httptest.NewRecorder()
	ts.handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, bad))
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)
	token, user := register(t, ts, "orga", "ORGANIZER")

	rr := ts.request(http.MethodGet, "/api/v1/auth/me", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	me := decode[response.Identity](t, rr)
	assert.Equal(t, user.ID, me.UserID)
	assert.Equal(t, "ORGANIZER", me.Role)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/tournaments"},
		{http.MethodPut, "/api/v1/tournaments/trn_1"},
		{http.MethodPatch, "/api/v1/tournaments/trn_1/status"},
		{http.MethodPost, "/api/v1/tournaments/trn_1/registrations"},
		{http.MethodPatch, "/api/v1/registrations/reg_1/status"},
		{http.MethodPost, "/api/v1/teams"},
		{http.MethodGet, "/api/v1/users"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := ts.request(tc.method, tc.path, map[string]string{}, "")
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}

	rr := ts.request(http.MethodGet, "/api/v1/auth/me", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPublicReads(t *testing.T) {
	ts := newTestServer(t)
	token, _ := register(t, ts, "orga", "ORGANIZER")
	trn := createTournament(t, ts, token, "SOLO", 4)

	rr := ts.request(http.MethodGet, "/api/v1/tournaments/"+trn.ID, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "DRAFT", decode[response.Tournament](t, rr).Status)

	rr = ts.request(http.MethodGet, "/api/v1/tournaments/"+trn.ID+"/registrations", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[response.RegistrationList](t, rr).Registrations)

	rr = ts.request(http.MethodGet, "/api/v1/teams", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/tournaments/trn_missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "TOURNAMENT_NOT_FOUND", errorCode(t, rr))
}

func TestPlayerCannotCreateTournament(t *testing.T) {
	ts := newTestServer(t)
	token, _ := register(t, ts, "alice", "")

	rr := ts.request(http.MethodPost, "/api/v1/tournaments", map[string]any{
		"name":             "Spring Cup",
		"game":             "chess",
		"format":           "SOLO",
		"max_participants": 4,
		"start_date":       "2030-02-01T10:00:00Z",
	}, token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestListTournaments(t *testing.T) {
	ts := newTestServer(t)
	token, _ := register(t, ts, "orga", "ORGANIZER")
	for i := 0; i < 3; i++ {
		createTournament(t, ts, token, "SOLO", 4)
		ts.app.MockClock.Advance(time.Minute)
	}
	teamCup := createTournament(t, ts, token, "TEAM", 4)

	rr := ts.request(http.MethodGet, "/api/v1/tournaments?limit=2&page=1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[response.TournamentList](t, rr)
	assert.Len(t, list.Tournaments, 2)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 2, list.Limit)
	assert.Equal(t, teamCup.ID, list.Tournaments[0].ID)

	rr = ts.request(http.MethodGet, "/api/v1/tournaments?format=TEAM", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	list = decode[response.TournamentList](t, rr)
	require.Len(t, list.Tournaments, 1)
	assert.Equal(t, 10, list.Limit)

	rr = ts.request(http.MethodGet, "/api/v1/tournaments?limit=500", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 100, decode[response.TournamentList](t, rr).Limit)

	rr = ts.request(http.MethodGet, "/api/v1/tournaments?status=FINISHED", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/tournaments?page=1844674407370955161", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	list = decode[response.TournamentList](t, rr)
	assert.Empty(t, list.Tournaments)
	assert.Equal(t, math.MaxInt/10, list.Page)

	rr = ts.request(http.MethodGet, "/api/v1/tournaments?page=two", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))
}

func TestUpdateAndDeleteTournament(t *testing.T) {
	ts := newTestServer(t)
	token, _ := register(t, ts, "orga", "ORGANIZER")
	trn := createTournament(t, ts, token, "SOLO", 4)

	rr := ts.request(http.MethodPut, "/api/v1/tournaments/"+trn.ID, map[string]any{
		"name":             "Summer Cup",
		"max_participants": 8,
	}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[response.Tournament](t, rr)
	assert.Equal(t, "Summer Cup", updated.Name)
	assert.Equal(t, 8, updated.MaxParticipants)
	assert.Equal(t, "chess", updated.Game)

	rr = ts.request(http.MethodPut, "/api/v1/tournaments/"+trn.ID, map[string]any{
		"end_date": "2030-01-15T10:00:00Z",
	}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodDelete, "/api/v1/tournaments/"+trn.ID, nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/tournaments/"+trn.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIllegalTournamentTransition(t *testing.T) {
	ts := newTestServer(t)
	token, _ := register(t, ts, "orga", "ORGANIZER")
	trn := createTournament(t, ts, token, "SOLO", 4)

	rr := setTournamentStatus(t, ts, token, trn.ID, "COMPLETED")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	resp := decode[apierr.ErrorResponse](t, rr)
	assert.Equal(t, "ILLEGAL_TRANSITION", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "DRAFT -> COMPLETED")

	rr = setTournamentStatus(t, ts, token, trn.ID, "PAUSED")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// TestTeamTournamentScenario walks a TEAM tournament from draft to completion
func TestTeamTournamentScenario(t *testing.T) {
	ts := newTestServer(t)
	ctx := t.Context()

	orgToken, _ := register(t, ts, "orga", "ORGANIZER")
	_, adminToken, err := ts.app.CreateAdmin(ctx, "admin")
	require.NoError(t, err)

	trn := createTournament(t, ts, orgToken, "TEAM", 2)

	// Registration is closed while in draft
	captainToken, _ := register(t, ts, "captain1", "")
	rr := ts.request(http.MethodPost, "/api/v1/teams", map[string]string{"name": "Rooks", "tag": "RKS"}, captainToken)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	team1 := decode[response.Team](t, rr)

	rr = ts.request(http.MethodPost, "/api/v1/tournaments/"+trn.ID+"/registrations", map[string]string{"team_id": team1.ID}, captainToken)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "TOURNAMENT_NOT_OPEN", errorCode(t, rr))

	rr = setTournamentStatus(t, ts, orgToken, trn.ID, "OPEN")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// Three teams register, two are confirmed
	var regIDs []string
	var tokens []string
	for i := 1; i <= 3; i++ {
		token := captainToken
		teamID := team1.ID
		if i > 1 {
			token, _ = register(t, ts, fmt.Sprintf("captain%d", i), "")
			rr = ts.request(http.MethodPost, "/api/v1/teams", map[string]string{
				"name": fmt.Sprintf("Team %d", i),
				"tag":  fmt.Sprintf("TM%d", i),
			}, token)
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
			teamID = decode[response.Team](t, rr).ID
		}

		rr = ts.request(http.MethodPost, "/api/v1/tournaments/"+trn.ID+"/registrations", map[string]string{"team_id": teamID}, token)
		// Capacity counts confirmed registrations only, so a third pending entry is accepted
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		reg := decode[response.Registration](t, rr)
		assert.Equal(t, "PENDING", reg.Status)
		regIDs = append(regIDs, reg.ID)
		tokens = append(tokens, token)
	}

	// A PLAYER registration on a TEAM tournament is rejected
	playerToken, player := register(t, ts, "solo", "")
	rr = ts.request(http.MethodPost, "/api/v1/tournaments/"+trn.ID+"/registrations", map[string]string{"player_id": player.ID}, playerToken)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "FORMAT_MISMATCH", errorCode(t, rr))

	// The same team cannot register twice
	rr = ts.request(http.MethodPost, "/api/v1/tournaments/"+trn.ID+"/registrations", map[string]string{"team_id": team1.ID}, captainToken)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "DUPLICATE_REGISTRATION", errorCode(t, rr))

	// A captain cannot confirm their own registration
	rr = ts.request(http.MethodPatch, "/api/v1/registrations/"+regIDs[0]+"/status", map[string]string{"status": "CONFIRMED"}, tokens[0])
	assert.Equal(t, http.StatusForbidden, rr.Code)

	for _, id := range regIDs[:2] {
		rr = ts.request(http.MethodPatch, "/api/v1/registrations/"+id+"/status", map[string]string{"status": "CONFIRMED"}, orgToken)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.NotNil(t, decode[response.Registration](t, rr).ConfirmedAt)
	}

	// The tournament is full: the third team cannot be confirmed
	rr = ts.request(http.MethodPatch, "/api/v1/registrations/"+regIDs[2]+"/status", map[string]string{"status": "CONFIRMED"}, orgToken)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "CAPACITY_EXCEEDED", errorCode(t, rr))

	// Confirmed registrations cannot be deleted
	rr = ts.request(http.MethodDelete, "/api/v1/registrations/"+regIDs[0], nil, orgToken)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "CANNOT_DELETE_CONFIRMED", errorCode(t, rr))

	// The third captain withdraws
	rr = ts.request(http.MethodPatch, "/api/v1/registrations/"+regIDs[2]+"/status", map[string]string{"status": "WITHDRAWN"}, tokens[2])
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.request(http.MethodGet, "/api/v1/tournaments/"+trn.ID+"/registrations", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[response.RegistrationList](t, rr)
	assert.Len(t, list.Registrations, 3)
	assert.Equal(t, 2, list.Confirmed)

	// Start, then only an admin may complete
	rr = setTournamentStatus(t, ts, orgToken, trn.ID, "ONGOING")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = setTournamentStatus(t, ts, orgToken, trn.ID, "COMPLETED")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = setTournamentStatus(t, ts, adminToken, trn.ID, "COMPLETED")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "COMPLETED", decode[response.Tournament](t, rr).Status)

	// Terminal
	rr = setTournamentStatus(t, ts, adminToken, trn.ID, "CANCELLED")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "ILLEGAL_TRANSITION", errorCode(t, rr))

	// Staying put is a no-op
	rr = setTournamentStatus(t, ts, adminToken, trn.ID, "COMPLETED")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "COMPLETED", decode[response.Tournament](t, rr).Status)
}

func TestSoloRegistrationFlow(t *testing.T) {
	ts := newTestServer(t)
	orgToken, _ := register(t, ts, "orga", "ORGANIZER")
	trn := createTournament(t, ts, orgToken, "SOLO", 4)
	require.Equal(t, http.StatusOK, setTournamentStatus(t, ts, orgToken, trn.ID, "OPEN").Code)

	aliceToken, alice := register(t, ts, "alice", "")
	_, bob := register(t, ts, "bob", "")

	// Players cannot register someone else
	rr := ts.request(http.MethodPost, "/api/v1/tournaments/"+trn.ID+"/registrations", map[string]string{"player_id": bob.ID}, aliceToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/tournaments/"+trn.ID+"/registrations", map[string]string{"player_id": alice.ID}, aliceToken)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	reg := decode[response.Registration](t, rr)
	assert.Equal(t, alice.ID, reg.PlayerID)

	// A pending registration may be removed by its player
	rr = ts.request(http.MethodDelete, "/api/v1/registrations/"+reg.ID, nil, aliceToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodDelete, "/api/v1/registrations/"+reg.ID, nil, aliceToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTeamEndpoints(t *testing.T) {
	ts := newTestServer(t)
	captainToken, captain := register(t, ts, "captain", "")
	otherToken, _ := register(t, ts, "other", "")

	rr := ts.request(http.MethodPost, "/api/v1/teams", map[string]string{"name": "Rooks", "tag": "rks"}, captainToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/teams", map[string]string{"name": "Rooks", "tag": "RKS"}, captainToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[response.Team](t, rr)
	assert.Equal(t, captain.ID, created.CaptainID)

	rr = ts.request(http.MethodPut, "/api/v1/teams/"+created.ID, map[string]string{"name": "Bishops"}, otherToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "NOT_CAPTAIN", errorCode(t, rr))

	rr = ts.request(http.MethodPut, "/api/v1/teams/"+created.ID, map[string]string{"name": "Bishops"}, captainToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Bishops", decode[response.Team](t, rr).Name)

	rr = ts.request(http.MethodGet, "/api/v1/teams/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "RKS", decode[response.Team](t, rr).Tag)

	rr = ts.request(http.MethodDelete, "/api/v1/teams/"+created.ID, nil, captainToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/teams", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[response.TeamList](t, rr).Teams)
}

func TestUserEndpoints(t *testing.T) {
	ts := newTestServer(t)
	playerToken, player := register(t, ts, "alice", "")
	admin, adminToken, err := ts.app.CreateAdmin(t.Context(), "admin")
	require.NoError(t, err)

	rr := ts.request(http.MethodGet, "/api/v1/users", nil, playerToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/users", nil, adminToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[response.UserList](t, rr).Users, 2)

	rr = ts.request(http.MethodGet, "/api/v1/users/"+player.ID, nil, playerToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")

	rr = ts.request(http.MethodDelete, "/api/v1/users/"+string(admin.UserID), nil, adminToken)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "CANNOT_REMOVE_SELF", errorCode(t, rr))

	rr = ts.request(http.MethodDelete, "/api/v1/users/"+player.ID, nil, adminToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	// The deleted user's token no longer authenticates
	rr = ts.request(http.MethodGet, "/api/v1/auth/me", nil, playerToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTournamentEventStream(t *testing.T) {
	ts := newTestServer(t)
	orgToken, _ := register(t, ts, "orga", "ORGANIZER")
	trn := createTournament(t, ts, orgToken, "SOLO", 4)

	server := httptest.NewServer(ts.handler)
	defer server.Close()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL+"/api/v1/tournaments/"+trn.ID+"/events?access_token="+orgToken, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	waitFor := func(prefix string) string {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed before %q", prefix)
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-timeout:
				t.Fatalf("timed out waiting for %q", prefix)
			}
		}
	}

	waitFor("event: connected")

	rr := setTournamentStatus(t, ts, orgToken, trn.ID, "OPEN")
	require.Equal(t, http.StatusOK, rr.Code)

	waitFor("event: " + string(model.EventTournamentStatusChanged))
	data := strings.TrimPrefix(waitFor("data: "), "data: ")

	var event model.Event
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, model.EventTournamentStatusChanged, event.Type)
	assert.Equal(t, model.TournamentID(trn.ID), event.TournamentID)
	assert.Contains(t, data, `"to":"OPEN"`)
}

func TestEventStreamUnknownTournament(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/tournaments/trn_missing/events", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
