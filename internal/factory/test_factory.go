package factory

import (
	"context"
	"time"

	"github.com/mcoot/tourney/internal/dependencies/mocks"
	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/services/auth"
	"github.com/mcoot/tourney/internal/storage"
	"github.com/mcoot/tourney/internal/storage/memory"
	"github.com/mcoot/tourney/internal/testutil"
)

// TestSecret signs tokens issued by a TestApp
const TestSecret = "test-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MockIDs   *mocks.MockIDs
}

// NewTestApp creates an App over memory storage with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithStorage(memory.New())
}

// NewTestAppWithStorage creates an App over the given storage with mocked dependencies
func NewTestAppWithStorage(store storage.Storage) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDs()

	authCfg := auth.DefaultConfig()
	authCfg.Secret = []byte(TestSecret)

	app := newWithDependencies(store, mockClock, mockIDs, authCfg, testutil.NopLogger())

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MockIDs:   mockIDs,
	}
}

// RegisterUser creates an account with a valid password and returns its identity and token
func (t *TestApp) RegisterUser(ctx context.Context, username string, role model.Role) (model.Identity, string, error) {
	session, err := t.AuthService.Register(ctx, auth.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "Password1",
		Role:     role,
	})
	if err != nil {
		return model.Identity{}, "", err
	}
	return model.Identity{UserID: session.User.ID, Role: session.User.Role}, session.Token, nil
}

// CreateAdmin creates an ADMIN account the way server bootstrap does
func (t *TestApp) CreateAdmin(ctx context.Context, username string) (model.Identity, string, error) {
	email := username + "@example.com"
	u, err := t.AuthService.EnsureAdmin(ctx, username, email, "Password1")
	if err != nil {
		return model.Identity{}, "", err
	}
	session, err := t.AuthService.Login(ctx, email, "Password1")
	if err != nil {
		return model.Identity{}, "", err
	}
	return model.Identity{UserID: u.ID, Role: u.Role}, session.Token, nil
}
