// Package auth is the identity provider: account registration, password
// login and bearer token verification.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/tourney/internal/dependencies/clock"
	"github.com/mcoot/tourney/internal/dependencies/ids"
	"github.com/mcoot/tourney/internal/model"
	"github.com/mcoot/tourney/internal/storage"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

const minPasswordLength = 8

// Session is the result of a successful registration or login
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// RegisterInput holds a new account's fields. An empty Role means PLAYER.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     model.Role
}

// Config holds configuration for the auth service
type Config struct {
	Secret   []byte
	TokenTTL time.Duration
	Issuer   string
}

// DefaultConfig returns default auth configuration. Secret must still be set.
func DefaultConfig() Config {
	return Config{
		TokenTTL: 24 * time.Hour,
		Issuer:   "tourney",
	}
}

type claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 tokens for stored users
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     ids.Generator
	cfg     Config
	logger  *slog.Logger
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, ids ids.Generator, cfg Config, logger *slog.Logger) *Service {
	defaults := DefaultConfig()
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaults.Issuer
	}
	return &Service{
		storage: storage,
		clock:   clock,
		ids:     ids,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "auth")),
	}
}

// Register creates a PLAYER or ORGANIZER account and logs it in
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if in.Role == "" {
		in.Role = model.RolePlayer
	}
	if in.Role == model.RoleAdmin {
		return nil, model.ErrForbidden
	}
	user, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", string(user.ID)),
		slog.String("role", string(user.Role)))
	return s.issue(user)
}

// Login checks an email and password pair
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.storage.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}
	return s.issue(user)
}

// Authenticate verifies a token and resolves the caller. The role comes from
// the stored account, so a role change takes effect without a new token.
func (s *Service) Authenticate(ctx context.Context, token string) (model.Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return model.Identity{}, model.ErrInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.UserID == "" {
		return model.Identity{}, model.ErrInvalidToken
	}

	user, err := s.storage.GetUser(ctx, model.UserID(c.UserID))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.Identity{}, model.ErrInvalidToken
		}
		return model.Identity{}, err
	}
	return model.Identity{UserID: user.ID, Role: user.Role}, nil
}

// EnsureAdmin creates the bootstrap ADMIN account unless a user with that
// email already exists
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (*model.User, error) {
	existing, err := s.storage.GetUserByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	user, err := s.createUser(ctx, RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
		Role:     model.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin account created", slog.String("user_id", string(user.ID)))
	return user, nil
}

func (s *Service) createUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &model.User{
		ID:           model.UserID(s.ids.NewID(ids.PrefixUser)),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// issue signs a token for a user
func (s *Service) issue(user *model.User) (*Session, error) {
	now := s.clock.Now()
	expires := now.Add(s.cfg.TokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: string(user.ID),
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return nil, err
	}
	return &Session{Token: signed, ExpiresAt: expires, User: user}, nil
}

func validateRegistration(in RegisterInput) error {
	if !usernamePattern.MatchString(in.Username) {
		return model.Invalid("username", "must be 3 to 20 letters, digits or underscores")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return model.Invalid("email", "is not a valid address")
	}
	if !strongPassword(in.Password) {
		return model.Invalid("password", "must be at least 8 characters with an uppercase letter, a lowercase letter and a digit")
	}
	if !in.Role.Valid() {
		return model.Invalid("role", "must be PLAYER or ORGANIZER")
	}
	return nil
}

func strongPassword(p string) bool {
	if len(p) < minPasswordLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
