package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/2emr/sensor-backend/internal/core/domain"
	"github.com/2emr/sensor-backend/internal/core/ports"
	"github.com/2emr/sensor-backend/internal/pkg/clock"
)

// dummyHash is compared against when the username does not exist so that
// unknown users and wrong passwords cost the same bcrypt work.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("sensor-backend-dummy-password"), bcrypt.DefaultCost)

// AuthService implements registration and login.
type AuthService struct {
	repo   ports.UserRepository
	tokens ports.TokenIssuer
	clock  clock.Clock
	cost   int
	log    zerolog.Logger
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

// WithAuthClock sets the clock used for user creation timestamps.
func WithAuthClock(c clock.Clock) AuthOption {
	return func(s *AuthService) { s.clock = c }
}

func NewAuthService(repo ports.UserRepository, tokens ports.TokenIssuer, log zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		repo:   repo,
		tokens: tokens,
		clock:  clock.Real(),
		cost:   bcrypt.DefaultCost,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user. The lookup below only short-circuits the common
// case; the repository is what guarantees uniqueness under concurrent calls.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.ErrInvalidInput
	}
	if utf8.RuneCountInString(username) > domain.MaxUsernameLength || len(password) > domain.MaxPasswordBytes {
		return domain.ErrCredentialsTooLong
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("register: lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return domain.ErrCredentialsTooLong
	}
	if err != nil {
		return fmt.Errorf("register: hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("register: create user: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return nil
}

// Login verifies the credentials and returns a signed token. Both an unknown
// username and a wrong password yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("login: lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("login: issue token: %w", err)
	}

	s.log.Debug().Str("user_id", user.ID).Time("at", s.clock.Now()).Msg("token issued")
	return token, nil
}
