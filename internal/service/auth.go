package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/HoussemEK/Direction-Project/internal/auth"
	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/guard"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles user registration and login.
type AuthService struct {
	pool     repository.Pool
	users    repository.UserRepository
	profiles repository.ProfileRepository
	outbox   repository.OutboxRepository
	jwtMgr   *auth.JWTManager
	lockout  *guard.Lockout
	clock    clockwork.Clock
	logger   *slog.Logger
	cost     int
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	pool repository.Pool,
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	outbox repository.OutboxRepository,
	jwtMgr *auth.JWTManager,
	lockout *guard.Lockout,
	clock clockwork.Clock,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		pool:     pool,
		users:    users,
		profiles: profiles,
		outbox:   outbox,
		jwtMgr:   jwtMgr,
		lockout:  lockout,
		clock:    clock,
		logger:   logger,
		cost:     bcrypt.DefaultCost,
	}
}

// RegisterInput holds the registration request fields.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// AuthResult is returned on successful registration or login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Register creates a new account and its zero-state gamification profile
// within a single transaction.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := domain.ValidateEmail(email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if len(input.Password) < domain.MinPasswordLen {
		return nil, domain.ErrValidation("password must be at least 8 characters")
	}
	if err := domain.ValidateTimezone(input.Timezone); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateMaxLen("name", input.Name, domain.MaxTrackNameLen); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	// Check for existing user
	existing, err := s.users.FindByEmail(ctx, s.pool, email)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if existing != nil {
		return nil, domain.ErrConflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, domain.ErrInternal("hash password", err)
	}

	now := s.clock.Now()
	tz := input.Timezone
	if tz == "" {
		tz = "UTC"
	}
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
		Timezone:     tz,
		Settings:     domain.DefaultUserSettings(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// user + gamification profile + user.registered event
	err = inTx(ctx, s.pool, "register", func(tx pgx.Tx) error {
		if err := s.users.Create(ctx, tx, user); err != nil {
			return err
		}
		if err := s.profiles.EnsureExists(ctx, tx, domain.NewGamificationProfile(user.ID, now)); err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, domain.NewUserRegisteredEvent(user))
	})
	if err != nil {
		return nil, err
	}

	token, err := s.jwtMgr.GenerateToken(auth.RealmUser, user.ID, user.Email, user.Timezone)
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return &AuthResult{Token: token, User: user}, nil
}

// LoginInput holds the login request fields.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and returns a JWT. Repeated failures lock the
// email out for guard.LockoutWindow.
func (s *AuthService) Login(ctx context.Context, input LoginInput, ip string) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	realm := string(auth.RealmUser)

	if err := s.lockout.CheckLocked(ctx, email, realm); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, s.pool, email)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		s.lockout.RecordAttempt(ctx, email, realm, ip, false)
		return nil, domain.ErrUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.lockout.RecordAttempt(ctx, email, realm, ip, false)
		return nil, domain.ErrUnauthorized("invalid credentials")
	}
	s.lockout.RecordAttempt(ctx, email, realm, ip, true)

	token, err := s.jwtMgr.GenerateToken(auth.RealmUser, user.ID, user.Email, user.Timezone)
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}

	return &AuthResult{Token: token, User: user}, nil
}
