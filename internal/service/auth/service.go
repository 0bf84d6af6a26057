package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/taskpulse/internal/domain"
	"github.com/splax/taskpulse/internal/jobs"
	"github.com/splax/taskpulse/internal/repository"
	"github.com/splax/taskpulse/pkg/config"
	"github.com/splax/taskpulse/pkg/crypto"
	jwtpkg "github.com/splax/taskpulse/pkg/jwt"
)

const minPasswordLength = 8

// WelcomeJobKind names the background job enqueued after registration.
const WelcomeJobKind = "welcome-email"

// Service handles registration, login, and per-request identity resolution.
type Service struct {
	users  repository.UserRepository
	queue  *jobs.Queue
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service. The queue may be nil; registration then skips
// the welcome job.
func New(users repository.UserRepository, queue *jobs.Queue, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, queue: queue, logger: logger, cfg: cfg}
}

// Register validates credentials, stores the user, and returns the public
// projection. The raw password never leaves this function unhashed.
func (s Service) Register(ctx context.Context, rawEmail, rawPassword string) (*domain.PublicUser, error) {
	email := normalizeEmail(rawEmail)
	if !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}
	if !passwordAcceptable(rawPassword) {
		return nil, domain.ErrInvalidPassword
	}
	hash, err := crypto.HashPassword(rawPassword)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, domain.ErrEmailExists
		}
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	if s.queue != nil {
		s.queue.Enqueue(jobs.Job{
			ID:   uuid.NewString(),
			Kind: WelcomeJobKind,
			Payload: map[string]string{
				"userId": strconv.Itoa(user.ID),
				"email":  user.Email,
			},
		})
	}
	public := user.Public()
	return &public, nil
}

// Login verifies credentials and issues an access token. An unknown email
// and a wrong password both return the one ErrAuthFailed value so the
// response never reveals which half was wrong.
func (s Service) Login(ctx context.Context, rawEmail, rawPassword string) (string, error) {
	email := normalizeEmail(rawEmail)
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", domain.ErrAuthFailed
		}
		return "", err
	}
	if err := crypto.ComparePassword(user.PasswordHash, rawPassword); err != nil {
		return "", domain.ErrAuthFailed
	}
	token, err := jwtpkg.GenerateToken(user.ID, user.Role, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return token, nil
}

// Verify validates a bearer token and returns its claims. It never touches
// the store; callers that need the live record must additionally call Me.
func (s Service) Verify(token string) (*jwtpkg.Claims, error) {
	claims, err := jwtpkg.Parse(strings.TrimSpace(token), s.cfg.JWTSecret)
	if err != nil {
		return nil, domain.ErrAuthInvalid
	}
	return claims, nil
}

// Me resolves the live user record behind a verified token. A token can
// legitimately outlive a deleted account, hence the not-found case.
func (s Service) Me(ctx context.Context, userID int) (*domain.PublicUser, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// passwordAcceptable requires 8+ characters and at least one symbol.
func passwordAcceptable(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return true
		}
	}
	return false
}
