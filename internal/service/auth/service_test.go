package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/splax/taskpulse/internal/domain"
	"github.com/splax/taskpulse/internal/jobs"
	"github.com/splax/taskpulse/internal/repository"
	"github.com/splax/taskpulse/pkg/config"
	"github.com/splax/taskpulse/pkg/crypto"
)

type stubUserRepository struct {
	createFn  func(ctx context.Context, user *domain.User) error
	byEmailFn func(ctx context.Context, email string) (*domain.User, error)
	byIDFn    func(ctx context.Context, id int) (*domain.User, error)
}

func (s *stubUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if s.createFn != nil {
		return s.createFn(ctx, user)
	}
	user.ID = 1
	return nil
}

func (s *stubUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.byEmailFn != nil {
		return s.byEmailFn(ctx, email)
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) GetUserByID(ctx context.Context, id int) (*domain.User, error) {
	if s.byIDFn != nil {
		return s.byIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.APIConfig {
	return config.APIConfig{JWTSecret: "test-secret", AccessTokenTTL: time.Minute}
}

func TestRegisterRejectsBadEmail(t *testing.T) {
	svc := New(&stubUserRepository{}, nil, discardLogger(), testConfig())
	for _, email := range []string{"", "   ", "not-an-email"} {
		if _, err := svc.Register(context.Background(), email, "sup3r-secret!"); !errors.Is(err, domain.ErrInvalidEmail) {
			t.Fatalf("email %q: expected ErrInvalidEmail, got %v", email, err)
		}
	}
}

func TestRegisterEnforcesPasswordPolicy(t *testing.T) {
	svc := New(&stubUserRepository{}, nil, discardLogger(), testConfig())
	cases := []struct {
		password string
		ok       bool
	}{
		{"short!", false},
		{"longenoughbutplain", false},
		{"NoSymbols123", false},
		{"with space", true},
		{"sup3r-secret", true},
		{"pass!word", true},
	}
	for _, tc := range cases {
		_, err := svc.Register(context.Background(), "user@example.com", tc.password)
		if tc.ok && err != nil {
			t.Fatalf("password %q: unexpected error %v", tc.password, err)
		}
		if !tc.ok && !errors.Is(err, domain.ErrInvalidPassword) {
			t.Fatalf("password %q: expected ErrInvalidPassword, got %v", tc.password, err)
		}
	}
}

func TestRegisterNormalizesEmailAndHidesHash(t *testing.T) {
	var stored *domain.User
	repo := &stubUserRepository{
		createFn: func(ctx context.Context, user *domain.User) error {
			user.ID = 11
			stored = user
			return nil
		},
	}
	svc := New(repo, nil, discardLogger(), testConfig())

	public, err := svc.Register(context.Background(), "  User@Example.COM ", "sup3r-secret!")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if stored.Email != "user@example.com" {
		t.Fatalf("expected normalized email, got %q", stored.Email)
	}
	if len(stored.PasswordHash) == 0 || string(stored.PasswordHash) == "sup3r-secret!" {
		t.Fatal("password must be stored hashed")
	}
	if public.ID != 11 || public.Email != "user@example.com" || public.Role != domain.RoleUser {
		t.Fatalf("unexpected public user: %+v", public)
	}
}

func TestRegisterMapsDuplicateEmail(t *testing.T) {
	repo := &stubUserRepository{
		createFn: func(ctx context.Context, user *domain.User) error {
			return repository.ErrEmailTaken
		},
	}
	svc := New(repo, nil, discardLogger(), testConfig())
	if _, err := svc.Register(context.Background(), "dup@example.com", "sup3r-secret!"); !errors.Is(err, domain.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestRegisterEnqueuesWelcomeJob(t *testing.T) {
	queue := jobs.New(4, 1, discardLogger())
	processed := make(chan jobs.Job, 1)
	queue.Register(WelcomeJobKind, func(ctx context.Context, job jobs.Job) error {
		processed <- job
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go queue.Run(ctx)

	svc := New(&stubUserRepository{}, queue, discardLogger(), testConfig())
	if _, err := svc.Register(context.Background(), "new@example.com", "sup3r-secret!"); err != nil {
		t.Fatalf("register: %v", err)
	}

	select {
	case job := <-processed:
		if job.Payload["email"] != "new@example.com" {
			t.Fatalf("unexpected job payload: %+v", job.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("welcome job was never processed")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	hash, err := crypto.HashPassword("right-password!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubUserRepository{
		byEmailFn: func(ctx context.Context, email string) (*domain.User, error) {
			if email == "known@example.com" {
				return &domain.User{ID: 1, Email: email, PasswordHash: hash, Role: domain.RoleUser}, nil
			}
			return nil, repository.ErrNotFound
		},
	}
	svc := New(repo, nil, discardLogger(), testConfig())

	_, unknownErr := svc.Login(context.Background(), "missing@example.com", "right-password!")
	_, wrongErr := svc.Login(context.Background(), "known@example.com", "wrong-password!")

	if !errors.Is(unknownErr, domain.ErrAuthFailed) {
		t.Fatalf("unknown email: expected ErrAuthFailed, got %v", unknownErr)
	}
	if !errors.Is(wrongErr, domain.ErrAuthFailed) {
		t.Fatalf("wrong password: expected ErrAuthFailed, got %v", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("failure messages differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	hash, err := crypto.HashPassword("right-password!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubUserRepository{
		byEmailFn: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: 42, Email: email, PasswordHash: hash, Role: domain.RoleAdmin}, nil
		},
	}
	svc := New(repo, nil, discardLogger(), testConfig())

	token, err := svc.Login(context.Background(), "admin@example.com", "right-password!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	userID, err := claims.UserID()
	if err != nil {
		t.Fatalf("claims user id: %v", err)
	}
	if userID != 42 || claims.Role != domain.RoleAdmin {
		t.Fatalf("unexpected claims: id=%d role=%s", userID, claims.Role)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := New(&stubUserRepository{}, nil, discardLogger(), testConfig())
	if _, err := svc.Verify("not-a-token"); !errors.Is(err, domain.ErrAuthInvalid) {
		t.Fatalf("expected ErrAuthInvalid, got %v", err)
	}
}

func TestMeMapsMissingUser(t *testing.T) {
	svc := New(&stubUserRepository{}, nil, discardLogger(), testConfig())
	if _, err := svc.Me(context.Background(), 404); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
