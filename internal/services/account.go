package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edita-ar/apiserver/internal/logging"
	"github.com/edita-ar/apiserver/internal/store"
	"github.com/edita-ar/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBio    = "Add your bio here!"
	DefaultAvatar = "https://http.cat/images/418.jpg"

	// bcrypt ignores input past this many bytes.
	maxPasswordBytes = 72
)

// CredentialStore persists user accounts. Create must fail with
// store.ErrDuplicateUsername when the username is taken.
type CredentialStore interface {
	Create(ctx context.Context, user types.User) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
}

type SignupRequest struct {
	Name            string `json:"name" validate:"required,max=128"`
	Username        string `json:"username" validate:"required,max=64"`
	Password        string `json:"password" validate:"required,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	TermsAccepted   bool   `json:"termsAccepted" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AccountService implements signup and login.
type AccountService struct {
	users    CredentialStore
	hashCost int
	now      func() time.Time
	logger   *slog.Logger
}

func NewAccountService(users CredentialStore, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AccountService{
		users:    users,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
		logger:   logger,
	}
}

// Signup registers a new user with default profile values. The returned user
// never carries the password hash.
func (s *AccountService) Signup(ctx context.Context, req SignupRequest) (types.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	if err := validateRequest(req); err != nil {
		return types.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return types.User{}, &ValidationError{Field: "password", Message: fmt.Sprintf("must be at most %d bytes", maxPasswordBytes)}
		}
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := types.User{
		Name:              req.Name,
		Username:          req.Username,
		PasswordHash:      string(hash),
		Bio:               DefaultBio,
		Avatar:            DefaultAvatar,
		JoinedDate:        s.now().UTC(),
		Badges:            []string{},
		CompletedProjects: []json.RawMessage{},
		SavedItems:        []json.RawMessage{},
		ActivityFeed:      []types.Activity{},
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return types.User{}, ErrUsernameTaken
		}
		return types.User{}, storeError("create user", err)
	}

	s.logger.InfoContext(ctx, "user registered", "username", created.Username, "user_id", created.ID)
	created.PasswordHash = ""
	return created, nil
}

// Login checks the credentials and returns the stored profile without the
// password hash or internal id. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (types.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validateRequest(req); err != nil {
		return types.User{}, err
	}

	// Signup never stores a longer password.
	if len(req.Password) > maxPasswordBytes {
		return types.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, storeError("get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.InfoContext(ctx, "login rejected", "username", req.Username)
		return types.User{}, ErrInvalidCredentials
	}

	user.PasswordHash = ""
	user.ID = 0
	return user, nil
}
