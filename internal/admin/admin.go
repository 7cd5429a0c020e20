// Package admin implements the administrative operations on users, tokens
// and the access log. The HTTP handlers and the swissqr CLI both go through it.
package admin

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/celerix-dev/swissqr/internal/dal"
	"github.com/celerix-dev/swissqr/internal/logger"
	"github.com/celerix-dev/swissqr/internal/vault"
	"github.com/celerix-dev/swissqr/pkg/schema"
)

var (
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrEmailInUse       = errors.New("email address already used by an active user")
	ErrPasswordTooShort = fmt.Errorf("password must consist of at least %d characters", vault.MinPasswordLength)
	ErrNoPermissions    = errors.New("a token requires at least one permission")
	ErrUserNotFound     = errors.New("user not found")
	ErrUserInactive     = errors.New("user is not active")
	ErrUserUnconfirmed  = errors.New("user is not confirmed")
	ErrTokenNotFound    = errors.New("token not found")
	ErrAlreadyConfirmed = errors.New("user has been confirmed already")
	ErrNonceMismatch    = errors.New("nonce invalid")
)

// Service runs administrative operations against one set of stores.
type Service struct {
	users    *dal.UserStore
	tokens   *dal.TokenStore
	logs     *dal.AccessStore
	logger   *logger.Logger
	validate *validator.Validate
	now      func() time.Time

	// mu serializes mutations, so checks such as email uniqueness hold
	// until the write they guard has been committed.
	mu sync.Mutex
}

// NewService creates a Service over stores.
func NewService(stores *dal.Stores, l *logger.Logger) *Service {
	return &Service{
		users:    stores.Users,
		tokens:   stores.Tokens,
		logs:     stores.Logs,
		logger:   l,
		validate: validator.New(),
		now:      time.Now,
	}
}

// NewUser describes an account to create.
type NewUser struct {
	Email       string
	Password    string
	Description string
	// Confirmed skips the nonce confirmation step. Accounts created by an
	// operator are confirmed, self-registered ones are not.
	Confirmed bool
}

// CreateUser validates and stores a new active user.
func (s *Service) CreateUser(in NewUser) (schema.User, error) {
	email := strings.TrimSpace(in.Email)
	if err := s.validEmail(email); err != nil {
		return schema.User{}, err
	}
	if len(in.Password) < vault.MinPasswordLength {
		return schema.User{}, ErrPasswordTooShort
	}

	hash, err := vault.HashPassword(in.Password)
	if err != nil {
		return schema.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(email, "") {
		return schema.User{}, ErrEmailInUse
	}

	u := schema.User{
		ID:          schema.NewUserID(),
		Email:       email,
		Password:    hash,
		Description: strings.TrimSpace(in.Description),
		Active:      true,
		Confirmed:   in.Confirmed,
		Created:     s.now().UnixMilli(),
	}
	if err := s.users.Update(u); err != nil {
		return schema.User{}, fmt.Errorf("failed to store user: %w", err)
	}

	s.logger.Info("user created", "id", u.ID, "email", u.Email, "confirmed", u.Confirmed)
	return u, nil
}

// UserChanges lists the fields to change. Nil fields are kept.
type UserChanges struct {
	Email       *string
	Password    *string
	Description *string
}

// UpdateUser applies changes to an existing user.
func (s *Service) UpdateUser(id schema.UserID, ch UserChanges) (schema.User, error) {
	var email, hash string
	if ch.Email != nil {
		email = strings.TrimSpace(*ch.Email)
		if err := s.validEmail(email); err != nil {
			return schema.User{}, err
		}
	}
	if ch.Password != nil {
		if len(*ch.Password) < vault.MinPasswordLength {
			return schema.User{}, ErrPasswordTooShort
		}
		var err error
		if hash, err = vault.HashPassword(*ch.Password); err != nil {
			return schema.User{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users.Get(id)
	if !ok {
		return schema.User{}, ErrUserNotFound
	}

	if ch.Email != nil {
		if s.emailTaken(email, id) {
			return schema.User{}, ErrEmailInUse
		}
		u.Email = email
	}
	if ch.Password != nil {
		u.Password = hash
	}
	if ch.Description != nil {
		u.Description = strings.TrimSpace(*ch.Description)
	}

	if err := s.users.Update(u); err != nil {
		return schema.User{}, fmt.Errorf("failed to store user: %w", err)
	}
	return u, nil
}

// ConfirmUser marks a user confirmed if nonce matches.
func (s *Service) ConfirmUser(id schema.UserID, nonce int64) (schema.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users.Get(id)
	if !ok {
		return schema.User{}, ErrUserNotFound
	}
	if u.Confirmed {
		return schema.User{}, ErrAlreadyConfirmed
	}
	if u.Nonce() != nonce {
		return schema.User{}, ErrNonceMismatch
	}

	u.Confirmed = true
	if err := s.users.Update(u); err != nil {
		return schema.User{}, fmt.Errorf("failed to store user: %w", err)
	}

	s.logger.Info("user confirmed", "id", u.ID)
	return u, nil
}

// InvalidateUser deactivates a user and every active token issued to it.
// The user is committed first, then all affected tokens in a single batch.
// It returns the number of tokens invalidated.
func (s *Service) InvalidateUser(id schema.UserID) (schema.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users.Get(id)
	if !ok {
		return schema.User{}, 0, ErrUserNotFound
	}

	u.Active = false
	if err := s.users.Update(u); err != nil {
		return schema.User{}, 0, fmt.Errorf("failed to store user: %w", err)
	}

	var revoked []schema.Token
	for t := range s.tokens.Values() {
		if t.UserID == id && t.Active {
			revoked = append(revoked, t.Invalidated())
		}
	}
	if _, err := s.tokens.BatchUpdate(revoked); err != nil {
		s.logger.Error("user invalidated but its tokens are still active", "id", id, "tokens", len(revoked), "error", err)
		return u, 0, fmt.Errorf("failed to invalidate tokens of user %s: %w", id, err)
	}

	s.logger.Info("user invalidated", "id", id, "tokens", len(revoked))
	return u, len(revoked), nil
}

// CreateToken mints a token for an active, confirmed user.
func (s *Service) CreateToken(userID schema.UserID, perms ...schema.Permission) (schema.Token, error) {
	set := schema.NewPermissionSet(perms...)
	if set.Empty() {
		return schema.Token{}, ErrNoPermissions
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users.Get(userID)
	switch {
	case !ok:
		return schema.Token{}, ErrUserNotFound
	case !u.Active:
		return schema.Token{}, ErrUserInactive
	case !u.Confirmed:
		return schema.Token{}, ErrUserUnconfirmed
	}

	t := schema.Token{
		ID:          schema.NewTokenID(),
		UserID:      u.ID,
		Active:      true,
		Created:     s.now().UnixMilli(),
		Permissions: set,
	}
	if err := s.tokens.Update(t); err != nil {
		return schema.Token{}, fmt.Errorf("failed to store token: %w", err)
	}

	s.logger.Info("token created", "id", t.ID, "user", u.ID, "permissions", set.String())
	return t, nil
}

// InvalidateToken deactivates a token. Invalidating an inactive token is a no-op.
func (s *Service) InvalidateToken(id schema.TokenID) (schema.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens.Get(id)
	if !ok {
		return schema.Token{}, ErrTokenNotFound
	}
	if !t.Active {
		return t, nil
	}

	t = t.Invalidated()
	if err := s.tokens.Update(t); err != nil {
		return schema.Token{}, fmt.Errorf("failed to store token: %w", err)
	}

	s.logger.Info("token invalidated", "id", id)
	return t, nil
}

// Users lists users ordered by identifier.
func (s *Service) Users(activeOnly bool) []schema.User {
	var out []schema.User
	for u := range s.users.Values() {
		if activeOnly && !u.Active {
			continue
		}
		out = append(out, u)
	}
	return out
}

// TokenFilter narrows Tokens. Zero values match everything.
type TokenFilter struct {
	UserID     schema.UserID
	ActiveOnly bool
}

// Tokens lists tokens ordered by identifier.
func (s *Service) Tokens(f TokenFilter) []schema.Token {
	var out []schema.Token
	for t := range s.tokens.Values() {
		if f.ActiveOnly && !t.Active {
			continue
		}
		if f.UserID != "" && t.UserID != f.UserID {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (s *Service) validEmail(email string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// emailTaken reports whether another active user holds email. Callers hold s.mu.
func (s *Service) emailTaken(email string, self schema.UserID) bool {
	return slices.ContainsFunc(s.Users(true), func(u schema.User) bool {
		return u.ID != self && strings.EqualFold(u.Email, email)
	})
}
