// Package service holds the business rules between the HTTP handlers and
// the repositories:
//
//	Handler (HTTP) → Service (validation, ownership, orchestration) → Repository (SQL)
//
// Services take plain Go values and a model.Caller, never *http.Request, and
// report failures as *apperror.AppError so the handler layer can map them
// to status codes in one place.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

// errInvalidCredentials is shared by every login failure so the response
// never tells an unknown username apart from a wrong password.
const errInvalidCredentials = "Invalid credentials"

// AdminCredentials configure the legacy admin identity. It is disabled
// unless both fields are set.
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

func (a AdminCredentials) enabled() bool {
	return a.Username != "" && a.PasswordHash != ""
}

// RegisterInput is the registration request.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginInput is the login request.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult bundles the public profile with the issued token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User   *model.Profile
	Caller model.Caller
	Token  string
}

// AuthService registers users, checks credentials and verifies sessions.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	admin     AdminCredentials
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	admin AdminCredentials,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		admin:     admin,
		logger:    logger,
	}
}

// SessionTTL is the lifetime of issued tokens and of the session cookie.
func (s *AuthService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}

// Register creates a user and logs them in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := validateStruct(in); err != nil {
		return nil, err
	}
	// The max tag counts runes; bcrypt's limit is in bytes.
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at most %d bytes long", auth.MaxPasswordBytes))
	}

	if err := s.ensureAvailable(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issue(model.RegularUser{ID: user.ID, Username: user.Username}, model.ProfileOf(user))
}

// ensureAvailable rejects a username or email that is already in use.
// The unique indexes catch the race between two concurrent registrations.
func (s *AuthService) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return apperror.Conflict("username", "Username already taken")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/auth: checking username: %w", err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return apperror.Conflict("email", "Email already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/auth: checking email: %w", err)
	}
	return nil
}

// Login checks credentials. The configured admin identity is tried first;
// if its password does not match, the username is looked up as a regular
// user, so a registered account may share the admin's name.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	// Register stores the trimmed username, so look it up the same way.
	in.Username = strings.TrimSpace(in.Username)
	if err := validateStruct(in); err != nil {
		return nil, apperror.ValidationFailed("username", "Username and password are required")
	}

	if s.admin.enabled() && in.Username == s.admin.Username {
		err := s.passwords.Verify(s.admin.PasswordHash, in.Password)
		switch {
		case err == nil:
			s.logger.Info("admin login succeeded", slog.String("username", in.Username))
			return s.issue(model.AdminUser{Username: s.admin.Username}, model.AdminProfile(s.admin.Username))
		case !errors.Is(err, auth.ErrPasswordMismatch):
			s.logger.Warn("admin password hash is unusable", slog.String("error", err.Error()))
		}
	}

	user, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.BurnCompare(in.Password)
			s.logger.Info("login failed", slog.String("reason", "unknown user"))
			return nil, apperror.Unauthenticated(errInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash is unusable",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		s.logger.Info("login failed", slog.String("reason", "password mismatch"))
		return nil, apperror.Unauthenticated(errInvalidCredentials)
	}

	// A stale last-login timestamp is not worth failing a login over.
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login",
			slog.Int64("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return s.issue(model.RegularUser{ID: user.ID, Username: user.Username}, model.ProfileOf(user))
}

func (s *AuthService) issue(caller model.Caller, profile *model.Profile) (*AuthResult, error) {
	token, err := s.tokens.Generate(caller)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token: %w", err)
	}
	return &AuthResult{User: profile, Caller: caller, Token: token}, nil
}

// VerifySession resolves a session token to its caller. Every failure is
// reported as apperror.ErrUnauthenticated.
func (s *AuthService) VerifySession(token string) (model.Caller, error) {
	if token == "" {
		return nil, apperror.Unauthenticated("Authentication required")
	}
	caller, err := s.tokens.Validate(token)
	if err != nil {
		s.logger.Debug("session rejected", slog.String("error", err.Error()))
		return nil, apperror.Unauthenticated("Invalid token")
	}
	return caller, nil
}

// Me returns fresh profile data for the caller. A token whose user row has
// since disappeared yields apperror.ErrNotFound.
func (s *AuthService) Me(ctx context.Context, caller model.Caller) (*model.Profile, error) {
	switch c := caller.(type) {
	case model.AdminUser:
		return model.AdminProfile(c.Username), nil
	case model.RegularUser:
		user, err := s.users.GetByID(ctx, c.ID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "User not found"}
			}
			return nil, fmt.Errorf("service/auth: fetching user %d: %w", c.ID, err)
		}
		return model.ProfileOf(user), nil
	default:
		return nil, apperror.Unauthenticated("Authentication required")
	}
}
