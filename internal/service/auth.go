// Package service holds the business logic layer. It sits between the HTTP
// handlers and the repositories:
//
//	handler (HTTP) → service (rules) → repository (DB)
//	               ↘ auth (tokens, bcrypt)
//
// Services never touch HTTP concerns: no cookies, no status codes, no
// request parsing. They take validated-enough input, enforce the business
// rules, and return domain values or apperror kinds the handler maps to
// status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samtm/motomeet/internal/apperror"
	"github.com/samtm/motomeet/internal/auth"
	"github.com/samtm/motomeet/internal/model"
	"github.com/samtm/motomeet/internal/repository"
)

const (
	maxNameLen     = 50
	maxMakeLen     = 50
	maxModelLen    = 20
	minPasswordLen = 6
)

// AuthService handles signup, login, and the optional GitHub sign-in path.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignupInput carries the raw signup fields. Validation happens in Signup,
// before any hashing or storage work.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Make     string
	Model    string
}

// Signup validates the fields, hashes the password, creates the account,
// and issues a session token. A duplicate email surfaces as a validation
// failure ("user already exists, please log in") from the repository.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if in.Email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, apperror.ValidationFailed("pwd", "password must be at least 6 characters")
	}
	if len(in.Name) > maxNameLen || len(in.Make) > maxMakeLen || len(in.Model) > maxModelLen {
		return nil, apperror.ValidationFailed("", "fields too long")
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Make:         in.Make,
		Model:        in.Model,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token: %w", err)
	}

	s.logger.Info("user signed up", slog.String("email", user.Email))

	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies the credentials and issues a session token. An unknown
// email and a wrong password produce the identical failure so the response
// never reveals which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.AuthFailed("invalid email or password")
		}
		return nil, err
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.AuthFailed("invalid email or password")
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token: %w", err)
	}

	s.logger.Info("user logged in", slog.String("email", user.Email))

	return &AuthResult{User: user, Token: token}, nil
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback: upsert a user
// keyed by the GitHub-verified email, then issue the same session token the
// password flow issues. First sign-in creates a password-less account;
// subsequent sign-ins only refresh the display name.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	name := ghUser.Name
	if name == "" {
		name = ghUser.Login
	}
	if len(name) > maxNameLen {
		name = strings.TrimSpace(name[:maxNameLen])
	}

	user := &model.User{
		Email: ghUser.Email,
		Name:  name,
	}
	if err := s.users.UpsertOAuth(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting GitHub user %q: %w", ghUser.Login, err)
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token: %w", err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("email", user.Email),
		slog.String("login", ghUser.Login),
	)

	return &AuthResult{User: user, Token: token}, nil
}
