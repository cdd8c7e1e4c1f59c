package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/repository"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// Login and registration failure messages.
const (
	MsgInvalidCredentials = "Correo o contraseña incorrectos"
	MsgInactiveAccount    = "Usuario inactivo"
	MsgUserNameLength     = "El nombre debe tener entre 2 y 100 caracteres"
	MsgInvalidEmail       = "Email inválido"
	MsgPasswordTooShort   = "La contraseña debe tener al menos 6 caracteres"
	MsgPasswordMismatch   = "Las contraseñas deben coincidir"
	MsgEmailTaken         = "Este email ya está registrado. Por favor use otro."
	minUserName           = 2
	maxUserName           = 100
	minPassword           = 6
)

// RegisterInput is what the sign-up form submits.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// AuthService coordinates login and self-registration.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Login checks the password and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, domain.Token, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", domain.Token{}, apperrors.NewValidationError("email and password required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", domain.Token{}, apperrors.NewUnauthorized(MsgInvalidCredentials)
	}
	if err != nil {
		return nil, "", domain.Token{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", domain.Token{}, apperrors.NewUnauthorized(MsgInvalidCredentials)
	}
	if !user.Active {
		return nil, "", domain.Token{}, apperrors.NewUnauthorized(MsgInactiveAccount)
	}

	raw, token, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, "", domain.Token{}, apperrors.NewInternalError(err)
	}
	return user, raw, token, nil
}

// Register creates an active account under the default role.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	if n := utf8.RuneCountInString(name); n < minUserName || n > maxUserName {
		return nil, apperrors.NewValidationError(MsgUserNameLength, map[string]any{"name": name})
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperrors.NewValidationError(MsgInvalidEmail, map[string]any{"email": input.Email})
	}
	if utf8.RuneCountInString(input.Password) < minPassword {
		return nil, apperrors.NewValidationError(MsgPasswordTooShort, nil)
	}
	if input.Password != input.ConfirmPassword {
		return nil, apperrors.NewValidationError(MsgPasswordMismatch, nil)
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperrors.NewConflict(MsgEmailTaken, map[string]any{"email": email})
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.MapError(err)
	}

	hashed, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	id, err := s.users.Create(ctx, name, email, hashed)
	if err != nil {
		if de := apperrors.ToDomainError(err); de.Code == "CONFLICT" {
			return nil, apperrors.NewConflict(MsgEmailTaken, map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
