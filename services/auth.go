package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/repository"
	"github.com/LovationAdmin/finance-api/utils"
)

// ErrTOTPRequired is returned by Login when the account has 2FA enabled and
// no code was sent.
var ErrTOTPRequired = &Error{Kind: KindUnauthenticated, Message: "2FA code required"}

var errTOTPNotConfigured = validationError([]string{"Two-factor authentication is not configured on this server"})

type AuthService struct {
	users  repository.UserRepository
	tokens *utils.TokenManager
	cipher *utils.Cipher
	issuer string
	logger *slog.Logger
}

// NewAuthService builds the service. cipher may be nil, in which case the
// 2FA operations answer with a validation error.
func NewAuthService(users repository.UserRepository, tokens *utils.TokenManager, cipher *utils.Cipher, issuer string, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, cipher: cipher, issuer: issuer, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, validationError([]string{"Please add a username"})
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, validationError([]string{"Email already registered"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, internal(fmt.Errorf("lookup email: %w", err))
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, internal(fmt.Errorf("hash password: %w", err))
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validationError([]string{"Email already registered"})
		}
		return nil, internal(fmt.Errorf("create user: %w", err))
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthenticated("Invalid credentials")
	}
	if err != nil {
		return nil, internal(fmt.Errorf("lookup user: %w", err))
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return nil, unauthenticated("Invalid credentials")
	}

	if user.TOTPEnabled {
		if req.TOTPCode == "" {
			return nil, ErrTOTPRequired
		}
		ok, err := s.checkCode(user, req.TOTPCode)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, unauthenticated("Invalid 2FA code")
		}
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, internal(err)
	}
	return &models.AuthResponse{Token: token, User: *user}, nil
}

// Authenticate resolves a bearer token to its user. The user is read from
// the store on every call.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, unauthenticated("Not authorized to access this route")
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthenticated("User not found with this token")
	}
	if err != nil {
		return nil, internal(fmt.Errorf("load user: %w", err))
	}
	return user, nil
}

// ============================================================================
// 2FA
// ============================================================================

func (s *AuthService) SetupTOTP(ctx context.Context, user *models.User) (*models.TOTPSetupResponse, error) {
	if s.cipher == nil {
		return nil, errTOTPNotConfigured
	}
	if user.TOTPEnabled {
		return nil, validationError([]string{"2FA is already enabled"})
	}

	secret, url, err := utils.GenerateTOTPSecret(s.issuer, user.Email)
	if err != nil {
		return nil, internal(fmt.Errorf("generate totp secret: %w", err))
	}
	sealed, err := s.cipher.Encrypt([]byte(secret))
	if err != nil {
		return nil, internal(fmt.Errorf("encrypt totp secret: %w", err))
	}
	if err := s.users.UpdateTOTP(ctx, user.ID, sealed, false); err != nil {
		return nil, internal(fmt.Errorf("store totp secret: %w", err))
	}

	return &models.TOTPSetupResponse{Secret: secret, URL: url}, nil
}

func (s *AuthService) EnableTOTP(ctx context.Context, user *models.User, code string) error {
	if s.cipher == nil {
		return errTOTPNotConfigured
	}
	if user.TOTPSecret == "" {
		return validationError([]string{"Run 2FA setup first"})
	}

	ok, err := s.checkCode(user, code)
	if err != nil {
		return err
	}
	if !ok {
		return validationError([]string{"Invalid 2FA code"})
	}

	if err := s.users.UpdateTOTP(ctx, user.ID, user.TOTPSecret, true); err != nil {
		return internal(fmt.Errorf("enable totp: %w", err))
	}
	s.logger.InfoContext(ctx, "2fa enabled", "user_id", user.ID)
	return nil
}

func (s *AuthService) DisableTOTP(ctx context.Context, user *models.User, password, code string) error {
	if s.cipher == nil {
		return errTOTPNotConfigured
	}
	if !user.TOTPEnabled {
		return validationError([]string{"2FA is not enabled"})
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return validationError([]string{"Invalid password"})
	}

	ok, err := s.checkCode(user, code)
	if err != nil {
		return err
	}
	if !ok {
		return validationError([]string{"Invalid 2FA code"})
	}

	if err := s.users.UpdateTOTP(ctx, user.ID, "", false); err != nil {
		return internal(fmt.Errorf("disable totp: %w", err))
	}
	s.logger.InfoContext(ctx, "2fa disabled", "user_id", user.ID)
	return nil
}

func (s *AuthService) checkCode(user *models.User, code string) (bool, error) {
	if s.cipher == nil {
		return false, errTOTPNotConfigured
	}
	secret, err := s.cipher.Decrypt(user.TOTPSecret)
	if err != nil {
		return false, internal(fmt.Errorf("decrypt totp secret: %w", err))
	}
	return utils.VerifyTOTP(string(secret), code), nil
}
