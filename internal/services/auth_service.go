package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/AlexX2727/backend/internal/constants"
	"github.com/AlexX2727/backend/internal/models"
	"github.com/AlexX2727/backend/internal/repository"
	"github.com/AlexX2727/backend/internal/utils"
)

var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrPasswordMismatch     = errors.New("password and confirmation do not match")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidResetCode     = errors.New("invalid or expired reset code")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles registration, login, and password recovery.
type AuthService struct {
	userRepo    repository.UserRepository
	codeRepo    repository.VerificationCodeRepository
	mailer      Mailer
	frontendURL string
}

// NewAuthService creates a new AuthService. frontendURL, when set, is linked
// from the password reset email.
func NewAuthService(userRepo repository.UserRepository, codeRepo repository.VerificationCodeRepository, mailer Mailer, frontendURL string) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		codeRepo:    codeRepo,
		mailer:      mailer,
		frontendURL: frontendURL,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Username  *string
	Password  string
}

// Register creates a new user with the default role.
func (s *AuthService) Register(input RegisterInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	if input.Username != nil && *input.Username != "" {
		if _, err := s.userRepo.FindByUsername(*input.Username); err == nil {
			return nil, ErrUsernameTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
	}

	role, err := s.userRepo.FindRoleByName("user")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve default role: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		RoleID:       role.ID,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        email,
		Username:     input.Username,
		PasswordHash: string(hashedPassword),
		Active:       true,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID with their role.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id, "Role")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// RequestPasswordReset issues a fresh single-use reset code and emails it.
// The outcome is indistinguishable whether or not the email is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.codeRepo.DeleteUnusedByUser(user.ID); err != nil {
		return fmt.Errorf("failed to supersede previous codes: %w", err)
	}

	code, err := utils.GenerateResetCode()
	if err != nil {
		return fmt.Errorf("failed to generate reset code: %w", err)
	}

	vc := &models.VerificationCode{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: time.Now().Add(constants.ResetCodeTTL),
	}
	if err := s.codeRepo.Create(vc); err != nil {
		return fmt.Errorf("failed to persist reset code: %w", err)
	}

	subject := "Your password reset code"
	htmlBody := fmt.Sprintf(
		`<p>Use the following code to reset your password:</p>`+
			`<p><strong>%s</strong></p>`+
			`<p>This code expires in 15 minutes.</p>`,
		code,
	)
	textBody := fmt.Sprintf("Use the following code to reset your password: %s\nThis code expires in 15 minutes.", code)
	if s.frontendURL != "" {
		htmlBody += fmt.Sprintf(`<p><a href="%s/reset-password">Reset your password</a></p>`, s.frontendURL)
		textBody += fmt.Sprintf("\nReset it at %s/reset-password", s.frontendURL)
	}

	if err := s.mailer.Send(ctx, user.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	log.Info().Uint64("user_id", user.ID).Msg("password reset code issued")
	return nil
}

// ResetPasswordInput holds the parameters to complete a password reset.
type ResetPasswordInput struct {
	Email           string
	Code            string
	NewPassword     string
	ConfirmPassword string
}

// ResetPassword validates the reset code and stores the new password hash.
func (s *AuthService) ResetPassword(input ResetPasswordInput) error {
	if input.NewPassword != input.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len(input.NewPassword) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := s.userRepo.FindByEmail(normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	vc, err := s.codeRepo.FindActive(user.ID, input.Code, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetCode
		}
		return fmt.Errorf("failed to find reset code: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrFailedToHashPassword
	}

	if err := s.userRepo.UpdatePassword(user.ID, string(hashedPassword)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.codeRepo.MarkUsed(vc.ID); err != nil {
		return fmt.Errorf("failed to consume reset code: %w", err)
	}

	log.Info().Uint64("user_id", user.ID).Msg("password reset completed")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
