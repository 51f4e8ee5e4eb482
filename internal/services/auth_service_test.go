package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AlexX2727/backend/internal/database"
	"github.com/AlexX2727/backend/internal/models"
	"github.com/AlexX2727/backend/internal/repository"
)

type nullMailer struct{}

func (nullMailer) Send(context.Context, string, string, string, string) error { return nil }

func setupAuthService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.VerificationCode{},
	)
	require.NoError(t, err)
	require.NoError(t, database.SeedRoles(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	userRepo := repository.NewUserRepository(db)
	codeRepo := repository.NewVerificationCodeRepository(db)
	return NewAuthService(userRepo, codeRepo, nullMailer{}, ""), db
}

func registerTestUser(t *testing.T, service *AuthService, email string) *models.User {
	t.Helper()

	user, err := service.Register(RegisterInput{
		Email:    email,
		Password: "supersecret",
	})
	require.NoError(t, err)
	return user
}

func TestAuthService_ResetPassword_ExpiredCode(t *testing.T) {
	service, db := setupAuthService(t)
	user := registerTestUser(t, service, "expired@example.com")

	require.NoError(t, db.Create(&models.VerificationCode{
		UserID:    user.ID,
		Code:      "EXP123",
		ExpiresAt: time.Now().Add(-time.Minute),
	}).Error)

	err := service.ResetPassword(ResetPasswordInput{
		Email:           "expired@example.com",
		Code:            "EXP123",
		NewPassword:     "brandnewpass",
		ConfirmPassword: "brandnewpass",
	})
	require.ErrorIs(t, err, ErrInvalidResetCode)
}

func TestAuthService_RequestPasswordReset_SupersedesPriorCode(t *testing.T) {
	service, db := setupAuthService(t)
	user := registerTestUser(t, service, "reset@example.com")

	require.NoError(t, service.RequestPasswordReset(context.Background(), "reset@example.com"))

	var first models.VerificationCode
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&first).Error)

	require.NoError(t, service.RequestPasswordReset(context.Background(), "reset@example.com"))

	// Only the latest code remains usable
	var count int64
	require.NoError(t, db.Model(&models.VerificationCode{}).Where("user_id = ? AND used = ?", user.ID, false).Count(&count).Error)
	require.EqualValues(t, 1, count)

	err := service.ResetPassword(ResetPasswordInput{
		Email:           "reset@example.com",
		Code:            first.Code,
		NewPassword:     "brandnewpass",
		ConfirmPassword: "brandnewpass",
	})
	require.ErrorIs(t, err, ErrInvalidResetCode)
}

func TestAuthService_Register_NormalizesEmail(t *testing.T) {
	service, _ := setupAuthService(t)

	user, err := service.Register(RegisterInput{
		Email:    "  Ada@Example.COM ",
		Password: "supersecret",
	})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", user.Email)

	_, err = service.Login(LoginInput{Email: "ada@example.com", Password: "supersecret"})
	require.NoError(t, err)
}
