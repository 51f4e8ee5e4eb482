package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AlexX2727/backend/internal/database"
	"github.com/AlexX2727/backend/internal/dto"
	"github.com/AlexX2727/backend/internal/models"
	"github.com/AlexX2727/backend/internal/repository"
	"github.com/AlexX2727/backend/internal/services"
)

// fakeMailer records outgoing emails instead of sending them
type fakeMailer struct {
	sent []fakeEmail
}

type fakeEmail struct {
	To      string
	Subject string
}

func (m *fakeMailer) Send(_ context.Context, to, subject, _, _ string) error {
	m.sent = append(m.sent, fakeEmail{To: to, Subject: subject})
	return nil
}

type authTestEnv struct {
	db           *gorm.DB
	handler      *AuthHandler
	authService  *services.AuthService
	tokenService *services.TokenService
	mailer       *fakeMailer
}

func setupAuthTestEnv(t *testing.T) authTestEnv {
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

	database.SetDB(db)

	mailer := &fakeMailer{}
	userRepo := repository.NewUserRepository(db)
	codeRepo := repository.NewVerificationCodeRepository(db)
	authService := services.NewAuthService(userRepo, codeRepo, mailer, "http://localhost:3000")
	tokenService := services.NewTokenService("test-secret", time.Hour)
	handler := NewAuthHandler(authService, tokenService)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return authTestEnv{
		db:           db,
		handler:      handler,
		authService:  authService,
		tokenService: tokenService,
		mailer:       mailer,
	}
}

func (env authTestEnv) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/auth/register", env.handler.Register)
	r.POST("/api/auth/login", env.handler.Login)
	r.POST("/api/auth/forgot-password", env.handler.ForgotPassword)
	r.POST("/api/auth/reset-password", env.handler.ResetPassword)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, url string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Register(t *testing.T) {
	env := setupAuthTestEnv(t)
	r := env.router()

	w := postJSON(t, r, "/api/auth/register", map[string]string{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
		"password":   "supersecret",
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "ada@example.com", response.Email)
	require.NotZero(t, response.ID)
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	env := setupAuthTestEnv(t)
	r := env.router()

	payload := map[string]string{
		"email":    "dupe@example.com",
		"password": "supersecret",
	}
	w := postJSON(t, r, "/api/auth/register", payload)
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, r, "/api/auth/register", payload)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_Register_ShortPassword(t *testing.T) {
	env := setupAuthTestEnv(t)
	r := env.router()

	w := postJSON(t, r, "/api/auth/register", map[string]string{
		"email":    "shorty@example.com",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupAuthTestEnv(t)
	r := env.router()

	w := postJSON(t, r, "/api/auth/register", map[string]string{
		"email":    "ada@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, r, "/api/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotEmpty(t, response.Token)
	require.Equal(t, "ada@example.com", response.User.Email)

	claims, err := env.tokenService.Verify(response.Token)
	require.NoError(t, err)
	require.Equal(t, response.User.ID, claims.UserID)
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	env := setupAuthTestEnv(t)
	r := env.router()

	w := postJSON(t, r, "/api/auth/register", map[string]string{
		"email":    "ada@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, r, "/api/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "wrongpassword",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_ForgotPassword_UnknownEmailDoesNotLeak(t *testing.T) {
	env := setupAuthTestEnv(t)
	r := env.router()

	w := postJSON(t, r, "/api/auth/forgot-password", map[string]string{
		"email": "nobody@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, env.mailer.sent)
}

func TestAuthHandler_PasswordResetFlow(t *testing.T) {
	env := setupAuthTestEnv(t)
	r := env.router()

	w := postJSON(t, r, "/api/auth/register", map[string]string{
		"email":    "ada@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, r, "/api/auth/forgot-password", map[string]string{
		"email": "ada@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.mailer.sent, 1)

	var vc models.VerificationCode
	require.NoError(t, env.db.First(&vc).Error)
	require.False(t, vc.Used)
	require.True(t, vc.ExpiresAt.After(time.Now()))

	w = postJSON(t, r, "/api/auth/reset-password", map[string]string{
		"email":            "ada@example.com",
		"code":             vc.Code,
		"new_password":     "brandnewpass",
		"confirm_password": "brandnewpass",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Old password no longer works, the new one does
	w = postJSON(t, r, "/api/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(t, r, "/api/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "brandnewpass",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The code is single use
	w = postJSON(t, r, "/api/auth/reset-password", map[string]string{
		"email":            "ada@example.com",
		"code":             vc.Code,
		"new_password":     "anotherpass1",
		"confirm_password": "anotherpass1",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_ResetPassword_Mismatch(t *testing.T) {
	env := setupAuthTestEnv(t)
	r := env.router()

	w := postJSON(t, r, "/api/auth/register", map[string]string{
		"email":    "ada@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, r, "/api/auth/reset-password", map[string]string{
		"email":            "ada@example.com",
		"code":             "ABC123",
		"new_password":     "brandnewpass",
		"confirm_password": "different",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
