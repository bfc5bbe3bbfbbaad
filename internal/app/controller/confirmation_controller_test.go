package controller_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mjlee/confirmail-backend/config"
	"github.com/mjlee/confirmail-backend/internal/app/controller"
	"github.com/mjlee/confirmail-backend/internal/app/model"
	"github.com/mjlee/confirmail-backend/internal/app/repository"
	"github.com/mjlee/confirmail-backend/internal/app/service"
	"github.com/mjlee/confirmail-backend/internal/db"
	"github.com/mjlee/confirmail-backend/internal/middleware"
	"github.com/mjlee/confirmail-backend/internal/router"
	"github.com/mjlee/confirmail-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubMailer struct {
	lastToken string
	fail      bool
}

func (m *stubMailer) SendConfirmationEmail(to, token, redirectTo string) error {
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.lastToken = token
	return nil
}

func (m *stubMailer) SendPasswordResetEmail(to, token, redirectTo string) error {
	return m.SendConfirmationEmail(to, token, redirectTo)
}

type controllerFixture struct {
	engine      *gin.Engine
	mail        *stubMailer
	confirmRepo repository.ConfirmationRepository
	db          *gorm.DB
}

const testAdminSecret = "test-admin-secret"

func setupConfirmationControllerTest(t *testing.T) *controllerFixture {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB(t)
	require.NoError(t, err)

	confirmRepo := repository.NewConfirmationRepository(testDB)
	logRepo := repository.NewConfirmationLogRepository(testDB)
	userRepo := repository.NewUserRepository(testDB)
	mail := &stubMailer{}

	cfg := &config.Config{}
	cfg.Server.GinMode = gin.TestMode
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Admin.JWTSecret = testAdminSecret
	cfg.Confirmation = config.ConfirmationConfig{
		BaseURL:           "http://localhost:3000/confirm",
		SignupTokenExpiry: 24 * time.Hour,
		ResetTokenExpiry:  1 * time.Hour,
		RateLimitWindow:   1 * time.Hour,
		MaxAttempts:       5,
	}

	confirmationService := service.NewConfirmationService(confirmRepo, logRepo, userRepo, mail, cfg.Confirmation)
	adminService := service.NewAdminService(confirmRepo, logRepo)

	r := router.NewRouter(
		controller.NewConfirmationController(confirmationService),
		controller.NewAdminController(adminService),
		middleware.NewAuthMiddleware(cfg.Admin.JWTSecret),
		cfg,
	)

	return &controllerFixture{
		engine:      r.Setup(),
		mail:        mail,
		confirmRepo: confirmRepo,
		db:          testDB,
	}
}

func (f *controllerFixture) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func (f *controllerFixture) issueToken(t *testing.T, email string) string {
	t.Helper()
	w := f.do(t, "POST", "/api/v1/confirmations", gin.H{"email": email}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, f.mail.lastToken)
	return f.mail.lastToken
}

func TestConfirmationController_Issue_Success(t *testing.T) {
	f := setupConfirmationControllerTest(t)

	w := f.do(t, "POST", "/api/v1/confirmations", gin.H{"email": "a@x.com"}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, true, response["success"])
	assert.NotEmpty(t, response["message"])
	// The token travels only by email, never in the response
	assert.NotContains(t, w.Body.String(), f.mail.lastToken)
}

func TestConfirmationController_Issue_InvalidEmail(t *testing.T) {
	f := setupConfirmationControllerTest(t)

	w := f.do(t, "POST", "/api/v1/confirmations", gin.H{"email": "not-an-email"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "POST", "/api/v1/confirmations", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmationController_Issue_RateLimited(t *testing.T) {
	f := setupConfirmationControllerTest(t)

	for i := 0; i < 5; i++ {
		w := f.do(t, "POST", "/api/v1/confirmations", gin.H{"email": "a@x.com"}, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := f.do(t, "POST", "/api/v1/confirmations", gin.H{"email": "a@x.com"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	response := decode(t, w)
	assert.Equal(t, false, response["success"])
	retryAfter, ok := response["retryAfter"].(float64)
	require.True(t, ok)
	assert.Greater(t, retryAfter, float64(0))
	assert.LessOrEqual(t, retryAfter, float64(3600))
}

func TestConfirmationController_Issue_MailerFailure(t *testing.T) {
	f := setupConfirmationControllerTest(t)
	f.mail.fail = true

	w := f.do(t, "POST", "/api/v1/confirmations", gin.H{"email": "a@x.com"}, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestConfirmationController_Verify_Success(t *testing.T) {
	f := setupConfirmationControllerTest(t)
	token := f.issueToken(t, "a@x.com")

	w := f.do(t, "GET", "/api/v1/confirmations/verify?token="+token, nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "a@x.com", response["email"])
	assert.NotEmpty(t, response["confirmedAt"])
}

func TestConfirmationController_Verify_PostBody(t *testing.T) {
	f := setupConfirmationControllerTest(t)
	token := f.issueToken(t, "a@x.com")

	w := f.do(t, "POST", "/api/v1/confirmations/verify", gin.H{"token": token, "userAgent": "TestBrowser/1.0"}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConfirmationController_Verify_UnknownToken(t *testing.T) {
	f := setupConfirmationControllerTest(t)

	w := f.do(t, "GET", "/api/v1/confirmations/verify?token=bogus", nil, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	response := decode(t, w)
	assert.Equal(t, "INVALID_TOKEN", response["code"])
}

func TestConfirmationController_Verify_MissingToken(t *testing.T) {
	f := setupConfirmationControllerTest(t)

	w := f.do(t, "GET", "/api/v1/confirmations/verify", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmationController_Verify_AlreadyConfirmed(t *testing.T) {
	f := setupConfirmationControllerTest(t)
	token := f.issueToken(t, "a@x.com")

	w := f.do(t, "GET", "/api/v1/confirmations/verify?token="+token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "GET", "/api/v1/confirmations/verify?token="+token, nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	response := decode(t, w)
	assert.Equal(t, "ALREADY_CONFIRMED", response["code"])
	assert.NotEmpty(t, response["confirmedAt"])
}

func TestConfirmationController_Verify_Expired(t *testing.T) {
	f := setupConfirmationControllerTest(t)
	token := f.issueToken(t, "a@x.com")

	stored, err := f.confirmRepo.FindByTokenHash(util.HashToken(token))
	require.NoError(t, err)
	require.NoError(t, f.db.Model(stored).Update("expires_at", time.Now().Add(-time.Minute)).Error)

	w := f.do(t, "GET", "/api/v1/confirmations/verify?token="+token, nil, nil)

	assert.Equal(t, http.StatusGone, w.Code)
	response := decode(t, w)
	assert.Equal(t, "TOKEN_EXPIRED", response["code"])
	assert.Equal(t, "a@x.com", response["email"])
	assert.NotEmpty(t, response["expiresAt"])
}

func TestConfirmationController_Verify_CancelledToken(t *testing.T) {
	f := setupConfirmationControllerTest(t)
	token := f.issueToken(t, "a@x.com")

	stored, err := f.confirmRepo.FindByTokenHash(util.HashToken(token))
	require.NoError(t, err)
	ok, err := f.confirmRepo.Cancel(stored.ID)
	require.NoError(t, err)
	require.True(t, ok)

	w := f.do(t, "GET", "/api/v1/confirmations/verify?token="+token, nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decode(t, w)
	assert.Equal(t, "INVALID_TOKEN", response["code"])
	assert.Equal(t, string(model.StatusCancelled), response["status"])
}

func TestConfirmationController_Verify_MethodNotAllowed(t *testing.T) {
	f := setupConfirmationControllerTest(t)

	w := f.do(t, "DELETE", "/api/v1/confirmations/verify", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestConfirmationController_CORSPreflight(t *testing.T) {
	f := setupConfirmationControllerTest(t)

	w := f.do(t, "OPTIONS", "/api/v1/confirmations", nil, map[string]string{
		"Origin": "http://localhost:3000",
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
