package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/repositories"
	"task-tracker/backend/internal/services"
	"task-tracker/backend/internal/testutil"
)

type recordingInvalidator struct {
	users []uint
}

func (r *recordingInvalidator) Invalidate(_ context.Context, userID uint) {
	r.users = append(r.users, userID)
}

type AuthHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	tasks       *repositories.GormTaskStore
	invalidator *recordingInvalidator
}

func (s *AuthHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(s.T())
	s.tasks = repositories.NewTaskStore(db)
	authService := services.NewAuthService(
		repositories.NewUserStore(db),
		repositories.NewTokenStore(db),
		config.AuthConfig{
			JWTSecret:         "handler-test-secret",
			Issuer:            "task-tracker-test",
			AccessTokenTTL:    time.Minute,
			RefreshTokenTTL:   time.Hour,
			BCryptCost:        bcrypt.MinCost,
			MinPasswordLength: 6,
		},
		zerolog.Nop(),
	)
	handler := NewAuthHandler(authService, zerolog.Nop())
	s.invalidator = &recordingInvalidator{}

	s.router = gin.New()
	s.router.POST("/auth/register", handler.Register)
	s.router.POST("/auth/login", handler.Login)
	s.router.POST("/auth/refresh", handler.Refresh)
	s.router.POST("/auth/logout", handler.Logout)
	me := s.router.Group("/me", middleware.Auth(authService))
	me.GET("", handler.Me)
	me.DELETE("", handler.DeleteMe(s.invalidator))
}

func (s *AuthHandlerTestSuite) do(method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AuthHandlerTestSuite) register(email string) services.AuthResult {
	w := s.do(http.MethodPost, "/auth/register",
		`{"email":"`+email+`","password":"secret1","confirm_password":"secret1","name":"Tester"}`, "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var result services.AuthResult
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func (s *AuthHandlerTestSuite) errorCode(w *httptest.ResponseRecorder) string {
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	code, _ := body["error"].(string)
	return code
}

func (s *AuthHandlerTestSuite) TestRegister() {
	result := s.register("alice@example.com")

	s.NotZero(result.Session.UserID)
	s.Equal("alice@example.com", result.Session.Email)
	s.NotEmpty(result.AccessToken)
	s.NotEmpty(result.RefreshToken)
	s.Equal("Bearer", result.TokenType)
}

func (s *AuthHandlerTestSuite) TestRegisterErrors() {
	s.register("alice@example.com")

	w := s.do(http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","password":"secret1","name":"Again"}`, "")
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("email_taken", s.errorCode(w))

	w = s.do(http.MethodPost, "/auth/register",
		`{"email":"bob@example.com","password":"123","name":"Bob"}`, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("validation_failed", s.errorCode(w))

	w = s.do(http.MethodPost, "/auth/register",
		`{"email":"bob@example.com","password":"secret1","confirm_password":"secret2","name":"Bob"}`, "")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/auth/register", `{"email":"bob@example.com"}`, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("invalid_request", s.errorCode(w))
}

func (s *AuthHandlerTestSuite) TestLogin() {
	s.register("alice@example.com")

	w := s.do(http.MethodPost, "/auth/login", `{"email":"Alice@Example.com","password":"secret1"}`, "")
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"wrong!"}`, "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("invalid_credentials", s.errorCode(w))

	w = s.do(http.MethodPost, "/auth/login", `{"email":"nobody@example.com","password":"secret1"}`, "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AuthHandlerTestSuite) TestRefreshRotatesAndLogoutRevokes() {
	first := s.register("alice@example.com")

	w := s.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+first.RefreshToken+`"}`, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var second services.AuthResult
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &second))
	s.NotEqual(first.RefreshToken, second.RefreshToken)

	w = s.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+first.RefreshToken+`"}`, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/auth/logout", `{"refresh_token":"`+second.RefreshToken+`"}`, "")
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+second.RefreshToken+`"}`, "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AuthHandlerTestSuite) TestMe() {
	result := s.register("alice@example.com")

	w := s.do(http.MethodGet, "/me", "", result.AccessToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("alice@example.com", body["email"])
	s.Equal("Tester", body["name"])

	w = s.do(http.MethodGet, "/me", "", "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AuthHandlerTestSuite) TestDeleteMe() {
	result := s.register("alice@example.com")
	userID := result.Session.UserID

	w := s.do(http.MethodDelete, "/me", "", result.AccessToken)
	s.Require().Equal(http.StatusNoContent, w.Code)
	s.Equal([]uint{userID}, s.invalidator.users)

	// The access token is still well-formed but its user is gone.
	w = s.do(http.MethodGet, "/me", "", result.AccessToken)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+result.RefreshToken+`"}`, "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}
