package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type stubParser struct {
	sessions map[string]services.Session
}

func (p stubParser) ParseAccessToken(token string) (services.Session, error) {
	if session, ok := p.sessions[token]; ok {
		return session, nil
	}
	return services.Session{}, errors.New("bad token")
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	parser := stubParser{sessions: map[string]services.Session{
		"good-token": {UserID: 42, Email: "a@example.com", Name: "A"},
	}}

	router := gin.New()
	router.Use(middleware.Auth(parser))
	router.GET("/protected", func(c *gin.Context) {
		session, ok := middleware.CurrentSession(c)
		fromRequest, okRequest := services.SessionFromContext(c.Request.Context())
		if !ok || !okRequest || session != fromRequest {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": session.UserID, "key": c.GetUint(middleware.UserIDKey)})
	})
	return router
}

func TestAuth_Rejections(t *testing.T) {
	router := newAuthRouter()

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic good-token",
		"empty token":  "Bearer ",
		"bad token":    "Bearer nope",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
			}
		})
	}
}

func TestAuth_ValidToken(t *testing.T) {
	router := newAuthRouter()

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "bearer good-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	expected := `{"key":42,"user_id":42}`
	if w.Body.String() != expected {
		t.Errorf("Expected %s, got %s", expected, w.Body.String())
	}
}
