package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiter_AllowsBurstThenBlocks(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMin: 60, BurstSize: 2})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("1.2.3.4") || !limiter.Allow("1.2.3.4") {
		t.Fatal("Expected burst of 2 to be allowed")
	}
	if limiter.Allow("1.2.3.4") {
		t.Error("Expected third request to be limited")
	}
	if !limiter.Allow("5.6.7.8") {
		t.Error("Expected other clients to have their own bucket")
	}

	now = now.Add(time.Second)
	if !limiter.Allow("1.2.3.4") {
		t.Error("Expected a token to refill after one second")
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMin: 60, BurstSize: 1, CleanupInterval: time.Minute})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("old")
	now = now.Add(2 * time.Minute)
	limiter.Allow("new")

	if removed := limiter.Cleanup(); removed != 1 {
		t.Errorf("Expected 1 idle client removed, got %d", removed)
	}
	if _, ok := limiter.visitors["new"]; !ok {
		t.Error("Expected active client to be kept")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMin: 30, BurstSize: 1})
	router := gin.New()
	router.Use(RateLimit(limiter))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest("GET", "/", nil))
	if first.Code != http.StatusOK {
		t.Errorf("Expected first request to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest("GET", "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("Expected %d, got %d", http.StatusTooManyRequests, second.Code)
	}
	if second.Header().Get("Retry-After") != "2" {
		t.Errorf("Expected Retry-After 2, got %q", second.Header().Get("Retry-After"))
	}
}
