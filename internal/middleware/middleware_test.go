package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	"github.com/noah-isme/kiosk-attendance-api/internal/service"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
	"github.com/noah-isme/kiosk-attendance-api/pkg/logger"
)

type stubValidator struct {
	claims *models.SessionClaims
	tokens []string
}

func (s *stubValidator) ValidateToken(ctx context.Context, token string) (*models.SessionClaims, error) {
	s.tokens = append(s.tokens, token)
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func TestSessionMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := &stubValidator{claims: &models.SessionClaims{Station: "porteria", RegisteredClaims: jwt.RegisteredClaims{ID: "s1"}}}

	router := gin.New()
	router.GET("/private", Session(validator), func(c *gin.Context) {
		claims, ok := SessionFromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Station+"|"+c.GetString(logger.StationKey))
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "malformed", header: "Token good", status: http.StatusUnauthorized},
		{name: "rejected", header: "Bearer bad", status: http.StatusUnauthorized},
		{name: "valid", header: "Bearer good", status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "porteria|porteria", rec.Body.String())
			}
		})
	}
}

func TestTokenBucketRefills(t *testing.T) {
	limiter := NewTokenBucket(2, 60)
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))

	now = now.Add(time.Minute)
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
}

func TestTokenBucketKeepsFractionalRefill(t *testing.T) {
	limiter := NewTokenBucket(2, 10)
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	now := start
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))

	now = start.Add(11900 * time.Millisecond)
	assert.True(t, limiter.Allow("10.0.0.1"))

	now = start.Add(12100 * time.Millisecond)
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
}

func TestTokenBucketEvictsFullBuckets(t *testing.T) {
	limiter := NewTokenBucket(2, 60)
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(fmt.Sprintf("10.0.0.%d", i)))
	}
	assert.Len(t, limiter.state, 5)

	now = now.Add(2 * time.Minute)
	assert.True(t, limiter.Allow("10.0.0.99"))
	assert.Len(t, limiter.state, 1)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/unlock", RateLimit(NewTokenBucket(1, 1)), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/unlock", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/unlock", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "TOO_MANY_REQUESTS")
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	require.NoError(t, router.SetTrustedProxies(nil))
	router.POST("/unlock", RateLimit(NewTokenBucket(1, 1)), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/unlock", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code == http.StatusNoContent {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestRateLimitUsesForwardedForFromTrustedProxy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	require.NoError(t, router.SetTrustedProxies([]string{"10.0.0.1"}))
	router.POST("/unlock", RateLimit(NewTokenBucket(1, 1)), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for _, client := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodPost, "/unlock", nil)
		req.RemoteAddr = "10.0.0.1:40000"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code, client)
	}
}

func TestMetricsMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/students/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/students/123", nil))

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/students/:id",status="200"} 1`)
}
