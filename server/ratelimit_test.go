package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerKey(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{Requests: 2, Window: time.Minute})

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))
}

func TestRateLimiterRefillsOverWindow(t *testing.T) {
	now := time.Now()
	l := NewRateLimiter(RateLimitConfig{Requests: 2, Window: time.Minute})
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestRateLimiterDisabled(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{})
	for i := 0; i < 1000; i++ {
		if !l.Allow("a") {
			t.Fatalf("request %d limited with limiting disabled", i)
		}
	}
}

func TestRateLimitOnAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := NewConfig()
	cfg.RateLimit = RateLimitConfig{Requests: 1, Window: time.Hour}
	r := NewGinEngine(NewServer(cfg, Deps{Log: log}))

	send := func(path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}
	assert.Equal(t, http.StatusUnauthorized, send("/api/auth/profile"))
	assert.Equal(t, http.StatusTooManyRequests, send("/api/auth/profile"))
	// Outside /api is not limited.
	assert.Equal(t, http.StatusOK, send("/health"))
	assert.Equal(t, http.StatusOK, send("/health"))
}
