package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/agrofund/loan-service/internal/auth"
	"github.com/agrofund/loan-service/internal/models"
)

type stubParser map[string]auth.Identity

func (s stubParser) ParseToken(token string) (auth.Identity, error) {
	id, ok := s[token]
	if !ok {
		return auth.Identity{}, errors.New("bad token")
	}
	return id, nil
}

var parser = stubParser{
	"admin-token":  {UserID: 1, Role: models.RoleAdmin},
	"farmer-token": {UserID: 2, Role: models.RoleFarmer},
}

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := auth.FromContext(r.Context()); ok {
			_, _ = w.Write([]byte(id.Role))
			return
		}
		_, _ = w.Write([]byte("anonymous"))
	})
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/plans", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	h := AuthMiddleware(parser)(identityEcho())

	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "forged").Code)

	rec := serve(h, "farmer-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleFarmer, rec.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	h := OptionalAuth(parser)(identityEcho())

	assert.Equal(t, "anonymous", serve(h, "").Body.String())
	assert.Equal(t, "anonymous", serve(h, "forged").Body.String())
	assert.Equal(t, models.RoleAdmin, serve(h, "admin-token").Body.String())
}

func TestRequireAdmin(t *testing.T) {
	h := AuthMiddleware(parser)(RequireAdmin(identityEcho()))

	assert.Equal(t, http.StatusForbidden, serve(h, "farmer-token").Code)
	assert.Equal(t, http.StatusOK, serve(h, "admin-token").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(RequireAdmin(identityEcho()), "").Code, "no identity in context")
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "clients have separate buckets")

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"), "bucket refills after the window")

	now = now.Add(2 * time.Hour)
	rl.cleanup()
	rl.mu.Lock()
	assert.Empty(t, rl.clients)
	rl.mu.Unlock()

	rl.Stop()
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, 30*time.Second)
	defer rl.Stop()
	h := rl.Middleware(identityEcho())

	first := serve(h, "")
	assert.Equal(t, http.StatusOK, first.Code)

	second := serve(h, "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "30", second.Header().Get("Retry-After"))
}

func TestRequestLoggerAndRecoverer(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	h := RequestLogger(log)(Recoverer(log)(panicky))

	rec := serve(h, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
