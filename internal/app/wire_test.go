package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/auth"
	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/provider"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDrafter struct{}

func (stubDrafter) DraftLevel(context.Context, provider.DraftRequest) (*domain.LevelDraft, error) {
	return &domain.LevelDraft{Title: "Level 2", Description: "Go further", FocusGoal: "Ship it"}, nil
}

func newTestRouter(t *testing.T, drafter bool, ping func(context.Context) error) (http.Handler, *auth.JWTManager) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtMgr := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour, clock)

	deps := Deps{JWTMgr: jwtMgr, Clock: clock, Logger: logger, AIRequestsPerMinute: 1}
	if drafter {
		deps.Drafter = stubDrafter{}
	}
	return NewRouter(RouterDeps{
		Services:       NewServices(deps),
		JWTMgr:         jwtMgr,
		Logger:         logger,
		Clock:          clock,
		AllowedOrigins: []string{"*"},
		Ping:           ping,
	}), jwtMgr
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t, false, func(context.Context) error { return nil })
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	router, _ = newTestRouter(t, false, func(context.Context) error { return errors.New("down") })
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_ProtectedRoutesNeedToken(t *testing.T) {
	router, _ := newTestRouter(t, false, nil)
	paths := []struct{ method, path string }{
		{http.MethodGet, "/users/me"},
		{http.MethodGet, "/tasks"},
		{http.MethodPost, "/tasks/" + uuid.NewString() + "/complete"},
		{http.MethodPatch, "/challenges/" + uuid.NewString() + "/start"},
		{http.MethodPost, "/tracks/" + uuid.NewString() + "/levels/next"},
		{http.MethodGet, "/gamification/stats"},
		{http.MethodGet, "/reflections/today"},
		{http.MethodPost, "/ai/tracks/draft"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(p.method, p.path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_Preflight(t *testing.T) {
	router, _ := newTestRouter(t, false, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/tasks", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_ChallengeMetaAndAIDraft(t *testing.T) {
	router, jwtMgr := newTestRouter(t, true, nil)
	token, err := jwtMgr.GenerateToken(auth.RealmUser, uuid.New(), "sam@example.com", "UTC")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/challenges/meta", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	draft := func() int {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/ai/tracks/draft", strings.NewReader(`{"track_theme":"Running","current_level":1}`))
		r.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, r)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, draft())
	// One request per minute is allowed in this setup.
	assert.Equal(t, http.StatusTooManyRequests, draft())
}
