package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kelpAPI/handlers"
	"kelpAPI/internal/profile"
	"kelpAPI/internal/store"
	"kelpAPI/middleware"
	"kelpAPI/services"
)

func rejectAll(ctx context.Context, token string) (string, error) {
	return "", errors.New("not signed in")
}

func newTestRouter(t *testing.T, functionsKey string) (http.Handler, *store.MemoryStore) {
	t.Helper()
	logger := zap.NewNop()
	mem := store.NewMemoryStore()

	badges := services.NewBadgeService(mem, logger)
	referrals := services.NewReferralService(mem, "kelp://invite", logger)
	profiles := services.NewProfileService(mem, logger)
	webhooks, err := handlers.NewWebhookHandler(profiles, referrals, "", logger)
	require.NoError(t, err)

	router := newRouter(&routes{
		funcs:     handlers.NewFuncHandler(badges, logger),
		users:     handlers.NewUserHandler(badges, logger),
		referrals: handlers.NewReferralHandler(referrals, logger),
		activities: handlers.NewActivityHandler(
			services.NewActivityService(mem, badges, logger),
			services.NewLeaderboardService(mem, nil, time.Minute, logger),
			services.NewInsightService(mem, nil, logger),
			logger,
		),
		notifications: handlers.NewNotificationHandler(services.NewNotificationService(mem, nil, logger), logger),
		webhooks:      webhooks,
		limiter:       middleware.NewRateLimiter(1000, 1000, logger),
		verify:        rejectAll,
		ping:          mem.Ping,
		functionsKey:  functionsKey,
		logger:        logger,
	})
	return router, mem
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, "fn-key")

	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/assign-badges", nil)
	req.Header.Set("Origin", "https://app.kelp.eco")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "authorization, x-client-info, apikey, content-type")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	allowed := strings.ToLower(rr.Header().Get("Access-Control-Allow-Headers"))
	for _, h := range []string{"authorization", "x-client-info", "apikey", "content-type"} {
		assert.Contains(t, allowed, h)
	}
}

func TestCORSPreflightRejectsUnknownHeader(t *testing.T) {
	router, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/referral/validate", nil)
	req.Header.Set("Origin", "https://app.kelp.eco")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "x-not-allowed")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAssignBadgesRequiresAPIKey(t *testing.T) {
	router, mem := newTestRouter(t, "fn-key")
	require.NoError(t, mem.CreateProfile(context.Background(), &profile.Profile{ID: "user_1"}))

	post := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/functions/v1/assign-badges", bytes.NewBufferString(`{"user_id":"user_1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", "https://app.kelp.eco")
		if key != "" {
			req.Header.Set("apikey", key)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusUnauthorized, post("").Code)
	assert.Equal(t, http.StatusUnauthorized, post("wrong").Code)

	rr := post("fn-key")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Body.String(), `"ok":true`)
}

func TestRouterRoutes(t *testing.T) {
	router, _ := newTestRouter(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"public validate", http.MethodPost, "/api/v1/referral/validate", `{"code":""}`, http.StatusOK},
		{"protected without token", http.MethodGet, "/api/v1/user/badges", "", http.StatusUnauthorized},
		{"metrics without credentials", http.MethodGet, "/metrics", "", http.StatusUnauthorized},
		{"open function without key", http.MethodPost, "/functions/v1/assign-badges", `{"user_id":"ghost"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}
