package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouch/pkg/requestcontext"
)

func TestMemoryStore_FixedWindow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := range 3 {
		res, err := s.Allow(ctx, "ip:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should pass", i+1)
		assert.Equal(t, 3-(i+1), res.Remaining)
	}

	res, err := s.Allow(ctx, "ip:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for range 3 {
		_, err := s.Allow(ctx, "ip:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
	}

	res, err := s.Allow(ctx, "ip:5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryStore_WindowResets(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	res, err := s.Allow(ctx, "k", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = s.Allow(ctx, "k", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	time.Sleep(15 * time.Millisecond)

	res, err = s.Allow(ctx, "k", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "a new window starts after expiry")
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (Result, error) {
	return Result{}, errors.New("store down")
}

func TestLimiter_FallsBackWhenPrimaryFails(t *testing.T) {
	l := New(failingStore{}, slog.New(slog.DiscardHandler))
	rule := Rule{Name: "test", Limit: 2, Window: time.Minute}

	for range 2 {
		res := l.check(context.Background(), rule, "1.2.3.4")
		assert.True(t, res.Allowed)
	}
	res := l.check(context.Background(), rule, "1.2.3.4")
	assert.False(t, res.Allowed, "fallback still enforces the budget")
}

func TestLimiter_Disabled(t *testing.T) {
	l := New(failingStore{}, slog.New(slog.DiscardHandler), WithDisabled(true))
	rule := Rule{Name: "test", Limit: 1, Window: time.Minute}

	for range 5 {
		res := l.check(context.Background(), rule, "1.2.3.4")
		assert.True(t, res.Allowed)
	}
}

func TestMiddleware_LimitsPerIP(t *testing.T) {
	l := New(nil, slog.New(slog.DiscardHandler))
	rule := Rule{Name: "mw", Limit: 2, Window: time.Minute}

	handler := l.Middleware(rule)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(requestcontext.WithClientIP(req.Context(), ip))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, send("1.2.3.4").Code)
	assert.Equal(t, http.StatusOK, send("1.2.3.4").Code)

	blocked := send("1.2.3.4")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Equal(t, "0", blocked.Header().Get("X-RateLimit-Remaining"))

	// A different client is unaffected.
	assert.Equal(t, http.StatusOK, send("5.6.7.8").Code)
}
