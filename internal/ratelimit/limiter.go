package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"vouch/pkg/requestcontext"
)

// Rule names a limited endpoint class with its budget.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Limiter checks rules against a primary store, falling back to an
// in-memory store when the primary errors. A failing fallback fails open.
type Limiter struct {
	primary  Store
	fallback Store
	logger   *slog.Logger
	disabled bool
}

type Option func(*Limiter)

// WithDisabled turns all checks into no-ops (demo and test setups).
func WithDisabled(disabled bool) Option {
	return func(l *Limiter) { l.disabled = disabled }
}

// New builds a limiter. primary may be nil; the in-memory fallback then
// serves all checks.
func New(primary Store, logger *slog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		primary:  primary,
		fallback: NewMemoryStore(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) check(ctx context.Context, rule Rule, key string) Result {
	if l.disabled {
		return Result{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit}
	}

	fullKey := rule.Name + ":" + key
	if l.primary != nil {
		res, err := l.primary.Allow(ctx, fullKey, rule.Limit, rule.Window)
		if err == nil {
			return res
		}
		l.logger.WarnContext(ctx, "rate limit store degraded, using fallback",
			"rule", rule.Name,
			"error", err,
		)
	}

	res, err := l.fallback.Allow(ctx, fullKey, rule.Limit, rule.Window)
	if err != nil {
		return Result{Allowed: true, Limit: rule.Limit}
	}
	return res
}

// Middleware limits requests per client IP under the given rule. Limit
// headers are set on every response; exceeded requests get 429.
func (l *Limiter) Middleware(rule Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := requestcontext.ClientIP(r.Context())
			if ip == "" {
				ip = r.RemoteAddr
			}

			res := l.check(r.Context(), rule, ip)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				retryAfter := int(res.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"success":false,"message":"Too many requests"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
