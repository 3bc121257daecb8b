package admission

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
)

// DefaultExemptPaths são os endpoints de saúde/informação/documentação que não
// passam pelo rate limit.
var DefaultExemptPaths = []string{"/health", "/info", "/", "/docs", "/openapi.json"}

type RateLimitOptions struct {
	Limiter     domain.Limiter
	KeyFn       KeyFunc
	KeyHeader   string
	TrustProxy  bool
	ExemptPaths []string
	RetryAfter  time.Duration
	Logger      *zap.Logger
}

func RateLimitMiddleware(opts RateLimitOptions) func(next http.Handler) http.Handler {
	if opts.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = application.DefaultRetryAfter
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustProxy)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	svc := application.RateLimitService{
		Limiter:    opts.Limiter,
		RetryAfter: opts.RetryAfter,
	}
	exempt := newPathSet(opts.ExemptPaths)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// match exato, antes de resolver a identidade
			if exempt.has(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key, ok := ClientKey(r.Context())
			if !ok {
				key = opts.KeyFn(r)
			}

			dec := svc.Decide(key)
			if !dec.Allowed {
				err := svc.Err(key, dec)
				SetOutcome(r.Context(), domain.KindRateLimitExceeded, err.Error())
				opts.Logger.Warn("rate limit exceeded",
					zap.String("client", string(key)),
					zap.String("path", r.URL.Path),
					zap.Int("minute", dec.Counts.Minute),
					zap.Int("hour", dec.Counts.Hour),
					zap.Int("burst", dec.Counts.Burst))
				writeRateLimited(w, r, dec)
				return
			}

			setHeader(w, HeaderLimitMinute, formatInt(dec.Limits.RequestsPerMinute))
			setHeader(w, HeaderLimitHour, formatInt(dec.Limits.RequestsPerHour))
			setHeader(w, HeaderRemainingMinute, formatInt(dec.RemainingMinute()))
			setHeader(w, HeaderRemainingHour, formatInt(dec.RemainingHour()))

			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, dec domain.Decision) {
	retry := retryAfterSeconds(dec.RetryAfter)
	setHeader(w, HeaderRetryAfter, formatInt(retry))
	WriteError(w, r, http.StatusTooManyRequests, CodeRateLimitExceeded,
		"too many requests, please retry later",
		map[string]any{
			"limits": map[string]int{
				"requests_per_minute": dec.Limits.RequestsPerMinute,
				"requests_per_hour":   dec.Limits.RequestsPerHour,
				"burst_size":          dec.Limits.BurstSize,
			},
			"current": map[string]int{
				"requests_per_minute": dec.Counts.Minute,
				"requests_per_hour":   dec.Counts.Hour,
				"burst_requests":      dec.Counts.Burst,
			},
			"retry_after": retry,
		})
}
