package admission

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"
)

// DefaultGatedPaths são as rotas que chamam o backend de inferência.
var DefaultGatedPaths = []string{"/text-to-image", "/image-to-image"}

// queueTimeHeaderThreshold: abaixo disso a espera não vira header.
const queueTimeHeaderThreshold = 100 * time.Millisecond

type ConcurrencyOptions struct {
	// Gate tem precedência; se nil, um infra.Gate com Max vagas é criado.
	Gate              domain.SlotGate
	Max               int
	QueueTimeout      time.Duration
	SlowWaitThreshold time.Duration
	// GatedPaths vazio significa que todas as rotas passam pelo gate.
	GatedPaths []string
	RetryAfter time.Duration
	Logger     *zap.Logger
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Gate == nil && opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Gate == nil {
		opts.Gate = infra.NewGate(opts.Max,
			infra.WithSlowWaitThreshold(opts.SlowWaitThreshold),
			infra.WithGateLogger(opts.Logger))
	}

	svc := application.ConcurrencyService{
		Gate:         opts.Gate,
		QueueTimeout: opts.QueueTimeout,
	}
	gated := newPathSet(opts.GatedPaths)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gated != nil && !gated.has(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			lease, err := svc.Admit(r.Context())
			if err != nil {
				writeGateRejected(w, r, err, opts.RetryAfter)
				return
			}
			defer lease.Release()

			stats := opts.Gate.Stats()
			setHeader(w, HeaderConcurrencyActive, formatInt(stats.Active))
			setHeader(w, HeaderConcurrencyQueued, formatInt(stats.Queued))
			setHeader(w, HeaderConcurrencyLimit, formatInt(stats.Capacity))
			if waited := lease.Waited(); waited > queueTimeHeaderThreshold {
				setHeader(w, HeaderQueueTime, formatSeconds(waited))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeGateRejected(w http.ResponseWriter, r *http.Request, err error, retryAfter time.Duration) {
	SetOutcome(r.Context(), domain.ErrorKind(err), err.Error())
	setHeader(w, HeaderRetryAfter, formatInt(retryAfterSeconds(retryAfter)))

	var gerr *domain.GateError
	if !errors.As(err, &gerr) {
		WriteError(w, r, http.StatusServiceUnavailable, CodeServiceOverloaded, err.Error(), nil)
		return
	}

	if errors.Is(err, domain.ErrServiceOverloaded) {
		WriteError(w, r, http.StatusServiceUnavailable, CodeServiceOverloaded,
			"server is overloaded, please retry later",
			map[string]any{
				"active_requests": gerr.Stats.Active,
				"queued_requests": gerr.Stats.Queued,
				"max_concurrent":  gerr.Stats.Capacity,
			})
		return
	}

	// timeout ou cliente que desistiu: para quem ainda escuta, é timeout de fila
	WriteError(w, r, http.StatusServiceUnavailable, CodeQueueTimeout,
		"request timed out waiting in queue",
		map[string]any{
			"queue_timeout":   gerr.Timeout.Seconds(),
			"active_requests": gerr.Stats.Active,
			"queued_requests": gerr.Stats.Queued,
		})
}
