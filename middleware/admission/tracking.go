package admission

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"admission-gateway/middleware/admission/domain"
)

// statsRecordTimeout limita quanto um destino de métricas lento segura a resposta.
const statsRecordTimeout = 250 * time.Millisecond

// RequestTracker é o contrato mínimo que o middleware de tracking usa.
type RequestTracker interface {
	Start(rec domain.RequestRecord) (domain.RequestRecord, error)
	End(id string, statusCode int, errorDetail string) (domain.RequestRecord, bool)
}

type TrackingOptions struct {
	Tracker RequestTracker
	// Stats recebem um evento por requisição concluída (ex.: Monitor, Redis).
	// Erros são best-effort: só log.
	Stats      []domain.StatsStore
	KeyFn      KeyFunc
	KeyHeader  string
	TrustProxy bool
	// ExemptPaths não resolvem identidade (mesma lista do rate limit).
	ExemptPaths []string
	// RouteFn dá o rótulo de endpoint das métricas; sem ela, usa o path cru.
	RouteFn RouteFunc
	Logger  *zap.Logger
	Now     func() time.Time
}

// TrackingMiddleware é a camada mais externa do pipeline: resolve id e identidade,
// abre o registro no tracker e, em qualquer saída (sucesso, erro, rejeição ou
// panic), fecha o registro e alimenta as métricas exatamente uma vez.
func TrackingMiddleware(opts TrackingOptions) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustProxy)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	exempt := newPathSet(opts.ExemptPaths)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := opts.Now()

			// o id do cliente é só correlação; o tracker usa sempre um id nosso
			trackID := uuid.NewString()
			correlation := r.Header.Get(HeaderRequestID)
			id := correlation
			if id == "" {
				id = trackID
			}
			st := &requestState{id: id, trackID: trackID}
			st.keyFn = func() domain.Key { return opts.KeyFn(r) }
			if opts.RouteFn != nil {
				st.route = opts.RouteFn(r)
			}
			ctx := withState(r.Context(), st)
			r = r.WithContext(ctx)

			var key domain.Key
			if !exempt.has(r.URL.Path) {
				key = st.clientKey()
			}

			rw := newResponseWriter(w, start, opts.Now)
			rw.pin(HeaderRequestID, id)

			if opts.Tracker != nil {
				_, err := opts.Tracker.Start(domain.RequestRecord{
					ID:            trackID,
					CorrelationID: correlation,
					Endpoint:      r.URL.Path,
					Method:        r.Method,
					ClientKey:     key,
				})
				if err != nil {
					opts.Logger.Warn("request not tracked", zap.String("request_id", id), zap.Error(err))
				}
			}

			defer func() {
				p := recover()
				status := rw.statusCode
				if p != nil {
					status = http.StatusInternalServerError
					SetOutcome(ctx, domain.KindPanic, fmt.Sprint(p))
					if p != http.ErrAbortHandler {
						opts.Logger.Error("request panicked",
							zap.String("request_id", id),
							zap.Any("panic", p),
							zap.ByteString("stack", debug.Stack()))
						if !rw.wroteHeader {
							WriteError(rw, r, status, CodeInternalError, "internal server error", nil)
						}
					}
				} else if !rw.wroteHeader {
					// handler sem corpo: os headers do pipeline ainda precisam sair
					rw.WriteHeader(status)
				}

				kind, detail := st.outcome()
				duration := opts.Now().Sub(start)
				finish(ctx, opts, r, st, status, kind, detail, duration)

				// ErrAbortHandler precisa chegar no net/http para abortar a conexão
				if p == http.ErrAbortHandler {
					panic(p)
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

func finish(ctx context.Context, opts TrackingOptions, r *http.Request, st *requestState,
	status int, kind, detail string, duration time.Duration) {
	if opts.Tracker != nil {
		opts.Tracker.End(st.trackID, status, detail)
	}

	if status >= http.StatusInternalServerError && kind == "" {
		kind = http.StatusText(status)
	}

	endpoint := st.routeLabel()
	if endpoint == "" {
		endpoint = r.URL.Path
	}
	key := st.resolvedKey()

	ev := domain.StatsEvent{
		Key:        key,
		Method:     r.Method,
		Endpoint:   endpoint,
		StatusCode: status,
		ErrorKind:  kind,
		Duration:   duration,
		At:         opts.Now(),
	}
	// o cliente pode já ter desconectado; a exportação não deve herdar o cancelamento
	statsCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsRecordTimeout)
	defer cancel()
	for _, s := range opts.Stats {
		if s == nil {
			continue
		}
		if err := s.Record(statsCtx, ev); err != nil {
			opts.Logger.Debug("stats record failed", zap.Error(err))
		}
	}

	fields := []zap.Field{
		zap.String("request_id", st.id),
		zap.String("client", string(key)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Duration("duration", duration),
	}
	if kind != "" {
		fields = append(fields, zap.String("error_kind", kind))
	}
	if status >= http.StatusInternalServerError {
		opts.Logger.Warn("request failed", fields...)
		return
	}
	opts.Logger.Info("request completed", fields...)
}
