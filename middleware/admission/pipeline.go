package admission

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"
)

// Config são os parâmetros numéricos do pipeline, fixos depois da criação.
type Config struct {
	RateLimitEnabled bool
	Limits           domain.Limits
	KeyHeader        string
	TrustProxy       bool
	ExemptPaths      []string
	RetryAfter       time.Duration
	CleanupEvery     time.Duration

	MaxConcurrent      int
	QueueTimeout       time.Duration
	GatedPaths         []string
	SlowWaitThreshold  time.Duration
	OverloadRetryAfter time.Duration
}

// DefaultConfig espelha os padrões do serviço de imagens.
func DefaultConfig() Config {
	return Config{
		RateLimitEnabled: true,
		Limits: domain.Limits{
			RequestsPerMinute: 60,
			RequestsPerHour:   1000,
			BurstSize:         10,
		},
		TrustProxy:         true,
		ExemptPaths:        DefaultExemptPaths,
		RetryAfter:         60 * time.Second,
		CleanupEvery:       5 * time.Minute,
		MaxConcurrent:      4,
		QueueTimeout:       30 * time.Second,
		GatedPaths:         DefaultGatedPaths,
		SlowWaitThreshold:  time.Second,
		OverloadRetryAfter: 30 * time.Second,
	}
}

// Pipeline compõe identidade -> rate limit -> gate -> handler, com tracking e
// métricas por fora de tudo.
type Pipeline struct {
	cfg     Config
	keyFn   KeyFunc
	routeFn RouteFunc
	store   *infra.WindowStore
	gate    *infra.Gate
	tracker *infra.Tracker
	monitor *infra.Monitor
	stats   []domain.StatsStore
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Pipeline)

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithStatsStore adiciona um destino extra para os eventos de requisição (ex.: Redis).
func WithStatsStore(s domain.StatsStore) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.stats = append(p.stats, s)
		}
	}
}

// WithKeyFunc troca a resolução de identidade do cliente.
func WithKeyFunc(fn KeyFunc) Option {
	return func(p *Pipeline) { p.keyFn = fn }
}

// WithRouteFunc define o rótulo de endpoint das métricas.
func WithRouteFunc(fn RouteFunc) Option {
	return func(p *Pipeline) { p.routeFn = fn }
}

// WithClock troca o relógio do rate limit e do tracker (útil em testes).
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.keyFn == nil {
		p.keyFn = DefaultKeyFunc(cfg.KeyHeader, cfg.TrustProxy)
	}

	if cfg.RateLimitEnabled {
		p.store = infra.NewWindowStore(cfg.Limits,
			infra.WithCleanupEvery(cfg.CleanupEvery),
			infra.WithClock(p.now))
	}
	p.gate = infra.NewGate(cfg.MaxConcurrent,
		infra.WithSlowWaitThreshold(cfg.SlowWaitThreshold),
		infra.WithGateLogger(p.logger.Named("gate")))
	p.tracker = infra.NewTracker(infra.WithTrackerClock(p.now))
	p.monitor = infra.NewMonitor()

	return p
}

// Handler embrulha next com o pipeline completo. Se next for um roteador chi e
// nenhuma RouteFunc foi dada, as métricas usam o padrão da rota.
func (p *Pipeline) Handler(next http.Handler) http.Handler {
	routeFn := p.routeFn
	if routes, ok := next.(chi.Routes); ok && routeFn == nil {
		routeFn = ChiRouteFunc(routes)
	}

	h := next
	h = ConcurrencyMiddleware(ConcurrencyOptions{
		Gate:         p.gate,
		QueueTimeout: p.cfg.QueueTimeout,
		GatedPaths:   p.cfg.GatedPaths,
		RetryAfter:   p.cfg.OverloadRetryAfter,
		Logger:       p.logger.Named("concurrency"),
	})(h)
	if p.store != nil {
		h = RateLimitMiddleware(RateLimitOptions{
			Limiter:     p.store,
			KeyFn:       p.keyFn,
			ExemptPaths: p.cfg.ExemptPaths,
			RetryAfter:  p.cfg.RetryAfter,
			Logger:      p.logger.Named("ratelimit"),
		})(h)
	}
	h = SecurityHeaders(p.cfg.GatedPaths)(h)
	h = TrackingMiddleware(TrackingOptions{
		Tracker:     p.tracker,
		Stats:       append([]domain.StatsStore{p.monitor}, p.stats...),
		KeyFn:       p.keyFn,
		ExemptPaths: p.cfg.ExemptPaths,
		RouteFn:     routeFn,
		Logger:      p.logger.Named("request"),
		Now:         p.now,
	})(h)
	return h
}

// StartJanitor inicia a limpeza periódica dos clientes inativos do rate limit.
func (p *Pipeline) StartJanitor(ctx context.Context) {
	if p.store != nil {
		p.store.StartJanitor(ctx)
	}
}

func (p *Pipeline) Config() Config                     { return p.cfg }
func (p *Pipeline) Monitor() *infra.Monitor            { return p.monitor }
func (p *Pipeline) Tracker() *infra.Tracker            { return p.tracker }
func (p *Pipeline) GateStats() domain.GateStats        { return p.gate.Stats() }
func (p *Pipeline) RateLimitStore() *infra.WindowStore { return p.store }
