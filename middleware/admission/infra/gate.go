package infra

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"admission-gateway/middleware/admission/domain"
)

// Gate limita quantas requisições executam ao mesmo tempo e mantém uma fila
// de no máximo 2x a capacidade. O semáforo atende os waiters em ordem de chegada.
//
// Invariantes: 0 <= active <= capacity e 0 <= queued <= maxQueue.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
	maxQueue int

	mu     sync.Mutex
	active int
	queued int

	slowWait time.Duration
	slowLog  rate.Sometimes
	logger   *zap.Logger
	now      func() time.Time
}

type GateOption func(*Gate)

// WithSlowWaitThreshold define a partir de quanto tempo na fila um evento
// informativo é emitido. 0 desliga.
func WithSlowWaitThreshold(d time.Duration) GateOption {
	return func(g *Gate) { g.slowWait = d }
}

func WithGateLogger(l *zap.Logger) GateOption {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGate cria um gate com `capacity` vagas (mínimo 1).
func NewGate(capacity int, opts ...GateOption) *Gate {
	capacity = max(capacity, 1)
	g := &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		maxQueue: 2 * capacity,
		slowWait: time.Second,
		slowLog:  rate.Sometimes{Interval: time.Second}, // no máximo um log de fila lenta por segundo
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) Capacity() int { return g.capacity }

func (g *Gate) Stats() domain.GateStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statsLocked()
}

func (g *Gate) statsLocked() domain.GateStats {
	return domain.GateStats{
		Active:   g.active,
		Queued:   g.queued,
		Capacity: g.capacity,
		MaxQueue: g.maxQueue,
	}
}

// Admit implementa domain.SlotGate.
//
//   - fila cheia: ErrServiceOverloaded na hora, sem espera
//   - timeout > 0 sem vaga: ErrQueueTimeout
//   - ctx cancelado durante a espera: ErrQueueAbandoned
//
// Em todos os casos de erro o contador de fila volta ao valor anterior e nenhuma
// vaga fica presa.
func (g *Gate) Admit(ctx context.Context, timeout time.Duration) (domain.Lease, error) {
	g.mu.Lock()
	if g.queued >= g.maxQueue {
		stats := g.statsLocked()
		g.mu.Unlock()
		g.logger.Warn("request queue full, rejecting request",
			zap.Int("active", stats.Active),
			zap.Int("queued", stats.Queued),
			zap.Int("capacity", stats.Capacity))
		return nil, &domain.GateError{Err: domain.ErrServiceOverloaded, Stats: stats, Timeout: timeout}
	}
	g.queued++
	g.mu.Unlock()

	acqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := g.now()
	var slow *time.Timer
	if g.slowWait > 0 {
		slow = time.AfterFunc(g.slowWait, func() {
			g.slowLog.Do(func() {
				stats := g.Stats()
				g.logger.Info("elevated queue wait",
					zap.Duration("threshold", g.slowWait),
					zap.Int("active", stats.Active),
					zap.Int("queued", stats.Queued))
			})
		})
	}

	err := g.sem.Acquire(acqCtx, 1)
	if slow != nil {
		slow.Stop()
	}
	waited := g.now().Sub(start)

	g.mu.Lock()
	g.queued--
	if err == nil {
		g.active++
	}
	stats := g.statsLocked()
	g.mu.Unlock()

	if err != nil {
		reason := domain.ErrQueueTimeout
		if ctx.Err() != nil {
			reason = domain.ErrQueueAbandoned
		}
		g.logger.Warn("request left the queue without a slot",
			zap.Error(reason),
			zap.Duration("waited", waited),
			zap.Duration("queue_timeout", timeout))
		return nil, &domain.GateError{Err: reason, Stats: stats, Timeout: timeout, Waited: waited}
	}

	if g.slowWait > 0 && waited > g.slowWait {
		g.logger.Info("request waited in queue",
			zap.Duration("waited", waited),
			zap.Int("active", stats.Active),
			zap.Int("queued", stats.Queued))
	}

	return &lease{gate: g, waited: waited}, nil
}

type lease struct {
	gate   *Gate
	waited time.Duration
	once   sync.Once
}

func (l *lease) Waited() time.Duration { return l.waited }

// Release devolve a vaga. active cai antes do semáforo liberar o próximo waiter.
func (l *lease) Release() {
	l.once.Do(func() {
		l.gate.mu.Lock()
		l.gate.active--
		l.gate.mu.Unlock()
		l.gate.sem.Release(1)
	})
}
