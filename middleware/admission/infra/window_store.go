package infra

import (
	"context"
	"sort"
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
	burstWindow  = time.Minute
)

// WindowStore é um rate limiter de janela deslizante por cliente:
// histórico de uma hora (minuto e hora) mais um contador de rajada que zera
// depois de 60s.
//
// Cada cliente tem o seu próprio mutex; purge+contagem+registro de um mesmo
// cliente acontecem sob esse lock.
type WindowStore struct {
	mu           sync.Mutex
	entries      map[domain.Key]*windowEntry
	limits       domain.Limits
	cleanupEvery time.Duration
	now          func() time.Time
}

type windowEntry struct {
	mu         sync.Mutex
	history    []time.Time // mais antigo primeiro
	burstCount int
	burstStart time.Time // zero = janela de rajada não iniciada
	removed    bool
}

type StoreOption func(*WindowStore)

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *WindowStore) { s.cleanupEvery = d }
}

// WithClock troca o relógio (útil em testes).
func WithClock(now func() time.Time) StoreOption {
	return func(s *WindowStore) { s.now = now }
}

func NewWindowStore(limits domain.Limits, opts ...StoreOption) *WindowStore {
	s := &WindowStore{
		entries:      make(map[domain.Key]*windowEntry),
		limits:       limits,
		cleanupEvery: 5 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WindowStore) Limits() domain.Limits       { return s.limits }
func (s *WindowStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// Check implementa domain.Limiter. Não registra nada.
func (s *WindowStore) Check(key domain.Key) (bool, domain.Counts) {
	var counts domain.Counts
	s.withEntry(key, func(e *windowEntry) {
		counts = e.counts(s.now())
	})
	return !counts.Exceeds(s.limits), counts
}

// Record implementa domain.Limiter.
func (s *WindowStore) Record(key domain.Key) {
	s.withEntry(key, func(e *windowEntry) {
		e.record(s.now())
	})
}

// Take faz check+record sob o mesmo lock, então duas requisições concorrentes
// do mesmo cliente nunca passam juntas do limite.
func (s *WindowStore) Take(key domain.Key) (bool, domain.Counts) {
	var (
		allowed bool
		counts  domain.Counts
	)
	s.withEntry(key, func(e *windowEntry) {
		now := s.now()
		counts = e.counts(now)
		allowed = !counts.Exceeds(s.limits)
		if allowed {
			e.record(now)
		}
	})
	return allowed, counts
}

// withEntry executa fn com o lock do cliente. Se o janitor remover a entrada
// entre o lookup e o lock, busca de novo.
func (s *WindowStore) withEntry(key domain.Key, fn func(*windowEntry)) {
	for {
		s.mu.Lock()
		e, ok := s.entries[key]
		if !ok {
			e = &windowEntry{}
			s.entries[key] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			continue
		}
		fn(e)
		e.mu.Unlock()
		return
	}
}

// counts purga o histórico e lê os três contadores com o mesmo instante de referência.
func (e *windowEntry) counts(now time.Time) domain.Counts {
	e.purge(now)

	minuteAgo := now.Add(-minuteWindow)
	firstInMinute := sort.Search(len(e.history), func(i int) bool {
		return e.history[i].After(minuteAgo)
	})

	if !e.burstStart.IsZero() && now.Sub(e.burstStart) > burstWindow {
		e.burstCount = 0
		e.burstStart = time.Time{}
	}

	return domain.Counts{
		Minute: len(e.history) - firstInMinute,
		Hour:   len(e.history),
		Burst:  e.burstCount,
	}
}

func (e *windowEntry) purge(now time.Time) {
	hourAgo := now.Add(-hourWindow)
	i := sort.Search(len(e.history), func(i int) bool {
		return !e.history[i].Before(hourAgo)
	})
	if i == 0 {
		return
	}
	if i == len(e.history) {
		e.history = nil
		return
	}
	e.history = append(e.history[:0], e.history[i:]...)
}

func (e *windowEntry) record(now time.Time) {
	e.history = append(e.history, now)
	e.burstCount++
	if e.burstStart.IsZero() {
		e.burstStart = now
	}
}

// idle diz se a entrada não tem histórico e a janela de rajada já expirou.
func (e *windowEntry) idle(now time.Time) bool {
	e.purge(now)
	if len(e.history) > 0 {
		return false
	}
	return e.burstStart.IsZero() || now.Sub(e.burstStart) > burstWindow
}

// Cleanup remove clientes sem histórico na última hora e sem rajada em andamento.
// Devolve quantas entradas foram removidas.
func (s *WindowStore) Cleanup() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		e.mu.Lock()
		if e.idle(now) {
			e.removed = true
			delete(s.entries, k)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// Len devolve quantos clientes estão sendo acompanhados.
func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor varre os clientes inativos a cada CleanupEvery até ctx ser
// cancelado. O canal devolvido fecha quando a goroutine termina; com
// CleanupEvery <= 0 nada é iniciado e o canal já vem fechado.
func (s *WindowStore) StartJanitor(ctx context.Context) <-chan struct{} {
	stopped := make(chan struct{})
	if s.cleanupEvery <= 0 {
		close(stopped)
		return stopped
	}

	go func() {
		defer close(stopped)
		t := time.NewTicker(s.cleanupEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
	return stopped
}
