package infra

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// Tracker guarda as requisições em andamento, indexadas pelo request id.
type Tracker struct {
	mu     sync.Mutex
	active map[string]domain.RequestRecord
	now    func() time.Time
}

type TrackerOption func(*Tracker)

func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		active: make(map[string]domain.RequestRecord),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start registra rec como ativo, carimbando StartTime. O ID precisa ser único
// entre as requisições ativas: um ID já em uso devolve ErrDuplicateRequest e
// não mexe no registro existente.
func (t *Tracker) Start(rec domain.RequestRecord) (domain.RequestRecord, error) {
	rec.StartTime = t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.active[rec.ID]; dup {
		return domain.RequestRecord{}, fmt.Errorf("%w: %s", domain.ErrDuplicateRequest, rec.ID)
	}
	t.active[rec.ID] = rec
	return rec, nil
}

// End remove a requisição do conjunto ativo e devolve o registro completo.
// Para id desconhecido (nunca iniciado ou já encerrado) devolve ok=false.
func (t *Tracker) End(id string, statusCode int, errorDetail string) (domain.RequestRecord, bool) {
	t.mu.Lock()
	rec, ok := t.active[id]
	if ok {
		delete(t.active, id)
	}
	t.mu.Unlock()

	if !ok {
		return domain.RequestRecord{}, false
	}

	rec.EndTime = t.now()
	rec.Duration = rec.EndTime.Sub(rec.StartTime)
	rec.StatusCode = statusCode
	rec.ErrorDetail = errorDetail
	return rec, true
}

// Active devolve uma cópia das requisições em andamento, da mais antiga para a mais nova.
func (t *Tracker) Active() []domain.RequestRecord {
	t.mu.Lock()
	out := make([]domain.RequestRecord, 0, len(t.active))
	for _, rec := range t.active {
		out = append(out, rec)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}
