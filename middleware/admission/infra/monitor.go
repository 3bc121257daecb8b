package infra

import (
	"context"
	"maps"
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// Monitor agrega as requisições concluídas em contadores globais, por endpoint
// e por tipo de erro.
//
// Tudo fica em memória; não faz expiração. Reset zera tudo de uma vez.
type Monitor struct {
	mu      sync.Mutex
	metrics domain.AggregateMetrics
}

func NewMonitor() *Monitor {
	m := &Monitor{}
	m.resetLocked()
	return m
}

// RecordRequest acumula uma requisição. Status >= 400 conta como erro
// (global e no endpoint); errorKind, se informado, também conta por tipo.
func (m *Monitor) RecordRequest(endpoint string, duration time.Duration, statusCode int, errorKind string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.RequestCount++
	m.metrics.TotalDuration += duration

	ep := m.metrics.Endpoints[endpoint]
	ep.Count++
	ep.TotalDuration += duration

	if statusCode >= 400 {
		m.metrics.ErrorCount++
		ep.ErrorCount++
		if errorKind != "" {
			m.metrics.ErrorKinds[errorKind]++
		}
	}
	m.metrics.Endpoints[endpoint] = ep
}

// Record implementa domain.StatsStore.
func (m *Monitor) Record(_ context.Context, ev domain.StatsEvent) error {
	m.RecordRequest(ev.Endpoint, ev.Duration, ev.StatusCode, ev.ErrorKind)
	return nil
}

// Snapshot devolve uma cópia dos totais atuais.
func (m *Monitor) Snapshot() domain.AggregateMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.metrics
	out.Endpoints = maps.Clone(m.metrics.Endpoints)
	out.ErrorKinds = maps.Clone(m.metrics.ErrorKinds)
	return out
}

// Reset zera todos os contadores.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *Monitor) resetLocked() {
	m.metrics = domain.AggregateMetrics{
		Endpoints:  make(map[string]domain.EndpointStats),
		ErrorKinds: make(map[string]int64),
	}
}
