package domain

import (
	"context"
	"time"
)

// EndpointStats acumula o tráfego de um endpoint.
type EndpointStats struct {
	Count         int64         `json:"count"`
	TotalDuration time.Duration `json:"total_duration"`
	ErrorCount    int64         `json:"error_count"`
}

// AvgDuration é TotalDuration / Count (0 quando não há requisições).
func (s EndpointStats) AvgDuration() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Count)
}

// AggregateMetrics são os totais acumulados desde o último reset.
type AggregateMetrics struct {
	RequestCount  int64                    `json:"request_count"`
	ErrorCount    int64                    `json:"error_count"`
	TotalDuration time.Duration            `json:"total_duration"`
	Endpoints     map[string]EndpointStats `json:"endpoint_stats"`
	ErrorKinds    map[string]int64         `json:"error_stats"`
}

// AvgDuration é TotalDuration / RequestCount (0 quando não há requisições).
func (m AggregateMetrics) AvgDuration() time.Duration {
	if m.RequestCount == 0 {
		return 0
	}
	return m.TotalDuration / time.Duration(m.RequestCount)
}

// StatsEvent representa uma requisição concluída.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Endpoint são strings genéricas.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key/Endpoint sem controle pode
// explodir o número de séries/chaves em uma base como Redis/Prometheus).
type StatsEvent struct {
	Key        Key
	Method     string
	Endpoint   string
	StatusCode int
	ErrorKind  string
	Duration   time.Duration

	At time.Time
}

// StatsStore é a estratégia de exportação dos eventos de requisição concluída.
//
// Implementações podem armazenar em Redis, Postgres, memória, etc.
// O middleware deve tratar erro como best-effort (não derrubar request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
