package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrServiceOverloaded = errors.New("service overloaded")
	ErrQueueTimeout      = errors.New("queue timeout")
	// ErrQueueAbandoned indica que o cliente desistiu (ctx cancelado) enquanto esperava na fila.
	ErrQueueAbandoned = errors.New("queue wait abandoned")
	// ErrDuplicateRequest: o tracker já tem uma requisição ativa com esse id.
	ErrDuplicateRequest = errors.New("request id already active")
)

// Tipos de erro usados nas métricas por categoria.
const (
	KindRateLimitExceeded = "RateLimitExceeded"
	KindServiceOverloaded = "ServiceOverloaded"
	KindQueueTimeout      = "QueueTimeout"
	KindQueueAbandoned    = "QueueAbandoned"
	KindUpstream          = "UpstreamError"
	KindPanic             = "Panic"
)

// RateLimitError carrega os contadores e limites do cliente no momento da negação.
type RateLimitError struct {
	Key        Key
	Counts     Counts
	Limits     Limits
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q: minute=%d/%d hour=%d/%d burst=%d/%d",
		e.Key,
		e.Counts.Minute, e.Limits.RequestsPerMinute,
		e.Counts.Hour, e.Limits.RequestsPerHour,
		e.Counts.Burst, e.Limits.BurstSize)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }

// GateError é a falha de admissão no gate de concorrência.
//
// Err é sempre um dos sentinelas ErrServiceOverloaded, ErrQueueTimeout ou ErrQueueAbandoned.
type GateError struct {
	Err     error
	Stats   GateStats
	Timeout time.Duration
	Waited  time.Duration
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%v (active=%d queued=%d capacity=%d waited=%s)",
		e.Err, e.Stats.Active, e.Stats.Queued, e.Stats.Capacity, e.Waited)
}

func (e *GateError) Unwrap() error { return e.Err }

// ErrorKind classifica um erro de admissão. Devolve "" para erros desconhecidos.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrRateLimitExceeded):
		return KindRateLimitExceeded
	case errors.Is(err, ErrServiceOverloaded):
		return KindServiceOverloaded
	case errors.Is(err, ErrQueueTimeout):
		return KindQueueTimeout
	case errors.Is(err, ErrQueueAbandoned):
		return KindQueueAbandoned
	default:
		return ""
	}
}
