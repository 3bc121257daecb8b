package application

import (
	"time"

	"admission-gateway/middleware/admission/domain"
)

const DefaultRetryAfter = 60 * time.Second

// RateLimitService concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type RateLimitService struct {
	Limiter    domain.Limiter
	RetryAfter time.Duration
}

// Decide verifica e, se permitido, registra a requisição do cliente.
func (s RateLimitService) Decide(key domain.Key) domain.Decision {
	if s.Limiter == nil {
		return domain.Decision{Allowed: true}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = DefaultRetryAfter
	}

	allowed, counts := s.Limiter.Take(key)
	dec := domain.Decision{
		Allowed: allowed,
		Counts:  counts,
		Limits:  s.Limiter.Limits(),
	}
	if !allowed {
		dec.RetryAfter = s.RetryAfter
	}
	return dec
}

// Err converte uma decisão negada em *domain.RateLimitError (nil se permitida).
func (s RateLimitService) Err(key domain.Key, dec domain.Decision) error {
	if dec.Allowed {
		return nil
	}
	return &domain.RateLimitError{
		Key:        key,
		Counts:     dec.Counts,
		Limits:     dec.Limits,
		RetryAfter: dec.RetryAfter,
	}
}
