package application

import (
	"context"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// ConcurrencyService concentra a regra de admissão no gate com timeout de fila,
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Gate         domain.SlotGate
	QueueTimeout time.Duration
}

type noopLease struct{}

func (noopLease) Release()              {}
func (noopLease) Waited() time.Duration { return 0 }

// Admit tenta conseguir uma vaga.
// - Sem Gate, sempre admite.
// - Se `QueueTimeout <= 0`, espera indefinidamente (até ctx cancelar).
// - Se `QueueTimeout > 0`, espera até o timeout.
// Se err != nil, nenhuma vaga foi adquirida e o erro é um *domain.GateError.
func (s ConcurrencyService) Admit(ctx context.Context) (domain.Lease, error) {
	if s.Gate == nil {
		return noopLease{}, nil
	}
	return s.Gate.Admit(ctx, s.QueueTimeout)
}

// Run executa fn dentro de uma vaga. A vaga é liberada em qualquer saída,
// inclusive panic em fn.
func (s ConcurrencyService) Run(ctx context.Context, fn func(domain.Lease) error) error {
	lease, err := s.Admit(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()
	return fn(lease)
}
