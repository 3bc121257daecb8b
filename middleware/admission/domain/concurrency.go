package domain

import (
	"context"
	"time"
)

// Lease é o direito de usar uma vaga de concorrência.
//
// Release deve ser chamado em todo caminho de saída; chamadas extras são ignoradas.
type Lease interface {
	Release()
	// Waited é quanto tempo a requisição ficou na fila até conseguir a vaga.
	Waited() time.Duration
}

// GateStats é uma leitura dos contadores do gate.
type GateStats struct {
	Active   int `json:"active_requests"`
	Queued   int `json:"queued_requests"`
	Capacity int `json:"max_concurrent"`
	MaxQueue int `json:"max_queue"`
}

// SlotGate representa um recurso com capacidade finita e fila limitada.
//
// A semântica é: Admit rejeita na hora se a fila estiver cheia, senão espera
// até conseguir uma vaga, até o timeout ou até o ctx encerrar.
// Quando falha, o erro é um *GateError e nenhuma vaga foi consumida.
type SlotGate interface {
	Admit(ctx context.Context, timeout time.Duration) (Lease, error)
	Stats() GateStats
}
