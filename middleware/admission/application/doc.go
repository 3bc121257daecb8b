// Package application decide a admissão sem saber de HTTP.
//
// RateLimitService.Decide(key) verifica e registra numa única operação e devolve
// a Decision com os contadores lidos. ConcurrencyService.Admit(ctx) aplica o
// timeout de fila configurado e devolve a Lease (ou um *domain.GateError).
package application
