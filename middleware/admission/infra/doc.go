// Package infra implementa os contratos de domain em memória (e no Redis, para
// exportação de métricas).
//
//   - WindowStore: janela deslizante (minuto/hora) + rajada por cliente
//   - Gate: semáforo FIFO (golang.org/x/sync/semaphore) com fila limitada
//   - Tracker / Monitor: requisições em andamento e métricas agregadas
//   - RedisStatsStore: exportação best-effort dos eventos para Redis
package infra
