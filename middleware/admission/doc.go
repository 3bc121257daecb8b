// Package admission fornece adapters HTTP (net/http) para o controle de admissão
// na frente de um backend síncrono e caro (inferência de imagens).
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, admissão com timeout) sem net/http
//   - infra: implementações concretas (janela deslizante, gate FIFO, tracker, métricas, Redis)
//   - admission (este pacote): middlewares HTTP + wiring/extração de chave + tradução para status/headers
//
// Fluxo no gateway:
//
//  1. Gera/propaga o X-Request-ID e extrai a chave do cliente (header/XFF/IP),
//     exceto nos caminhos isentos
//  2. Rate limit por cliente: 429 se qualquer janela (minuto/hora/rajada) estourar
//  3. Nas rotas de inferência, gate de concorrência: fila de até 2x a capacidade,
//     503 se a fila estiver cheia ou se a espera passar do timeout
//  4. Se admitido, chama o próximo handler (ex: reverse proxy para o backend)
//  5. Em qualquer saída, fecha o registro no tracker e alimenta as métricas
package admission
