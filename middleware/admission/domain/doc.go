// Package domain define contratos e tipos de domínio para admissão de requisições:
// rate limit por cliente, limite de concorrência com fila, rastreio de requisições
// e agregação de métricas.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura.
package domain
