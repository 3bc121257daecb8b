package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

type Key string

// Limits são os limites configurados para cada cliente.
type Limits struct {
	RequestsPerMinute int
	RequestsPerHour   int
	BurstSize         int
}

// Counts é a leitura dos contadores de um cliente num instante de referência.
type Counts struct {
	Minute int
	Hour   int
	Burst  int
}

// Exceeds diz se algum dos limites foi atingido. Os limites são avaliados de
// forma independente: basta um estourar para negar a requisição inteira.
func (c Counts) Exceeds(l Limits) bool {
	return c.Minute >= l.RequestsPerMinute ||
		c.Hour >= l.RequestsPerHour ||
		c.Burst >= l.BurstSize
}

// Limiter decide e registra requisições por chave de cliente.
//
// Check não altera o histórico. Record registra uma requisição aceita.
// Take faz os dois de forma atômica: só registra se a requisição for permitida.
type Limiter interface {
	Check(Key) (allowed bool, counts Counts)
	Record(Key)
	Take(Key) (allowed bool, counts Counts)
	Limits() Limits
}

type Decision struct {
	Allowed bool
	// Counts são os contadores lidos antes do registro desta requisição.
	Counts Counts
	Limits Limits
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

// RemainingMinute devolve quantas requisições ainda cabem na janela de um minuto.
func (d Decision) RemainingMinute() int {
	return max(0, d.Limits.RequestsPerMinute-d.Counts.Minute)
}

// RemainingHour devolve quantas requisições ainda cabem na janela de uma hora.
func (d Decision) RemainingHour() int {
	return max(0, d.Limits.RequestsPerHour-d.Counts.Hour)
}
