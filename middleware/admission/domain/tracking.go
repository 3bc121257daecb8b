package domain

import "time"

// RequestRecord é o ciclo de vida de uma requisição em andamento.
//
// ID é sempre gerado pelo servidor; o X-Request-ID enviado pelo cliente fica
// em CorrelationID e pode se repetir entre requisições simultâneas.
// StartTime/EndTime usam o relógio do Tracker. EndTime, StatusCode, Duration e
// ErrorDetail só são preenchidos quando a requisição termina.
type RequestRecord struct {
	ID            string    `json:"request_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Endpoint      string    `json:"endpoint"`
	Method        string    `json:"method"`
	ClientKey     Key       `json:"client_key"`
	StartTime     time.Time `json:"start_time"`

	EndTime     time.Time     `json:"end_time,omitzero"`
	Duration    time.Duration `json:"duration,omitempty"`
	StatusCode  int           `json:"status_code,omitempty"`
	ErrorDetail string        `json:"error,omitempty"`
}

// Completed diz se o registro já foi encerrado.
func (r RequestRecord) Completed() bool { return !r.EndTime.IsZero() }
