package admission

import (
	"encoding/json"
	"net/http"
)

// Códigos de erro do envelope JSON.
const (
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeServiceOverloaded = "SERVICE_OVERLOADED"
	CodeQueueTimeout      = "QUEUE_TIMEOUT"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeBadGateway        = "BAD_GATEWAY"
)

// ErrorResponse é o envelope de erro devolvido pelo gateway.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// WriteError escreve o envelope JSON com o status informado.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	resp := ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: RequestID(r.Context()),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
