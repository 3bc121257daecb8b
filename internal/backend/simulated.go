package backend

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"admission-gateway/middleware/admission"
)

// pixel PNG 1x1; o motor simulado não gera imagem de verdade.
const placeholderPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8/5+hHgAHggJ/PchI7wAAAABJRU5ErkJggg=="

const simulatedModel = "simulated-diffusion"

type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	// Image só é usado em /image-to-image (base64).
	Image string `json:"image,omitempty"`
}

type ImageResponse struct {
	Success  bool           `json:"success"`
	Image    string         `json:"image,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Simulated imita o servidor de inferência: espera Latency (ou o cliente sair)
// e devolve uma imagem fixa.
type Simulated struct {
	Latency time.Duration
	Logger  *zap.Logger
	Now     func() time.Time
}

func NewSimulated(latency time.Duration, logger *zap.Logger) *Simulated {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulated{Latency: latency, Logger: logger, Now: time.Now}
}

func (s *Simulated) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := GenerateRequest{Width: 512, Height: 512}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			admission.WriteError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", nil)
			return
		}
	}

	start := s.Now()
	if s.Latency > 0 {
		t := time.NewTimer(s.Latency)
		select {
		case <-t.C:
		case <-r.Context().Done():
			t.Stop()
			s.Logger.Debug("generation cancelled",
				zap.String("request_id", admission.RequestID(r.Context())))
			return
		}
	}
	elapsed := s.Now().Sub(start)

	resp := ImageResponse{
		Success: true,
		Image:   placeholderPNG,
		Metadata: map[string]any{
			"width":          req.Width,
			"height":         req.Height,
			"inference_time": elapsed.Seconds(),
			"model":          simulatedModel,
			"mode":           r.URL.Path,
			"timestamp":      s.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
