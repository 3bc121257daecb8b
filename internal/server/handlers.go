package server

import (
	"encoding/json"
	"net/http"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// HealthResponse é o corpo de GET /health.
type HealthResponse struct {
	Status         string           `json:"status"`
	Uptime         float64          `json:"uptime"`
	Concurrency    domain.GateStats `json:"concurrency"`
	ActiveRequests int              `json:"active_requests"`
	Timestamp      time.Time        `json:"timestamp"`
}

// InfoResponse é o corpo de GET /info.
type InfoResponse struct {
	ServiceName  string         `json:"service_name"`
	Version      string         `json:"version"`
	Limits       map[string]any `json:"limits"`
	APIEndpoints []string       `json:"api_endpoints"`
}

// EndpointMetrics são as métricas derivadas de um endpoint.
type EndpointMetrics struct {
	Count           int64   `json:"count"`
	ErrorCount      int64   `json:"error_count"`
	AvgResponseTime float64 `json:"avg_response_time"`
}

// MetricsResponse é o corpo de GET /admin/metrics. Tempos em segundos.
type MetricsResponse struct {
	RequestCount    int64                      `json:"request_count"`
	ErrorCount      int64                      `json:"error_count"`
	ErrorRate       float64                    `json:"error_rate"`
	AvgResponseTime float64                    `json:"avg_response_time"`
	EndpointStats   map[string]EndpointMetrics `json:"endpoint_stats"`
	ErrorStats      map[string]int64           `json:"error_stats"`
	ActiveRequests  int                        `json:"active_requests"`
	Concurrency     domain.GateStats           `json:"concurrency"`
}

// RequestsResponse é o corpo de GET /admin/requests.
type RequestsResponse struct {
	Count    int                    `json:"count"`
	Requests []domain.RequestRecord `json:"requests"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "healthy",
		Uptime:         time.Since(s.started).Seconds(),
		Concurrency:    s.pipeline.GateStats(),
		ActiveRequests: s.pipeline.Tracker().Len(),
		Timestamp:      time.Now().UTC(),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	pc := s.pipeline.Config()

	endpoints := append([]string{}, pc.GatedPaths...)
	endpoints = append(endpoints, "/health", "/info", "/admin/metrics", "/admin/requests")

	writeJSON(w, http.StatusOK, InfoResponse{
		ServiceName: ServiceName,
		Version:     Version,
		Limits: map[string]any{
			"rate_limit_enabled":      pc.RateLimitEnabled,
			"requests_per_minute":     pc.Limits.RequestsPerMinute,
			"requests_per_hour":       pc.Limits.RequestsPerHour,
			"burst_size":              pc.Limits.BurstSize,
			"max_concurrent_requests": pc.MaxConcurrent,
			"queue_timeout":           pc.QueueTimeout.Seconds(),
		},
		APIEndpoints: endpoints,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := s.pipeline.Monitor().Snapshot()

	resp := MetricsResponse{
		RequestCount:    snap.RequestCount,
		ErrorCount:      snap.ErrorCount,
		AvgResponseTime: snap.AvgDuration().Seconds(),
		EndpointStats:   make(map[string]EndpointMetrics, len(snap.Endpoints)),
		ErrorStats:      snap.ErrorKinds,
		ActiveRequests:  s.pipeline.Tracker().Len(),
		Concurrency:     s.pipeline.GateStats(),
	}
	if snap.RequestCount > 0 {
		resp.ErrorRate = float64(snap.ErrorCount) / float64(snap.RequestCount)
	}
	for ep, st := range snap.Endpoints {
		resp.EndpointStats[ep] = EndpointMetrics{
			Count:           st.Count,
			ErrorCount:      st.ErrorCount,
			AvgResponseTime: st.AvgDuration().Seconds(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetricsReset(w http.ResponseWriter, r *http.Request) {
	s.pipeline.Monitor().Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	active := s.pipeline.Tracker().Active()
	writeJSON(w, http.StatusOK, RequestsResponse{Count: len(active), Requests: active})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
