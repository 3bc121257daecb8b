package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"admission-gateway/middleware/admission"
)

const (
	codeNotFound         = "NOT_FOUND"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

func (s *Server) routes() {
	r := s.router

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		admission.WriteError(w, req, http.StatusNotFound, codeNotFound, "the requested resource was not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		admission.WriteError(w, req, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed for this resource", nil)
	})

	r.Get("/", s.handleInfo)
	r.Get("/info", s.handleInfo)
	r.Get("/health", s.handleHealth)

	for _, path := range s.cfg.Concurrency.GatedPaths {
		r.Post(path, s.backend.ServeHTTP)
	}

	r.Route("/admin", func(r chi.Router) {
		r.Get("/metrics", s.handleMetrics)
		r.Post("/metrics/reset", s.handleMetricsReset)
		r.Get("/requests", s.handleRequests)
	})
}
