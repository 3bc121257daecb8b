// Package server monta o roteador HTTP do gateway atrás do pipeline de admissão.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"admission-gateway/internal/config"
	"admission-gateway/middleware/admission"
)

const ServiceName = "admission-gateway"

// Version é preenchido no build (-ldflags "-X admission-gateway/internal/server.Version=...").
var Version = "dev"

type Server struct {
	cfg      config.Config
	pipeline *admission.Pipeline
	backend  http.Handler
	router   chi.Router
	handler  http.Handler
	logger   *zap.Logger
	started  time.Time
}

// New monta as rotas. backend atende as rotas de inferência.
func New(cfg config.Config, pipeline *admission.Pipeline, backend http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		backend:  backend,
		router:   chi.NewRouter(),
		logger:   logger,
		started:  time.Now(),
	}
	s.routes()
	// o pipeline fica por fora do roteador: 404/405 também são rastreados
	s.handler = pipeline.Handler(s.router)
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

// Run atende em cfg.Server.ListenAddr até ctx encerrar e então faz shutdown gracioso.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve é o Run com um listener já aberto.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       s.cfg.Server.IdleTimeout,
		ErrorLog:          zap.NewStdLog(s.logger.Named("http")),
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	s.logger.Info("gateway listening", zap.String("addr", ln.Addr().String()))
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-shutdownDone
		return nil
	}
	return err
}
