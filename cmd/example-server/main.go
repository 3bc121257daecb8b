package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"admission-gateway/internal/backend"
	"admission-gateway/internal/observability"
	"admission-gateway/middleware/admission"
)

func main() {
	// Exemplo: injetando o pipeline de admissão direto no seu webserver (sem proxy)
	logger, err := observability.NewLogger("info", "console")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := admission.DefaultConfig()
	cfg.KeyHeader = "X-Api-Key" // ou vazio para usar IP
	cfg.MaxConcurrent = 2
	cfg.QueueTimeout = 10 * time.Second

	pipeline := admission.NewPipeline(cfg, admission.WithLogger(logger))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	pipeline.StartJanitor(ctx)

	engine := backend.NewSimulated(3*time.Second, logger.Named("engine"))

	r := chi.NewRouter()
	r.Post("/text-to-image", engine.ServeHTTP)
	r.Post("/image-to-image", engine.ServeHTTP)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	addr := ":8090"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           pipeline.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
