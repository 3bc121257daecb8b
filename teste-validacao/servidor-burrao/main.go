// servidor-burrao é um motor de inferência falso para validar o gateway em
// modo proxy (GATEWAY_UPSTREAM_URL=http://localhost:8081). Não tem admissão
// nenhuma: aceita tudo e demora LATENCY para responder.
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
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"admission-gateway/internal/backend"
	"admission-gateway/internal/observability"
)

func main() {
	logger, err := observability.NewLogger(os.Getenv("LOG_LEVEL"), "console")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	latency := 2 * time.Second
	if v := os.Getenv("LATENCY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			logger.Fatal("invalid LATENCY", zap.String("value", v), zap.Error(err))
		}
		latency = d
	}

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	engine := backend.NewSimulated(latency, logger.Named("engine"))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Post("/text-to-image", engine.ServeHTTP)
	r.Post("/image-to-image", engine.ServeHTTP)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","model_loaded":true}` + "\n"))
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("fake inference engine listening", zap.String("addr", addr), zap.Duration("latency", latency))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
