package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"admission-gateway/internal/backend"
	"admission-gateway/internal/config"
	"admission-gateway/internal/observability"
	"admission-gateway/internal/server"
	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/infra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		Long: `Start the gateway HTTP server.

SIGINT or SIGTERM stops accepting connections and waits up to
server.shutdown_timeout for in-flight requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configFile)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(parent context.Context, cfg config.Config) error {
	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := []admission.Option{admission.WithLogger(logger)}
	if cfg.Stats.RedisEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:         cfg.Stats.RedisAddr,
			Password:     cfg.Stats.RedisPassword,
			DB:           cfg.Stats.RedisDB,
			DialTimeout:  time.Second,
			ReadTimeout:  200 * time.Millisecond,
			WriteTimeout: 200 * time.Millisecond,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			return fmt.Errorf("redis stats ping: %w", err)
		}

		opts = append(opts, admission.WithStatsStore(infra.NewRedisStatsStore(rdb,
			infra.WithStatsPrefix(cfg.Stats.Prefix),
			infra.WithStatsTTL(cfg.Stats.TTL),
			infra.WithStatsBucket(cfg.Stats.Bucket),
			infra.WithStatsTrackKeys(cfg.Stats.TrackKeys),
		)))
	}

	pipeline := admission.NewPipeline(cfg.Pipeline(), opts...)
	pipeline.StartJanitor(ctx)

	var be http.Handler
	if cfg.Upstream.Simulate {
		be = backend.NewSimulated(cfg.Upstream.SimulateLatency, logger.Named("engine"))
	} else {
		target, err := url.Parse(cfg.Upstream.URL)
		if err != nil {
			return fmt.Errorf("upstream.url: %w", err)
		}
		be = backend.NewProxy(target, logger.Named("proxy"))
	}

	rl, cc := cfg.RateLimit, cfg.Concurrency
	logger.Info("starting gateway",
		zap.String("version", server.Version),
		zap.String("addr", cfg.Server.ListenAddr),
		zap.String("upstream", upstreamLabel(cfg.Upstream)),
		zap.Bool("rate_limit", rl.Enabled),
		zap.Int("requests_per_minute", rl.RequestsPerMinute),
		zap.Int("requests_per_hour", rl.RequestsPerHour),
		zap.Int("burst_size", rl.BurstSize),
		zap.String("key_header", rl.KeyHeader),
		zap.Bool("trust_forwarded_for", rl.TrustForwardedFor),
		zap.Int("max_concurrent", cc.MaxConcurrentRequests),
		zap.Duration("queue_timeout", cc.QueueTimeout),
		zap.Bool("redis_stats", cfg.Stats.RedisEnabled))

	if err := server.New(cfg, pipeline, be, logger).Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("gateway stopped")
	return nil
}

func upstreamLabel(u config.UpstreamConfig) string {
	if u.Simulate {
		return "simulated (" + u.SimulateLatency.String() + ")"
	}
	return u.URL
}
