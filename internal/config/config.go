// Package config carrega a configuração do gateway.
//
// Camadas, da menor para a maior precedência: padrões, arquivo YAML opcional e
// variáveis de ambiente com prefixo GATEWAY_ ("rate_limit.burst_size" vira
// GATEWAY_RATE_LIMIT_BURST_SIZE). Depois de carregada a configuração não muda.
package config

import (
	"time"

	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/domain"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Upstream    UpstreamConfig    `mapstructure:"upstream" yaml:"upstream"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit" yaml:"rate_limit"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Stats       StatsConfig       `mapstructure:"stats" yaml:"stats"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	ListenAddr        string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	// WriteTimeout precisa cobrir queue_timeout + tempo de geração.
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// UpstreamConfig aponta para o servidor de inferência. Com Simulate o gateway
// usa um motor falso em processo.
type UpstreamConfig struct {
	URL             string        `mapstructure:"url" yaml:"url"`
	Simulate        bool          `mapstructure:"simulate" yaml:"simulate"`
	SimulateLatency time.Duration `mapstructure:"simulate_latency" yaml:"simulate_latency"`
}

type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	RequestsPerHour   int           `mapstructure:"requests_per_hour" yaml:"requests_per_hour"`
	BurstSize         int           `mapstructure:"burst_size" yaml:"burst_size"`
	KeyHeader         string        `mapstructure:"key_header" yaml:"key_header"`
	TrustForwardedFor bool          `mapstructure:"trust_forwarded_for" yaml:"trust_forwarded_for"`
	ExemptPaths       []string      `mapstructure:"exempt_paths" yaml:"exempt_paths"`
	CleanupEvery      time.Duration `mapstructure:"cleanup_every" yaml:"cleanup_every"`
	RetryAfter        time.Duration `mapstructure:"retry_after" yaml:"retry_after"`
}

type ConcurrencyConfig struct {
	MaxConcurrentRequests int           `mapstructure:"max_concurrent_requests" yaml:"max_concurrent_requests"`
	QueueTimeout          time.Duration `mapstructure:"queue_timeout" yaml:"queue_timeout"`
	GatedPaths            []string      `mapstructure:"gated_paths" yaml:"gated_paths"`
	SlowWaitThreshold     time.Duration `mapstructure:"slow_wait_threshold" yaml:"slow_wait_threshold"`
	OverloadRetryAfter    time.Duration `mapstructure:"overload_retry_after" yaml:"overload_retry_after"`
}

// StatsConfig controla a exportação opcional de eventos para o Redis.
type StatsConfig struct {
	RedisEnabled  bool          `mapstructure:"redis_enabled" yaml:"redis_enabled"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db"`
	Prefix        string        `mapstructure:"prefix" yaml:"prefix"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Bucket        string        `mapstructure:"bucket" yaml:"bucket"`
	TrackKeys     bool          `mapstructure:"track_keys" yaml:"track_keys"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Pipeline traduz a configuração para os parâmetros do pipeline de admissão.
func (c Config) Pipeline() admission.Config {
	return admission.Config{
		RateLimitEnabled: c.RateLimit.Enabled,
		Limits: domain.Limits{
			RequestsPerMinute: c.RateLimit.RequestsPerMinute,
			RequestsPerHour:   c.RateLimit.RequestsPerHour,
			BurstSize:         c.RateLimit.BurstSize,
		},
		KeyHeader:          c.RateLimit.KeyHeader,
		TrustProxy:         c.RateLimit.TrustForwardedFor,
		ExemptPaths:        c.RateLimit.ExemptPaths,
		RetryAfter:         c.RateLimit.RetryAfter,
		CleanupEvery:       c.RateLimit.CleanupEvery,
		MaxConcurrent:      c.Concurrency.MaxConcurrentRequests,
		QueueTimeout:       c.Concurrency.QueueTimeout,
		GatedPaths:         c.Concurrency.GatedPaths,
		SlowWaitThreshold:  c.Concurrency.SlowWaitThreshold,
		OverloadRetryAfter: c.Concurrency.OverloadRetryAfter,
	}
}

// Redacted devolve uma cópia sem segredos, para exibição.
func (c Config) Redacted() Config {
	if c.Stats.RedisPassword != "" {
		c.Stats.RedisPassword = "********"
	}
	return c
}
