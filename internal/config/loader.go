package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const EnvPrefix = "GATEWAY"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 330*time.Second)
	v.SetDefault("server.idle_timeout", 90*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("upstream.url", "")
	v.SetDefault("upstream.simulate", false)
	v.SetDefault("upstream.simulate_latency", 2*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 60)
	v.SetDefault("rate_limit.requests_per_hour", 1000)
	v.SetDefault("rate_limit.burst_size", 10)
	v.SetDefault("rate_limit.key_header", "")
	v.SetDefault("rate_limit.trust_forwarded_for", true)
	v.SetDefault("rate_limit.exempt_paths", []string{"/health", "/info", "/", "/docs", "/openapi.json"})
	v.SetDefault("rate_limit.cleanup_every", 5*time.Minute)
	v.SetDefault("rate_limit.retry_after", 60*time.Second)

	v.SetDefault("concurrency.max_concurrent_requests", 4)
	v.SetDefault("concurrency.queue_timeout", 30*time.Second)
	v.SetDefault("concurrency.gated_paths", []string{"/text-to-image", "/image-to-image"})
	v.SetDefault("concurrency.slow_wait_threshold", time.Second)
	v.SetDefault("concurrency.overload_retry_after", 30*time.Second)

	v.SetDefault("stats.redis_enabled", false)
	v.SetDefault("stats.redis_addr", "")
	v.SetDefault("stats.redis_password", "")
	v.SetDefault("stats.redis_db", 0)
	v.SetDefault("stats.prefix", "admission:stats")
	v.SetDefault("stats.ttl", 24*time.Hour)
	v.SetDefault("stats.bucket", "minute")
	v.SetDefault("stats.track_keys", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load lê padrões, o arquivo (se file != "") e o ambiente, e valida o resultado.
func Load(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.RateLimit.ExemptPaths = trimAll(cfg.RateLimit.ExemptPaths)
	cfg.Concurrency.GatedPaths = trimAll(cfg.Concurrency.GatedPaths)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
