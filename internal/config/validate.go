package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const maxQueueTimeout = 300 * time.Second

// Validate devolve um erro apontando o primeiro campo inválido.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		return fmt.Errorf("server.listen_addr: must not be empty")
	}

	if !c.Upstream.Simulate {
		if strings.TrimSpace(c.Upstream.URL) == "" {
			return fmt.Errorf("upstream.url: required unless upstream.simulate=true")
		}
		u, err := url.Parse(c.Upstream.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("upstream.url: invalid url %q", c.Upstream.URL)
		}
	} else if c.Upstream.SimulateLatency < 0 {
		return fmt.Errorf("upstream.simulate_latency: must be >= 0")
	}

	rl := c.RateLimit
	if err := between("rate_limit.requests_per_minute", rl.RequestsPerMinute, 1, 1000); err != nil {
		return err
	}
	if err := between("rate_limit.requests_per_hour", rl.RequestsPerHour, 1, 10000); err != nil {
		return err
	}
	if err := between("rate_limit.burst_size", rl.BurstSize, 1, 100); err != nil {
		return err
	}
	if rl.RetryAfter <= 0 {
		return fmt.Errorf("rate_limit.retry_after: must be > 0")
	}
	if rl.CleanupEvery <= 0 {
		return fmt.Errorf("rate_limit.cleanup_every: must be > 0")
	}

	cc := c.Concurrency
	if err := between("concurrency.max_concurrent_requests", cc.MaxConcurrentRequests, 1, 100); err != nil {
		return err
	}
	if cc.QueueTimeout <= 0 || cc.QueueTimeout > maxQueueTimeout {
		return fmt.Errorf("concurrency.queue_timeout: must be in (0, %s], got %s", maxQueueTimeout, cc.QueueTimeout)
	}
	// lista vazia faria o gate enfileirar tudo, inclusive /health e /admin
	if len(cc.GatedPaths) == 0 {
		return fmt.Errorf("concurrency.gated_paths: must not be empty")
	}
	for _, p := range cc.GatedPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("concurrency.gated_paths: %q must start with /", p)
		}
	}
	if cc.SlowWaitThreshold < 0 {
		return fmt.Errorf("concurrency.slow_wait_threshold: must be >= 0")
	}
	if cc.OverloadRetryAfter <= 0 {
		return fmt.Errorf("concurrency.overload_retry_after: must be > 0")
	}

	if c.Stats.RedisEnabled {
		if strings.TrimSpace(c.Stats.RedisAddr) == "" {
			return fmt.Errorf("stats.redis_addr: required when stats.redis_enabled=true")
		}
		switch c.Stats.Bucket {
		case "minute", "none":
		default:
			return fmt.Errorf("stats.bucket: must be minute or none, got %q", c.Stats.Bucket)
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "console", "text":
	default:
		return fmt.Errorf("log.format: must be json or console, got %q", c.Log.Format)
	}
	return nil
}

func between(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s: must be between %d and %d, got %d", field, lo, hi, v)
	}
	return nil
}
