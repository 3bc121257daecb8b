package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"admission-gateway/middleware/admission/domain"
)

// RedisStatsStore exporta os eventos de requisição concluída para hashes no Redis.
//
// É só exportação: o rate limit e o gate continuam locais ao processo.
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl aplica apenas em chaves de série temporal / por key.
	// total é cumulativo e não expira.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "admission:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record implementa domain.StatsStore.
func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	isErr := ev.StatusCode >= 400
	durMs := ev.Duration.Milliseconds()

	pipe := s.rdb.Pipeline()

	totalKey := s.prefix + ":total"
	pipe.HIncrBy(ctx, totalKey, "requests", 1)
	pipe.HIncrBy(ctx, totalKey, "duration_ms", durMs)
	if isErr {
		pipe.HIncrBy(ctx, totalKey, "errors", 1)
	}

	if s.bucket == "minute" {
		bucketKey := s.minuteKey(at)
		pipe.HIncrBy(ctx, bucketKey, "requests", 1)
		if isErr {
			pipe.HIncrBy(ctx, bucketKey, "errors", 1)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if route := routeField(ev.Method, ev.Endpoint); route != "" {
		endpointKey := s.prefix + ":endpoint"
		pipe.HIncrBy(ctx, endpointKey, route+":requests", 1)
		pipe.HIncrBy(ctx, endpointKey, route+":duration_ms", durMs)
		if isErr {
			pipe.HIncrBy(ctx, endpointKey, route+":errors", 1)
		}
	}

	if isErr && ev.ErrorKind != "" {
		pipe.HIncrBy(ctx, s.prefix+":errors", ev.ErrorKind, 1)
	}

	if s.trackKeys {
		k := strings.TrimSpace(string(ev.Key))
		if k != "" {
			keyKey := s.prefix + ":key:" + k
			pipe.HIncrBy(ctx, keyKey, "requests", 1)
			if isErr {
				pipe.HIncrBy(ctx, keyKey, "errors", 1)
			}
			if s.ttl > 0 {
				pipe.Expire(ctx, keyKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStatsStore) minuteKey(at time.Time) string {
	return fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
}

func routeField(method, endpoint string) string {
	return strings.TrimSpace(strings.TrimSpace(method) + " " + strings.TrimSpace(endpoint))
}
