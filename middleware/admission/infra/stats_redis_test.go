package infra

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admission-gateway/middleware/admission/domain"
)

func TestRedisStatsStore_NilIsNoop(t *testing.T) {
	var s *RedisStatsStore
	assert.NoError(t, s.Record(context.Background(), domain.StatsEvent{}))

	assert.NoError(t, NewRedisStatsStore(nil).Record(context.Background(), domain.StatsEvent{}))
}

func TestRedisStatsStore_Options(t *testing.T) {
	s := NewRedisStatsStore(nil,
		WithStatsPrefix(":gw:stats:"),
		WithStatsTTL(time.Hour),
		WithStatsBucket(" NONE "),
		WithStatsTrackKeys(true))

	assert.Equal(t, "gw:stats", s.prefix)
	assert.Equal(t, time.Hour, s.ttl)
	assert.Equal(t, "none", s.bucket)
	assert.True(t, s.trackKeys)
}

func TestRedisStatsStore_MinuteKey(t *testing.T) {
	s := NewRedisStatsStore(nil)
	at := time.Date(2024, 5, 1, 9, 7, 59, 0, time.FixedZone("BRT", -3*3600))

	assert.Equal(t, "admission:stats:minute:202405011207", s.minuteKey(at))
}

func TestRedisStatsStore_ReportsConnectionErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStatsStore(rdb, WithStatsTrackKeys(true))
	err := s.Record(context.Background(), domain.StatsEvent{
		Key:        "10.0.0.1",
		Method:     "POST",
		Endpoint:   "/text-to-image",
		StatusCode: 503,
		ErrorKind:  domain.KindQueueTimeout,
		Duration:   time.Second,
	})
	require.Error(t, err)
}

func TestRouteField(t *testing.T) {
	assert.Equal(t, "POST /text-to-image", routeField(" POST ", "/text-to-image "))
	assert.Equal(t, "/x", routeField("", "/x"))
	assert.Equal(t, "", routeField("", ""))
}
