package infra

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admission-gateway/middleware/admission/domain"
)

func TestWindowStore_BurstDeniesUntilWindowElapses(t *testing.T) {
	clock := newFakeClock()
	s := NewWindowStore(domain.Limits{RequestsPerMinute: 100, RequestsPerHour: 1000, BurstSize: 3}, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		allowed, _ := s.Take("k")
		require.True(t, allowed, "request %d should pass", i+1)
		clock.Advance(time.Second)
	}

	allowed, counts := s.Take("k")
	assert.False(t, allowed)
	assert.Equal(t, 3, counts.Burst)

	// a janela de rajada começou no primeiro registro; 61s depois ela zera
	clock.Advance(59 * time.Second)
	allowed, counts = s.Take("k")
	assert.True(t, allowed)
	assert.Equal(t, 0, counts.Burst)
}

func TestWindowStore_MinuteQuotaDeniesEvenWithBurstLeft(t *testing.T) {
	clock := newFakeClock()
	s := NewWindowStore(domain.Limits{RequestsPerMinute: 2, RequestsPerHour: 1000, BurstSize: 10}, WithClock(clock.Now))

	for i := 0; i < 2; i++ {
		allowed, _ := s.Take("k")
		require.True(t, allowed)
	}

	allowed, counts := s.Take("k")
	assert.False(t, allowed)
	assert.Equal(t, domain.Counts{Minute: 2, Hour: 2, Burst: 2}, counts)

	clock.Advance(61 * time.Second)
	allowed, counts = s.Take("k")
	assert.True(t, allowed)
	assert.Equal(t, 0, counts.Minute)
	assert.Equal(t, 2, counts.Hour)
}

func TestWindowStore_EntriesOlderThanAnHourDoNotCount(t *testing.T) {
	clock := newFakeClock()
	s := NewWindowStore(domain.Limits{RequestsPerMinute: 100, RequestsPerHour: 3, BurstSize: 100}, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		allowed, _ := s.Take("k")
		require.True(t, allowed)
		clock.Advance(10 * time.Minute)
	}

	allowed, counts := s.Take("k")
	assert.False(t, allowed)
	assert.Equal(t, 3, counts.Hour)

	// t=0 sai da janela de uma hora; t=10m e t=20m continuam
	clock.Advance(30*time.Minute + time.Nanosecond)
	allowed, counts = s.Check("k")
	assert.True(t, allowed)
	assert.Equal(t, 2, counts.Hour)

	clock.Advance(2 * time.Hour)
	_, counts = s.Check("k")
	assert.Equal(t, 0, counts.Hour)
}

func TestWindowStore_CheckDoesNotRecord(t *testing.T) {
	s := NewWindowStore(domain.Limits{RequestsPerMinute: 1, RequestsPerHour: 1, BurstSize: 1})

	for i := 0; i < 5; i++ {
		allowed, counts := s.Check("k")
		require.True(t, allowed)
		require.Equal(t, domain.Counts{}, counts)
	}

	s.Record("k")
	allowed, counts := s.Check("k")
	assert.False(t, allowed)
	assert.Equal(t, domain.Counts{Minute: 1, Hour: 1, Burst: 1}, counts)
}

func TestWindowStore_KeysAreIndependent(t *testing.T) {
	s := NewWindowStore(domain.Limits{RequestsPerMinute: 1, RequestsPerHour: 10, BurstSize: 10})

	allowed, _ := s.Take("a")
	require.True(t, allowed)
	allowed, _ = s.Take("a")
	require.False(t, allowed)

	allowed, _ = s.Take("b")
	assert.True(t, allowed)
}

func TestWindowStore_ConcurrentTakeNeverExceedsLimit(t *testing.T) {
	const limit = 50
	s := NewWindowStore(domain.Limits{RequestsPerMinute: limit, RequestsPerHour: 1000, BurstSize: 1000})

	var (
		wg      sync.WaitGroup
		granted atomic.Int64
	)
	for i := 0; i < 400; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.Take("same-client"); ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), granted.Load())
}

func TestWindowStore_CleanupRemovesIdleEntries(t *testing.T) {
	clock := newFakeClock()
	s := NewWindowStore(domain.Limits{RequestsPerMinute: 10, RequestsPerHour: 10, BurstSize: 10},
		WithClock(clock.Now), WithCleanupEvery(0))

	s.Take("old")
	clock.Advance(2 * time.Hour)
	s.Take("fresh")

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, s.Cleanup())
	assert.Equal(t, 1, s.Len())

	// entrada removida é recriada do zero
	allowed, counts := s.Take("old")
	assert.True(t, allowed)
	assert.Equal(t, domain.Counts{}, counts)
}

func TestWindowStore_CleanupKeepsRecentClients(t *testing.T) {
	clock := newFakeClock()
	s := NewWindowStore(domain.Limits{RequestsPerMinute: 10, RequestsPerHour: 10, BurstSize: 10}, WithClock(clock.Now))

	s.Take("k")
	clock.Advance(30 * time.Second)

	assert.Equal(t, 0, s.Cleanup())
	assert.Equal(t, 1, s.Len())
}

func TestWindowStore_JanitorSweepsUntilCanceled(t *testing.T) {
	clock := newFakeClock()
	s := NewWindowStore(domain.Limits{RequestsPerMinute: 1, RequestsPerHour: 1, BurstSize: 1},
		WithClock(clock.Now), WithCleanupEvery(time.Millisecond))

	s.Take("idle")
	clock.Advance(2 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := s.StartJanitor(ctx)
	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("janitor still running after cancel")
	}
}

func TestWindowStore_JanitorDisabled(t *testing.T) {
	s := NewWindowStore(domain.Limits{RequestsPerMinute: 1, RequestsPerHour: 1, BurstSize: 1},
		WithCleanupEvery(0))

	_, open := <-s.StartJanitor(context.Background())
	assert.False(t, open)
}
