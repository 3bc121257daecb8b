package admission

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admission-gateway/middleware/admission/infra"
)

func TestConcurrencyMiddleware_TimesOutWhenNoSlot(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	secondDone := make(chan struct{})
	var startedOnce sync.Once

	// handler que segura a vaga até liberarmos.
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedOnce.Do(func() { close(started) })
		<-release
		w.WriteHeader(http.StatusOK)
	})

	h := ConcurrencyMiddleware(ConcurrencyOptions{
		Max:          1,
		QueueTimeout: 25 * time.Millisecond,
	})(next)

	var wg sync.WaitGroup
	wg.Add(2)

	var w1, w2 *httptest.ResponseRecorder

	// request 1: ocupa a vaga e fica pendurado
	go func() {
		defer wg.Done()
		w1 = httptest.NewRecorder()
		h.ServeHTTP(w1, httptest.NewRequest(http.MethodPost, "http://example/text-to-image", nil))
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		close(release)
		wg.Wait()
		t.Fatalf("timeout waiting first request to start")
	}

	// request 2: deve falhar por timeout de fila
	go func() {
		defer wg.Done()
		w2 = httptest.NewRecorder()
		h.ServeHTTP(w2, httptest.NewRequest(http.MethodPost, "http://example/text-to-image", nil))
		close(secondDone)
	}()

	// garante que a segunda terminou antes de liberar a primeira (senão a 2ª pode adquirir)
	select {
	case <-secondDone:
	case <-time.After(2 * time.Second):
		close(release)
		wg.Wait()
		t.Fatalf("timeout waiting second request to finish")
	}

	close(release)
	wg.Wait()

	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, "1", w1.Header().Get(HeaderConcurrencyActive))
	assert.Equal(t, "0", w1.Header().Get(HeaderConcurrencyQueued))
	assert.Equal(t, "1", w1.Header().Get(HeaderConcurrencyLimit))
	assert.Empty(t, w1.Header().Get(HeaderQueueTime))

	require.Equal(t, http.StatusServiceUnavailable, w2.Code)
	assert.Equal(t, "30", w2.Header().Get(HeaderRetryAfter))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &body))
	assert.Equal(t, CodeQueueTimeout, body.Error.Code)
	assert.InDelta(t, 0.025, body.Error.Details["queue_timeout"], 0.0001)
	assert.Equal(t, float64(1), body.Error.Details["active_requests"])
}

func TestConcurrencyMiddleware_RejectsWhenQueueFull(t *testing.T) {
	gate := infra.NewGate(1)
	// ocupa a vaga
	lease, err := gate.Admit(t.Context(), 0)
	require.NoError(t, err)
	defer lease.Release()

	h := ConcurrencyMiddleware(ConcurrencyOptions{
		Gate:         gate,
		QueueTimeout: 5 * time.Second,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	// enche a fila (2x capacidade) com requisições que esperam
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "http://example/text-to-image", nil))
		}()
	}
	require.Eventually(t, func() bool { return gate.Stats().Queued == 2 }, time.Second, 5*time.Millisecond)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://example/text-to-image", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, CodeServiceOverloaded, body.Error.Code)
	assert.Equal(t, map[string]any{
		"active_requests": float64(1),
		"queued_requests": float64(2),
		"max_concurrent":  float64(1),
	}, body.Error.Details)
	assert.Equal(t, 2, gate.Stats().Queued, "rejected request must not touch the queue")

	lease.Release()
	wg.Wait()
	assert.Equal(t, 0, gate.Stats().Active)
	assert.Equal(t, 0, gate.Stats().Queued)
}

func TestConcurrencyMiddleware_UngatedPathsBypass(t *testing.T) {
	gate := infra.NewGate(1)
	lease, err := gate.Admit(t.Context(), 0)
	require.NoError(t, err)
	defer lease.Release()

	h := ConcurrencyMiddleware(ConcurrencyOptions{
		Gate:         gate,
		QueueTimeout: 10 * time.Millisecond,
		GatedPaths:   DefaultGatedPaths,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(HeaderConcurrencyLimit))
}

func TestConcurrencyMiddleware_ReleasesSlotOnPanic(t *testing.T) {
	gate := infra.NewGate(1)
	h := ConcurrencyMiddleware(ConcurrencyOptions{Gate: gate})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }))

	assert.Panics(t, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "http://example/", nil))
	})
	assert.Equal(t, 0, gate.Stats().Active)
}
