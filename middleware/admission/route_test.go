package admission

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admission-gateway/middleware/admission/domain"
)

func TestChiRouteFunc(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {})
	r.Route("/admin", func(r chi.Router) {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {})
	})
	route := ChiRouteFunc(r)

	tests := []struct {
		method, path, want string
	}{
		{http.MethodGet, "/users/42", "/users/{id}"},
		{http.MethodGet, "/admin/metrics", "/admin/metrics"},
		{http.MethodGet, "/nope", UnmatchedRoute},
		{http.MethodPost, "/users/42", UnmatchedRoute},
	}
	for _, tt := range tests {
		got := route(httptest.NewRequest(tt.method, "http://example"+tt.path, nil))
		assert.Equal(t, tt.want, got, tt.method+" "+tt.path)
	}
}

func TestPipeline_ChiRouterBoundsEndpointStats(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {})

	p := NewPipeline(DefaultConfig())
	srv := httptest.NewServer(p.Handler(router))
	t.Cleanup(srv.Close)

	for _, path := range []string{"/users/1", "/users/2", "/random-1", "/random-2", "/random-3"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	snap := p.Monitor().Snapshot()
	assert.Len(t, snap.Endpoints, 2)
	assert.Equal(t, int64(2), snap.Endpoints["/users/{id}"].Count)
	assert.Equal(t, int64(3), snap.Endpoints[UnmatchedRoute].Count)
}

func TestSetRoute_OverridesLabel(t *testing.T) {
	stats := &recordingStats{}
	h := TrackingMiddleware(TrackingOptions{Stats: []domain.StatsStore{stats}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			SetRoute(r.Context(), "/items/{id}")
		}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example/items/9", nil))

	events := stats.all()
	require.Len(t, events, 1)
	assert.Equal(t, "/items/{id}", events[0].Endpoint)
}
