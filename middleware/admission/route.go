package admission

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UnmatchedRoute agrupa nas métricas tudo que não casa com nenhuma rota.
const UnmatchedRoute = "unmatched"

// RouteFunc devolve o rótulo de endpoint de uma requisição. O conjunto de
// rótulos precisa ser finito: paths arbitrários viram chaves no Monitor.
type RouteFunc func(r *http.Request) string

// ChiRouteFunc rotula pelo padrão da rota no roteador chi ("/users/{id}" em vez
// de "/users/42"). Sem match (404 ou método não permitido) devolve UnmatchedRoute.
func ChiRouteFunc(routes chi.Routes) RouteFunc {
	return func(r *http.Request) string {
		rctx := chi.NewRouteContext()
		if !routes.Match(rctx, r.Method, r.URL.Path) {
			return UnmatchedRoute
		}
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
		return r.URL.Path
	}
}
