package admission

import "net/http"

// SecurityHeaders adiciona os headers de segurança padrão. Nas rotas em noCache
// (as rotas de inferência) também desliga cache.
func SecurityHeaders(noCachePaths []string) func(next http.Handler) http.Handler {
	noCache := newPathSet(noCachePaths)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if noCache.has(r.URL.Path) {
				h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
				h.Set("Pragma", "no-cache")
				h.Set("Expires", "0")
			}

			next.ServeHTTP(w, r)
		})
	}
}
