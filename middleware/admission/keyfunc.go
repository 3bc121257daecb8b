package admission

import (
	"net"
	"net/http"
	"strings"

	"admission-gateway/middleware/admission/domain"
)

type KeyFunc func(r *http.Request) domain.Key

// DefaultKeyFunc resolve a identidade do cliente, nesta ordem:
// header configurado, primeiro IP do X-Forwarded-For e X-Real-IP (só se
// trustProxy), host do RemoteAddr e, por fim, "unknown".
func DefaultKeyFunc(keyHeader string, trustProxy bool) KeyFunc {
	return func(r *http.Request) domain.Key {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return domain.Key(v)
			}
		}

		if trustProxy {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return domain.Key(ip)
				}
			}
			if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
				return domain.Key(ip)
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return domain.Key(host)
		}
		if r.RemoteAddr != "" {
			return domain.Key(r.RemoteAddr)
		}
		return "unknown"
	}
}

// pathSet faz match exato de paths.
type pathSet map[string]struct{}

func newPathSet(paths []string) pathSet {
	if len(paths) == 0 {
		return nil
	}
	s := make(pathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

func (s pathSet) has(path string) bool {
	_, ok := s[path]
	return ok
}
