// Package backend contém o backend de inferência atrás do pipeline de admissão:
// um proxy reverso para o servidor real ou um motor simulado.
package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/domain"
)

// NewProxy cria um proxy reverso para target. Falhas do upstream viram 502
// BAD_GATEWAY e ficam registradas com o tipo domain.KindUpstream.
func NewProxy(target *url.URL, logger *zap.Logger) *httputil.ReverseProxy {
	if logger == nil {
		logger = zap.NewNop()
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		admission.SetOutcome(r.Context(), domain.KindUpstream, err.Error())

		// cliente desistiu: não há para quem responder
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			logger.Debug("client went away during upstream call",
				zap.String("request_id", admission.RequestID(r.Context())),
				zap.String("path", r.URL.Path))
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		logger.Error("proxy error",
			zap.String("request_id", admission.RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		admission.WriteError(w, r, http.StatusBadGateway, admission.CodeBadGateway,
			"inference backend unavailable", nil)
	}
	return proxy
}
