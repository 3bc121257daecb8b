package admission

import (
	"net/http"
	"time"
)

// responseWriter captura o status e garante os headers do pipeline.
//
// Headers fixados com pinHeader são reaplicados no WriteHeader, então uma camada
// mais interna (ex.: proxy copiando headers do upstream) não os sobrescreve.
type responseWriter struct {
	http.ResponseWriter
	start        time.Time
	now          func() time.Time
	statusCode   int
	wroteHeader  bool
	bytesWritten int64
	pinned       http.Header
}

func newResponseWriter(w http.ResponseWriter, start time.Time, now func() time.Time) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		start:          start,
		now:            now,
		statusCode:     http.StatusOK,
		pinned:         make(http.Header),
	}
}

func (rw *responseWriter) pin(key, value string) {
	rw.pinned.Set(key, value)
	rw.ResponseWriter.Header().Set(key, value)
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.statusCode = code

	h := rw.ResponseWriter.Header()
	for k, v := range rw.pinned {
		h[k] = v
	}
	h.Set(HeaderProcessTime, formatSeconds(rw.now().Sub(rw.start)))
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Unwrap permite que http.ResponseController (usado pelo httputil.ReverseProxy)
// encontre Flush/Hijack no writer original.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// setHeader fixa o header quando w é o writer do pipeline, senão só faz Set.
func setHeader(w http.ResponseWriter, key, value string) {
	if rw, ok := w.(*responseWriter); ok {
		rw.pin(key, value)
		return
	}
	w.Header().Set(key, value)
}
