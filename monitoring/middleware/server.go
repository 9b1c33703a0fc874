package middleware

import (
	"bufio"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"campusfeed/monitoring"
)

// statusRecorder captures the status code the wrapped handler writes, so
// requests can be counted per outcome and not just per path.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps the websocket upgrade path working through the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hijacker.Hijack()
}

type ServerMiddleware struct {
	handler http.Handler
}

func (m *ServerMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	monitoring.ActiveConnections.Inc()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	timer := prometheus.NewTimer(monitoring.HttpRequestDuration.WithLabelValues(path))

	m.handler.ServeHTTP(recorder, r)

	timer.ObserveDuration()
	monitoring.ActiveConnections.Dec()
	monitoring.HttpRequestsTotal.WithLabelValues(path, strconv.Itoa(recorder.status)).Inc()
}

func NewServerMiddleware(handlerToWrap http.Handler) *ServerMiddleware {
	return &ServerMiddleware{handlerToWrap}
}
