package observe

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer builds the observability HTTP server: /metrics serves the
// Prometheus registry the [InitProvider] exporter bridge writes into.
// Callers register additional routes (health probes) through register
// callbacks. Requests pass through [Middleware] so the endpoint instruments
// itself.
func NewServer(addr string, m *Metrics, register ...func(*http.ServeMux)) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	for _, r := range register {
		r(mux)
	}

	return &http.Server{
		Addr:              addr,
		Handler:           Middleware(m)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
