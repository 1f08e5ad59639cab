package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxScrapes bounds concurrent scrapes of the admin endpoint. Every scrape
// takes the cache and pool locks once per exported func metric.
const maxScrapes = 4

// Handler serves the collector's private registry: cache, pool, connection
// and journal metrics only, without the Go runtime collectors of the default
// registry. Collection errors are logged and the remaining metrics are still
// served.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics:   true,
		MaxRequestsInFlight: maxScrapes,
		ErrorHandling:       promhttp.ContinueOnError,
		ErrorLog:            slog.NewLogLogger(slog.Default().With("component", "metrics").Handler(), slog.LevelWarn),
	})
}
