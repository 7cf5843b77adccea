package core

import (
	"net/http"
)

// MetricsHandler serves Prometheus metrics in the standard format
// Endpoint: GET /metrics
// Authenticated: No
// Allowed Mimetype: text/plain
func (a *App) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if !a.Config().Metrics.Enabled || a.Metrics() == nil {
		writeJsonError(w, errorNotFound)
		return
	}

	a.Metrics().Handler().ServeHTTP(w, r)
}
