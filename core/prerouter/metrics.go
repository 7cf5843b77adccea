package prerouter

import (
	"net/http"

	"github.com/keyward/keyward/config"
	"github.com/keyward/keyward/core"
	"github.com/keyward/keyward/router"
)

// routeUnmatched labels requests that did not hit a configured endpoint.
const routeUnmatched = "unmatched"

// Metrics records count and duration of every request. The route label is
// the configured endpoint path, so unknown paths cannot grow the label set.
type Metrics struct {
	app *core.App
}

func NewMetrics(app *core.App) *Metrics {
	return &Metrics{
		app: app,
	}
}

func (m *Metrics) Execute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.app.Metrics() == nil {
			next.ServeHTTP(w, r)
			return
		}

		rec := recorderOf(w)
		next.ServeHTTP(rec, r)

		route := matchRoute(m.app.Config().Endpoints, r.Method, r.URL.Path)
		m.app.Metrics().ObserveRequest(r.Method, route, rec.Status, rec.Duration())
	})
}

func matchRoute(e config.Endpoints, method, path string) string {
	for _, pattern := range []string{e.Signup, e.Login, e.Me, e.GoogleOAuth2Login, e.GoogleOAuth2Callback, e.Metrics} {
		m, p := router.SplitPattern(pattern)
		if p == path && (m == "" || m == method) {
			return p
		}
	}
	return routeUnmatched
}
