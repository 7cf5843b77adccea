package prerouter

import (
	"net/http"

	"github.com/keyward/keyward/core"
)

// LimitRequestBody caps request bodies at server.max_body_size. Handlers see
// an *http.MaxBytesError when reading past it.
type LimitRequestBody struct {
	app *core.App
}

func NewLimitRequestBody(app *core.App) *LimitRequestBody {
	return &LimitRequestBody{
		app: app,
	}
}

func (l *LimitRequestBody) Execute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limit := l.app.Config().Server.MaxBodySize; limit > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}
