package prerouter

import (
	"net/http"

	"github.com/keyward/keyward/core"
)

// Recorder installs the shared core.ResponseRecorder. It must run first so
// the logging and metrics middlewares see the final status.
type Recorder struct {
	app *core.App
}

func NewRecorder(app *core.App) *Recorder {
	return &Recorder{
		app: app,
	}
}

func (rc *Recorder) Execute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(*core.ResponseRecorder); ok {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(core.NewResponseRecorder(w), r)
	})
}

// recorderOf returns the shared recorder, or wraps w in a new one when the
// Recorder middleware is not in the chain.
func recorderOf(w http.ResponseWriter) *core.ResponseRecorder {
	if rec, ok := w.(*core.ResponseRecorder); ok {
		return rec
	}
	return core.NewResponseRecorder(w)
}
