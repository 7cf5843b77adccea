package keyward

import (
	"net/http"

	"github.com/keyward/keyward/config"
	"github.com/keyward/keyward/core"
)

func route(cfg *config.Config, app *core.App) {
	r := app.Router()
	e := cfg.Endpoints

	r.Handle(e.Signup, http.HandlerFunc(app.SignupHandler))
	r.Handle(e.Login, http.HandlerFunc(app.LoginHandler))
	r.Handle(e.Me, http.HandlerFunc(app.MeHandler))
	r.Handle(e.GoogleOAuth2Login, http.HandlerFunc(app.OAuth2LoginHandler))
	r.Handle(e.GoogleOAuth2Callback, http.HandlerFunc(app.OAuth2CallbackHandler))

	if cfg.Metrics.Enabled {
		r.Handle(e.Metrics, http.HandlerFunc(app.MetricsHandler))
	}
}
