package prerouter

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/keyward/keyward/core"
)

const logMessage = "http_request"

// remoteIP returns the address part of the request RemoteAddr
func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// cutStr limits string length by adding ellipsis if needed. max <= 0 keeps
// the string.
func cutStr(str string, max int) string {
	if max > 0 && len(str) > max {
		return str[:max] + "..."
	}
	return str
}

var logType = slog.String("type", "request")

// RequestLog is middleware that logs HTTP request details
type RequestLog struct {
	app *core.App
}

func NewRequestLog(app *core.App) *RequestLog {
	return &RequestLog{
		app: app,
	}
}

// Execute wraps the next handler with request logging
func (rl *RequestLog) Execute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		cfg := rl.app.Config().Log.Request
		if !cfg.Activated {
			next.ServeHTTP(w, req)
			return
		}

		rec := recorderOf(w)
		next.ServeHTTP(rec, req)

		limits := cfg.Limits
		attrs := make([]any, 0, 10)
		attrs = append(attrs, logType)
		attrs = append(attrs, slog.String("method", strings.ToUpper(req.Method)))
		attrs = append(attrs, slog.String("path", cutStr(req.URL.Path, limits.URILength)))
		attrs = append(attrs, slog.Int("status", rec.Status))
		attrs = append(attrs, slog.String("duration", rec.Duration().String()))
		attrs = append(attrs, slog.Int64("bytes", rec.BytesWritten))
		attrs = append(attrs, slog.String("remote_ip", cutStr(remoteIP(req), limits.RemoteIPLength)))
		attrs = append(attrs, slog.String("user_agent", cutStr(req.UserAgent(), limits.UserAgentLength)))
		attrs = append(attrs, slog.String("referer", cutStr(req.Referer(), limits.RefererLength)))
		attrs = append(attrs, slog.String("proto", req.Proto))

		rl.app.Logger().Info(logMessage, attrs...)
	})
}
