package core

import (
	"net/http"
)

var HeadersJson = map[string]string{
	"Content-Type": "application/json; charset=utf-8",

	// no MIME sniffing of api responses
	"X-Content-Type-Options": "nosniff",

	// tokens and identities must never be stored by a cache.
	// no-store alone is enough, the rest covers caches that misread it.
	"Cache-Control": "no-store, no-cache, must-revalidate",

	"X-Frame-Options": "DENY",

	// JSON is never an active document: nothing to load, never framed.
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
}

func setHeaders(w http.ResponseWriter, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
}
