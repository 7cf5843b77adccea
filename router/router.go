package router

import (
	"net/http"
	"strings"
)

// Router registers handlers under "METHOD /path" patterns.
type Router interface {
	Handle(pattern string, handler http.Handler)
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// SplitPattern splits "POST /api/auth/login" into method and path. A pattern
// without a method is returned with an empty method.
func SplitPattern(pattern string) (method, path string) {
	pattern = strings.TrimSpace(pattern)
	if strings.HasPrefix(pattern, "/") {
		return "", pattern
	}
	method, path, found := strings.Cut(pattern, " ")
	if !found {
		return "", pattern
	}
	return method, strings.TrimSpace(path)
}
