package servemux

import (
	"net/http"

	"github.com/keyward/keyward/router"
)

// ServeMuxRouter implements router.Router on net/http ServeMux, which takes
// "METHOD /path" patterns natively.
type ServeMuxRouter struct {
	*http.ServeMux
}

func (s *ServeMuxRouter) Handle(pattern string, handler http.Handler) {
	s.ServeMux.Handle(pattern, handler)
}

func (s *ServeMuxRouter) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.ServeMux.HandleFunc(pattern, handler)
}

// Param returns the named path wildcard of req.
func (s *ServeMuxRouter) Param(req *http.Request, key string) string {
	return req.PathValue(key)
}

func New() router.Router {
	return &ServeMuxRouter{ServeMux: http.NewServeMux()}
}
