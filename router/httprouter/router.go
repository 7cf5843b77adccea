package httprouter

import (
	"net/http"

	jshttprouter "github.com/julienschmidt/httprouter"
	"github.com/keyward/keyward/router"
)

// Router implements router.Router on julienschmidt/httprouter.
type Router struct {
	rt *jshttprouter.Router
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.rt.ServeHTTP(w, req)
}

// Handle registers handler for a "METHOD /path" pattern. A pattern without
// a method is registered for GET.
func (r *Router) Handle(pattern string, handler http.Handler) {
	method, path := router.SplitPattern(pattern)
	if method == "" {
		method = http.MethodGet
	}
	r.rt.Handler(method, path, handler)
}

func (r *Router) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	r.Handle(pattern, http.HandlerFunc(handler))
}

// Param returns the named path parameter of req.
func (r *Router) Param(req *http.Request, key string) string {
	return jshttprouter.ParamsFromContext(req.Context()).ByName(key)
}

func New() router.Router {
	rt := jshttprouter.New()
	// preflight requests are answered by the cors middleware in front of the router
	rt.HandleOPTIONS = false
	return &Router{rt: rt}
}
