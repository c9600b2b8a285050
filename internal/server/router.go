package server

import (
	"net/http"
	"slices"

	"github.com/charmbracelet/log"
)

// BasicRouter routes method patterns ("GET /callback") through an [http.ServeMux]. Requests for a known
// path with another method get 405 from the mux.
type BasicRouter struct {
	mux   *http.ServeMux
	chain []Middleware
}

// NewBasicRouter returns an empty router.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. The first one added sees the request first.
//
// Middleware only wraps handlers registered after the call.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.chain = append(r.chain, middleware...)
}

func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(method+" "+path, r.Apply(handler))
}

// Handler registers h under each of its routes.
func (r *BasicRouter) Handler(h Handler) {
	wrapped := r.Apply(h)
	for _, pattern := range h.Routes() {
		r.mux.Handle(pattern, wrapped)
	}
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler in the router's middleware.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	for _, m := range slices.Backward(r.chain) {
		handler = m(handler)
	}
	return handler
}

// NewCallbackRouter serves the provider redirect plus GET /healthz, with panics recovered and every
// request logged.
func NewCallbackRouter(callback *CallbackHandler, logger *log.Logger) *BasicRouter {
	r := NewBasicRouter()
	r.Use(RecoverMiddleware(logger), LoggingMiddleware(logger))
	r.Handler(callback)
	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	return r
}
