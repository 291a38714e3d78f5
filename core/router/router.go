package router

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/searchktools/prefix-server/core/handler"
	"github.com/searchktools/prefix-server/core/http"
)

// Label is attached to responses the router produces itself
const Label = "Router"

var ErrNoRoute = errors.New("no route matches")

// Route is one mounted handler type
type Route struct {
	Prefix  string
	Factory handler.Factory
	Params  map[string]string
}

// Router dispatches requests to the handler mounted at the longest matching
// prefix. Routes are added during startup only; Dispatch may then be called
// from any number of goroutines.
type Router struct {
	routes []Route
	logger *slog.Logger
}

// New creates an empty router
func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{logger: logger}
}

// AddRoute mounts factory at prefix. Not safe once Dispatch is in use.
func (r *Router) AddRoute(prefix string, factory handler.Factory, params map[string]string) {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	r.routes = append(r.routes, Route{
		Prefix:  SanitizePath(prefix),
		Factory: factory,
		Params:  copied,
	})
}

// Routes returns the sanitized prefixes in registration order
func (r *Router) Routes() []string {
	out := make([]string, len(r.routes))
	for i, e := range r.routes {
		out[i] = e.Prefix
	}
	return out
}

// Match returns the route for url. Among routes of equal prefix length the
// first registered wins.
func (r *Router) Match(url string) (*Route, error) {
	path := SanitizePath(stripQuery(url))

	var best *Route
	for i := range r.routes {
		e := &r.routes[i]
		if !strings.HasPrefix(path, e.Prefix) {
			continue
		}
		if best == nil || len(e.Prefix) > len(best.Prefix) {
			best = e
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, path)
	}
	return best, nil
}

// Dispatch builds one handler instance for req, runs it, and releases it.
// Every failure inside the handler becomes a 500 response.
func (r *Router) Dispatch(req *http.Request) *http.Response {
	route, err := r.Match(req.URL())
	if err != nil {
		// A catch-all "/" route should always exist, so this is a configuration error
		return http.Text(req, 500, "Server Error: No handlers registered", Label)
	}

	resp, err := r.invoke(route, req)
	if err != nil {
		r.logger.Error("handler failed",
			"prefix", route.Prefix,
			"url", req.URL(),
			"error", err,
		)
		return http.Text(req, 500, "Internal Server Error", Label)
	}
	return resp
}

func (r *Router) invoke(route *Route, req *http.Request) (resp *http.Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			resp, err = nil, fmt.Errorf("handler panic: %v", p)
		}
	}()

	h, err := route.Factory(route.Prefix, route.Params)
	if err != nil {
		return nil, fmt.Errorf("create handler: %w", err)
	}
	if h == nil {
		return nil, errors.New("factory returned no handler")
	}
	if c, ok := h.(io.Closer); ok {
		defer func() {
			if cerr := c.Close(); cerr != nil {
				r.logger.Warn("handler release failed", "prefix", route.Prefix, "error", cerr)
			}
		}()
	}

	resp, err = h.Handle(req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("handler returned no response")
	}
	return resp, nil
}

// SanitizePath ensures a leading "/" and strips a single trailing "/" unless
// the path is the root.
func SanitizePath(path string) string {
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}

func stripQuery(url string) string {
	if i := strings.IndexByte(url, '?'); i != -1 {
		return url[:i]
	}
	return url
}
