// Package handler defines the request-handling capability and the name-keyed
// registry used to build handler instances from configuration.
package handler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/searchktools/prefix-server/core/http"
)

var (
	ErrUnknownHandler   = errors.New("unknown handler")
	ErrDuplicateHandler = errors.New("duplicate handler registration")
)

// Handler produces a Response for a Request. A fresh instance is built for
// every request, so implementations may keep per-request state freely.
//
// Handlers that hold resources may also implement io.Closer; the router closes
// every instance once its request is done.
type Handler interface {
	Handle(req *http.Request) (*http.Response, error)
}

// Factory builds a handler for the route mounted at location
type Factory func(location string, params map[string]string) (Handler, error)

// Func adapts a plain function to Handler
type Func func(req *http.Request) (*http.Response, error)

// Handle calls f(req)
func (f Func) Handle(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Registry maps handler type names to factories. All registration happens
// during startup before the server accepts connections; afterwards the table
// is only read, which is why lookups take no lock.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register stores factory under name. It returns false, leaving the existing
// entry untouched, if name is already taken.
func (r *Registry) Register(name string, factory Factory) bool {
	if _, exists := r.factories[name]; exists {
		return false
	}
	r.factories[name] = factory
	return true
}

// MustRegister registers factory and returns ErrDuplicateHandler on conflict
func (r *Registry) MustRegister(name string, factory Factory) error {
	if !r.Register(name, factory) {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, name)
	}
	return nil
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Create builds a handler of the named type. It fails with ErrUnknownHandler
// when nothing is registered under name.
func (r *Registry) Create(name, location string, params map[string]string) (Handler, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandler, name)
	}
	return factory(location, params)
}

// Factory returns a factory bound to the named type, for handing to the router
func (r *Registry) Factory(name string) (Factory, error) {
	if !r.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandler, name)
	}
	return func(location string, params map[string]string) (Handler, error) {
		return r.Create(name, location, params)
	}, nil
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the process-wide registry
var Default = NewRegistry()

// RegisterHandler registers factory under name in the default registry
func RegisterHandler(name string, factory Factory) bool {
	return Default.Register(name, factory)
}

// CreateHandler builds a handler from the default registry
func CreateHandler(name, location string, params map[string]string) (Handler, error) {
	return Default.Create(name, location, params)
}

// HasHandlerFor reports whether the default registry knows name
func HasHandlerFor(name string) bool {
	return Default.Has(name)
}
