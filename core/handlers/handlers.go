// Package handlers holds the handler types available to route configuration.
package handlers

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/searchktools/prefix-server/core/handler"
	"github.com/searchktools/prefix-server/core/http"
	"github.com/searchktools/prefix-server/core/observability"
)

// Registered handler names. Each is also the label on the responses the
// handler produces.
const (
	EchoName     = "EchoHandler"
	HealthName   = "HealthHandler"
	SleepName    = "SleepHandler"
	NotFoundName = "NotFoundHandler"
	StaticName   = "StaticHandler"
	CrudName     = "CrudApiHandler"
	MarkdownName = "MarkdownHandler"
	StatsName    = "StatsHandler"
)

// Builtins carries what the built-in handlers share. Zero fields fall back to
// the real filesystem, the process monitor and the default logger.
type Builtins struct {
	FS      afero.Fs
	Monitor *observability.Monitor
	Logger  *slog.Logger
}

// RegisterBuiltins registers every built-in handler type on reg using the
// real filesystem
func RegisterBuiltins(reg *handler.Registry) error {
	return Builtins{}.Register(reg)
}

var (
	defaultOnce sync.Once
	defaultErr  error
)

// RegisterDefaults registers the built-in handler types on handler.Default.
// Only the first call registers; later calls return the same result.
func RegisterDefaults() error {
	defaultOnce.Do(func() {
		defaultErr = RegisterBuiltins(handler.Default)
	})
	return defaultErr
}

// Register adds every built-in handler type to reg. It fails on the first
// name that is already taken.
func (b Builtins) Register(reg *handler.Registry) error {
	b = b.withDefaults()

	factories := []struct {
		name    string
		factory handler.Factory
	}{
		{EchoName, newEcho},
		{HealthName, newHealth},
		{SleepName, b.newSleep},
		{NotFoundName, newNotFound},
		{StaticName, b.newStatic},
		{CrudName, b.newCrud},
		{MarkdownName, b.newMarkdown},
		{StatsName, b.newStats},
	}
	for _, f := range factories {
		if err := reg.MustRegister(f.name, f.factory); err != nil {
			return err
		}
	}
	return nil
}

func (b Builtins) withDefaults() Builtins {
	if b.FS == nil {
		b.FS = afero.NewOsFs()
	}
	if b.Monitor == nil {
		b.Monitor = observability.Default()
	}
	if b.Logger == nil {
		b.Logger = slog.Default()
	}
	return b
}

// requireParam returns params[key] or an error naming the route
func requireParam(name, location string, params map[string]string, key string) (string, error) {
	v := params[key]
	if v == "" {
		return "", fmt.Errorf("%s missing %q parameter for location %s", name, key, location)
	}
	return v, nil
}

// relativePath returns the part of the request path below prefix, cleaned
// and rooted at "/". Cleaning resolves any ".." against "/" so the result
// never climbs above the mount.
func relativePath(prefix string, req *http.Request) string {
	p := req.Path()
	if strings.HasPrefix(p, prefix) && prefix != "/" {
		p = p[len(prefix):]
	}
	return path.Clean("/" + p)
}

func textResponse(req *http.Request, code int, body, label string) *http.Response {
	return http.Text(req, code, body, label)
}

// accepts reports whether the Accept header lists mime
func accepts(req *http.Request, mime string) bool {
	for _, part := range strings.Split(req.Header(http.HeaderAccept), ",") {
		if media, _, _ := strings.Cut(strings.TrimSpace(part), ";"); strings.EqualFold(media, mime) {
			return true
		}
	}
	return false
}
