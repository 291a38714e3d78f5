// Package app wires configuration, handlers, routing and the server into a
// runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/searchktools/prefix-server/config"
	"github.com/searchktools/prefix-server/core"
	"github.com/searchktools/prefix-server/core/handler"
	"github.com/searchktools/prefix-server/core/handlers"
	"github.com/searchktools/prefix-server/core/observability"
	"github.com/searchktools/prefix-server/core/pools"
	"github.com/searchktools/prefix-server/core/router"
)

// App is one configured server instance
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	monitor  *observability.Monitor
	registry *handler.Registry
	router   *router.Router
	server   *core.Server
}

// New builds an application over the process-wide registry, registering the
// built-in handler types on first use. Metrics go to the process monitor,
// which is also what StatsHandler reports.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := handlers.RegisterDefaults(); err != nil {
		return nil, err
	}
	return build(cfg, logger, observability.Default(), handler.Default)
}

// NewWithRegistry builds an application over a caller-populated registry.
// Registration must be complete before this is called.
func NewWithRegistry(cfg *config.Config, logger *slog.Logger, reg *handler.Registry) (*App, error) {
	return build(cfg, logger, observability.NewMonitor(), reg)
}

func build(cfg *config.Config, logger *slog.Logger, monitor *observability.Monitor, reg *handler.Registry) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r, err := BuildRouter(cfg.Routes, reg, logger)
	if err != nil {
		return nil, err
	}

	server := core.NewServer(cfg.Addr(), r, logger)
	server.Monitor = monitor
	server.InactivityTimeout = cfg.InactivityTimeout
	server.WriteTimeout = cfg.WriteTimeout
	server.ReadChunkSize = cfg.ReadChunkSize
	server.MaxConnections = cfg.MaxConnections

	return &App{
		cfg:      cfg,
		logger:   logger,
		monitor:  monitor,
		registry: reg,
		router:   r,
		server:   server,
	}, nil
}

// BuildRouter mounts every configured route. An unknown handler name fails
// the whole table.
func BuildRouter(routes []config.Route, reg *handler.Registry, logger *slog.Logger) (*router.Router, error) {
	r := router.New(logger)
	hasRoot := false
	for _, rt := range routes {
		factory, err := reg.Factory(rt.Handler)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", rt.Location, err)
		}
		r.AddRoute(rt.Location, factory, rt.Params)
		if router.SanitizePath(rt.Location) == "/" {
			hasRoot = true
		}
	}
	if !hasRoot {
		logger.Warn("no catch-all \"/\" route configured; unmatched requests will get 500")
	}
	return r, nil
}

// Router returns the populated router
func (a *App) Router() *router.Router { return a.router }

// Monitor returns the metrics shared by the server and the stats handler
func (a *App) Monitor() *observability.Monitor { return a.monitor }

// Run serves until SIGINT or SIGTERM
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	procs := pools.EnsureProcs()
	gc := pools.SetGCPercent(a.cfg.GCPercent)
	if a.cfg.GCPercent > 0 {
		gc = a.cfg.GCPercent
	}
	a.logger.Info("starting server",
		"addr", a.cfg.Addr(),
		"routes", a.router.Routes(),
		"procs", procs,
		"gc_percent", gc,
		"timeout", a.cfg.InactivityTimeout,
	)

	err := a.server.ListenAndServe(ctx)
	if errors.Is(err, core.ErrServerClosed) {
		a.logger.Info("shutdown complete")
		return nil
	}
	return err
}

// Serve runs the server on an existing listener until ctx is cancelled
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	pools.EnsureProcs()
	err := a.server.Serve(ctx, ln)
	if errors.Is(err, core.ErrServerClosed) {
		return nil
	}
	return err
}
