// Package config loads server settings and the route table.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/searchktools/prefix-server/core/router"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Port              int           `mapstructure:"port"`
	Host              string        `mapstructure:"host"`
	InactivityTimeout time.Duration `mapstructure:"inactivity_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	MaxConnections    int           `mapstructure:"max_connections"`
	ReadChunkSize     int           `mapstructure:"read_chunk_size"`
	GCPercent         int           `mapstructure:"gc_percent"`
	Log               LogConfig     `mapstructure:"log"`
	Routes            []Route       `mapstructure:"routes"`
}

// LogConfig selects the log level, format and optional file sink
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    string `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Route mounts a registered handler type at a URL prefix. Params are passed
// to the handler's factory unchanged.
type Route struct {
	Location string            `mapstructure:"location"`
	Handler  string            `mapstructure:"handler"`
	Params   map[string]string `mapstructure:"params"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Port:              8080,
		InactivityTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadChunkSize:     1024,
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSize:    "10MB",
			MaxBackups: 5,
		},
	}
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HasRoot reports whether a catch-all "/" route is configured, comparing
// locations the way the router mounts them
func (c *Config) HasRoot() bool {
	for _, r := range c.Routes {
		if router.SanitizePath(r.Location) == "/" {
			return true
		}
	}
	return false
}

// Validate checks ranges and required route fields. Handler names are
// checked later against the registry.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &Error{Field: "port", Message: fmt.Sprintf("must be between 1 and 65535, got %d", c.Port)}
	}
	if c.InactivityTimeout <= 0 {
		return &Error{Field: "inactivity_timeout", Message: "must be positive"}
	}
	if c.WriteTimeout < 0 {
		return &Error{Field: "write_timeout", Message: "must not be negative"}
	}
	if c.MaxConnections < 0 {
		return &Error{Field: "max_connections", Message: "must not be negative"}
	}
	if c.ReadChunkSize <= 0 {
		return &Error{Field: "read_chunk_size", Message: "must be positive"}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return &Error{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	for i, r := range c.Routes {
		if r.Location == "" {
			return &Error{Field: fmt.Sprintf("routes[%d].location", i), Message: "required"}
		}
		if r.Handler == "" {
			return &Error{Field: fmt.Sprintf("routes[%d].handler", i), Message: "required"}
		}
	}
	return nil
}

// Error describes one invalid field. It matches ErrInvalidConfig.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

func (e *Error) Unwrap() error { return ErrInvalidConfig }
