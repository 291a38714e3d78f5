package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := NewManager().Config()
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	if cfg.Port != 8080 || cfg.InactivityTimeout != 5*time.Second || cfg.ReadChunkSize != 1024 {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.Log.Level != "info" || cfg.Log.MaxSize != "10MB" || cfg.Log.MaxBackups != 5 {
		t.Errorf("Unexpected log defaults %+v", cfg.Log)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Expected :8080, got %s", cfg.Addr())
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "server.yaml", `
port: 9090
inactivity_timeout: 2s
log:
  level: debug
  format: json
routes:
  - location: /
    handler: NotFoundHandler
  - location: /static
    handler: StaticHandler
    params:
      root: ./www
  - location: /sleep
    handler: SleepHandler
    params:
      sleep_duration: 3
`)
	m := NewManager()
	if err := m.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	cfg, err := m.Config()
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}

	if cfg.Port != 9090 || cfg.InactivityTimeout != 2*time.Second || cfg.Log.Format != "json" {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if len(cfg.Routes) != 3 {
		t.Fatalf("Expected 3 routes, got %d", len(cfg.Routes))
	}
	if cfg.Routes[1].Params["root"] != "./www" {
		t.Errorf("Expected static root, got %v", cfg.Routes[1].Params)
	}
	if cfg.Routes[2].Params["sleep_duration"] != "3" {
		t.Errorf("Expected numeric param as string, got %v", cfg.Routes[2].Params)
	}
	if !cfg.HasRoot() {
		t.Error("Expected root route")
	}
	if m.ConfigFile() != path {
		t.Errorf("Expected config file %s, got %s", path, m.ConfigFile())
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "server.toml", `
port = 7000

[[routes]]
location = "/echo"
handler = "EchoHandler"
`)
	m := NewManager()
	if err := m.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	cfg, err := m.Config()
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	if cfg.Port != 7000 || len(cfg.Routes) != 1 || cfg.Routes[0].Handler != "EchoHandler" {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if cfg.HasRoot() {
		t.Error("Expected no root route")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if err := NewManager().LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PREFIX_SERVER_PORT", "6060")
	t.Setenv("PREFIX_SERVER_LOG_LEVEL", "warn")
	t.Setenv("PREFIX_SERVER_GC_PERCENT", "200")

	cfg, err := NewManager().Config()
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	if cfg.Port != 6060 || cfg.Log.Level != "warn" {
		t.Errorf("Expected env overrides, got port %d level %s", cfg.Port, cfg.Log.Level)
	}
	if cfg.GCPercent != 200 {
		t.Errorf("Expected gc_percent 200, got %d", cfg.GCPercent)
	}
}

func TestFlagOverride(t *testing.T) {
	path := writeFile(t, "server.yaml", "port: 9090\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 8080, "")
	flags.Duration("timeout", 5*time.Second, "")
	flags.String("log-level", "info", "")
	if err := flags.Parse([]string{"--port", "9191", "--timeout", "1500ms"}); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	m.LoadFile(path)
	if err := m.BindFlags(flags); err != nil {
		t.Fatalf("BindFlags failed: %v", err)
	}
	cfg, err := m.Config()
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	if cfg.Port != 9191 || cfg.InactivityTimeout != 1500*time.Millisecond {
		t.Errorf("Expected flag values, got port %d timeout %v", cfg.Port, cfg.InactivityTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected unset flag to leave level alone, got %s", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port zero", func(c *Config) { c.Port = 0 }, "port"},
		{"port high", func(c *Config) { c.Port = 70000 }, "port"},
		{"timeout", func(c *Config) { c.InactivityTimeout = 0 }, "inactivity_timeout"},
		{"connections", func(c *Config) { c.MaxConnections = -1 }, "max_connections"},
		{"chunk", func(c *Config) { c.ReadChunkSize = 0 }, "read_chunk_size"},
		{"format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"location", func(c *Config) { c.Routes = []Route{{Handler: "EchoHandler"}} }, "routes[0].location"},
		{"handler", func(c *Config) { c.Routes = []Route{{Location: "/"}} }, "routes[0].handler"},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tt.name, err)
			continue
		}
		var ce *Error
		if !errors.As(err, &ce) || ce.Field != tt.field {
			t.Errorf("%s: expected field %s, got %v", tt.name, tt.field, err)
		}
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestManagerSet(t *testing.T) {
	m := NewManager()
	m.Set("log.level", "error")
	m.Set("inactivity_timeout", "250ms")
	if m.GetString("log.level") != "error" || m.GetDuration("inactivity_timeout") != 250*time.Millisecond {
		t.Error("Expected Set values to be returned")
	}
	m.Set("port", 0)
	if _, err := m.Config(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestHasRootSanitized(t *testing.T) {
	tests := []struct {
		location string
		want     bool
	}{
		{"/", true},
		{"//", true},
		{"/api", false},
		{"/api/", false},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.Routes = []Route{{Location: tt.location, Handler: "EchoHandler"}}
		if got := cfg.HasRoot(); got != tt.want {
			t.Errorf("HasRoot(%q): expected %v, got %v", tt.location, tt.want, got)
		}
	}
}
