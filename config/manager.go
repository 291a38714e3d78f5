package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides: PREFIX_SERVER_PORT,
// PREFIX_SERVER_LOG_LEVEL and so on
const EnvPrefix = "PREFIX_SERVER"

// flagKeys maps command-line flag names to configuration keys
var flagKeys = map[string]string{
	"host":            "host",
	"port":            "port",
	"timeout":         "inactivity_timeout",
	"max-connections": "max_connections",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"log-file":        "log.file",
}

// Manager layers defaults, a config file, environment variables and flags,
// in increasing order of precedence
type Manager struct {
	v *viper.Viper
}

// NewManager creates a manager holding only the defaults and environment
func NewManager() *Manager {
	v := viper.New()

	d := Default()
	v.SetDefault("port", d.Port)
	v.SetDefault("host", d.Host)
	v.SetDefault("inactivity_timeout", d.InactivityTimeout)
	v.SetDefault("write_timeout", d.WriteTimeout)
	v.SetDefault("max_connections", d.MaxConnections)
	v.SetDefault("read_chunk_size", d.ReadChunkSize)
	v.SetDefault("gc_percent", d.GCPercent)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Manager{v: v}
}

// LoadFile reads path. The format follows the extension (yaml, toml, json).
func (m *Manager) LoadFile(path string) error {
	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// ConfigFile returns the file loaded by LoadFile, if any
func (m *Manager) ConfigFile() string {
	return m.v.ConfigFileUsed()
}

// BindFlags makes any flag in flags that the user set override its key
func (m *Manager) BindFlags(flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := m.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Set overrides key for the life of the manager
func (m *Manager) Set(key string, value any) {
	m.v.Set(key, value)
}

// GetString returns the current value of key
func (m *Manager) GetString(key string) string {
	return m.v.GetString(key)
}

// GetDuration returns the current value of key
func (m *Manager) GetDuration(key string) time.Duration {
	return m.v.GetDuration(key)
}

// Config decodes and validates the merged settings
func (m *Manager) Config() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
