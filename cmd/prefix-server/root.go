package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/searchktools/prefix-server/config"
	"github.com/searchktools/prefix-server/core/handlers"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "prefix-server",
	Short: "Prefix-routed HTTP/1.x server",
	Long: `prefix-server accepts HTTP/1.x connections, serves exactly one request per
connection, and dispatches each request to the handler mounted at the longest
matching URL prefix.

Routes come from a YAML, TOML or JSON config file. Settings can also be given as
PREFIX_SERVER_* environment variables or flags.`,
	SilenceUsage: true,
	// handler types are registered once, before any command builds routes
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return handlers.RegisterDefaults()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file (yaml, toml or json)")
}

// loadConfig merges defaults, the config file, environment and flags
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	m := config.NewManager()
	if configFlag != "" {
		if err := m.LoadFile(configFlag); err != nil {
			return nil, err
		}
	}
	if flags != nil {
		if err := m.BindFlags(flags); err != nil {
			return nil, err
		}
	}
	return m.Config()
}
