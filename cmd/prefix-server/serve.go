package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/searchktools/prefix-server/app"
	"github.com/searchktools/prefix-server/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	Long: `Start accepting connections on the configured port.

Examples:
  prefix-server serve -c server.yaml
  prefix-server serve -c server.yaml --port 9000 --log-format json`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("host", "", "Interface to bind (default all)")
	f.Int("port", 8080, "Port to listen on")
	f.Duration("timeout", 5*time.Second, "Inactivity timeout per connection")
	f.Int("max-connections", 0, "Maximum concurrent connections (0 = unlimited)")
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	f.String("log-format", "text", "Log format: text or json")
	f.String("log-file", "", "Also write logs to this file, rotated by size")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	logger, closer, err := logging.NewFromOptions(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	return a.Run()
}
