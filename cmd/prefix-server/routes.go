package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/searchktools/prefix-server/app"
	"github.com/searchktools/prefix-server/core/handler"
	"github.com/searchktools/prefix-server/logging"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Validate and list the configured routes",
	Long: `Load the route table, check every handler name against the registry and
print the mounted prefixes in registration order.

Example:
  prefix-server routes -c server.yaml`,
	Args: cobra.NoArgs,
	RunE: runRoutes,
}

var handlersCmd = &cobra.Command{
	Use:   "handlers",
	Short: "List the handler types available to routes",
	Args:  cobra.NoArgs,
	RunE:  runHandlers,
}

func init() {
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(handlersCmd)
}

func runRoutes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	if _, err := app.BuildRouter(cfg.Routes, handler.Default, logging.NewDiscardLogger()); err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOCATION\tHANDLER\tPARAMS")
	for _, r := range cfg.Routes {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Location, r.Handler, formatParams(r.Params))
	}
	if !cfg.HasRoot() {
		fmt.Fprintln(w, "(no \"/\" route: unmatched requests get 500)")
	}
	return w.Flush()
}

func runHandlers(cmd *cobra.Command, args []string) error {
	for _, name := range handler.Default.Names() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func formatParams(params map[string]string) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + params[k]
	}
	return strings.Join(parts, " ")
}
