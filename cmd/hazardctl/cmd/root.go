// Package cmd contains the hazardctl commands. Every command works directly
// against the database named by DB_PATH, using the same environment as the
// server.
package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mr1hm/hazard-monitor/internal/app"
	"github.com/mr1hm/hazard-monitor/internal/config"
	"github.com/mr1hm/hazard-monitor/internal/logging"
)

var (
	verbose bool
	output  string
)

var rootCmd = &cobra.Command{
	Use:   "hazardctl",
	Short: "Operate the hazard monitor",
	Long: `hazardctl seeds and inspects a hazard monitor database and runs
evaluation cycles on demand.

Examples:
  # Load locations, disasters and rules
  hazardctl seed config/seed.yaml

  # Run one weather pass now
  hazardctl cycle weather

  # See which locations a synthetic quake would alert
  hazardctl simulate quake --lat 23.9 --lon 90.5 --mag 7.1`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
}

// openApp loads the environment and wires the application without starting
// the scheduler.
func openApp() (*app.App, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := logging.New(os.Stderr, level, "text")
	slog.SetDefault(logger)

	return app.New(cfg, logger, prometheus.NewRegistry())
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
