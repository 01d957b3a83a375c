package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	schemaPath string
)

var rootCmd = &cobra.Command{
	Use:          "tlmscope",
	Short:        "Satellite telemetry retrieval toolkit",
	Long:         "tlmscope fetches orbit and ground test telemetry, reshapes it into plot series and derives filtered views and statistics.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "Path to CUE schema (built-in when empty)")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(serveCmd)
}
