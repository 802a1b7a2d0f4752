package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Global flags
var envFile string

var rootCmd = &cobra.Command{
	Use:   "ticket-sync",
	Short: "Synchronize Jira tickets into local storage",
	Long: `ticket-sync mirrors the tickets of a Jira instance into Postgres or SQLite.

Without a subcommand it runs the HTTP server (same as "ticket-sync serve").

Examples:
  ticket-sync serve                    # Run the API server and scheduled syncs
  ticket-sync migrate                  # Apply schema migrations and exit
  ticket-sync sync --type incremental  # Run one sync and print the result`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(envFile); err != nil && envFile != ".env" {
			fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", envFile, err)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(syncCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
