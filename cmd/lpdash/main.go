package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sharanvkt/insane-dashboard-v2/cmd/lpdash/commands"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
)

var rootCmd = &cobra.Command{
	Use:   "lpdash",
	Short: "lpdash - landing page domain dashboard",
	Long: `lpdash - landing page domain dashboard.

Manage landing-page domains, schedule deferred or recurring content updates,
and review every change made to a domain.

Available commands:
  am       - Manage lpdash configuration ("I am")
  server   - Start the JSON API server (optionally with the scheduler)
  pulse    - Run the scheduler (foreground ticker or a single tick)
  domain   - List, add, edit and remove domains
  schedule - List, add and cancel scheduled updates
  history  - Show the change history of a domain
  access   - Check what an identity may access

Examples:
  lpdash am show
  lpdash domain ls --as editor@agency.io
  lpdash schedule add <domain-id> --at 2026-05-01T09:00:00Z content1="Spring sale" --as editor@agency.io
  lpdash pulse tick                # one dispatcher pass, for an external cron
  lpdash server`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip for commands whose stdout is machine-read
		if cmd.Name() == "show" || cmd.Name() == "version" {
			return nil
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.InitializeFromEnv(verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	commands.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.ServerCmd)
	rootCmd.AddCommand(commands.PulseCmd)
	rootCmd.AddCommand(commands.DomainCmd)
	rootCmd.AddCommand(commands.ScheduleCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.AccessCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
