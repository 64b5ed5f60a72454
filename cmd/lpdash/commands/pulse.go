package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sharanvkt/insane-dashboard-v2/logger"
	"github.com/sharanvkt/insane-dashboard-v2/pulse/schedule"
	"github.com/sharanvkt/insane-dashboard-v2/sym"
)

// PulseCmd represents the pulse command - the scheduled update dispatcher
var PulseCmd = &cobra.Command{
	Use:   "pulse",
	Short: sym.Pulse + " Run the scheduled update dispatcher",
	Long: sym.Pulse + ` Pulse - applies scheduled domain updates when they fall due.

Each tick claims due schedules, applies their updates to the domain, records
history and then completes or advances each schedule. Ticks are independent:
a failure leaves the schedule to the next tick, and two processes never
apply the same record thanks to the claim lease.

Example:
  lpdash pulse start            # Run the ticker in the foreground
  lpdash pulse tick             # One pass, for an external cron
  lpdash pulse tick --json      # Machine-readable tick report`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// PulseStartCmd runs the ticker until interrupted
var PulseStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the scheduler ticker in the foreground",
	Long: `Run the scheduler ticker in the foreground.

The cadence comes from scheduler.cadence (default "@every 5m"). A tick still
running when the next one is due makes that one skip. Ctrl+C lets the
running tick finish its current record before exiting.`,
	RunE: runPulseStart,
}

// PulseTickCmd runs a single dispatcher pass
var PulseTickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one dispatcher pass and exit",
	RunE:  runPulseTick,
}

var pulseTickJSON bool

func init() {
	PulseStartCmd.Flags().String("cadence", "", "Override scheduler.cadence (cron spec or @every descriptor)")
	PulseTickCmd.Flags().BoolVar(&pulseTickJSON, "json", false, "Print the tick report as JSON")

	PulseCmd.AddCommand(PulseStartCmd)
	PulseCmd.AddCommand(PulseTickCmd)
}

func runPulseStart(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cadence, _ := cmd.Flags().GetString("cadence")
	if cadence == "" {
		cadence = a.cfg.GetCadence()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := a.dispatcher()
	ticker, err := schedule.NewTickerWithContext(ctx, dispatcher, schedule.NewStore(a.db),
		schedule.TickerConfig{Cadence: cadence}, logger.ComponentLogger("pulse"))
	if err != nil {
		return err
	}
	ticker.Start()

	fmt.Printf("%s Pulse started\n", sym.Pulse)
	fmt.Printf("  Cadence: %s\n", cadence)
	fmt.Printf("  Batch size: %d\n", a.cfg.GetBatchSize())
	fmt.Printf("  Lease: %ds\n", a.cfg.GetLeaseSeconds())
	fmt.Printf("  Worker: %s\n", dispatcher.WorkerID())
	fmt.Printf("\n%s Press Ctrl+C for graceful shutdown\n\n", sym.Pulse)

	<-ctx.Done()

	fmt.Printf("\n%s Stopping, waiting for the running tick...\n", sym.Pulse)
	ticker.Stop()

	stats := ticker.Stats()
	fmt.Printf("%s Pulse stopped after %d tick(s), %d skipped\n", sym.Pulse, stats.TicksSinceStart, stats.SkippedOverlaps)
	return nil
}

func runPulseTick(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := a.dispatcher().Tick(ctx, time.Now().UTC())

	if pulseTickJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal tick report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else if err := printTickReport(report); err != nil {
		return err
	}

	if report.Errored > 0 {
		return fmt.Errorf("%d schedule(s) hit a transient error and stay pending", report.Errored)
	}
	return nil
}

func printTickReport(r schedule.TickReport) error {
	if r.Due == 0 {
		pterm.Info.Println("Nothing due")
		return nil
	}
	rows := [][]string{
		{"Due", fmt.Sprint(r.Due)},
		{"Completed", fmt.Sprint(r.Completed)},
		{"Rescheduled", fmt.Sprint(r.Rescheduled)},
		{"Failed", fmt.Sprint(r.Failed)},
		{"Skipped", fmt.Sprint(r.Skipped)},
		{"Dropped", fmt.Sprint(r.Dropped)},
		{"Errored", fmt.Sprint(r.Errored)},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	}
	pterm.DefaultSection.Println(sym.Pulse + " Tick report")
	return pterm.DefaultTable.WithData(rows).Render()
}
