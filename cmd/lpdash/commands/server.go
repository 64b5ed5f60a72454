package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sharanvkt/insane-dashboard-v2/am"
	"github.com/sharanvkt/insane-dashboard-v2/domain"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
	"github.com/sharanvkt/insane-dashboard-v2/pulse/schedule"
	"github.com/sharanvkt/insane-dashboard-v2/server"
	"github.com/sharanvkt/insane-dashboard-v2/version"
)

// ServerCmd starts the dashboard JSON API
var ServerCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"serve"},
	Short:   "Start the dashboard JSON API server",
	Long: `Start the dashboard JSON API server.

Requests are expected behind an authenticating proxy that sets the caller's
email in server.identity_header (default X-Authenticated-Email). Live changes
are streamed to /api/events over WebSocket. With scheduler.enabled the Pulse
ticker runs in-process, and the permission table is reloaded whenever the
active am.toml changes.`,
	RunE: runServer,
}

var (
	serverPort      int
	serverScheduler bool
)

func init() {
	ServerCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Port to listen on (overrides server.port)")
	ServerCmd.Flags().BoolVar(&serverScheduler, "scheduler", false, "Run the Pulse ticker even if scheduler.enabled is false")
}

func runServer(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := server.ConfigFrom(a.cfg)
	if serverPort != 0 {
		cfg.Port = serverPort
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := server.NewHub(a.resolver, domain.NewStore(a.db), logger.ComponentLogger("events"))
	a.service.SetEvents(hub)
	srv := server.New(a.service, hub, cfg, logger.ComponentLogger("server"))

	var ticker *schedule.Ticker
	if a.cfg.Scheduler.Enabled || serverScheduler {
		dispatcher := a.dispatcher()
		dispatcher.SetBroadcaster(hub)
		ticker, err = schedule.NewTickerWithContext(ctx, dispatcher, schedule.NewStore(a.db),
			schedule.TickerConfig{Cadence: a.cfg.GetCadence()}, logger.ComponentLogger("pulse"))
		if err != nil {
			srv.Stop()
			return err
		}
		ticker.Start()
		defer ticker.Stop()
	}

	if path := am.ActiveConfigPath(); path != "" {
		watcher, err := am.NewConfigWatcher(path, logger.ComponentLogger("am"))
		if err != nil {
			// Serving without hot reload is still useful
			logger.Logger.Warnw("Config hot reload disabled", logger.FieldError, err)
		} else {
			watcher.OnReload(a.resolver.Reload)
			watcher.Start()
			defer watcher.Stop()
		}
	}

	verbosity, _ := cmd.Flags().GetCount("verbose")
	printServerBanner(cfg, a.cfg, ticker != nil, verbosity)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return errors.Wrap(err, "server stopped unexpectedly")
	case <-sigChan:
		pterm.Info.Println("Shutting down gracefully (press Ctrl+C again to force)...")
		cancel()

		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("shutdown error: %w", err)
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("Force shutdown - exiting immediately")
			os.Exit(1)
			return nil
		}
	}
}

func printServerBanner(cfg server.Config, core *am.Config, scheduler bool, verbosity int) {
	info := version.Get()

	pulse := pterm.Gray("off")
	if scheduler {
		pulse = pterm.Green(core.GetCadence())
	}
	limit := "unlimited"
	if cfg.RateLimitPerMinute > 0 {
		limit = fmt.Sprintf("%d/min per identity", cfg.RateLimitPerMinute)
	}

	panel := fmt.Sprintf("Version:   %s (commit %s)\nListening: http://localhost:%d\nIdentity:  %s\nDatabase:  %s\nPulse:     %s\nRate:      %s\nVerbosity: %s",
		info.Version, info.Short(), cfg.Port, cfg.IdentityHeader, core.GetDatabasePath(), pulse, limit, logger.LevelName(verbosity))
	pterm.DefaultBox.WithTitle("lpdash").Println(panel)
	pterm.Info.Println("Press Ctrl+C to stop")
}
