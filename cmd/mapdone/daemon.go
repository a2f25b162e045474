package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/mapdone/internal/audio"
	"github.com/platinummonkey/mapdone/internal/daemon"
	"github.com/platinummonkey/mapdone/internal/library"
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run in daemon mode with periodic rescans",
	Long: `Run mapdone as a long-running daemon process.

The daemon rescans the Songs folder at the configured interval so the library
follows your edits. It handles signals gracefully and can be monitored and
controlled over HTTP.

Features:
- Periodic scan at configurable interval
- Graceful shutdown on SIGTERM/SIGINT
- Optional HTTP endpoints: /health, /ready, /status,
  POST /api/scan/trigger and POST /api/scan/cancel
- Optional PID file for process management
- Continues running even if individual scans fail

Examples:
  # Run daemon with default 10 minute interval
  mapdone daemon

  # Rescan every minute with the HTTP endpoints on localhost
  mapdone daemon --scan-interval 1m --health-addr 127.0.0.1:8089

  # Run with PID file
  mapdone daemon --pid-file ~/.mapdone/mapdone.pid`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	// Daemon-specific flags
	daemonCmd.Flags().Duration("scan-interval", 0, "scan interval (e.g., 5m, 1h; default 10m)")
	daemonCmd.Flags().String("health-addr", "", "HTTP address for health and control endpoints (e.g., 127.0.0.1:8089)")
	daemonCmd.Flags().String("pid-file", "", "PID file path")
	daemonCmd.Flags().String("mapper-filter", "", "only track maps whose creator or difficulty name contains this text")
	daemonCmd.Flags().Int("workers", 0, "parallel scan workers (0 = automatic)")
	daemonCmd.Flags().Bool("prune-missing", false, "remove library items whose file no longer exists")
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.cfg.ValidateDaemon(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.log.WithFields(
		"songs_dir", a.cfg.SongsDir,
		"interval", a.cfg.ScanInterval,
	).Info("Starting daemon")

	tracker := daemon.NewStatusTracker()

	syncer, err := library.New(&library.Config{
		Config:     a.cfg,
		Logger:     a.log,
		Store:      a.store,
		Prober:     audio.NewProber(),
		OnProgress: tracker.ObserveProgress,
	})
	if err != nil {
		return fmt.Errorf("failed to create syncer: %w", err)
	}

	d, err := daemon.New(&daemon.Config{
		Syncer:          syncer,
		Logger:          a.log,
		ScanInterval:    a.cfg.ScanInterval,
		HealthCheckAddr: a.cfg.HealthAddr,
		PIDFile:         a.cfg.PIDFile,
		StatusTracker:   tracker,
	})
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	// Run daemon (blocks until shutdown signal)
	if err := d.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("daemon error: %w", err)
	}

	a.log.Info("Daemon shutdown complete")
	return nil
}
