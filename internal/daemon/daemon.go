// Package daemon provides long-running background library scans.
package daemon

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/platinummonkey/mapdone/internal/library"
	"github.com/platinummonkey/mapdone/internal/logger"
)

// scanTimeout bounds a single scan
const scanTimeout = 30 * time.Minute

// Syncer runs one library sync. *library.Syncer satisfies it.
type Syncer interface {
	Sync(ctx context.Context) (*library.Result, error)
}

// Daemon manages periodic library scans in the background
type Daemon struct {
	syncer        Syncer
	logger        *logger.Logger
	interval      time.Duration
	healthAddr    string
	pidFile       string
	httpServer    *http.Server
	listenAddr    string
	statusTracker *StatusTracker
	control       *scanControl
}

// Config holds configuration for the daemon
type Config struct {
	Syncer          Syncer
	Logger          *logger.Logger
	ScanInterval    time.Duration  // How often to scan (default: 10 minutes)
	HealthCheckAddr string         // Optional HTTP address (e.g. "127.0.0.1:8089")
	PIDFile         string         // Optional PID file path
	StatusTracker   *StatusTracker // Optional; shared with the syncer's progress callback
}

// New creates a new daemon instance
func New(cfg *Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.Syncer == nil {
		return nil, fmt.Errorf("syncer is required")
	}

	// Use provided logger or get default
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	// Default scan interval
	interval := cfg.ScanInterval
	if interval == 0 {
		interval = 10 * time.Minute
	}

	tracker := cfg.StatusTracker
	if tracker == nil {
		tracker = NewStatusTracker()
	}

	return &Daemon{
		syncer:        cfg.Syncer,
		logger:        log,
		interval:      interval,
		healthAddr:    cfg.HealthCheckAddr,
		pidFile:       cfg.PIDFile,
		statusTracker: tracker,
		control:       newScanControl(),
	}, nil
}

// Status returns the daemon's status tracker
func (d *Daemon) Status() *StatusTracker {
	return d.statusTracker
}

// Run starts the daemon and blocks until a shutdown signal is received or
// ctx is cancelled
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.WithFields("interval", d.interval).Info("Starting daemon")

	// Write PID file if configured
	if d.pidFile != "" {
		if err := d.writePIDFile(); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer d.removePIDFile()
	}

	// Start HTTP server if configured
	if d.healthAddr != "" {
		if err := d.startHealthCheck(); err != nil {
			return fmt.Errorf("failed to start health check: %w", err)
		}
		defer d.stopHealthCheck()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("Running initial scan")
	d.runScan(ctx)
	d.statusTracker.SetNextScanTime(time.Now().Add(d.interval))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Context canceled, shutting down")
			return ctx.Err()

		case sig := <-sigChan:
			d.logger.WithFields("signal", sig.String()).Info("Received shutdown signal")
			return nil

		case <-d.control.manualTrigger:
			d.logger.Info("Running manually triggered scan")
			d.runScan(ctx)

		case <-ticker.C:
			d.logger.Info("Scan interval elapsed, triggering scan")
			d.runScan(ctx)
			d.statusTracker.SetNextScanTime(time.Now().Add(d.interval))
		}
	}
}

// runScan executes a single scan with error recovery
func (d *Daemon) runScan(ctx context.Context) {
	startTime := time.Now()

	scanCtx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()
	d.control.begin(cancel)
	defer d.control.end()

	d.statusTracker.ScanStarted()
	result, err := d.syncer.Sync(scanCtx)
	duration := time.Since(startTime)

	if err != nil {
		d.statusTracker.ScanFailed(err, duration)
		d.logger.WithFields("error", err, "duration", duration).
			Error("Scan failed")
		return
	}

	d.statusTracker.ScanCompleted(SummaryFromResult(startTime, result))

	d.logger.WithFields(
		"total", result.TotalFiles,
		"processed", result.Processed,
		"cached", result.Cached,
		"failed", result.FailureCount,
		"duration", duration,
	).Info("Scan completed")

	if result.HasFailures() {
		d.logger.WithFields("count", result.FailureCount).
			Warn("Scan completed with failures")
		for _, failure := range result.Failures {
			d.logger.WithFailure(failure.Path, string(failure.Phase), failure.Error).
				Warn("Map file failed")
		}
	}
}

// writePIDFile writes the current process ID to the configured PID file
func (d *Daemon) writePIDFile() error {
	pid := os.Getpid()
	content := fmt.Sprintf("%d\n", pid)

	if err := os.WriteFile(d.pidFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	d.logger.WithFields("pid", pid, "file", d.pidFile).Info("Wrote PID file")
	return nil
}

// removePIDFile removes the PID file
func (d *Daemon) removePIDFile() {
	if d.pidFile == "" {
		return
	}

	if err := os.Remove(d.pidFile); err != nil {
		d.logger.WithFields("file", d.pidFile, "error", err).
			Warn("Failed to remove PID file")
	} else {
		d.logger.WithFields("file", d.pidFile).Info("Removed PID file")
	}
}

// handler builds the HTTP routes
func (d *Daemon) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	})

	// Ready once the first scan has finished, successfully or not
	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		status := d.statusTracker.GetStatus()
		if status.LastScanResult == nil && status.State != StateError {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT READY\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	})

	mux.HandleFunc("/status", d.handleStatus)
	mux.HandleFunc("/api/scan/trigger", d.handleTriggerScan)
	mux.HandleFunc("/api/scan/cancel", d.handleCancelScan)

	return mux
}

// startHealthCheck starts the HTTP server
func (d *Daemon) startHealthCheck() error {
	ln, err := net.Listen("tcp", d.healthAddr)
	if err != nil {
		return err
	}
	d.listenAddr = ln.Addr().String()

	d.httpServer = &http.Server{
		Handler:           d.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		d.logger.WithFields("addr", d.listenAddr).Info("Starting health check server")
		if err := d.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			d.logger.WithFields("error", err).Error("Health check server failed")
		}
	}()

	return nil
}

// stopHealthCheck stops the HTTP server
func (d *Daemon) stopHealthCheck() {
	if d.httpServer == nil {
		return
	}

	d.logger.Info("Stopping health check server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.httpServer.Shutdown(ctx); err != nil {
		d.logger.WithFields("error", err).Warn("Failed to shutdown health check server gracefully")
	} else {
		d.logger.Info("Health check server stopped")
	}
}
