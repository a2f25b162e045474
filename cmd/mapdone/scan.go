package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/mapdone/internal/audio"
	"github.com/platinummonkey/mapdone/internal/library"
	"github.com/platinummonkey/mapdone/internal/scan"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [songs-dir]",
	Short: "Scan the Songs folder and update the library",
	Long: `Scan the Songs folder for .osu files and update the library.

This command:
1. Finds every .osu file below the Songs folder
2. Skips files whose modification time has not changed
3. Parses new and changed files
4. Measures track length from the audio file
5. Rebuilds timeline highlights and completion percentage
6. Saves the library

Examples:
  # Scan the configured Songs folder
  mapdone scan

  # Scan a specific folder, keeping only your own difficulties
  mapdone scan ~/osu/Songs --mapper-filter myname

  # Re-read every file
  mapdone scan --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	// Scan-specific flags
	scanCmd.Flags().Bool("force", false, "re-parse every file, ignoring stored modification times")
	scanCmd.Flags().String("mapper-filter", "", "only track maps whose creator or difficulty name contains this text")
	scanCmd.Flags().Int("workers", 0, "parallel scan workers (0 = automatic)")
	scanCmd.Flags().Bool("prune-missing", false, "remove library items whose file no longer exists")
	scanCmd.Flags().Bool("quiet", false, "do not print progress")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) == 1 {
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid songs directory: %w", err)
		}
		a.cfg.SongsDir = dir
	}

	force, _ := cmd.Flags().GetBool("force")
	quiet, _ := cmd.Flags().GetBool("quiet")

	var onProgress func(scan.Progress)
	if !quiet {
		onProgress = progressPrinter()
	}

	syncer, err := library.New(&library.Config{
		Config:     a.cfg,
		Logger:     a.log,
		Store:      a.store,
		Prober:     audio.NewProber(),
		Force:      force,
		OnProgress: onProgress,
	})
	if err != nil {
		return fmt.Errorf("failed to create syncer: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := syncer.Sync(ctx)
	if onProgress != nil {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Println(result.Summary())

	if result.HasFailures() {
		return fmt.Errorf("scan completed with %d failures", result.FailureCount)
	}
	return nil
}

// progressPrinter redraws a single status line on stderr, at most every
// 100ms plus once when the scan is done.
func progressPrinter() func(scan.Progress) {
	var last time.Time
	return func(p scan.Progress) {
		done := p.Done()
		if done < p.Total && time.Since(last) < 100*time.Millisecond {
			return
		}
		last = time.Now()
		fmt.Fprintf(os.Stderr, "\rScanning: %d/%d files (%d unchanged, %d filtered, %d failed)",
			done, p.Total, p.Cached, p.Skipped, p.Errored)
	}
}
