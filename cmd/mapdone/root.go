package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/platinummonkey/mapdone/internal/config"
	"github.com/platinummonkey/mapdone/internal/logger"
	"github.com/platinummonkey/mapdone/internal/state"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mapdone",
	Short: "Track progress on the beatmaps you are making",
	Long: `mapdone keeps a todo list of the beatmaps in your osu! Songs folder and
shows how much of each track is already mapped.

Features:
  - Scan the Songs folder for .osu files, re-reading only changed ones
  - Measure track length from the audio file (mp3, ogg, wav)
  - Timeline strip of mapped sections, breaks and bookmarks
  - Completion percentage per map
  - Todo/completed status and due dates
  - Filter to your own difficulties with --mapper-filter
  - Daemon mode for continuous rescans`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags; names match configuration keys so config.Load binds them
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mapdone.yaml)")
	pf.String("songs-dir", "", "osu! Songs directory")
	pf.String("state-file", "", "library file (default is $HOME/.mapdone/library.json or library.db)")
	pf.String("state-backend", "json", "library storage backend (json, sqlite)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")
	pf.Bool("ignore-start-and-breaks", false, "count breaks as mapped and ignore the lead-in when computing progress")
}

// app bundles what every command needs
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	store state.Store
}

// setup loads configuration, creates the logger and opens the library
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := state.LoadOrCreate(cfg.StateBackend, cfg.StateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	log.WithFields("state_file", cfg.StateFile, "backend", cfg.StateBackend).Debug("Opened library")
	return &app{cfg: cfg, log: log, store: store}, nil
}

// close releases the store and flushes the logger
func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close library")
	}
	_ = a.log.Sync()
}

// find resolves an item reference or explains why it could not
func (a *app) find(ref string) (*state.Item, error) {
	it, err := a.store.Find(ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	return it, nil
}

// Bounds for a timeline sized to the terminal
const (
	minTimelineWidth = 10
	maxTimelineWidth = 120
)

// stdoutIsTerminal reports whether styled output makes sense
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// timelineWidth returns --width when it was given. Otherwise, on a terminal,
// the timeline takes what is left of the line after reserved columns.
func timelineWidth(cmd *cobra.Command, reserved int) int {
	width, _ := cmd.Flags().GetInt("width")
	if cmd.Flags().Changed("width") || !stdoutIsTerminal() {
		return width
	}
	cols, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return width
	}
	return fitWidth(cols, reserved)
}

func fitWidth(cols, reserved int) int {
	w := cols - reserved
	if w < minTimelineWidth {
		return minTimelineWidth
	}
	if w > maxTimelineWidth {
		return maxTimelineWidth
	}
	return w
}
