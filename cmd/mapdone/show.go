package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/mapdone/internal/highlight"
	"github.com/platinummonkey/mapdone/internal/state"
	"github.com/platinummonkey/mapdone/internal/timeline"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <id|path>",
	Short: "Show details and timeline for one map",
	Long: `Show metadata, completion and the highlight timeline of a single map.

The map can be given by its full ID, a unique ID prefix of at least four
characters, or its file path.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Int("width", timeline.DefaultWidth, "timeline width in cells (default fits the terminal)")
	showCmd.Flags().Bool("ranges", false, "also print the raw highlight ranges")
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	it, err := a.find(args[0])
	if err != nil {
		return err
	}

	width := timelineWidth(cmd, 4)
	showRanges, _ := cmd.Flags().GetBool("ranges")
	styled := stdoutIsTerminal()
	progress := highlight.Progress(it.Highlights, a.cfg.IgnoreStartAndBreaks)

	m := it.Metadata
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s - %s [%s]\n", m.DisplayArtist(), m.DisplayTitle(), m.Version)
	fmt.Fprintf(&sb, "  ID: %s\n", it.ID)
	fmt.Fprintf(&sb, "  File: %s", it.FilePath)
	if info, err := os.Stat(it.FilePath); err == nil {
		fmt.Fprintf(&sb, " (%s)", humanize.IBytes(uint64(info.Size())))
	} else {
		sb.WriteString(" (missing)")
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  Mapper: %s\n", m.Creator)
	if m.BeatmapSet != "" {
		fmt.Fprintf(&sb, "  Beatmap Set: %s\n", m.BeatmapSet)
	}
	if m.Background != "" {
		fmt.Fprintf(&sb, "  Background: %s\n", m.Background)
	}
	fmt.Fprintf(&sb, "  Length: %s (%s)\n", formatLength(it.DurationMs), it.DurationSource)
	if m.PreviewTime >= 0 {
		fmt.Fprintf(&sb, "  Preview: %s\n", formatLength(m.PreviewTime))
	}
	fmt.Fprintf(&sb, "  Objects: %s\n", humanize.Comma(int64(it.ObjectCount)))
	fmt.Fprintf(&sb, "  Status: %s", it.Status)
	if it.Status == state.StatusCompleted && !it.CompletedAt.IsZero() {
		fmt.Fprintf(&sb, " (%s)", humanize.Time(it.CompletedAt))
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  Due: %s\n", dueText(it))
	fmt.Fprintf(&sb, "  Added: %s\n", humanize.Time(it.AddedAt))
	fmt.Fprintf(&sb, "  Progress: %s\n", strings.TrimSpace(timeline.Percent(progress, styled)))
	if width > 0 {
		fmt.Fprintf(&sb, "  [%s]\n", timeline.Render(it.Highlights, width, styled))
	}

	if showRanges {
		data, err := highlight.Encode(it.Highlights)
		if err != nil {
			return fmt.Errorf("failed to encode ranges: %w", err)
		}
		fmt.Fprintf(&sb, "  Ranges: %s\n", data)
	}

	fmt.Print(sb.String())
	return nil
}

// formatLength renders milliseconds as m:ss
func formatLength(ms int) string {
	if ms <= 0 {
		return "unknown"
	}
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
