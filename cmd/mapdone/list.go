package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/mapdone/internal/highlight"
	"github.com/platinummonkey/mapdone/internal/osu"
	"github.com/platinummonkey/mapdone/internal/state"
	"github.com/platinummonkey/mapdone/internal/timeline"
)

// shortIDLen is how many ID characters the list shows
const shortIDLen = 8

// listReservedCols approximates the table columns around the timeline
const listReservedCols = 110

var headerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#4ECDC4")).
	Bold(true)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked maps with their progress",
	Long: `List the maps in the library with completion percentage and timeline.

Examples:
  # Everything still to do, closest due date first
  mapdone list --status todo --sort due

  # Least finished first
  mapdone list --sort progress`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("status", "all", "filter by status (todo, completed, all)")
	listCmd.Flags().String("sort", "added", "sort order (added, progress, due, title)")
	listCmd.Flags().String("mapper", "", "only show maps whose creator or difficulty name contains this text")
	listCmd.Flags().Int("width", timeline.DefaultWidth, "timeline width in cells, 0 hides it (default fits the terminal)")
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	statusFlag, _ := cmd.Flags().GetString("status")
	sortFlag, _ := cmd.Flags().GetString("sort")
	mapper, _ := cmd.Flags().GetString("mapper")
	width := timelineWidth(cmd, listReservedCols)

	items, err := filterItems(a.store.Items(), statusFlag, mapper)
	if err != nil {
		return err
	}
	for _, it := range items {
		it.Progress = highlight.Progress(it.Highlights, a.cfg.IgnoreStartAndBreaks)
	}
	if err := sortItems(items, sortFlag); err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Println("No maps tracked. Run 'mapdone scan' first.")
		return nil
	}

	styled := stdoutIsTerminal()
	headers := []string{"ID", "Title", "Difficulty", "Mapper", "Progress"}
	if width > 0 {
		headers = append(headers, "Timeline")
	}
	headers = append(headers, "Objects", "Status", "Due", "Added")

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		row := []string{
			shortID(it.ID),
			it.Metadata.DisplayTitle(),
			it.Metadata.Version,
			it.Metadata.Creator,
			timeline.Percent(it.Progress, styled),
		}
		if width > 0 {
			row = append(row, timeline.Render(it.Highlights, width, styled))
		}
		row = append(row,
			humanize.Comma(int64(it.ObjectCount)),
			string(it.Status),
			dueText(it),
			humanize.Time(it.AddedAt),
		)
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	if styled {
		t = t.StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		})
	}
	fmt.Println(t.String())

	todo := 0
	for _, it := range items {
		if it.Status == state.StatusTodo {
			todo++
		}
	}
	fmt.Printf("%d maps, %d to do\n", len(items), todo)
	return nil
}

// filterItems applies the status and mapper filters
func filterItems(items []*state.Item, status, mapper string) ([]*state.Item, error) {
	var want state.Status
	if s := strings.ToLower(strings.TrimSpace(status)); s != "" && s != "all" {
		parsed, ok := state.ParseStatus(s)
		if !ok {
			return nil, fmt.Errorf("invalid status %q, must be one of: todo, completed, all", status)
		}
		want = parsed
	}

	out := items[:0]
	for _, it := range items {
		if want != "" && it.Status != want {
			continue
		}
		header := osu.Header{Creator: it.Metadata.Creator, Version: it.Metadata.Version}
		if !header.Matches(mapper) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// sortItems orders items in place. Items without a due date sort last when
// sorting by due date.
func sortItems(items []*state.Item, by string) error {
	var less func(a, b *state.Item) bool
	switch strings.ToLower(by) {
	case "", "added":
		less = func(a, b *state.Item) bool { return a.AddedAt.Before(b.AddedAt) }
	case "progress":
		less = func(a, b *state.Item) bool { return a.Progress < b.Progress }
	case "due":
		less = func(a, b *state.Item) bool {
			if a.HasDue() != b.HasDue() {
				return a.HasDue()
			}
			return a.DueDate.Before(b.DueDate)
		}
	case "title":
		less = func(a, b *state.Item) bool {
			return strings.ToLower(a.Metadata.DisplayTitle()) < strings.ToLower(b.Metadata.DisplayTitle())
		}
	default:
		return fmt.Errorf("invalid sort %q, must be one of: added, progress, due, title", by)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if less(items[i], items[j]) {
			return true
		}
		if less(items[j], items[i]) {
			return false
		}
		return items[i].FilePath < items[j].FilePath
	})
	return nil
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func dueText(it *state.Item) string {
	if !it.HasDue() {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", it.DueDate.Format(dueLayout), humanize.Time(it.DueDate))
}
