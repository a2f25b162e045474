package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/mapdone/internal/library"
	"github.com/platinummonkey/mapdone/internal/state"
)

// dueLayout is the date format accepted and printed for due dates
const dueLayout = "2006-01-02"

var completeCmd = &cobra.Command{
	Use:     "complete <id|path>...",
	Aliases: []string{"done"},
	Short:   "Mark maps as completed",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateItems(cmd, args, "Completed", func(_ *app, it *state.Item) error {
			it.MarkCompleted()
			return nil
		})
	},
}

var todoCmd = &cobra.Command{
	Use:   "todo <id|path>...",
	Short: "Move maps back to the todo list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateItems(cmd, args, "Reopened", func(_ *app, it *state.Item) error {
			it.MarkTodo()
			return nil
		})
	},
}

var dueCmd = &cobra.Command{
	Use:   "due <id|path> <YYYY-MM-DD|none>",
	Short: "Set or clear a map's due date",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		due, err := parseDue(args[1])
		if err != nil {
			return err
		}
		return updateItems(cmd, args[:1], "Updated due date of", func(_ *app, it *state.Item) error {
			it.SetDue(due)
			return nil
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <id|path>...",
	Short: "Re-read map files and rebuild their timelines",
	Long: `Re-read the given map files immediately, keeping the stored track length.
Use 'mapdone scan --force' to also re-measure audio files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateItems(cmd, args, "Refreshed", func(a *app, it *state.Item) error {
			return library.Rebuild(it, a.cfg.IgnoreStartAndBreaks)
		})
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <id|path>...",
	Aliases: []string{"rm"},
	Short:   "Stop tracking maps (files are not touched)",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRemove,
}

func init() {
	rootCmd.AddCommand(completeCmd, todoCmd, dueCmd, refreshCmd, removeCmd)
}

// updateItems resolves every reference first, applies fn to each item and
// saves once. Nothing is saved if any reference fails to resolve.
func updateItems(cmd *cobra.Command, refs []string, verb string, fn func(*app, *state.Item) error) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	items := make([]*state.Item, 0, len(refs))
	for _, ref := range refs {
		it, err := a.find(ref)
		if err != nil {
			return err
		}
		items = append(items, it)
	}

	for _, it := range items {
		if err := fn(a, it); err != nil {
			return fmt.Errorf("%s: %w", it.FilePath, err)
		}
		a.store.Put(it)
	}

	if err := a.store.Save(); err != nil {
		return fmt.Errorf("failed to save library: %w", err)
	}

	for _, it := range items {
		fmt.Printf("%s %s [%s]\n", verb, it.Metadata.DisplayTitle(), it.Metadata.Version)
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	items := make([]*state.Item, 0, len(args))
	for _, ref := range args {
		it, err := a.find(ref)
		if err != nil {
			return err
		}
		items = append(items, it)
	}

	for _, it := range items {
		if err := a.store.Remove(it.ID); err != nil {
			return err
		}
	}
	if err := a.store.Save(); err != nil {
		return fmt.Errorf("failed to save library: %w", err)
	}

	for _, it := range items {
		fmt.Printf("Removed %s [%s]\n", it.Metadata.DisplayTitle(), it.Metadata.Version)
	}
	return nil
}

// parseDue accepts a calendar date or "none" to clear
func parseDue(s string) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "clear", "-":
		return time.Time{}, nil
	}
	t, err := time.Parse(dueLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q, expected YYYY-MM-DD or none", s)
	}
	return t, nil
}
