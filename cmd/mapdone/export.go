package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/mapdone/internal/highlight"
	"github.com/platinummonkey/mapdone/internal/osu"
	"github.com/platinummonkey/mapdone/internal/state"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the library as YAML or JSON",
	Long: `Export every tracked map with metadata, status and highlight ranges.

Highlight ranges are written as [start, end, kind] tuples with start and end
as fractions of the track length and kind one of o (object), b (break) or
k (bookmark).

Examples:
  mapdone export > library.yaml
  mapdone export --format json --status todo --output todo.json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("format", "yaml", "output format (yaml, json)")
	exportCmd.Flags().StringP("output", "o", "", "output file (default is stdout)")
	exportCmd.Flags().String("status", "all", "filter by status (todo, completed, all)")
}

// exportDoc is the top-level export document
type exportDoc struct {
	ExportedAt time.Time    `json:"exported_at" yaml:"exported_at"`
	LastScan   time.Time    `json:"last_scan" yaml:"last_scan"`
	Items      []exportItem `json:"items" yaml:"items"`
}

// exportItem is one map in the export document
type exportItem struct {
	ID             string           `json:"id" yaml:"id"`
	File           string           `json:"file" yaml:"file"`
	Metadata       osu.Metadata     `json:"metadata" yaml:"metadata"`
	Status         state.Status     `json:"status" yaml:"status"`
	Progress       float64          `json:"progress" yaml:"progress"`
	DurationMs     int              `json:"duration_ms" yaml:"duration_ms"`
	DurationSource string           `json:"duration_source" yaml:"duration_source"`
	Objects        int              `json:"objects" yaml:"objects"`
	Due            string           `json:"due,omitempty" yaml:"due,omitempty"`
	AddedAt        time.Time        `json:"added_at" yaml:"added_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Highlights     highlight.Ranges `json:"highlights" yaml:"highlights"`
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	statusFlag, _ := cmd.Flags().GetString("status")

	items, err := filterItems(a.store.Items(), statusFlag, "")
	if err != nil {
		return err
	}

	doc := buildExport(items, a.store.LastScan(), a.cfg.IgnoreStartAndBreaks)

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if err := writeExport(w, doc, format); err != nil {
		return err
	}

	if output != "" {
		a.log.WithFields("file", output, "items", len(doc.Items), "format", format).Info("Exported library")
	}
	return nil
}

func buildExport(items []*state.Item, lastScan time.Time, ignoreStartAndBreaks bool) exportDoc {
	doc := exportDoc{
		ExportedAt: time.Now().UTC(),
		LastScan:   lastScan,
		Items:      make([]exportItem, 0, len(items)),
	}
	for _, it := range items {
		e := exportItem{
			ID:             it.ID,
			File:           it.FilePath,
			Metadata:       it.Metadata,
			Status:         it.Status,
			Progress:       highlight.Progress(it.Highlights, ignoreStartAndBreaks),
			DurationMs:     it.DurationMs,
			DurationSource: string(it.DurationSource),
			Objects:        it.ObjectCount,
			AddedAt:        it.AddedAt,
			Highlights:     it.Highlights,
		}
		if e.Highlights == nil {
			e.Highlights = highlight.Ranges{}
		}
		if it.HasDue() {
			e.Due = it.DueDate.Format(dueLayout)
		}
		if !it.CompletedAt.IsZero() {
			completed := it.CompletedAt
			e.CompletedAt = &completed
		}
		doc.Items = append(doc.Items, e)
	}
	return doc
}

func writeExport(w io.Writer, doc exportDoc, format string) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("invalid format %q, must be one of: yaml, json", format)
	}
}
