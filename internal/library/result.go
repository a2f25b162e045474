package library

import (
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/mapdone/internal/scan"
	"github.com/platinummonkey/mapdone/internal/state"
)

// Result contains the outcome of one library sync
type Result struct {
	TotalFiles   int
	Processed    int
	Cached       int
	Skipped      int
	Added        int
	Pruned       int
	SuccessCount int
	FailureCount int
	Duration     time.Duration
	Successes    []ItemResult
	Failures     []FileFailure

	// cached entries that were parsed again because their audio changed
	refreshed int
}

// ItemResult describes one item that was parsed or refreshed
type ItemResult struct {
	ItemID         string
	Path           string
	Title          string
	Progress       float64
	DurationSource state.DurationSource
	New            bool
}

// FileFailure is a map file that could not be read, keyed by path and phase
type FileFailure struct {
	Path  string
	Phase scan.Phase
	Error error
}

// NewResult creates an empty result
func NewResult() *Result {
	return &Result{
		Successes: make([]ItemResult, 0),
		Failures:  make([]FileFailure, 0),
	}
}

// AddSuccess records a parsed item
func (r *Result) AddSuccess(item ItemResult) {
	r.Successes = append(r.Successes, item)
	r.SuccessCount++
	if item.New {
		r.Added++
	}
}

// AddFailure records a per-file failure
func (r *Result) AddFailure(path string, phase scan.Phase, err error) {
	r.Failures = append(r.Failures, FileFailure{
		Path:  path,
		Phase: phase,
		Error: err,
	})
	r.FailureCount++
}

// HasFailures returns true if any file failed
func (r *Result) HasFailures() bool {
	return r.FailureCount > 0
}

// FailuresByPhase counts failures per phase
func (r *Result) FailuresByPhase() map[scan.Phase]int {
	counts := make(map[scan.Phase]int)
	for _, f := range r.Failures {
		counts[f.Phase]++
	}
	return counts
}

// Summary returns a human-readable summary of the sync
func (r *Result) Summary() string {
	var sb strings.Builder

	sb.WriteString("Scan Summary:\n")
	fmt.Fprintf(&sb, "  Map Files: %d\n", r.TotalFiles)
	fmt.Fprintf(&sb, "  Parsed: %d (%d new)\n", r.Processed, r.Added)
	fmt.Fprintf(&sb, "  Unchanged: %d\n", r.Cached)
	fmt.Fprintf(&sb, "  Filtered Out: %d\n", r.Skipped)
	if r.Pruned > 0 {
		fmt.Fprintf(&sb, "  Pruned: %d\n", r.Pruned)
	}
	fmt.Fprintf(&sb, "  Failed: %d\n", r.FailureCount)
	fmt.Fprintf(&sb, "  Duration: %v\n", r.Duration.Round(time.Millisecond))

	if r.HasFailures() {
		sb.WriteString("\nFailures:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&sb, "  - [%s] %s: %v\n", f.Phase, f.Path, f.Error)
		}
	}

	return sb.String()
}

// String returns a string representation of the result
func (r *Result) String() string {
	return r.Summary()
}
