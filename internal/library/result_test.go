package library

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/platinummonkey/mapdone/internal/scan"
	"github.com/platinummonkey/mapdone/internal/state"
)

func TestNewResult(t *testing.T) {
	result := NewResult()

	if result == nil {
		t.Fatal("NewResult() returned nil")
	}

	if result.Successes == nil {
		t.Error("Successes slice should be initialized")
	}

	if result.Failures == nil {
		t.Error("Failures slice should be initialized")
	}

	if result.HasFailures() {
		t.Error("HasFailures() should be false initially")
	}
}

func TestResult_AddSuccess(t *testing.T) {
	result := NewResult()

	result.AddSuccess(ItemResult{ItemID: "item-1", Path: "/songs/a.osu", New: true})
	result.AddSuccess(ItemResult{ItemID: "item-2", Path: "/songs/b.osu"})

	if result.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2", result.SuccessCount)
	}

	if result.Added != 1 {
		t.Errorf("Added = %d, want 1", result.Added)
	}

	if result.Successes[0].ItemID != "item-1" {
		t.Error("Added success item ID doesn't match")
	}
}

func TestResult_AddFailure(t *testing.T) {
	result := NewResult()

	err := fmt.Errorf("permission denied")
	result.AddFailure("/songs/a.osu", scan.PhaseStat, err)
	result.AddFailure("/songs/b.osu", scan.PhaseParse, fmt.Errorf("bad"))
	result.AddFailure("/songs/c.osu", scan.PhaseParse, fmt.Errorf("worse"))

	if result.FailureCount != 3 {
		t.Errorf("FailureCount = %d, want 3", result.FailureCount)
	}

	if !result.HasFailures() {
		t.Error("HasFailures() should be true after adding a failure")
	}

	failure := result.Failures[0]
	if failure.Path != "/songs/a.osu" || failure.Phase != scan.PhaseStat || failure.Error != err {
		t.Errorf("unexpected failure %+v", failure)
	}

	byPhase := result.FailuresByPhase()
	if byPhase[scan.PhaseStat] != 1 || byPhase[scan.PhaseParse] != 2 {
		t.Errorf("unexpected phase counts %v", byPhase)
	}
}

func TestResult_Summary(t *testing.T) {
	result := NewResult()
	result.TotalFiles = 10
	result.Processed = 3
	result.Cached = 5
	result.Skipped = 1
	result.Pruned = 2
	result.Duration = time.Second * 30

	result.AddSuccess(ItemResult{ItemID: "item-1", Title: "Song", DurationSource: state.DurationAudio, New: true})
	result.AddFailure("/songs/broken.osu", scan.PhaseParse, fmt.Errorf("test error"))

	summary := result.Summary()

	expectedStrings := []string{
		"Scan Summary",
		"Map Files: 10",
		"Parsed: 3 (1 new)",
		"Unchanged: 5",
		"Filtered Out: 1",
		"Pruned: 2",
		"Failed: 1",
		"Duration: 30s",
		"Failures:",
		"[parse] /songs/broken.osu: test error",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(summary, expected) {
			t.Errorf("Summary should contain %q, got:\n%s", expected, summary)
		}
	}
}

func TestResult_Summary_NoFailures(t *testing.T) {
	result := NewResult()
	result.TotalFiles = 5
	result.Processed = 5

	summary := result.Summary()

	if strings.Contains(summary, "Failures:") {
		t.Error("Summary should not contain Failures section when there are no failures")
	}

	if strings.Contains(summary, "Pruned:") {
		t.Error("Summary should omit the pruned line when nothing was pruned")
	}
}

func TestResult_String(t *testing.T) {
	result := NewResult()
	result.TotalFiles = 5

	if result.String() != result.Summary() {
		t.Error("String() should return the same as Summary()")
	}
}
