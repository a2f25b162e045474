package daemon

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/platinummonkey/mapdone/internal/library"
	"github.com/platinummonkey/mapdone/internal/scan"
)

// ScanState represents the current state of the daemon scan loop
type ScanState string

const (
	// StateIdle indicates the daemon is running but not actively scanning
	StateIdle ScanState = "idle"

	// StateScanning indicates a scan is in progress
	StateScanning ScanState = "scanning"

	// StateError indicates the last scan failed
	StateError ScanState = "error"
)

// Status represents the current daemon status
type Status struct {
	// State is the current scan state (idle, scanning, error)
	State ScanState `json:"state"`

	// LastScanTime is the timestamp of the last scan attempt
	LastScanTime *time.Time `json:"last_scan_time,omitempty"`

	// NextScanTime is the estimated time of the next scheduled scan
	NextScanTime *time.Time `json:"next_scan_time,omitempty"`

	// ScanDuration is how long the last scan took
	ScanDuration *time.Duration `json:"scan_duration,omitempty"`

	// ErrorMessage contains the error from the last failed scan
	ErrorMessage string `json:"error_message,omitempty"`

	// CurrentScan contains information about an in-progress scan
	CurrentScan *ScanProgress `json:"current_scan,omitempty"`

	// LastScanResult contains the result of the last completed scan
	LastScanResult *ScanSummary `json:"last_scan_result,omitempty"`

	// UptimeSeconds is how long the daemon has been running
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// ScanProgress tracks an in-progress scan
type ScanProgress struct {
	StartTime      time.Time `json:"start_time"`
	FilesTotal     int       `json:"files_total"`
	FilesProcessed int       `json:"files_processed"`
	Cached         int       `json:"cached"`
	Skipped        int       `json:"skipped"`
	Errored        int       `json:"errored"`
}

// ScanSummary contains a summary of a completed scan
type ScanSummary struct {
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     time.Duration `json:"duration"`
	TotalFiles   int           `json:"total_files"`
	Processed    int           `json:"processed"`
	Cached       int           `json:"cached"`
	Skipped      int           `json:"skipped"`
	Added        int           `json:"added"`
	Pruned       int           `json:"pruned"`
	FailureCount int           `json:"failure_count"`
}

// SummaryFromResult converts a library sync result
func SummaryFromResult(start time.Time, r *library.Result) ScanSummary {
	return ScanSummary{
		StartTime:    start,
		EndTime:      start.Add(r.Duration),
		Duration:     r.Duration,
		TotalFiles:   r.TotalFiles,
		Processed:    r.Processed,
		Cached:       r.Cached,
		Skipped:      r.Skipped,
		Added:        r.Added,
		Pruned:       r.Pruned,
		FailureCount: r.FailureCount,
	}
}

// StatusTracker tracks the daemon's current status in a thread-safe manner
type StatusTracker struct {
	mu         sync.RWMutex
	state      ScanState
	startTime  time.Time
	lastScan   *time.Time
	nextScan   *time.Time
	lastDur    *time.Duration
	errMsg     string
	curScan    *ScanProgress
	lastResult *ScanSummary
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		state:     StateIdle,
		startTime: time.Now(),
	}
}

// GetStatus returns a snapshot of the current status
func (st *StatusTracker) GetStatus() Status {
	st.mu.RLock()
	defer st.mu.RUnlock()

	status := Status{
		State:          st.state,
		LastScanTime:   st.lastScan,
		NextScanTime:   st.nextScan,
		ScanDuration:   st.lastDur,
		ErrorMessage:   st.errMsg,
		LastScanResult: st.lastResult,
		UptimeSeconds:  int64(time.Since(st.startTime).Seconds()),
	}
	if st.curScan != nil {
		cur := *st.curScan
		status.CurrentScan = &cur
	}
	return status
}

// ScanStarted records the start of a scan
func (st *StatusTracker) ScanStarted() {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	st.state = StateScanning
	st.lastScan = &now
	st.errMsg = ""
	st.curScan = &ScanProgress{StartTime: now}
}

// ObserveProgress updates the in-progress counters. It matches the
// signature of the scan progress callback.
func (st *StatusTracker) ObserveProgress(p scan.Progress) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.curScan == nil {
		return
	}
	st.curScan.FilesTotal = p.Total
	st.curScan.FilesProcessed = p.Processed
	st.curScan.Cached = p.Cached
	st.curScan.Skipped = p.Skipped
	st.curScan.Errored = p.Errored
}

// ScanCompleted records a successful scan
func (st *StatusTracker) ScanCompleted(summary ScanSummary) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state = StateIdle
	st.curScan = nil
	st.lastResult = &summary
	st.errMsg = ""

	dur := summary.Duration
	st.lastDur = &dur
}

// ScanFailed records a failed scan
func (st *StatusTracker) ScanFailed(err error, duration time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state = StateError
	st.curScan = nil
	st.lastDur = &duration

	if err != nil {
		st.errMsg = err.Error()
	}
}

// SetNextScanTime updates when the next scan is scheduled
func (st *StatusTracker) SetNextScanTime(t time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.nextScan = &t
}

// handleStatus serves the current status as JSON
func (d *Daemon) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := d.statusTracker.GetStatus()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		d.logger.WithError(err).Error("Failed to encode status")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
}
