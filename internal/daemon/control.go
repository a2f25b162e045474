package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
)

// ControlResponse is the standard response for control API calls
type ControlResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// scanControl manages manual scan triggering and cancellation
type scanControl struct {
	mu            sync.Mutex
	manualTrigger chan struct{}
	cancelScan    context.CancelFunc
}

func newScanControl() *scanControl {
	return &scanControl{
		manualTrigger: make(chan struct{}, 1), // Buffered to prevent blocking
	}
}

// trigger requests a manual scan. It returns false if one is already queued.
func (sc *scanControl) trigger() bool {
	select {
	case sc.manualTrigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// begin registers the cancel function of the running scan
func (sc *scanControl) begin(cancel context.CancelFunc) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cancelScan = cancel
}

// end clears the running scan
func (sc *scanControl) end() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cancelScan = nil
}

// cancel stops the running scan, reporting whether there was one
func (sc *scanControl) cancel() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.cancelScan == nil {
		return false
	}
	sc.cancelScan()
	sc.cancelScan = nil
	return true
}

// handleTriggerScan handles POST /api/scan/trigger
// Queues an immediate scan without waiting for the next scheduled interval
func (d *Daemon) handleTriggerScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if d.statusTracker.GetStatus().State == StateScanning {
		respondJSON(w, http.StatusConflict, ControlResponse{
			Success: false,
			Message: "Scan already in progress",
		})
		return
	}

	if !d.control.trigger() {
		respondJSON(w, http.StatusAccepted, ControlResponse{
			Success: true,
			Message: "Scan already queued",
		})
		return
	}

	d.logger.Info("Manual scan requested")
	respondJSON(w, http.StatusAccepted, ControlResponse{
		Success: true,
		Message: "Scan queued",
	})
}

// handleCancelScan handles POST /api/scan/cancel
func (d *Daemon) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !d.control.cancel() {
		respondJSON(w, http.StatusConflict, ControlResponse{
			Success: false,
			Message: "No scan in progress to cancel",
		})
		return
	}

	d.logger.Info("Scan cancellation requested")
	respondJSON(w, http.StatusAccepted, ControlResponse{
		Success: true,
		Message: "Scan cancellation requested",
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log error but can't change response at this point
		return
	}
}
