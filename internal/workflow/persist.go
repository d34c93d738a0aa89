package workflow

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/zjrosen/povtrack/internal/log"
)

// ErrSlotNotFound is returned by SlotStore.Load when the slot has never been
// written (or has been cleared).
var ErrSlotNotFound = errors.New("workflow slot not found")

// SlotStore is the durable key/value collaborator the tracker persists to.
// One named slot holds one serialized workflow snapshot.
type SlotStore interface {
	// Load returns the raw payload for key, or ErrSlotNotFound when absent.
	Load(key string) ([]byte, error)
	// Save writes the payload for key, replacing any prior value.
	Save(key string, payload []byte) error
	// Clear removes the slot for key. Clearing an absent slot is not an error.
	Clear(key string) error
}

// Snapshot is the persisted subset of workflow state. Loading flags and the
// last error are deliberately absent: a stale in-flight flag surviving a
// reload would wedge the UI.
type Snapshot struct {
	CurrentStep           Step           `json:"currentStep"`
	CompletedSteps        []Step         `json:"completedSteps"`
	ReportData            ReportData     `json:"reportData"`
	LastCompletedReportID string         `json:"lastCompletedReportId"`
	RecentReports         []RecentReport `json:"recentReports"`
}

// snapshotOf extracts the persisted subset of s.
func snapshotOf(s State) Snapshot {
	return Snapshot{
		CurrentStep:           s.CurrentStep,
		CompletedSteps:        s.CompletedSteps,
		ReportData:            s.ReportData,
		LastCompletedReportID: s.LastCompletedReportID,
		RecentReports:         s.RecentReports,
	}
}

// MarshalSnapshot serializes the persisted subset of s as the slot payload.
func MarshalSnapshot(s State) ([]byte, error) {
	return json.Marshal(snapshotOf(s))
}

// rawSnapshot mirrors Snapshot with undecoded fields so hydration can degrade
// per-field instead of rejecting the whole payload.
type rawSnapshot struct {
	CurrentStep           json.RawMessage `json:"currentStep"`
	CompletedSteps        json.RawMessage `json:"completedSteps"`
	ReportData            json.RawMessage `json:"reportData"`
	LastCompletedReportID json.RawMessage `json:"lastCompletedReportId"`
	RecentReports         json.RawMessage `json:"recentReports"`
}

// HydrateState merges a persisted payload into base, returning the hydrated
// state. Malformed payloads or fields degrade to base's values and are never
// surfaced as errors; loading and error state are left untouched.
func HydrateState(base State, payload []byte) State {
	var raw rawSnapshot
	if err := json.Unmarshal(payload, &raw); err != nil {
		log.Warn(log.CatWorkflow, "Malformed persisted state, falling back to defaults", "error", err)
		return base
	}

	s := base.clone()

	if len(raw.CurrentStep) > 0 {
		var step Step
		if err := json.Unmarshal(raw.CurrentStep, &step); err == nil && step.Valid() {
			s.CurrentStep = step
		}
	}
	if len(raw.CompletedSteps) > 0 {
		var steps []Step
		if err := json.Unmarshal(raw.CompletedSteps, &steps); err == nil {
			s.CompletedSteps = normalizeSteps(steps)
		}
	}
	if len(raw.ReportData) > 0 {
		var data ReportData
		if err := json.Unmarshal(raw.ReportData, &data); err == nil {
			if !data.Status.Valid() {
				data.Status = StatusIdle
			}
			data.SelectedIndices = normalizeIndices(data.SelectedIndices)
			s.ReportData = data
		}
	}
	if len(raw.LastCompletedReportID) > 0 {
		var id string
		if err := json.Unmarshal(raw.LastCompletedReportID, &id); err == nil {
			s.LastCompletedReportID = id
		}
	}
	if len(raw.RecentReports) > 0 {
		var recents []RecentReport
		if err := json.Unmarshal(raw.RecentReports, &recents); err == nil {
			s.RecentReports = dedupRecents(recents)
		}
	}

	return sanitize(s)
}

// dedupRecents keeps the first entry per id and trims to capacity.
func dedupRecents(recents []RecentReport) []RecentReport {
	seen := make(map[string]bool, len(recents))
	out := make([]RecentReport, 0, len(recents))
	for _, r := range recents {
		if r.ID == "" || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
		if len(out) == RecentReportsCap {
			break
		}
	}
	return out
}

// sanitize re-establishes the state invariants after an untrusted merge:
// with no report there is nothing past the form, no completed steps, and an
// idle status.
func sanitize(s State) State {
	if !s.HasReport() {
		s.CurrentStep = StepForm
		s.CompletedSteps = []Step{}
		s.ReportData.Status = StatusIdle
	}
	return s
}

// Debouncer coalesces rapid Schedule calls into a single trailing invocation:
// scheduling while a call is pending replaces it and restarts the window.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending func()
}

// NewDebouncer returns a debouncer with the given coalescing window. A
// non-positive delay makes Schedule invoke synchronously.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule arranges for fn to run after the window elapses, replacing any
// pending invocation so only the latest version ever runs.
func (d *Debouncer) Schedule(fn func()) {
	if d.delay <= 0 {
		fn()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		fn := d.pending
		d.pending = nil
		d.timer = nil
		d.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

// Cancel drops any pending invocation.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

// Flush runs any pending invocation immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.pending
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}
