package workflow

import (
	"errors"
	"sync"
	"time"

	"github.com/zjrosen/povtrack/internal/log"
)

// Tracker owns the single authoritative workflow State for a running
// application. Transitions are applied under a lock and run to completion;
// async fetches never hold the lock, so a later-arriving transition simply
// overwrites fields per each operation's merge semantics (last-write-wins).
type Tracker struct {
	mu       sync.Mutex
	state    State
	store    SlotStore
	slotKey  string
	debounce *Debouncer
	now      func() time.Time
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the completion timestamp source. Intended for tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithPersistDebounce overrides the persistence coalescing window. A
// non-positive window persists synchronously.
func WithPersistDebounce(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.debounce = NewDebouncer(d) }
}

// NewTracker creates a tracker persisting to the given store slot, starting
// from the documented initial defaults.
func NewTracker(store SlotStore, slotKey string, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		state:    NewState(),
		store:    store,
		slotKey:  slotKey,
		debounce: NewDebouncer(500 * time.Millisecond),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.clone()
}

// Hydrate merges persisted state from the store slot. An absent slot is not
// an error; a malformed payload degrades to defaults. Loading flags and the
// last error always start fresh.
func (t *Tracker) Hydrate() {
	payload, err := t.store.Load(t.slotKey)
	if err != nil {
		if !errors.Is(err, ErrSlotNotFound) {
			log.ErrorErr(log.CatWorkflow, "Loading persisted workflow state failed", err, "slot", t.slotKey)
		}
		return
	}

	t.mu.Lock()
	t.state = HydrateState(t.state, payload)
	step := t.state.CurrentStep
	reportID := t.state.ReportData.ReportID
	t.mu.Unlock()

	log.Info(log.CatWorkflow, "Hydrated workflow state", "slot", t.slotKey, "step", step, "reportId", reportID)
}

// Apply applies a transition and returns the resulting state. Persistence is
// scheduled (debounced) for non-trivial states; ResetWorkflow instead cancels
// any pending write and clears the slot.
func (t *Tracker) Apply(tr Transition) State {
	t.mu.Lock()
	t.state = Apply(t.state, tr)
	next := t.state.clone()
	t.mu.Unlock()

	if _, isReset := tr.(ResetWorkflow); isReset {
		t.debounce.Cancel()
		if err := t.store.Clear(t.slotKey); err != nil {
			log.ErrorErr(log.CatWorkflow, "Clearing persisted workflow slot failed", err, "slot", t.slotKey)
		}
		return next
	}

	if next.NonTrivial() {
		t.debounce.Schedule(t.persist)
	}
	return next
}

// persist writes the current snapshot to the store. Failures are logged and
// non-fatal: the next qualifying state change naturally retries.
func (t *Tracker) persist() {
	t.mu.Lock()
	payload, err := MarshalSnapshot(t.state)
	t.mu.Unlock()
	if err != nil {
		log.ErrorErr(log.CatWorkflow, "Serializing workflow snapshot failed", err, "slot", t.slotKey)
		return
	}
	if err := t.store.Save(t.slotKey, payload); err != nil {
		log.ErrorErr(log.CatWorkflow, "Persisting workflow snapshot failed", err, "slot", t.slotKey)
		return
	}
	log.Debug(log.CatWorkflow, "Persisted workflow snapshot", "slot", t.slotKey, "bytes", len(payload))
}

// Flush forces any pending persistence write through immediately. Call on
// shutdown so the coalescing window cannot swallow the final state.
func (t *Tracker) Flush() {
	t.debounce.Flush()
}

// Close flushes pending writes and stops the scheduler.
func (t *Tracker) Close() {
	t.Flush()
	t.debounce.Cancel()
}

// SlotUpdatedAt reports when the persisted slot was last written, for stores
// that record write times. Returns false for stores that do not, or when the
// slot has never been written.
func (t *Tracker) SlotUpdatedAt() (time.Time, bool) {
	rec, ok := t.store.(interface{ UpdatedAt(key string) (time.Time, error) })
	if !ok {
		return time.Time{}, false
	}
	at, err := rec.UpdatedAt(t.slotKey)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

// SetCurrentStep sets the current step unconditionally.
func (t *Tracker) SetCurrentStep(step Step) State {
	return t.Apply(SetCurrentStep{Step: step})
}

// SetCompletedSteps replaces the completed set wholesale.
func (t *Tracker) SetCompletedSteps(steps []Step) State {
	return t.Apply(SetCompletedSteps{Steps: steps})
}

// CompleteStep idempotently marks a step completed.
func (t *Tracker) CompleteStep(step Step) State {
	return t.Apply(CompleteStep{Step: step})
}

// SetReportData replaces the working data wholesale.
func (t *Tracker) SetReportData(data ReportData) State {
	return t.Apply(SetReportData{Data: data})
}

// UpdateReportData shallow-merges a patch into the working data.
func (t *Tracker) UpdateReportData(patch ReportPatch) State {
	return t.Apply(UpdateReportData{Patch: patch})
}

// SetLoading merges flags into the loading map.
func (t *Tracker) SetLoading(flags map[LoadingFlag]bool) State {
	return t.Apply(SetLoading{Flags: flags})
}

// SetError replaces the last error; nil clears it.
func (t *Tracker) SetError(err *StateError) State {
	return t.Apply(SetError{Err: err})
}

// ResetWorkflow restores the initial defaults and clears the persisted slot.
func (t *Tracker) ResetWorkflow() State {
	return t.Apply(ResetWorkflow{})
}

// CompleteReport records a finished report in the recent cache and as the
// deep-link fallback target.
func (t *Tracker) CompleteReport(reportID, vendorName, customerName string) State {
	return t.Apply(CompleteReport{
		ReportID:     reportID,
		VendorName:   vendorName,
		CustomerName: customerName,
		At:           t.now(),
	})
}

// LoadExistingReport commits a deep-linked report in one transition.
func (t *Tracker) LoadExistingReport(data ReportData, step Step, completedSteps []Step) State {
	return t.Apply(LoadExistingReport{Data: data, Step: step, CompletedSteps: completedSteps})
}
