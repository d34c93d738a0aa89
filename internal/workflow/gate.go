package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/povtrack/internal/log"
)

// StepStatus is a step's resolved navigability for the current state.
type StepStatus int

const (
	// StepStatusLocked means the step cannot be entered; acting on it is a no-op.
	StepStatusLocked StepStatus = iota
	// StepStatusAvailable means the step can be entered.
	StepStatusAvailable
	// StepStatusCurrent means the step is the active workflow position.
	StepStatusCurrent
	// StepStatusCompleted means the step has been explicitly completed.
	StepStatusCompleted
)

// String returns a human-readable representation of the status.
func (s StepStatus) String() string {
	switch s {
	case StepStatusAvailable:
		return "available"
	case StepStatusCurrent:
		return "current"
	case StepStatusCompleted:
		return "completed"
	default:
		return "locked"
	}
}

// ResolveStepStatus computes a step's status for the given state. Precedence
// is completed > current > available > locked.
func ResolveStepStatus(s State, step Step) StepStatus {
	if s.StepCompleted(step) {
		return StepStatusCompleted
	}
	if s.CurrentStep == step {
		return StepStatusCurrent
	}
	if stepAvailable(s, step) {
		return StepStatusAvailable
	}
	return StepStatusLocked
}

// stepAvailable implements the gating rule: the form is always reachable,
// later steps require a report id.
func stepAvailable(s State, step Step) bool {
	if step == StepForm {
		return true
	}
	return step.Valid() && s.HasReport()
}

// StepInfo pairs a step with its resolved status, for views.
type StepInfo struct {
	Step   Step
	Status StepStatus
}

// ResolveSteps resolves every workflow step in order.
func ResolveSteps(s State) []StepInfo {
	steps := Steps()
	out := make([]StepInfo, len(steps))
	for i, step := range steps {
		out[i] = StepInfo{Step: step, Status: ResolveStepStatus(s, step)}
	}
	return out
}

// ReportLoader fetches and normalizes report content on demand when a step
// transition needs data that is not yet in memory. Implemented by the report
// load bridge.
type ReportLoader interface {
	// LoadForm fetches a report record and returns its normalized form data.
	LoadForm(ctx context.Context, reportID string) (*FormData, error)
	// LoadTitles fetches a report's candidate titles in index order.
	LoadTitles(ctx context.Context, reportID string) ([]TitleItem, error)
}

// ErrStepLocked is returned when a navigation request targets a locked step.
// The request is a no-op: no state mutation, no navigation.
var ErrStepLocked = errors.New("step is locked")

// ErrNoIdentity is returned when an operation requires an authenticated user
// and none is available. The operation is skipped, not failed: no error is
// surfaced into workflow state.
var ErrNoIdentity = errors.New("no authenticated user")

// Navigator gates interactive navigation between steps, resolving what must
// be fetched before a transition commits.
type Navigator struct {
	tracker *Tracker
	loader  ReportLoader
}

// NewNavigator creates a navigator over the given tracker and loader.
func NewNavigator(tracker *Tracker, loader ReportLoader) *Navigator {
	return &Navigator{tracker: tracker, loader: loader}
}

// EnterStep attempts to navigate into step. Locked steps are a no-op. A
// fetch failure aborts the transition, leaves the step position untouched,
// and surfaces the failure both as the state's last error and to the caller.
func (n *Navigator) EnterStep(ctx context.Context, step Step) error {
	state := n.tracker.State()
	status := ResolveStepStatus(state, step)
	if status == StepStatusLocked {
		log.Debug(log.CatWorkflow, "Navigation to locked step ignored", "step", step)
		return ErrStepLocked
	}

	switch step {
	case StepForm:
		return n.enterForm(ctx, state)
	case StepTitles:
		return n.enterTitles(ctx, state)
	case StepOutcomes:
		// Outcome views own their fetches and share the display; entering
		// outcomes never moves the workflow position.
		return nil
	default:
		return fmt.Errorf("unknown step %d", int(step))
	}
}

// enterForm fetches form fields first when a report exists but its form is
// not yet in memory.
func (n *Navigator) enterForm(ctx context.Context, state State) error {
	if state.HasReport() && state.ReportData.FormData == nil {
		form, err := n.loader.LoadForm(ctx, state.ReportData.ReportID)
		if err != nil {
			return n.abort(err, "loading report form", state.ReportData.ReportID)
		}
		n.tracker.UpdateReportData(ReportPatch{FormData: form})
	}
	n.tracker.SetCurrentStep(StepForm)
	return nil
}

// enterTitles fetches candidate titles first when none are in memory, merging
// them together with the derived selected-index set.
func (n *Navigator) enterTitles(ctx context.Context, state State) error {
	if len(state.ReportData.Titles) == 0 && state.HasReport() {
		titles, err := n.loader.LoadTitles(ctx, state.ReportData.ReportID)
		if err != nil {
			return n.abort(err, "loading report titles", state.ReportData.ReportID)
		}
		n.tracker.UpdateReportData(ReportPatch{
			Titles:          titles,
			SelectedIndices: SelectedIndices(titles),
		})
	}
	n.tracker.SetCurrentStep(StepTitles)
	return nil
}

// abort turns a fetch failure into an aborted transition. A missing identity
// skips silently; anything else is recorded as the last error.
func (n *Navigator) abort(err error, op, reportID string) error {
	if errors.Is(err, ErrNoIdentity) {
		log.Debug(log.CatWorkflow, "Skipping fetch without an authenticated user", "op", op, "reportId", reportID)
		return ErrNoIdentity
	}
	log.ErrorErr(log.CatFetch, "Gated step entry aborted", err, "op", op, "reportId", reportID)
	n.tracker.SetError(&StateError{Code: "fetch_failed", Message: err.Error()})
	return fmt.Errorf("%s: %w", op, err)
}
