package workflow

import (
	"slices"
	"time"
)

// Transition is one tagged state transition. The set is closed: every
// mutation of workflow state is one of the variants below, applied by Apply.
type Transition interface {
	isTransition()
}

// SetCurrentStep sets the current step unconditionally. Gating is the
// caller's responsibility (see Navigator).
type SetCurrentStep struct {
	Step Step
}

// SetCompletedSteps replaces the completed set wholesale.
type SetCompletedSteps struct {
	Steps []Step
}

// CompleteStep idempotently adds a step to the completed set.
type CompleteStep struct {
	Step Step
}

// SetReportData replaces the working data wholesale (after a full fetch).
type SetReportData struct {
	Data ReportData
}

// UpdateReportData shallow-merges a patch into the working data. Only fields
// set on the patch are touched; everything else is carried over.
type UpdateReportData struct {
	Patch ReportPatch
}

// ReportPatch is a partial ReportData update. Nil fields are left alone.
type ReportPatch struct {
	ReportID        *string
	FormData        *FormData
	Titles          []TitleItem
	SelectedIndices []int
	Outcomes        []Outcome
	Summary         *string
	Status          *ReportStatus
}

// SetLoading merges flags into the loading map without resetting the others.
type SetLoading struct {
	Flags map[LoadingFlag]bool
}

// SetError replaces the last-error descriptor. A nil Err clears it.
type SetError struct {
	Err *StateError
}

// ResetWorkflow restores step, completed set, working data, loading, and
// error to their initial defaults in one transition. The recent-reports
// cache and last completed id survive a reset.
type ResetWorkflow struct{}

// CompleteReport records a finished report: it becomes the deep-link
// fallback target and is pushed onto the recent cache under the dedup and
// capacity rules.
type CompleteReport struct {
	ReportID     string
	VendorName   string
	CustomerName string
	At           time.Time
}

// LoadExistingReport commits a deep-linked report in one transition: step,
// completed set, working data, and a cleared error.
type LoadExistingReport struct {
	Data           ReportData
	Step           Step
	CompletedSteps []Step
}

func (SetCurrentStep) isTransition()     {}
func (SetCompletedSteps) isTransition()  {}
func (CompleteStep) isTransition()       {}
func (SetReportData) isTransition()      {}
func (UpdateReportData) isTransition()   {}
func (SetLoading) isTransition()         {}
func (SetError) isTransition()           {}
func (ResetWorkflow) isTransition()      {}
func (CompleteReport) isTransition()     {}
func (LoadExistingReport) isTransition() {}

// Apply is the single pure transition function: it returns the state that
// results from applying tr to prior. The input is never mutated.
func Apply(prior State, tr Transition) State {
	s := prior.clone()

	switch t := tr.(type) {
	case SetCurrentStep:
		if t.Step.Valid() {
			s.CurrentStep = t.Step
		}

	case SetCompletedSteps:
		s.CompletedSteps = normalizeSteps(t.Steps)

	case CompleteStep:
		if t.Step.Valid() && !s.StepCompleted(t.Step) {
			s.CompletedSteps = normalizeSteps(append(s.CompletedSteps, t.Step))
		}

	case SetReportData:
		s.ReportData = t.Data.clone()
		if !s.ReportData.Status.Valid() {
			s.ReportData.Status = StatusIdle
		}
		s.ReportData.SelectedIndices = normalizeIndices(s.ReportData.SelectedIndices)

	case UpdateReportData:
		s.ReportData = mergeReportData(s.ReportData, t.Patch)

	case SetLoading:
		for flag, v := range t.Flags {
			s.Loading[flag] = v
		}

	case SetError:
		if t.Err != nil {
			e := *t.Err
			s.Err = &e
		} else {
			s.Err = nil
		}

	case ResetWorkflow:
		initial := NewState()
		s.CurrentStep = initial.CurrentStep
		s.CompletedSteps = initial.CompletedSteps
		s.ReportData = initial.ReportData
		s.Loading = initial.Loading
		s.Err = nil

	case CompleteReport:
		if t.ReportID == "" {
			break
		}
		s.LastCompletedReportID = t.ReportID
		entry := RecentReport{
			ID:           t.ReportID,
			VendorName:   t.VendorName,
			CustomerName: t.CustomerName,
			CompletedAt:  t.At,
		}
		s.RecentReports = pushRecent(s.RecentReports, entry)

	case LoadExistingReport:
		if t.Step.Valid() {
			s.CurrentStep = t.Step
		}
		s.CompletedSteps = normalizeSteps(t.CompletedSteps)
		s.ReportData = t.Data.clone()
		if !s.ReportData.Status.Valid() {
			s.ReportData.Status = StatusIdle
		}
		s.ReportData.SelectedIndices = normalizeIndices(s.ReportData.SelectedIndices)
		s.Err = nil
	}

	return s
}

// mergeReportData applies a shallow field-wise merge: set fields replace,
// unset fields carry over.
func mergeReportData(data ReportData, patch ReportPatch) ReportData {
	if patch.ReportID != nil {
		data.ReportID = *patch.ReportID
	}
	if patch.FormData != nil {
		f := *patch.FormData
		data.FormData = &f
	}
	if patch.Titles != nil {
		data.Titles = slices.Clone(patch.Titles)
	}
	if patch.SelectedIndices != nil {
		data.SelectedIndices = normalizeIndices(patch.SelectedIndices)
	}
	if patch.Outcomes != nil {
		data.Outcomes = slices.Clone(patch.Outcomes)
	}
	if patch.Summary != nil {
		sum := *patch.Summary
		data.Summary = &sum
	}
	if patch.Status != nil && patch.Status.Valid() {
		data.Status = *patch.Status
	}
	return data
}

// pushRecent prepends entry, removing any prior entry with the same id, and
// trims to RecentReportsCap.
func pushRecent(recents []RecentReport, entry RecentReport) []RecentReport {
	out := make([]RecentReport, 0, len(recents)+1)
	out = append(out, entry)
	for _, r := range recents {
		if r.ID == entry.ID {
			continue
		}
		out = append(out, r)
	}
	if len(out) > RecentReportsCap {
		out = out[:RecentReportsCap]
	}
	return out
}
