// Package workflow implements the povtrack workflow state machine: the
// authoritative container for step position, completion state, the active
// report's working data, and the bounded recent-reports cache.
//
// All mutation flows through a closed set of Transition values applied by a
// single pure Apply function; the Tracker owns the one authoritative State
// per running application and handles hydration from and debounced
// persistence to a SlotStore.
package workflow

import (
	"fmt"
	"slices"
	"time"
)

// Step is one ordered stage of the report workflow. The numeric rank matters:
// gating compares steps by position.
type Step int

const (
	// StepForm is the report input form stage.
	StepForm Step = iota + 1
	// StepTitles is the outcome-title generation and selection stage.
	StepTitles
	// StepOutcomes is the detailed outcome analysis stage.
	StepOutcomes
)

// Steps returns all workflow steps in order.
func Steps() []Step {
	return []Step{StepForm, StepTitles, StepOutcomes}
}

// Valid reports whether s is a member of the step enumeration.
func (s Step) Valid() bool {
	return s >= StepForm && s <= StepOutcomes
}

// String returns a human-readable representation of the step.
func (s Step) String() string {
	switch s {
	case StepForm:
		return "form"
	case StepTitles:
		return "titles"
	case StepOutcomes:
		return "outcomes"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ReportStatus describes where report generation stands server-side.
type ReportStatus string

const (
	// StatusIdle means no generation has been requested.
	StatusIdle ReportStatus = "idle"
	// StatusProcessing means generation is in flight.
	StatusProcessing ReportStatus = "processing"
	// StatusTitlesGenerated means candidate titles exist but outcomes do not.
	StatusTitlesGenerated ReportStatus = "titlesGenerated"
	// StatusCompleted means the report finished generating.
	StatusCompleted ReportStatus = "completed"
	// StatusFailed means generation failed.
	StatusFailed ReportStatus = "failed"
)

// Valid reports whether r is a member of the status enumeration.
func (r ReportStatus) Valid() bool {
	switch r {
	case StatusIdle, StatusProcessing, StatusTitlesGenerated, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// DefaultNumOutcomes is the display-only desired outcome count. It is not
// persisted server-side, so the load bridge always defaults it.
const DefaultNumOutcomes = 15

// FormData is the normalized report input form shape.
type FormData struct {
	VendorName         string `json:"vendorName"`
	VendorURL          string `json:"vendorUrl"`
	VendorServices     string `json:"vendorServices"`
	TargetCustomerName string `json:"targetCustomerName"`
	TargetCustomerURL  string `json:"targetCustomerUrl"`
	RoleNames          string `json:"roleNames,omitempty"`
	LinkedInURLs       string `json:"linkedinUrls,omitempty"`
	RoleContext        string `json:"roleContext,omitempty"`
	AdditionalContext  string `json:"additionalContext,omitempty"`
	ModelName          string `json:"modelName,omitempty"`
	NumOutcomes        int    `json:"numOutcomes"`
}

// TitleItem is one candidate outcome title.
type TitleItem struct {
	Index    int    `json:"index"`
	Title    string `json:"title"`
	Selected bool   `json:"selected"`
}

// Outcome is one generated analysis item (markdown content).
type Outcome struct {
	Index   int    `json:"index"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// ReportData is the active report's working data.
type ReportData struct {
	// ReportID is the opaque server identifier; empty means no report yet.
	ReportID        string       `json:"reportId,omitempty"`
	FormData        *FormData    `json:"formData,omitempty"`
	Titles          []TitleItem  `json:"titles,omitempty"`
	SelectedIndices []int        `json:"selectedIndices,omitempty"`
	Outcomes        []Outcome    `json:"outcomes,omitempty"`
	Summary         *string      `json:"summary,omitempty"`
	Status          ReportStatus `json:"status"`
}

// LoadingFlag names an in-flight operation tracked in the loading map.
type LoadingFlag string

const (
	LoadingGeneratingTitles   LoadingFlag = "generatingTitles"
	LoadingUpdatingSelection  LoadingFlag = "updatingSelection"
	LoadingGeneratingOutcomes LoadingFlag = "generatingOutcomes"
	LoadingExporting          LoadingFlag = "exporting"
	LoadingRegenerating       LoadingFlag = "regenerating"
)

// StateError is the last-error descriptor surfaced to views. It is
// session-transient and never persisted.
type StateError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// RecentReportsCap bounds the recent-reports cache.
const RecentReportsCap = 10

// RecentReport is a lightweight summary of a completed report.
type RecentReport struct {
	ID           string    `json:"id"`
	VendorName   string    `json:"vendorName"`
	CustomerName string    `json:"customerName"`
	CompletedAt  time.Time `json:"completedAt"`
}

// State is the workflow state machine's full state. Values are treated as
// immutable: Apply returns a fresh State and never aliases mutable fields of
// its input.
type State struct {
	CurrentStep           Step
	CompletedSteps        []Step
	ReportData            ReportData
	Loading               map[LoadingFlag]bool
	Err                   *StateError
	LastCompletedReportID string
	RecentReports         []RecentReport
}

// NewState returns the documented initial defaults.
func NewState() State {
	return State{
		CurrentStep:    StepForm,
		CompletedSteps: []Step{},
		ReportData:     ReportData{Status: StatusIdle},
		Loading:        map[LoadingFlag]bool{},
		RecentReports:  []RecentReport{},
	}
}

// HasReport reports whether a report id is set.
func (s State) HasReport() bool {
	return s.ReportData.ReportID != ""
}

// StepCompleted reports whether step is in the completed set.
func (s State) StepCompleted(step Step) bool {
	return slices.Contains(s.CompletedSteps, step)
}

// NonTrivial reports whether the state is worth persisting: the user is past
// the first step or a report exists. The default empty state is never written.
func (s State) NonTrivial() bool {
	return s.CurrentStep > StepForm || s.HasReport()
}

// clone returns a deep copy of s. Apply mutates only the copy, so callers of
// Tracker.State can hold returned values without data races.
func (s State) clone() State {
	out := s
	out.CompletedSteps = slices.Clone(s.CompletedSteps)
	out.RecentReports = slices.Clone(s.RecentReports)
	out.ReportData = s.ReportData.clone()
	out.Loading = make(map[LoadingFlag]bool, len(s.Loading))
	for k, v := range s.Loading {
		out.Loading[k] = v
	}
	if s.Err != nil {
		e := *s.Err
		out.Err = &e
	}
	return out
}

func (d ReportData) clone() ReportData {
	out := d
	out.Titles = slices.Clone(d.Titles)
	out.SelectedIndices = slices.Clone(d.SelectedIndices)
	out.Outcomes = slices.Clone(d.Outcomes)
	if d.FormData != nil {
		f := *d.FormData
		out.FormData = &f
	}
	if d.Summary != nil {
		sum := *d.Summary
		out.Summary = &sum
	}
	return out
}

// normalizeSteps sorts and deduplicates a completed-steps set, dropping
// values outside the step enumeration.
func normalizeSteps(steps []Step) []Step {
	out := make([]Step, 0, len(steps))
	for _, st := range steps {
		if st.Valid() && !slices.Contains(out, st) {
			out = append(out, st)
		}
	}
	slices.Sort(out)
	return out
}

// normalizeIndices sorts and deduplicates a selected-indices set, dropping
// negatives.
func normalizeIndices(indices []int) []int {
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && !slices.Contains(out, i) {
			out = append(out, i)
		}
	}
	slices.Sort(out)
	return out
}

// SelectedIndices derives the selected index set from title flags.
func SelectedIndices(titles []TitleItem) []int {
	var out []int
	for _, t := range titles {
		if t.Selected {
			out = append(out, t.Index)
		}
	}
	return normalizeIndices(out)
}
