package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLoader is a canned ReportLoader for navigator tests.
type stubLoader struct {
	form       *FormData
	formErr    error
	formCalls  int
	titles     []TitleItem
	titlesErr  error
	titleCalls int
}

func (s *stubLoader) LoadForm(_ context.Context, _ string) (*FormData, error) {
	s.formCalls++
	if s.formErr != nil {
		return nil, s.formErr
	}
	return s.form, nil
}

func (s *stubLoader) LoadTitles(_ context.Context, _ string) ([]TitleItem, error) {
	s.titleCalls++
	if s.titlesErr != nil {
		return nil, s.titlesErr
	}
	return s.titles, nil
}

func TestResolveStepStatus_FormAlwaysReachable(t *testing.T) {
	s := NewState()
	assert.Equal(t, StepStatusCurrent, ResolveStepStatus(s, StepForm))

	s.CurrentStep = StepTitles
	assert.Equal(t, StepStatusAvailable, ResolveStepStatus(s, StepForm))
}

func TestResolveStepStatus_LaterStepsLockedWithoutReport(t *testing.T) {
	s := NewState()
	assert.Equal(t, StepStatusLocked, ResolveStepStatus(s, StepTitles))
	assert.Equal(t, StepStatusLocked, ResolveStepStatus(s, StepOutcomes))

	s.ReportData.ReportID = "r-1"
	assert.Equal(t, StepStatusAvailable, ResolveStepStatus(s, StepTitles))
	assert.Equal(t, StepStatusAvailable, ResolveStepStatus(s, StepOutcomes))
}

func TestResolveStepStatus_Precedence(t *testing.T) {
	s := NewState()
	s.ReportData.ReportID = "r-1"
	s.CurrentStep = StepTitles
	s.CompletedSteps = []Step{StepTitles}

	// Completed wins over current, current wins over available.
	assert.Equal(t, StepStatusCompleted, ResolveStepStatus(s, StepTitles))

	s.CompletedSteps = nil
	assert.Equal(t, StepStatusCurrent, ResolveStepStatus(s, StepTitles))
}

func TestResolveSteps_ReturnsAllInOrder(t *testing.T) {
	s := NewState()
	s.ReportData.ReportID = "r-1"
	s.CompletedSteps = []Step{StepForm}

	infos := ResolveSteps(s)
	require.Len(t, infos, 3)
	assert.Equal(t, StepForm, infos[0].Step)
	assert.Equal(t, StepStatusCompleted, infos[0].Status)
	assert.Equal(t, StepStatusAvailable, infos[1].Status)
	assert.Equal(t, StepStatusAvailable, infos[2].Status)
}

func TestNavigator_LockedStepIsNoOp(t *testing.T) {
	tr := newTestTracker(newMemStore())
	loader := &stubLoader{}
	nav := NewNavigator(tr, loader)

	err := nav.EnterStep(context.Background(), StepTitles)

	assert.ErrorIs(t, err, ErrStepLocked)
	assert.Equal(t, StepForm, tr.State().CurrentStep, "locked step leaves currentStep unchanged")
	assert.Equal(t, 0, loader.titleCalls, "no fetch for a locked step")
	assert.Nil(t, tr.State().Err)
}

func TestNavigator_EnterForm_NoReportNoFetch(t *testing.T) {
	tr := newTestTracker(newMemStore())
	loader := &stubLoader{}
	nav := NewNavigator(tr, loader)

	require.NoError(t, nav.EnterStep(context.Background(), StepForm))
	assert.Equal(t, 0, loader.formCalls)
	assert.Equal(t, StepForm, tr.State().CurrentStep)
}

func TestNavigator_EnterForm_FetchesMissingFormData(t *testing.T) {
	tr := newTestTracker(newMemStore())
	tr.LoadExistingReport(ReportData{ReportID: "r-1", Status: StatusProcessing}, StepTitles, nil)
	loader := &stubLoader{form: &FormData{VendorName: "Acme", NumOutcomes: DefaultNumOutcomes}}
	nav := NewNavigator(tr, loader)

	require.NoError(t, nav.EnterStep(context.Background(), StepForm))

	got := tr.State()
	assert.Equal(t, 1, loader.formCalls)
	assert.Equal(t, StepForm, got.CurrentStep)
	require.NotNil(t, got.ReportData.FormData)
	assert.Equal(t, "Acme", got.ReportData.FormData.VendorName)
}

func TestNavigator_EnterForm_FetchFailureAbortsTransition(t *testing.T) {
	tr := newTestTracker(newMemStore())
	tr.LoadExistingReport(ReportData{ReportID: "r-1", Status: StatusProcessing}, StepTitles, nil)
	loader := &stubLoader{formErr: errors.New("connection refused")}
	nav := NewNavigator(tr, loader)

	err := nav.EnterStep(context.Background(), StepForm)

	require.Error(t, err)
	got := tr.State()
	assert.Equal(t, StepTitles, got.CurrentStep, "failed fetch leaves the step untouched")
	assert.Nil(t, got.ReportData.FormData, "no partial population")
	require.NotNil(t, got.Err)
	assert.Equal(t, "fetch_failed", got.Err.Code)
}

func TestNavigator_EnterTitles_FetchesAndDerivesSelection(t *testing.T) {
	tr := newTestTracker(newMemStore())
	tr.LoadExistingReport(ReportData{ReportID: "r-1", Status: StatusTitlesGenerated}, StepForm, nil)
	loader := &stubLoader{titles: []TitleItem{
		{Index: 0, Title: "Cut churn", Selected: true},
		{Index: 1, Title: "Grow NRR"},
		{Index: 2, Title: "Shorten onboarding", Selected: true},
	}}
	nav := NewNavigator(tr, loader)

	require.NoError(t, nav.EnterStep(context.Background(), StepTitles))

	got := tr.State()
	assert.Equal(t, StepTitles, got.CurrentStep)
	assert.Len(t, got.ReportData.Titles, 3)
	assert.Equal(t, []int{0, 2}, got.ReportData.SelectedIndices, "selection derived from title flags")
}

func TestNavigator_EnterTitles_SkipsFetchWhenTitlesPresent(t *testing.T) {
	tr := newTestTracker(newMemStore())
	tr.LoadExistingReport(ReportData{
		ReportID: "r-1",
		Titles:   []TitleItem{{Index: 0, Title: "existing"}},
		Status:   StatusTitlesGenerated,
	}, StepForm, nil)
	loader := &stubLoader{}
	nav := NewNavigator(tr, loader)

	require.NoError(t, nav.EnterStep(context.Background(), StepTitles))
	assert.Equal(t, 0, loader.titleCalls)
	assert.Equal(t, StepTitles, tr.State().CurrentStep)
}

func TestNavigator_EnterOutcomes_NeverMutatesCurrentStep(t *testing.T) {
	tr := newTestTracker(newMemStore())
	tr.LoadExistingReport(ReportData{ReportID: "r-1", Status: StatusCompleted}, StepTitles, nil)
	nav := NewNavigator(tr, &stubLoader{})

	require.NoError(t, nav.EnterStep(context.Background(), StepOutcomes))
	assert.Equal(t, StepTitles, tr.State().CurrentStep,
		"outcome views share the display without dictating workflow position")
}

func TestNavigator_MissingIdentitySkipsWithoutError(t *testing.T) {
	tr := newTestTracker(newMemStore())
	tr.LoadExistingReport(ReportData{ReportID: "r-1", Status: StatusProcessing}, StepTitles, nil)
	loader := &stubLoader{formErr: ErrNoIdentity}
	nav := NewNavigator(tr, loader)

	err := nav.EnterStep(context.Background(), StepForm)

	assert.ErrorIs(t, err, ErrNoIdentity)
	got := tr.State()
	assert.Equal(t, StepTitles, got.CurrentStep)
	assert.Nil(t, got.Err, "a skipped operation is not a failure")
}
