package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/povtrack/internal/config"
	"github.com/zjrosen/povtrack/internal/workflow"
)

// memStore is an in-memory slot store for model tests.
type memStore struct {
	mu    sync.Mutex
	slots map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{slots: map[string][]byte{}}
}

func (s *memStore) Load(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.slots[key]
	if !ok {
		return nil, workflow.ErrSlotNotFound
	}
	return payload, nil
}

func (s *memStore) Save(key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = payload
	return nil
}

func (s *memStore) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	return nil
}

// stubLoader satisfies workflow.ReportLoader and ReportOpener.
type stubLoader struct {
	form     *workflow.FormData
	titles   []workflow.TitleItem
	opened   workflow.ReportData
	steps    []workflow.Step
	openErr  error
	openedID string
}

func (s *stubLoader) LoadForm(context.Context, string) (*workflow.FormData, error) {
	return s.form, nil
}

func (s *stubLoader) LoadTitles(context.Context, string) ([]workflow.TitleItem, error) {
	return s.titles, nil
}

func (s *stubLoader) LoadReport(_ context.Context, reportID string) (workflow.ReportData, []workflow.Step, error) {
	s.openedID = reportID
	return s.opened, s.steps, s.openErr
}

// invalidatingLoader additionally records cache invalidations.
type invalidatingLoader struct {
	stubLoader
	invalidated []string
}

func (l *invalidatingLoader) Invalidate(reportID string) {
	l.invalidated = append(l.invalidated, reportID)
}

func newTestModel(t *testing.T) (Model, *workflow.Tracker, *stubLoader) {
	t.Helper()
	tr := workflow.NewTracker(newMemStore(), "workflow", workflow.WithPersistDebounce(0))
	loader := &stubLoader{}
	nav := workflow.NewNavigator(tr, loader)

	cfg := config.Defaults()
	m := New(cfg, tr, nav, loader, nil)
	m.width = 120
	m.height = 40
	return m, tr, loader
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

// runCmd executes a command synchronously and feeds its messages back,
// unwrapping batches and skipping spinner ticks.
func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case nil:
		return m
	case tea.BatchMsg:
		for _, sub := range msg {
			if sub == nil {
				continue
			}
			inner := sub()
			if _, ok := inner.(spinner.TickMsg); ok {
				continue
			}
			m, _ = update(t, m, inner)
		}
		return m
	default:
		m, _ = update(t, m, msg)
		return m
	}
}

func keyRunes(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestUpdate_LockedStepIsNoOp(t *testing.T) {
	m, tr, _ := newTestModel(t)

	m, cmd := update(t, m, keyRunes('2'))
	m = runCmd(t, m, cmd)

	assert.Equal(t, workflow.StepForm, tr.State().CurrentStep)
	assert.Nil(t, tr.State().Err, "locked navigation must not surface an error")
	assert.Empty(t, m.statusError)
}

func TestUpdate_EnterTitlesFetchesAndMoves(t *testing.T) {
	m, tr, loader := newTestModel(t)
	loader.titles = []workflow.TitleItem{
		{Index: 0, Title: "Cut churn", Selected: true},
		{Index: 1, Title: "Grow NRR"},
	}
	tr.SetReportData(workflow.ReportData{ReportID: "r-1", Status: workflow.StatusTitlesGenerated})

	m, cmd := update(t, m, keyRunes('2'))
	m = runCmd(t, m, cmd)

	state := tr.State()
	assert.Equal(t, workflow.StepTitles, state.CurrentStep)
	assert.Len(t, state.ReportData.Titles, 2)
	assert.Equal(t, []int{0}, state.ReportData.SelectedIndices)
	assert.False(t, m.fetching)
}

func TestUpdate_EnterOutcomesNeverMovesPosition(t *testing.T) {
	m, tr, _ := newTestModel(t)
	tr.SetReportData(workflow.ReportData{ReportID: "r-1"})

	m, cmd := update(t, m, keyRunes('3'))
	_ = runCmd(t, m, cmd)

	assert.Equal(t, workflow.StepForm, tr.State().CurrentStep)
}

func TestUpdate_ToggleTitleSelection(t *testing.T) {
	m, tr, _ := newTestModel(t)
	tr.SetReportData(workflow.ReportData{
		ReportID: "r-1",
		Titles: []workflow.TitleItem{
			{Index: 0, Title: "a"},
			{Index: 1, Title: "b"},
		},
	})
	tr.SetCurrentStep(workflow.StepTitles)

	m, _ = update(t, m, keyRunes('x'))

	state := tr.State()
	assert.True(t, state.ReportData.Titles[0].Selected)
	assert.Equal(t, []int{0}, state.ReportData.SelectedIndices)

	m, _ = update(t, m, keyRunes('x'))
	state = tr.State()
	assert.False(t, state.ReportData.Titles[0].Selected)
	assert.Empty(t, state.ReportData.SelectedIndices)
	_ = m
}

func TestUpdate_CompleteCurrentStep(t *testing.T) {
	m, tr, _ := newTestModel(t)

	_, _ = update(t, m, keyRunes('c'))

	assert.True(t, tr.State().StepCompleted(workflow.StepForm))
}

func TestUpdate_CompletingFinalStepRecordsReport(t *testing.T) {
	m, tr, _ := newTestModel(t)
	tr.SetReportData(workflow.ReportData{
		ReportID: "r-1",
		FormData: &workflow.FormData{VendorName: "Acme", TargetCustomerName: "Initech"},
		Status:   workflow.StatusCompleted,
	})
	tr.CompleteStep(workflow.StepForm)
	tr.CompleteStep(workflow.StepTitles)
	tr.SetCurrentStep(workflow.StepOutcomes)

	m, _ = update(t, m, keyRunes('c'))

	state := tr.State()
	require.Len(t, state.RecentReports, 1)
	assert.Equal(t, "r-1", state.RecentReports[0].ID)
	assert.Equal(t, "Acme", state.RecentReports[0].VendorName)
	assert.Equal(t, "Initech", state.RecentReports[0].CustomerName)
	assert.Equal(t, "r-1", state.LastCompletedReportID)

	// The recent panel picks it up immediately.
	sel, ok := m.recentPanel.Selected()
	require.True(t, ok)
	assert.Equal(t, "r-1", sel.ID)
}

func TestUpdate_CompletingEarlyStepDoesNotRecord(t *testing.T) {
	m, tr, _ := newTestModel(t)
	tr.SetReportData(workflow.ReportData{ReportID: "r-1"})

	_, _ = update(t, m, keyRunes('c'))

	state := tr.State()
	assert.True(t, state.StepCompleted(workflow.StepForm))
	assert.Empty(t, state.RecentReports)
	assert.Empty(t, state.LastCompletedReportID)
}

func TestUpdate_RecompletingSameReportDedupes(t *testing.T) {
	m, tr, _ := newTestModel(t)
	tr.SetReportData(workflow.ReportData{
		ReportID: "r-1",
		FormData: &workflow.FormData{VendorName: "Acme", TargetCustomerName: "Initech"},
	})
	tr.SetCompletedSteps([]workflow.Step{workflow.StepForm, workflow.StepTitles})
	tr.SetCurrentStep(workflow.StepOutcomes)

	m, _ = update(t, m, keyRunes('c'))
	m, _ = update(t, m, keyRunes('c'))

	require.Len(t, tr.State().RecentReports, 1)
	_ = m
}

func TestUpdate_EnterOpensLastCompletedWhenListEmpty(t *testing.T) {
	m, tr, loader := newTestModel(t)
	loader.opened = workflow.ReportData{ReportID: "r-7", Status: workflow.StatusCompleted}
	loader.steps = []workflow.Step{workflow.StepForm}

	// The panel was seeded before this completion landed and is still empty.
	tr.CompleteReport("r-7", "Acme", "Initech")
	_, hasSelection := m.recentPanel.Selected()
	require.False(t, hasSelection)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m = runCmd(t, m, cmd)

	assert.Equal(t, "r-7", loader.openedID)
	assert.Equal(t, "r-7", tr.State().ReportData.ReportID)
}

func TestUpdate_EnterWithNothingToOpenIsNoOp(t *testing.T) {
	m, tr, loader := newTestModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, loader.openedID)
	assert.False(t, tr.State().HasReport())
}

func TestUpdate_StoreChangeInvalidatesActiveReportCache(t *testing.T) {
	tr := workflow.NewTracker(newMemStore(), "workflow", workflow.WithPersistDebounce(0))
	loader := &invalidatingLoader{}
	nav := workflow.NewNavigator(tr, loader)
	m := New(config.Defaults(), tr, nav, loader, nil)
	m.width, m.height = 120, 40

	// No active report means nothing to invalidate.
	m, _ = update(t, m, storeChangedMsg{})
	assert.Empty(t, loader.invalidated)

	tr.SetReportData(workflow.ReportData{ReportID: "r-3"})
	_, _ = update(t, m, storeChangedMsg{})
	assert.Equal(t, []string{"r-3"}, loader.invalidated)
}

func TestUpdate_ResetRequiresConfirmation(t *testing.T) {
	m, tr, _ := newTestModel(t)
	tr.SetReportData(workflow.ReportData{ReportID: "r-1"})
	tr.CompleteStep(workflow.StepForm)

	m, _ = update(t, m, keyRunes('R'))
	require.True(t, m.confirming)

	// Any key but y cancels
	m, _ = update(t, m, keyRunes('n'))
	assert.False(t, m.confirming)
	assert.Equal(t, "r-1", tr.State().ReportData.ReportID)

	m, _ = update(t, m, keyRunes('R'))
	m, _ = update(t, m, keyRunes('y'))
	assert.False(t, m.confirming)
	assert.False(t, tr.State().HasReport())
	assert.Empty(t, tr.State().CompletedSteps)
}

func TestUpdate_ResetPreservesRecentReports(t *testing.T) {
	m, tr, _ := newTestModel(t)
	tr.SetReportData(workflow.ReportData{ReportID: "r-1"})
	tr.CompleteReport("r-1", "Acme", "Initech")

	m, _ = update(t, m, keyRunes('R'))
	m, _ = update(t, m, keyRunes('y'))

	require.Len(t, tr.State().RecentReports, 1)
	sel, ok := m.recentPanel.Selected()
	require.True(t, ok)
	assert.Equal(t, "r-1", sel.ID)
}

func TestUpdate_OpenRecentReportLoadsIt(t *testing.T) {
	m, tr, loader := newTestModel(t)
	loader.opened = workflow.ReportData{ReportID: "r-9", Status: workflow.StatusCompleted}
	loader.steps = []workflow.Step{workflow.StepForm, workflow.StepTitles, workflow.StepOutcomes}

	tr.SetReportData(workflow.ReportData{ReportID: "r-9"})
	tr.CompleteReport("r-9", "Acme", "Initech")
	m.refreshRecents()

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusRecent, m.focus)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m = runCmd(t, m, cmd)

	state := tr.State()
	assert.Equal(t, "r-9", state.ReportData.ReportID)
	assert.Equal(t, workflow.StepOutcomes, state.CurrentStep)
	assert.ElementsMatch(t, loader.steps, state.CompletedSteps)
	_ = m
}

func TestUpdate_OpenReportFailureSurfacesError(t *testing.T) {
	m, tr, loader := newTestModel(t)
	loader.openErr = errors.New("server on fire")

	tr.SetReportData(workflow.ReportData{ReportID: "r-9"})
	tr.CompleteReport("r-9", "Acme", "Initech")
	m.refreshRecents()

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = runCmd(t, m, cmd)

	assert.Contains(t, m.statusError, "server on fire")
	assert.Equal(t, workflow.StepForm, tr.State().CurrentStep)
}

func TestUpdate_TabIgnoredWhenRecentPanelHidden(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.cfg.UI.ShowRecent = false

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})

	assert.Equal(t, focusStep, m.focus)
}

func TestView_RendersWithoutReport(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	out := m.View()

	assert.Contains(t, out, "Report Form")
	assert.Contains(t, out, "Recent Reports")
}

func TestView_ZeroSizeRendersNothing(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.width, m.height = 0, 0

	assert.Empty(t, m.View())
}
