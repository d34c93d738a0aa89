// Package tracker implements the main povtrack interactive mode: the step
// indicator, the per-step content panes, and the recent-reports panel, all
// driven by the workflow tracker.
package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/povtrack/internal/config"
	"github.com/zjrosen/povtrack/internal/log"
	"github.com/zjrosen/povtrack/internal/ui/preview"
	"github.com/zjrosen/povtrack/internal/ui/recent"
	"github.com/zjrosen/povtrack/internal/ui/styles"
	"github.com/zjrosen/povtrack/internal/workflow"
)

// ReportOpener loads a full report for deep links from the recent panel.
// Implemented by the report load bridge.
type ReportOpener interface {
	LoadReport(ctx context.Context, reportID string) (workflow.ReportData, []workflow.Step, error)
}

// focusArea identifies which pane receives list navigation keys.
type focusArea int

const (
	focusStep focusArea = iota
	focusRecent
)

// Messages produced by async commands.
type (
	// stepEnteredMsg reports the outcome of a gated step entry.
	stepEnteredMsg struct {
		step workflow.Step
		err  error
	}

	// reportOpenedMsg reports the outcome of a recent-panel deep link.
	reportOpenedMsg struct {
		data  workflow.ReportData
		steps []workflow.Step
		err   error
	}

	// storeChangedMsg fires when another process wrote the slot store.
	storeChangedMsg struct{}
)

const fetchTimeout = 30 * time.Second

// Model is the top-level tea model for tracker mode.
type Model struct {
	cfg     config.Config
	tracker *workflow.Tracker
	nav     *workflow.Navigator
	opener  ReportOpener
	watcher *StoreWatcher

	recentPanel  recent.Model
	previewPane  *preview.Renderer
	spin         spinner.Model
	titlesCursor int

	width       int
	height      int
	focus       focusArea
	confirming  bool
	fetching    bool
	statusError string
}

// New creates the tracker mode model. watcher may be nil when auto refresh
// is disabled.
func New(cfg config.Config, tr *workflow.Tracker, nav *workflow.Navigator, opener ReportOpener, watcher *StoreWatcher) Model {
	m := Model{
		cfg:         cfg,
		tracker:     tr,
		nav:         nav,
		opener:      opener,
		watcher:     watcher,
		recentPanel: recent.New(),
		previewPane: preview.NewRenderer(80),
		spin: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.AccentColor)),
		),
	}
	m.recentPanel.SetReports(tr.State().RecentReports)
	return m
}

// Init starts the store watcher listener when auto refresh is enabled.
func (m Model) Init() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	return m.waitForStoreChange()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.previewPane.SetWidth(max(msg.Width-4, 20))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stepEnteredMsg:
		m.fetching = false
		if msg.err != nil && !errors.Is(msg.err, workflow.ErrStepLocked) && !errors.Is(msg.err, workflow.ErrNoIdentity) {
			m.statusError = msg.err.Error()
		}
		m.titlesCursor = 0
		return m, nil

	case reportOpenedMsg:
		m.fetching = false
		if msg.err != nil {
			if !errors.Is(msg.err, workflow.ErrNoIdentity) {
				m.statusError = msg.err.Error()
			}
			return m, nil
		}
		m.tracker.LoadExistingReport(msg.data, lastOf(msg.steps), msg.steps)
		m.statusError = ""
		return m, nil

	case spinner.TickMsg:
		if !m.fetching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case storeChangedMsg:
		m.invalidateActiveReport()
		m.refreshRecents()
		return m, m.waitForStoreChange()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Reset confirmation swallows every key: y commits, anything else cancels.
	if m.confirming {
		m.confirming = false
		if msg.String() == "y" {
			m.tracker.ResetWorkflow()
			m.titlesCursor = 0
			m.statusError = ""
			m.refreshRecents()
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "1":
		return m.enterStep(workflow.StepForm)
	case "2":
		return m.enterStep(workflow.StepTitles)
	case "3":
		return m.enterStep(workflow.StepOutcomes)

	case "left", "h":
		if m.focus == focusStep {
			return m.enterStep(m.tracker.State().CurrentStep - 1)
		}
	case "right", "l":
		if m.focus == focusStep {
			return m.enterStep(m.tracker.State().CurrentStep + 1)
		}

	case "tab":
		if m.cfg.UI.ShowRecent {
			if m.focus == focusStep {
				m.focus = focusRecent
			} else {
				m.focus = focusStep
			}
		}
		return m, nil

	case "up", "k":
		if m.focus == focusRecent {
			m.recentPanel.CursorUp()
		} else if m.titlesCursor > 0 {
			m.titlesCursor--
		}
		return m, nil
	case "down", "j":
		if m.focus == focusRecent {
			m.recentPanel.CursorDown()
		} else if m.titlesCursor < len(m.tracker.State().ReportData.Titles)-1 {
			m.titlesCursor++
		}
		return m, nil

	case " ", "x":
		if m.focus == focusStep && m.tracker.State().CurrentStep == workflow.StepTitles {
			m.toggleTitleSelection()
		}
		return m, nil

	case "enter":
		if m.focus == focusRecent {
			if sel, ok := m.recentPanel.Selected(); ok {
				return m.openReport(sel.ID)
			}
			// Empty list: fall back to the last completed report.
			if id := m.tracker.State().LastCompletedReportID; id != "" {
				return m.openReport(id)
			}
		}
		return m, nil

	case "c":
		if m.focus == focusStep {
			state := m.tracker.CompleteStep(m.tracker.State().CurrentStep)
			m.recordCompletion(state)
		}
		return m, nil

	case "R":
		m.confirming = true
		return m, nil

	case "esc":
		m.statusError = ""
		m.focus = focusStep
		return m, nil
	}

	return m, nil
}

// enterStep issues a gated step entry as an async command.
func (m Model) enterStep(step workflow.Step) (tea.Model, tea.Cmd) {
	if !step.Valid() {
		return m, nil
	}
	m.fetching = true
	m.statusError = ""
	nav := m.nav
	return m, tea.Batch(m.spin.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		return stepEnteredMsg{step: step, err: nav.EnterStep(ctx, step)}
	})
}

// openReport deep-links into a previously completed report.
func (m Model) openReport(reportID string) (tea.Model, tea.Cmd) {
	m.fetching = true
	m.statusError = ""
	m.focus = focusStep
	opener := m.opener
	return m, tea.Batch(m.spin.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		data, steps, err := opener.LoadReport(ctx, reportID)
		return reportOpenedMsg{data: data, steps: steps, err: err}
	})
}

// toggleTitleSelection flips the selected flag on the title under the cursor
// and re-derives the selected index set.
func (m *Model) toggleTitleSelection() {
	state := m.tracker.State()
	titles := state.ReportData.Titles
	if m.titlesCursor < 0 || m.titlesCursor >= len(titles) {
		return
	}

	updated := make([]workflow.TitleItem, len(titles))
	copy(updated, titles)
	updated[m.titlesCursor].Selected = !updated[m.titlesCursor].Selected

	m.tracker.UpdateReportData(workflow.ReportPatch{
		Titles:          updated,
		SelectedIndices: workflow.SelectedIndices(updated),
	})
}

// recordCompletion pushes the active report onto the recent cache once the
// final step is done. Deduplication and the capacity bound are the state
// machine's concern; the panel just re-reads the result.
func (m *Model) recordCompletion(state workflow.State) {
	if !state.HasReport() || !state.StepCompleted(workflow.StepOutcomes) {
		return
	}
	var vendor, customer string
	if form := state.ReportData.FormData; form != nil {
		vendor = form.VendorName
		customer = form.TargetCustomerName
	}
	next := m.tracker.CompleteReport(state.ReportData.ReportID, vendor, customer)
	log.Info(log.CatWorkflow, "Report completed", "reportId", state.ReportData.ReportID, "recents", len(next.RecentReports))
	m.recentPanel.SetReports(next.RecentReports)
}

// invalidateActiveReport drops cached fetches for the active report after
// another process wrote the store, so the next step entry refetches.
func (m *Model) invalidateActiveReport() {
	inv, ok := m.opener.(interface{ Invalidate(reportID string) })
	if !ok {
		return
	}
	if id := m.tracker.State().ReportData.ReportID; id != "" {
		inv.Invalidate(id)
	}
}

// refreshRecents reloads the recent panel from the tracker after external
// store changes or a reset. Only the listing is refreshed; in-memory
// workflow position is never clobbered by a concurrent writer.
func (m *Model) refreshRecents() {
	if m.watcher != nil {
		if reports, ok := m.watcher.LoadRecents(); ok {
			log.Debug(log.CatUI, "Recent panel refreshed from store", "count", len(reports))
			m.recentPanel.SetReports(reports)
			return
		}
	}
	m.recentPanel.SetReports(m.tracker.State().RecentReports)
}

func (m Model) waitForStoreChange() tea.Cmd {
	watcher := m.watcher
	return func() tea.Msg {
		if _, ok := <-watcher.C; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

func lastOf(steps []workflow.Step) workflow.Step {
	if len(steps) == 0 {
		return workflow.StepForm
	}
	return steps[len(steps)-1]
}
