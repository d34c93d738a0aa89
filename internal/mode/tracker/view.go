package tracker

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/povtrack/internal/ui/steps"
	"github.com/zjrosen/povtrack/internal/ui/styles"
	"github.com/zjrosen/povtrack/internal/workflow"
)

const recentPanelWidth = 44

// View renders tracker mode.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	state := m.tracker.State()

	var b strings.Builder
	b.WriteString(steps.Render(state))
	b.WriteString("\n\n")

	bodyHeight := m.height - 5
	if m.cfg.UI.ShowStatusBar {
		bodyHeight--
	}
	bodyHeight = max(bodyHeight, 3)

	stepWidth := m.width
	if m.cfg.UI.ShowRecent {
		stepWidth -= recentPanelWidth + 1
	}
	stepWidth = max(stepWidth, 20)

	stepPane := styles.RenderTitledPanel(
		m.stepContent(state, stepWidth-2),
		steps.Label(state.CurrentStep),
		string(state.ReportData.Status),
		stepWidth, bodyHeight,
		m.focus == focusStep,
	)

	if m.cfg.UI.ShowRecent {
		recentPane := styles.RenderTitledPanel(
			m.recentPanel.View(recentPanelWidth-4),
			"Recent Reports", "",
			recentPanelWidth, bodyHeight,
			m.focus == focusRecent,
		)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, stepPane, " ", recentPane))
	} else {
		b.WriteString(stepPane)
	}

	if m.cfg.UI.ShowStatusBar {
		b.WriteString("\n")
		b.WriteString(m.statusBar(state))
	}

	return b.String()
}

// stepContent renders the pane body for the current step.
func (m Model) stepContent(state workflow.State, width int) string {
	if m.confirming {
		return styles.StatusWarningStyle.Render("Reset workflow? This clears the saved slot. (y/n)")
	}
	if m.fetching {
		return m.spin.View() + styles.MutedStyle.Render(" Fetching...")
	}

	switch state.CurrentStep {
	case workflow.StepTitles:
		return m.titlesContent(state)
	case workflow.StepOutcomes:
		return m.outcomesContent(state)
	default:
		return m.formContent(state, width)
	}
}

// formContent summarizes the report form fields.
func (m Model) formContent(state workflow.State, width int) string {
	form := state.ReportData.FormData
	if form == nil {
		return styles.MutedStyle.Render("No report form yet.\n\nComplete the form in the web app, then open a recent report here.")
	}

	label := styles.MutedStyle
	var b strings.Builder
	row := func(name, value string) {
		if value == "" {
			value = "-"
		}
		b.WriteString(label.Render(name+": ") + styles.Truncate(value, max(width-len(name)-2, 8)) + "\n")
	}

	row("Vendor", form.VendorName)
	row("Vendor URL", form.VendorURL)
	row("Services", form.VendorServices)
	row("Customer", form.TargetCustomerName)
	row("Customer URL", form.TargetCustomerURL)
	row("Roles", form.RoleNames)
	row("Model", form.ModelName)
	row("Outcomes", fmt.Sprintf("%d", form.NumOutcomes))
	return b.String()
}

// titlesContent lists candidate titles with selection markers.
func (m Model) titlesContent(state workflow.State) string {
	titles := state.ReportData.Titles
	if len(titles) == 0 {
		return styles.MutedStyle.Render("No titles generated yet.")
	}

	var b strings.Builder
	for i, title := range titles {
		marker := "[ ]"
		if title.Selected {
			marker = "[x]"
		}
		line := fmt.Sprintf("%s %s", marker, title.Title)
		if i == m.titlesCursor && m.focus == focusStep {
			line = styles.AccentStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.MutedStyle.Render(styles.FormatSelectionIndicator(len(state.ReportData.SelectedIndices))))
	return b.String()
}

// outcomesContent renders generated outcomes, falling back to the summary.
func (m Model) outcomesContent(state workflow.State) string {
	data := state.ReportData
	if len(data.Outcomes) == 0 && data.Summary == nil {
		return styles.MutedStyle.Render("No outcomes generated yet.")
	}

	var parts []string
	for _, outcome := range data.Outcomes {
		body := outcome.Content
		if body == "" {
			body = outcome.Title
		}
		parts = append(parts, body)
	}
	if data.Summary != nil {
		parts = append(parts, *data.Summary)
	}
	return m.previewPane.Render(strings.Join(parts, "\n\n---\n\n"))
}

// statusBar renders the one-line footer.
func (m Model) statusBar(state workflow.State) string {
	var parts []string

	parts = append(parts, styles.FormatStepCounter(int(state.CurrentStep), len(workflow.Steps())))

	if state.HasReport() {
		parts = append(parts, "report "+state.ReportData.ReportID)
	}
	for _, flag := range activeFlags(state) {
		parts = append(parts, styles.StatusWarningStyle.Render(string(flag)))
	}

	if at, ok := m.tracker.SlotUpdatedAt(); ok {
		parts = append(parts, styles.MutedStyle.Render(savedAge(time.Since(at))))
	}

	if m.statusError != "" {
		parts = append(parts, styles.StatusErrorStyle.Render(styles.Truncate(m.statusError, 60)))
	} else if state.Err != nil {
		parts = append(parts, styles.StatusErrorStyle.Render(state.Err.Code))
	}

	parts = append(parts, styles.MutedStyle.Render("1-3 steps · tab recent · c complete · R reset · q quit"))
	return strings.Join(parts, "  ")
}

// activeFlags returns the set loading flags in a stable order so the status
// bar does not reorder them frame to frame.
func activeFlags(state workflow.State) []workflow.LoadingFlag {
	var flags []workflow.LoadingFlag
	for flag, on := range state.Loading {
		if on {
			flags = append(flags, flag)
		}
	}
	slices.Sort(flags)
	return flags
}

// savedAge formats how long ago the slot was last persisted.
func savedAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "saved just now"
	case d < time.Hour:
		return fmt.Sprintf("saved %dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("saved %dh ago", int(d.Hours()))
	}
}
