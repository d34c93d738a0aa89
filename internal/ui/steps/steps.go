// Package steps renders the workflow step indicator strip.
package steps

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/povtrack/internal/ui/styles"
	"github.com/zjrosen/povtrack/internal/workflow"
)

// Step glyphs by resolved status.
const (
	glyphCompleted = "●"
	glyphCurrent   = "◉"
	glyphAvailable = "○"
	glyphLocked    = "🔒"
)

// Render renders the step indicator strip for the given state.
// Format: ● Report Form  ─  ◉ Report Titles  ─  🔒 Target Outcomes
func Render(s workflow.State) string {
	infos := workflow.ResolveSteps(s)
	parts := make([]string, 0, len(infos))
	for _, info := range infos {
		parts = append(parts, renderStep(info))
	}
	sep := styles.MutedStyle.Render("  ─  ")
	return strings.Join(parts, sep)
}

// Label returns the display name for a step.
func Label(step workflow.Step) string {
	switch step {
	case workflow.StepForm:
		return "Report Form"
	case workflow.StepTitles:
		return "Report Titles"
	case workflow.StepOutcomes:
		return "Target Outcomes"
	default:
		return step.String()
	}
}

func renderStep(info workflow.StepInfo) string {
	label := Label(info.Step)
	var glyph string
	var style lipgloss.Style

	switch info.Status {
	case workflow.StepStatusCompleted:
		glyph, style = glyphCompleted, styles.StepCompletedStyle
	case workflow.StepStatusCurrent:
		glyph, style = glyphCurrent, styles.StepCurrentStyle
	case workflow.StepStatusAvailable:
		glyph, style = glyphAvailable, styles.StepAvailableStyle
	default:
		glyph, style = glyphLocked, styles.StepLockedStyle
	}

	return style.Render(glyph + " " + label)
}
