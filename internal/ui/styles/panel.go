package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Border characters (rounded)
const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// RenderTitledPanel renders content inside a rounded border with the title
// embedded in the top border and an optional tag on the right.
// Format: ╭─ Title ───────────── tag ─╮. Pass "" to omit either.
// The border uses BorderFocusColor when focused, BorderDefaultColor otherwise.
func RenderTitledPanel(content, title, tag string, width, height int, focused bool) string {
	var borderColor lipgloss.TerminalColor = BorderDefaultColor
	if focused {
		borderColor = BorderFocusColor
	}

	borderStyle := lipgloss.NewStyle().Foreground(borderColor)

	// -2 for the left and right border columns
	innerWidth := max(width-2, 1)
	contentHeight := max(height-2, 1)

	topBorder := buildTopBorder(title, tag, innerWidth, borderStyle)
	bottomBorder := borderStyle.Render(borderBottomLeft + strings.Repeat(borderHorizontal, innerWidth) + borderBottomRight)

	// lipgloss handles wrapping and truncation of the body
	constrained := lipgloss.NewStyle().Width(innerWidth).Height(contentHeight).Render(content)
	contentLines := strings.Split(constrained, "\n")

	var body strings.Builder
	for i := range contentHeight {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		if pad := innerWidth - lipgloss.Width(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		body.WriteString(borderStyle.Render(borderVertical))
		body.WriteString(line)
		body.WriteString(borderStyle.Render(borderVertical))
		body.WriteString("\n")
	}

	return topBorder + "\n" + body.String() + bottomBorder
}

// buildTopBorder creates the top border line with an embedded title on the
// left and an optional tag on the right.
func buildTopBorder(title, tag string, innerWidth int, borderStyle lipgloss.Style) string {
	if innerWidth < 1 {
		return borderStyle.Render(borderTopLeft + borderTopRight)
	}

	plain := borderStyle.Render(borderTopLeft + strings.Repeat(borderHorizontal, innerWidth) + borderTopRight)
	if title == "" && tag == "" {
		return plain
	}

	// "─ " before and " ─" after the title text
	available := innerWidth - 4
	if tag != "" {
		available -= lipgloss.Width(tag) + 3
	}
	if available < 1 {
		return plain
	}

	displayTitle := title
	if lipgloss.Width(displayTitle) > available {
		displayTitle = Truncate(displayTitle, available)
	}

	dashes := innerWidth - 3 - lipgloss.Width(displayTitle)
	if tag != "" {
		dashes -= lipgloss.Width(tag) + 3
	}
	dashes = max(dashes, 1)

	var b strings.Builder
	b.WriteString(borderStyle.Render(borderTopLeft + borderHorizontal + " "))
	b.WriteString(TitleStyle.Render(displayTitle))
	b.WriteString(borderStyle.Render(" " + strings.Repeat(borderHorizontal, dashes)))
	if tag != "" {
		b.WriteString(borderStyle.Render(" "))
		b.WriteString(MutedStyle.Render(tag))
		b.WriteString(borderStyle.Render(" " + borderHorizontal))
	}
	b.WriteString(borderStyle.Render(borderTopRight))
	return b.String()
}

// Truncate shortens s to fit within maxWidth, adding an ellipsis if needed.
func Truncate(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return strings.Repeat(".", maxWidth)
	}

	result := ""
	for _, r := range s {
		test := result + string(r)
		if lipgloss.Width(test) > maxWidth-3 {
			break
		}
		result = test
	}
	return result + "..."
}
