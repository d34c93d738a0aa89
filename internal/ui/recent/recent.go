// Package recent renders the recent-reports panel: the bounded cache of
// completed reports, newest first, with cursor selection for deep links.
package recent

import (
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/povtrack/internal/ui/styles"
	"github.com/zjrosen/povtrack/internal/workflow"
)

// column describes one table column. Width 0 means flex: leftover space is
// split evenly across flex columns.
type column struct {
	title    string
	width    int
	minWidth int
}

var columns = []column{
	{title: "Vendor", minWidth: 8},
	{title: "Customer", minWidth: 8},
	{title: "Completed", width: 12},
}

// Model is the recent-reports panel state.
type Model struct {
	reports []workflow.RecentReport
	cursor  int
	now     func() time.Time
}

// New creates an empty recent-reports panel.
func New() Model {
	return Model{now: time.Now}
}

// SetReports replaces the listing, clamping the cursor into range.
func (m *Model) SetReports(reports []workflow.RecentReport) {
	m.reports = reports
	if m.cursor >= len(reports) {
		m.cursor = max(len(reports)-1, 0)
	}
}

// CursorUp moves the selection up one row.
func (m *Model) CursorUp() {
	if m.cursor > 0 {
		m.cursor--
	}
}

// CursorDown moves the selection down one row.
func (m *Model) CursorDown() {
	if m.cursor < len(m.reports)-1 {
		m.cursor++
	}
}

// Selected returns the report under the cursor, or false when empty.
func (m *Model) Selected() (workflow.RecentReport, bool) {
	if len(m.reports) == 0 {
		return workflow.RecentReport{}, false
	}
	return m.reports[m.cursor], true
}

// Len returns the number of listed reports.
func (m *Model) Len() int {
	return len(m.reports)
}

// View renders the panel at the given content width.
func (m *Model) View(width int) string {
	if len(m.reports) == 0 {
		return styles.MutedStyle.Render("No completed reports yet")
	}

	widths := columnWidths(columns, width)

	var b strings.Builder
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = pad(col.title, widths[i])
	}
	b.WriteString(styles.MutedStyle.Render(strings.Join(headers, " ")))
	b.WriteString("\n")

	for i, r := range m.reports {
		cells := []string{
			pad(r.VendorName, widths[0]),
			pad(r.CustomerName, widths[1]),
			pad(relativeTime(m.now(), r.CompletedAt), widths[2]),
		}
		row := strings.Join(cells, " ")
		if i == m.cursor {
			b.WriteString(styles.AccentStyle.Render("> " + row))
		} else {
			b.WriteString("  " + row)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// columnWidths distributes available width across columns: fixed widths
// first, then leftover split evenly across flex columns, with minimums
// enforced last.
func columnWidths(cols []column, totalWidth int) []int {
	widths := make([]int, len(cols))
	// 2 for the cursor gutter, 1 separator between each pair of columns
	available := totalWidth - 2 - (len(cols) - 1)

	var flex []int
	for i, col := range cols {
		if col.width > 0 {
			widths[i] = col.width
			available -= col.width
		} else {
			flex = append(flex, i)
		}
	}

	if len(flex) > 0 && available > 0 {
		perCol := available / len(flex)
		remainder := available % len(flex)
		for j, i := range flex {
			w := perCol
			if j < remainder {
				w++
			}
			widths[i] = w
		}
	}

	for i, col := range cols {
		minW := max(col.minWidth, 3)
		if widths[i] < minW {
			widths[i] = minW
		}
	}
	return widths
}

// pad truncates or right-pads s to exactly width columns.
func pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

// relativeTime renders a coarse human age for the completed timestamp.
func relativeTime(now, t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "m ago"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + "h ago"
	default:
		return t.Format("2006-01-02")
	}
}
