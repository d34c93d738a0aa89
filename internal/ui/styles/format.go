package styles

import "fmt"

// FormatSelectionIndicator returns the selected-titles indicator string.
// Returns empty string when count is 0.
func FormatSelectionIndicator(count int) string {
	if count <= 0 {
		return ""
	}
	return fmt.Sprintf("%d✓", count)
}

// FormatStepCounter renders the "step n/m" counter for the status bar.
func FormatStepCounter(current, total int) string {
	return fmt.Sprintf("step %d/%d", current, total)
}
