// Package styles contains Lip Gloss style definitions.
package styles

import (
	"fmt"
	"regexp"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ColorToken identifies a themeable color slot.
type ColorToken string

// Themeable color tokens. Config color overrides are keyed by these.
const (
	TokenTextPrimary   ColorToken = "text.primary"
	TokenTextSecondary ColorToken = "text.secondary"
	TokenTextMuted     ColorToken = "text.muted"

	TokenStatusSuccess ColorToken = "status.success"
	TokenStatusWarning ColorToken = "status.warning"
	TokenStatusError   ColorToken = "status.error"

	TokenStepCompleted ColorToken = "step.completed"
	TokenStepCurrent   ColorToken = "step.current"
	TokenStepAvailable ColorToken = "step.available"
	TokenStepLocked    ColorToken = "step.locked"

	TokenBorderDefault ColorToken = "border.default"
	TokenBorderFocus   ColorToken = "border.focus"

	TokenAccent ColorToken = "accent"
)

// Preset is a named set of token colors.
type Preset struct {
	Name        string
	Description string
	Colors      map[ColorToken]string
}

// DefaultPreset is applied when no preset is configured.
var DefaultPreset = Preset{
	Name:        "default",
	Description: "Default povtrack palette",
	Colors: map[ColorToken]string{
		TokenTextPrimary:   "#E0DEF4",
		TokenTextSecondary: "#908CAA",
		TokenTextMuted:     "#6E6A86",
		TokenStatusSuccess: "#9CCFD8",
		TokenStatusWarning: "#F6C177",
		TokenStatusError:   "#EB6F92",
		TokenStepCompleted: "#9CCFD8",
		TokenStepCurrent:   "#C4A7E7",
		TokenStepAvailable: "#E0DEF4",
		TokenStepLocked:    "#6E6A86",
		TokenBorderDefault: "#44415A",
		TokenBorderFocus:   "#C4A7E7",
		TokenAccent:        "#C4A7E7",
	},
}

// Presets holds all built-in theme presets by name.
var Presets = map[string]Preset{
	"default": DefaultPreset,
	"nord": {
		Name:        "nord",
		Description: "Nord palette",
		Colors: map[ColorToken]string{
			TokenTextPrimary:   "#ECEFF4",
			TokenTextSecondary: "#D8DEE9",
			TokenTextMuted:     "#4C566A",
			TokenStatusSuccess: "#A3BE8C",
			TokenStatusWarning: "#EBCB8B",
			TokenStatusError:   "#BF616A",
			TokenStepCompleted: "#A3BE8C",
			TokenStepCurrent:   "#88C0D0",
			TokenStepAvailable: "#ECEFF4",
			TokenStepLocked:    "#4C566A",
			TokenBorderDefault: "#434C5E",
			TokenBorderFocus:   "#88C0D0",
			TokenAccent:        "#81A1C1",
		},
	},
	"high-contrast": {
		Name:        "high-contrast",
		Description: "Maximum contrast for accessibility",
		Colors: map[ColorToken]string{
			TokenTextPrimary:   "#FFFFFF",
			TokenTextSecondary: "#FFFFFF",
			TokenTextMuted:     "#AAAAAA",
			TokenStatusSuccess: "#00FF00",
			TokenStatusWarning: "#FFFF00",
			TokenStatusError:   "#FF0000",
			TokenStepCompleted: "#00FF00",
			TokenStepCurrent:   "#00FFFF",
			TokenStepAvailable: "#FFFFFF",
			TokenStepLocked:    "#AAAAAA",
			TokenBorderDefault: "#FFFFFF",
			TokenBorderFocus:   "#00FFFF",
			TokenAccent:        "#00FFFF",
		},
	},
}

// Adaptive color variables. The Dark variant carries the themed value; the
// Light variant is derived once per apply for light terminals.
var (
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#1F1D2E", Dark: "#E0DEF4"}
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#55516B", Dark: "#908CAA"}
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#9893A5", Dark: "#6E6A86"}

	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9CCFD8"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#EA9D34", Dark: "#F6C177"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#B4637A", Dark: "#EB6F92"}

	StepCompletedColor = lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9CCFD8"}
	StepCurrentColor   = lipgloss.AdaptiveColor{Light: "#907AA9", Dark: "#C4A7E7"}
	StepAvailableColor = lipgloss.AdaptiveColor{Light: "#1F1D2E", Dark: "#E0DEF4"}
	StepLockedColor    = lipgloss.AdaptiveColor{Light: "#9893A5", Dark: "#6E6A86"}

	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#DFDAD9", Dark: "#44415A"}
	BorderFocusColor   = lipgloss.AdaptiveColor{Light: "#907AA9", Dark: "#C4A7E7"}

	AccentColor = lipgloss.AdaptiveColor{Light: "#907AA9", Dark: "#C4A7E7"}
)

// Derived styles, rebuilt whenever a theme is applied.
var (
	StepCompletedStyle lipgloss.Style
	StepCurrentStyle   lipgloss.Style
	StepAvailableStyle lipgloss.Style
	StepLockedStyle    lipgloss.Style

	StatusSuccessStyle lipgloss.Style
	StatusWarningStyle lipgloss.Style
	StatusErrorStyle   lipgloss.Style

	TitleStyle  lipgloss.Style
	MutedStyle  lipgloss.Style
	AccentStyle lipgloss.Style
)

func init() {
	rebuildStyles()
}

func rebuildStyles() {
	StepCompletedStyle = lipgloss.NewStyle().Foreground(StepCompletedColor)
	StepCurrentStyle = lipgloss.NewStyle().Foreground(StepCurrentColor).Bold(true)
	StepAvailableStyle = lipgloss.NewStyle().Foreground(StepAvailableColor)
	StepLockedStyle = lipgloss.NewStyle().Foreground(StepLockedColor)

	StatusSuccessStyle = lipgloss.NewStyle().Foreground(StatusSuccessColor)
	StatusWarningStyle = lipgloss.NewStyle().Foreground(StatusWarningColor)
	StatusErrorStyle = lipgloss.NewStyle().Foreground(StatusErrorColor)

	TitleStyle = lipgloss.NewStyle().Foreground(TextPrimaryColor).Bold(true)
	MutedStyle = lipgloss.NewStyle().Foreground(TextMutedColor)
	AccentStyle = lipgloss.NewStyle().Foreground(AccentColor)
}

// ThemeConfig carries the user's theme choices into ApplyTheme.
type ThemeConfig struct {
	// Mode forces dark or light rendering; empty means terminal detection.
	Mode string
	// Preset names a built-in preset; empty means default.
	Preset string
	// Colors are per-token hex overrides, applied after the preset.
	Colors map[string]string
}

var tokenTargets = map[ColorToken]*lipgloss.AdaptiveColor{
	TokenTextPrimary:   &TextPrimaryColor,
	TokenTextSecondary: &TextSecondaryColor,
	TokenTextMuted:     &TextMutedColor,
	TokenStatusSuccess: &StatusSuccessColor,
	TokenStatusWarning: &StatusWarningColor,
	TokenStatusError:   &StatusErrorColor,
	TokenStepCompleted: &StepCompletedColor,
	TokenStepCurrent:   &StepCurrentColor,
	TokenStepAvailable: &StepAvailableColor,
	TokenStepLocked:    &StepLockedColor,
	TokenBorderDefault: &BorderDefaultColor,
	TokenBorderFocus:   &BorderFocusColor,
	TokenAccent:        &AccentColor,
}

// ApplyTheme applies a preset and per-token overrides to the color
// variables, then rebuilds the derived styles. Unknown presets, unknown
// tokens, and malformed colors are rejected before anything is mutated.
func ApplyTheme(cfg ThemeConfig) error {
	presetName := cfg.Preset
	if presetName == "" {
		presetName = "default"
	}
	preset, ok := Presets[presetName]
	if !ok {
		return fmt.Errorf("unknown theme preset: %s", presetName)
	}

	for token, color := range cfg.Colors {
		if !isValidToken(ColorToken(token)) {
			return fmt.Errorf("unknown color token: %s", token)
		}
		if !isValidHexColor(color) {
			return fmt.Errorf("invalid hex color for %s: %s", token, color)
		}
	}

	switch cfg.Mode {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	default:
		lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())
	}

	for token, color := range preset.Colors {
		tokenTargets[token].Dark = color
	}
	for token, color := range cfg.Colors {
		tokenTargets[ColorToken(token)].Dark = color
	}

	rebuildStyles()
	return nil
}

func isValidToken(token ColorToken) bool {
	_, ok := tokenTargets[token]
	return ok
}

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func isValidHexColor(color string) bool {
	return hexColorRe.MatchString(color)
}
