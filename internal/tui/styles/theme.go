// Package styles holds the colors and lipgloss styles of the configurator UI.
package styles

import (
	"image/color"
	"sync"

	"github.com/charmbracelet/lipgloss/v2"
)

// Theme names the semantic colors of the UI.
type Theme struct {
	Name   string
	IsDark bool

	Primary   color.Color
	Secondary color.Color
	Accent    color.Color

	BgBase    color.Color
	BgSubtle  color.Color
	BgOverlay color.Color

	FgBase     color.Color
	FgMuted    color.Color
	FgSubtle   color.Color
	FgInverted color.Color

	Border      color.Color
	BorderFocus color.Color

	Success color.Color
	Error   color.Color
	Warning color.Color

	styles *Styles
	once   sync.Once
}

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Base        lipgloss.Style
	Title       lipgloss.Style
	Section     lipgloss.Style
	Label       lipgloss.Style
	Value       lipgloss.Style
	Selected    lipgloss.Style
	Description lipgloss.Style
	Muted       lipgloss.Style

	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style

	Button        lipgloss.Style
	ButtonFocused lipgloss.Style
	Dialog        lipgloss.Style
	Overlay       lipgloss.Style
}

// S returns the theme's styles, building them on first use.
func (t *Theme) S() *Styles {
	t.once.Do(func() {
		t.styles = t.buildStyles()
	})
	return t.styles
}

func (t *Theme) buildStyles() *Styles {
	base := lipgloss.NewStyle().
		Foreground(t.FgBase)

	return &Styles{
		Base: base,

		Title: base.
			Foreground(t.Accent).
			Bold(true).
			MarginBottom(1),

		Section: base.
			Foreground(t.Secondary).
			Bold(true),

		Label: base.
			Foreground(t.Primary).
			Bold(true),

		Value: base,

		Selected: base.
			Foreground(t.Accent).
			Bold(true),

		Description: base.
			Foreground(t.FgMuted).
			Italic(true),

		Muted: base.Foreground(t.FgSubtle),

		Error:   base.Foreground(t.Error),
		Success: base.Foreground(t.Success),
		Warning: base.Foreground(t.Warning),

		Button: base.
			Background(t.BgSubtle).
			Foreground(t.FgBase).
			Padding(0, 2),

		ButtonFocused: base.
			Background(t.Primary).
			Foreground(t.FgInverted).
			Padding(0, 2),

		Dialog: base.
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocus).
			Padding(1),

		Overlay: lipgloss.NewStyle().
			Background(t.BgOverlay),
	}
}

// NewDefaultTheme creates the default dark theme.
func NewDefaultTheme() *Theme {
	return &Theme{
		Name:   "default",
		IsDark: true,

		Primary:   lipgloss.Color("#5EB3F6"),
		Secondary: lipgloss.Color("#F4D03F"),
		Accent:    lipgloss.Color("#F39C12"),

		BgBase:    lipgloss.Color("#2C3E50"),
		BgSubtle:  lipgloss.Color("#3D566E"),
		BgOverlay: lipgloss.Color("#1E272E"),

		FgBase:     lipgloss.Color("#F5F6FA"),
		FgMuted:    lipgloss.Color("#A0A0A0"),
		FgSubtle:   lipgloss.Color("#6F6F70"),
		FgInverted: lipgloss.Color("#1E1E1E"),

		Border:      lipgloss.Color("#5D6D7E"),
		BorderFocus: lipgloss.Color("#F39C12"),

		Success: lipgloss.Color("#27AE60"),
		Error:   lipgloss.Color("#E74C3C"),
		Warning: lipgloss.Color("#F39C12"),
	}
}

// NewLightTheme creates a theme for light terminals.
func NewLightTheme() *Theme {
	return &Theme{
		Name:   "light",
		IsDark: false,

		Primary:   lipgloss.Color("#1D4ED8"),
		Secondary: lipgloss.Color("#7C3AED"),
		Accent:    lipgloss.Color("#C2410C"),

		BgBase:    lipgloss.Color("#FFFFFF"),
		BgSubtle:  lipgloss.Color("#E5E7EB"),
		BgOverlay: lipgloss.Color("#F3F4F6"),

		FgBase:     lipgloss.Color("#111827"),
		FgMuted:    lipgloss.Color("#4B5563"),
		FgSubtle:   lipgloss.Color("#9CA3AF"),
		FgInverted: lipgloss.Color("#FFFFFF"),

		Border:      lipgloss.Color("#D1D5DB"),
		BorderFocus: lipgloss.Color("#C2410C"),

		Success: lipgloss.Color("#15803D"),
		Error:   lipgloss.Color("#B91C1C"),
		Warning: lipgloss.Color("#B45309"),
	}
}

var (
	currentMu sync.RWMutex
	current   = NewDefaultTheme()
)

// CurrentTheme returns the active theme.
func CurrentTheme() *Theme {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// SetTheme switches the active theme by name and reports whether it exists.
func SetTheme(name string) bool {
	var t *Theme
	switch name {
	case "default", "dark", "":
		t = NewDefaultTheme()
	case "light":
		t = NewLightTheme()
	default:
		return false
	}

	currentMu.Lock()
	defer currentMu.Unlock()
	current = t
	return true
}
