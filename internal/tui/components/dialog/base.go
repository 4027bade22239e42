package dialog

import (
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/billie-coop/configurator/internal/tui/styles"
)

// BaseDialog provides common dialog functionality
type BaseDialog struct {
	title     string
	isOpen    bool
	focused   bool
	result    any
	cancelled bool

	width  int
	height int
}

// NewBaseDialog creates a new base dialog
func NewBaseDialog(title string) *BaseDialog {
	return &BaseDialog{title: title}
}

// Title returns the dialog title
func (d *BaseDialog) Title() string {
	return d.title
}

// IsOpen returns whether the dialog is open
func (d *BaseDialog) IsOpen() bool {
	return d.isOpen
}

// Open opens the dialog
func (d *BaseDialog) Open() tea.Cmd {
	d.isOpen = true
	d.cancelled = false
	d.result = nil
	return d.Focus()
}

// Close closes the dialog
func (d *BaseDialog) Close() tea.Cmd {
	d.isOpen = false
	return d.Blur()
}

// Cancel closes the dialog as cancelled
func (d *BaseDialog) Cancel() tea.Cmd {
	d.cancelled = true
	return d.Close()
}

// Focus gives the dialog keyboard focus
func (d *BaseDialog) Focus() tea.Cmd {
	d.focused = true
	return nil
}

// Blur removes keyboard focus
func (d *BaseDialog) Blur() tea.Cmd {
	d.focused = false
	return nil
}

// IsFocused reports whether the dialog has keyboard focus
func (d *BaseDialog) IsFocused() bool {
	return d.focused
}

// SetSize records the terminal size the dialog is centered in
func (d *BaseDialog) SetSize(width, height int) tea.Cmd {
	d.width = width
	d.height = height
	return nil
}

// GetResult returns the dialog result
func (d *BaseDialog) GetResult() any {
	return d.result
}

// IsCancelled returns whether the dialog was cancelled
func (d *BaseDialog) IsCancelled() bool {
	return d.cancelled
}

// SetResult sets the dialog result
func (d *BaseDialog) SetResult(result any) {
	d.result = result
}

// RenderDialog renders the dialog centered on an overlay
func (d *BaseDialog) RenderDialog(content string) string {
	if !d.isOpen {
		return ""
	}
	s := styles.CurrentTheme().S()

	dialogContent := content
	if d.title != "" {
		dialogContent = lipgloss.JoinVertical(lipgloss.Left, s.Title.Render(d.title), content)
	}

	// Let the border size to content
	box := s.Dialog.Render(dialogContent)

	// Before the first WindowSizeMsg there is nothing to center in
	if d.width == 0 || d.height == 0 {
		return box
	}

	return s.Overlay.
		Width(d.width).
		Height(d.height).
		Render(lipgloss.Place(d.width, d.height, lipgloss.Center, lipgloss.Center, box))
}

// HandleEscape handles the escape key
func (d *BaseDialog) HandleEscape() tea.Cmd {
	if d.isOpen {
		return d.Cancel()
	}
	return nil
}
