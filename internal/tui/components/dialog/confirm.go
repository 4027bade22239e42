package dialog

import (
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/billie-coop/configurator/internal/tui/styles"
)

// ConfirmDialog asks a yes/no question and answers with a ConfirmedMsg
type ConfirmDialog struct {
	*BaseDialog

	id         string
	question   string
	selectedNo bool // "No" is the default for safety
}

// NewConfirmDialog creates a confirm dialog; id is echoed in its ConfirmedMsg
func NewConfirmDialog(id, title, question string) *ConfirmDialog {
	return &ConfirmDialog{
		BaseDialog: NewBaseDialog(title),
		id:         id,
		question:   question,
		selectedNo: true,
	}
}

// Open opens the dialog with "No" selected
func (d *ConfirmDialog) Open() tea.Cmd {
	d.selectedNo = true
	return d.BaseDialog.Open()
}

// Init initializes the dialog
func (d *ConfirmDialog) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (d *ConfirmDialog) Update(msg tea.Msg) (Dialog, tea.Cmd) {
	if !d.isOpen {
		return d, nil
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		return d, d.handleKey(msg.String())
	}
	return d, nil
}

func (d *ConfirmDialog) handleKey(k string) tea.Cmd {
	switch k {
	case "esc", "n", "N":
		return d.answer(false)
	case "y", "Y":
		return d.answer(true)
	case "left", "right", "tab", "h", "l":
		d.selectedNo = !d.selectedNo
	case "enter", "space", " ":
		return d.answer(!d.selectedNo)
	}
	return nil
}

func (d *ConfirmDialog) answer(yes bool) tea.Cmd {
	d.SetResult(yes)
	if !yes {
		d.cancelled = true
	}
	id := d.id
	return tea.Batch(d.Close(), func() tea.Msg {
		return ConfirmedMsg{ID: id, Confirmed: yes}
	})
}

// View renders the dialog
func (d *ConfirmDialog) View() string {
	if !d.isOpen {
		return ""
	}
	s := styles.CurrentTheme().S()

	question := s.Label.Render(d.question)

	yesStyle, noStyle := s.Button, s.Button
	if d.selectedNo {
		noStyle = s.ButtonFocused
	} else {
		yesStyle = s.ButtonFocused
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Center, yesStyle.Render("Yes"), "  ", noStyle.Render("No"))

	buttonsContainer := lipgloss.NewStyle().
		Width(lipgloss.Width(question)).
		Align(lipgloss.Right).
		Render(buttons)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		question,
		"",
		buttonsContainer,
		"",
		s.Muted.Italic(true).Render("y/n • Esc to cancel"),
	)
	return d.RenderDialog(content)
}
