package dialog

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/billie-coop/configurator/internal/tui/styles"
)

// SimpleTextInput is a single-line text field for dialogs
type SimpleTextInput struct {
	value       []rune
	placeholder string
	focused     bool
	cursorPos   int
	// numeric restricts input to characters that can appear in a float
	numeric bool
}

// NewSimpleTextInput creates a new text input
func NewSimpleTextInput() *SimpleTextInput {
	return &SimpleTextInput{}
}

// NewNumberInput creates a text input that only accepts numeric characters
func NewNumberInput() *SimpleTextInput {
	return &SimpleTextInput{numeric: true}
}

// Value returns the current value
func (t *SimpleTextInput) Value() string {
	return string(t.value)
}

// SetValue sets the value and moves the cursor to the end
func (t *SimpleTextInput) SetValue(value string) {
	t.value = []rune(value)
	t.cursorPos = len(t.value)
}

// Placeholder sets the placeholder text
func (t *SimpleTextInput) Placeholder(placeholder string) {
	t.placeholder = placeholder
}

// Focus focuses the input
func (t *SimpleTextInput) Focus() {
	t.focused = true
}

// Blur removes focus
func (t *SimpleTextInput) Blur() {
	t.focused = false
}

// Focused reports whether the input has focus
func (t *SimpleTextInput) Focused() bool {
	return t.focused
}

// Update handles input events
func (t *SimpleTextInput) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		t.HandleKey(msg.String())
	}
	return nil
}

// HandleKey applies one key press, named the way tea.KeyMsg.String names it.
func (t *SimpleTextInput) HandleKey(k string) {
	if !t.focused {
		return
	}

	switch k {
	case "backspace":
		if t.cursorPos > 0 {
			t.value = append(t.value[:t.cursorPos-1], t.value[t.cursorPos:]...)
			t.cursorPos--
		}
	case "delete":
		if t.cursorPos < len(t.value) {
			t.value = append(t.value[:t.cursorPos], t.value[t.cursorPos+1:]...)
		}
	case "left":
		if t.cursorPos > 0 {
			t.cursorPos--
		}
	case "right":
		if t.cursorPos < len(t.value) {
			t.cursorPos++
		}
	case "home", "ctrl+a":
		t.cursorPos = 0
	case "end", "ctrl+e":
		t.cursorPos = len(t.value)
	case "ctrl+u":
		t.value = t.value[t.cursorPos:]
		t.cursorPos = 0
	case "space":
		t.insert(' ')
	default:
		// Regular character input
		r := []rune(k)
		if len(r) == 1 {
			t.insert(r[0])
		}
	}
}

func (t *SimpleTextInput) insert(r rune) {
	if t.numeric && !strings.ContainsRune("0123456789.-+eE", r) {
		return
	}
	t.value = append(t.value[:t.cursorPos], append([]rune{r}, t.value[t.cursorPos:]...)...)
	t.cursorPos++
}

// View renders the input
func (t *SimpleTextInput) View() string {
	theme := styles.CurrentTheme()
	style := lipgloss.NewStyle().Foreground(theme.FgBase)

	if !t.focused {
		if len(t.value) == 0 && t.placeholder != "" {
			return style.Foreground(theme.FgSubtle).Render(t.placeholder)
		}
		return style.Render(string(t.value))
	}

	cursor := lipgloss.NewStyle().
		Background(theme.Accent).
		Foreground(theme.FgInverted)

	before := string(t.value[:t.cursorPos])
	if t.cursorPos < len(t.value) {
		at := string(t.value[t.cursorPos])
		after := string(t.value[t.cursorPos+1:])
		return style.Render(before) + cursor.Render(at) + style.Render(after)
	}
	return style.Render(before) + cursor.Render(" ")
}
