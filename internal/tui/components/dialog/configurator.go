package dialog

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/v2/key"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/billie-coop/configurator/internal/form"
	"github.com/billie-coop/configurator/internal/schema"
	"github.com/billie-coop/configurator/internal/tui/events"
	"github.com/billie-coop/configurator/internal/tui/styles"
)

const descriptionWidth = 60

// DiscardRequestMsg asks the host to confirm closing a dialog with unsaved
// changes.
type DiscardRequestMsg struct {
	Title string
}

type submitResultMsg struct {
	ok     bool
	err    error
	values map[string]any
}

// ConfiguratorDialog edits one form session: sections of options with a
// Reset and a Save Changes button underneath.
type ConfiguratorDialog struct {
	*BaseDialog
	ctx     context.Context
	session *form.Session
	broker  *events.Broker
	logger  *zap.Logger
	keys    KeyMap

	// selectedIndex runs over the controls, then Reset, then Save Changes.
	selectedIndex int
	choiceCursor  int
	editing       bool
	input         *SimpleTextInput
	saving        bool

	status     string
	statusKind string

	descriptions map[string]string
}

// NewConfiguratorDialog creates a dialog bound to session. The context is
// handed to the submit callback with the session attached.
func NewConfiguratorDialog(ctx context.Context, title string, session *form.Session, broker *events.Broker, logger *zap.Logger) *ConfiguratorDialog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfiguratorDialog{
		BaseDialog:   NewBaseDialog(title),
		ctx:          ctx,
		session:      session,
		broker:       broker,
		logger:       logger.Named("dialog").With(zap.String("title", title)),
		keys:         DefaultKeyMap(),
		descriptions: make(map[string]string),
	}
}

// Session returns the form session the dialog edits.
func (d *ConfiguratorDialog) Session() *form.Session {
	return d.session
}

// Status returns the last status line and its kind.
func (d *ConfiguratorDialog) Status() (string, string) {
	return d.status, d.statusKind
}

// Init initializes the dialog
func (d *ConfiguratorDialog) Init() tea.Cmd {
	return nil
}

func (d *ConfiguratorDialog) controls() []Control {
	return Controls(d.session.Sections(), d.session.State())
}

func (d *ConfiguratorDialog) resetButton() int { return len(d.controls()) }
func (d *ConfiguratorDialog) saveButton() int  { return len(d.controls()) + 1 }

// Update handles dialog updates
func (d *ConfiguratorDialog) Update(msg tea.Msg) (Dialog, tea.Cmd) {
	if !d.isOpen {
		return d, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return d, d.handleKey(msg.String())
	case submitResultMsg:
		return d, d.handleSubmitResult(msg)
	}
	return d, nil
}

func (d *ConfiguratorDialog) handleKey(k string) tea.Cmd {
	// The submitted values are fixed once a save starts.
	if d.saving {
		return nil
	}
	if d.editing {
		switch k {
		case "enter":
			d.commitEdit()
		case "esc":
			d.stopEditing()
		default:
			d.input.HandleKey(k)
		}
		return nil
	}

	switch {
	case matches(k, d.keys.Cancel):
		if d.session.State().Dirty {
			title := d.title
			return func() tea.Msg { return DiscardRequestMsg{Title: title} }
		}
		return d.Cancel()
	case matches(k, d.keys.Up):
		d.move(-1)
		return nil
	case matches(k, d.keys.Down):
		d.move(1)
		return nil
	case matches(k, d.keys.Save):
		return d.save()
	case matches(k, d.keys.Reset):
		d.reset()
		return nil
	}

	switch d.selectedIndex {
	case d.resetButton():
		if matches(k, d.keys.Edit) || matches(k, d.keys.Toggle) {
			d.reset()
		}
		return nil
	case d.saveButton():
		if matches(k, d.keys.Edit) || matches(k, d.keys.Toggle) {
			return d.save()
		}
		return nil
	}

	controls := d.controls()
	if d.selectedIndex < 0 || d.selectedIndex >= len(controls) {
		return nil
	}
	d.handleControlKey(k, controls[d.selectedIndex])
	return nil
}

func (d *ConfiguratorDialog) handleControlKey(k string, c Control) {
	activate := matches(k, d.keys.Edit) || matches(k, d.keys.Toggle)

	switch c.Kind {
	case TextControl, NumberControl:
		if matches(k, d.keys.Edit) {
			d.startEditing(c)
		}
	case ToggleControl:
		if activate {
			on, _ := c.Value.(bool)
			d.setValue(c.Path, !on)
		}
	case ChoiceControl:
		if c.Multiple {
			switch {
			case matches(k, d.keys.Left):
				d.choiceCursor = max(0, d.choiceCursor-1)
			case matches(k, d.keys.Right):
				d.choiceCursor = min(len(c.Choices)-1, d.choiceCursor+1)
			case activate:
				if d.choiceCursor >= 0 && d.choiceCursor < len(c.Choices) {
					d.setValue(c.Path, toggleChoice(c.Choices, c.Value, c.Choices[d.choiceCursor].Value))
				}
			}
			return
		}
		switch {
		case matches(k, d.keys.Left):
			d.setValue(c.Path, nextChoice(c.Choices, c.Value, -1))
		case matches(k, d.keys.Right), activate:
			d.setValue(c.Path, nextChoice(c.Choices, c.Value, 1))
		}
	}
}

func (d *ConfiguratorDialog) move(step int) {
	n := d.saveButton() + 1
	d.selectedIndex = ((d.selectedIndex+step)%n + n) % n
	d.choiceCursor = 0
}

func (d *ConfiguratorDialog) startEditing(c Control) {
	if c.Kind == NumberControl {
		d.input = NewNumberInput()
	} else {
		d.input = NewSimpleTextInput()
		d.input.Placeholder(c.Placeholder)
	}
	d.input.SetValue(c.Display())
	d.input.Focus()
	d.editing = true
}

func (d *ConfiguratorDialog) stopEditing() {
	d.editing = false
	if d.input != nil {
		d.input.Blur()
	}
}

func (d *ConfiguratorDialog) commitEdit() {
	controls := d.controls()
	if d.selectedIndex < len(controls) {
		c := controls[d.selectedIndex]
		if c.Kind == NumberControl {
			d.setValue(c.Path, ParseNumber(d.input.Value()))
		} else {
			d.setValue(c.Path, d.input.Value())
		}
	}
	d.stopEditing()
}

func (d *ConfiguratorDialog) setValue(p schema.Path, v schema.Value) {
	d.session.SetValue(p, v)
	d.status = ""
	// Once errors are showing, keep them in step with the edits.
	if !d.session.State().Valid {
		d.session.Validate()
	}
}

func (d *ConfiguratorDialog) reset() {
	d.stopEditing()
	d.session.ResetForm()
	d.status = "Changes discarded"
	d.statusKind = "info"
}

func (d *ConfiguratorDialog) save() tea.Cmd {
	if d.saving {
		return nil
	}
	d.stopEditing()
	if !d.session.Validate() {
		d.status = "Fix the highlighted fields before saving"
		d.statusKind = "warning"
		return nil
	}

	d.saving = true
	d.status = "Saving..."
	d.statusKind = "info"

	session := d.session
	ctx := form.WithSession(d.ctx, session)
	return func() tea.Msg {
		ok, err := session.SubmitForm(ctx)
		return submitResultMsg{ok: ok, err: err, values: session.State().Flat()}
	}
}

func (d *ConfiguratorDialog) handleSubmitResult(msg submitResultMsg) tea.Cmd {
	d.saving = false
	switch {
	case msg.err != nil:
		d.logger.Warn("Save failed", zap.Error(msg.err))
		d.status = msg.err.Error()
		d.statusKind = "error"
		if d.broker != nil {
			d.broker.Status("error", fmt.Sprintf("%s: %v", d.title, msg.err))
		}
		return nil
	case !msg.ok:
		d.status = "Fix the highlighted fields before saving"
		d.statusKind = "warning"
		return nil
	}

	if d.session.State().Dirty {
		d.status = "Saved, but newer changes are not saved yet"
		d.statusKind = "warning"
		return nil
	}

	d.status = "Saved"
	d.statusKind = "success"
	d.SetResult(msg.values)
	title := d.title
	values := msg.values
	return tea.Batch(d.Close(), func() tea.Msg {
		return SubmittedMsg{Title: title, Values: values}
	})
}

// View renders the dialog
func (d *ConfiguratorDialog) View() string {
	if !d.isOpen {
		return ""
	}
	return d.RenderDialog(d.renderContent())
}

func (d *ConfiguratorDialog) renderContent() string {
	s := styles.CurrentTheme().S()
	st := d.session.State()
	controls := Controls(d.session.Sections(), st)

	var b strings.Builder
	i := 0
	for _, section := range d.session.Sections() {
		title := section.Title
		if title == "" {
			title = section.ID
		}
		b.WriteString(s.Section.Render(title))
		b.WriteString("\n")
		if desc := d.sectionDescription(section); desc != "" {
			b.WriteString(desc)
			b.WriteString("\n")
		}
		for range section.Options {
			b.WriteString(d.renderControl(controls[i], i == d.selectedIndex))
			i++
		}
		b.WriteString("\n")
	}

	reset := s.Button.Render("Reset")
	if d.selectedIndex == len(controls) {
		reset = s.ButtonFocused.Render("Reset")
	}
	save := s.Button.Render("Save Changes")
	if d.selectedIndex == len(controls)+1 {
		save = s.ButtonFocused.Render("Save Changes")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, reset, "  ", save))
	if st.Dirty {
		b.WriteString(s.Warning.Render("  • unsaved changes"))
	}
	b.WriteString("\n")

	if d.status != "" {
		b.WriteString("\n")
		b.WriteString(d.statusStyle().Render(d.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(s.Muted.Render(d.helpLine()))
	return b.String()
}

func (d *ConfiguratorDialog) renderControl(c Control, selected bool) string {
	s := styles.CurrentTheme().S()

	cursor := "  "
	label := s.Label.Render(c.Label)
	if selected {
		cursor = s.Selected.Render("> ")
		label = s.Selected.Render(c.Label)
	}

	var value string
	switch {
	case selected && d.editing:
		value = d.input.View()
	case c.Kind == ChoiceControl && c.Multiple:
		value = d.renderMultiChoice(c, selected)
	case c.Kind == ChoiceControl:
		value = s.Value.Render("< " + c.Display() + " >")
	case c.Kind == NumberControl:
		value = s.Value.Render(c.Display()) + s.Muted.Render(rangeHint(c))
	case c.Kind == TextControl && c.Display() == "":
		value = s.Muted.Render(c.Placeholder)
	default:
		value = s.Value.Render(c.Display())
	}

	line := cursor + label + ": " + value + "\n"
	if selected && c.Description != "" {
		line += "    " + s.Description.Render(c.Description) + "\n"
	}
	if c.HasError && c.Error != "" {
		line += "    " + s.Error.Render(c.Error) + "\n"
	}
	return line
}

func (d *ConfiguratorDialog) renderMultiChoice(c Control, selected bool) string {
	s := styles.CurrentTheme().S()
	values := selectedChoices(c.Value)

	parts := make([]string, 0, len(c.Choices))
	for j, ch := range c.Choices {
		box := "[ ]"
		if slices.Contains(values, ch.Value) {
			box = "[x]"
		}
		item := box + " " + ch.Label
		if selected && j == d.choiceCursor {
			parts = append(parts, s.Selected.Render(item))
		} else {
			parts = append(parts, s.Value.Render(item))
		}
	}
	return strings.Join(parts, "  ")
}

func rangeHint(c Control) string {
	switch {
	case c.Min != nil && c.Max != nil:
		return fmt.Sprintf(" (%s-%s)", formatFloat(*c.Min), formatFloat(*c.Max))
	case c.Min != nil:
		return fmt.Sprintf(" (min %s)", formatFloat(*c.Min))
	case c.Max != nil:
		return fmt.Sprintf(" (max %s)", formatFloat(*c.Max))
	}
	return ""
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// sectionDescription renders a section's markdown description once.
func (d *ConfiguratorDialog) sectionDescription(section schema.Section) string {
	if section.Description == "" {
		return ""
	}
	if out, ok := d.descriptions[section.ID]; ok {
		return out
	}
	out := styles.RenderMarkdown(section.Description, descriptionWidth)
	d.descriptions[section.ID] = out
	return out
}

func (d *ConfiguratorDialog) statusStyle() lipgloss.Style {
	s := styles.CurrentTheme().S()
	switch d.statusKind {
	case "error":
		return s.Error
	case "warning":
		return s.Warning
	case "success":
		return s.Success
	}
	return s.Muted
}

func (d *ConfiguratorDialog) helpLine() string {
	bindings := d.keys.ShortHelp()
	if c, ok := d.selectedControl(); ok && c.Kind == ChoiceControl {
		bindings = append([]key.Binding{d.keys.Left, d.keys.Right}, bindings...)
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

func (d *ConfiguratorDialog) selectedControl() (Control, bool) {
	controls := d.controls()
	if d.selectedIndex < len(controls) {
		return controls[d.selectedIndex], true
	}
	return Control{}, false
}
