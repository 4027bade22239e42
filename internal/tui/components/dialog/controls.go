package dialog

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/billie-coop/configurator/internal/form"
	"github.com/billie-coop/configurator/internal/schema"
)

// ControlKind is the input widget an option renders as.
type ControlKind int

const (
	TextControl ControlKind = iota
	NumberControl
	ToggleControl
	ChoiceControl
)

func (k ControlKind) String() string {
	switch k {
	case TextControl:
		return "text"
	case NumberControl:
		return "number"
	case ToggleControl:
		return "toggle"
	case ChoiceControl:
		return "choice"
	}
	return "unknown"
}

// Control is the render model of one option: everything the view needs,
// resolved against the current form state.
type Control struct {
	Path        schema.Path
	Kind        ControlKind
	Label       string
	Description string
	Placeholder string

	Value schema.Value
	Error string
	// HasError is true even when Error is the empty string.
	HasError bool

	Choices  []schema.Choice
	Multiple bool
	Min, Max *float64
}

// Display renders the control's value as a single line.
func (c Control) Display() string {
	switch c.Kind {
	case NumberControl:
		f, _ := c.Value.(float64)
		return strconv.FormatFloat(f, 'f', -1, 64)
	case ToggleControl:
		if on, _ := c.Value.(bool); on {
			return "[x]"
		}
		return "[ ]"
	case ChoiceControl:
		if c.Multiple {
			selected := selectedChoices(c.Value)
			var labels []string
			for _, ch := range c.Choices {
				if slices.Contains(selected, ch.Value) {
					labels = append(labels, ch.Label)
				}
			}
			return strings.Join(labels, ", ")
		}
		for _, ch := range c.Choices {
			if ch.Value == c.Value {
				return ch.Label
			}
		}
		if c.Value == nil {
			return ""
		}
		return fmt.Sprint(c.Value)
	}
	s, _ := c.Value.(string)
	return s
}

// Controls resolves every option of sections against st, in schema order.
func Controls(sections []schema.Section, st form.State) []Control {
	var out []Control
	schema.Walk(sections, func(p schema.Path, o schema.Option) {
		b := &controlBuilder{c: Control{
			Path:        p,
			Label:       o.OptionLabel(),
			Description: o.OptionDescription(),
		}}
		if b.c.Label == "" {
			b.c.Label = o.OptionID()
		}
		v, ok := st.Values[p]
		if !ok {
			v = o.DefaultValue()
		}
		b.c.Value = v
		b.c.Error, b.c.HasError = st.Errors[p]
		schema.Visit(o, b)
		out = append(out, b.c)
	})
	return out
}

type controlBuilder struct {
	c Control
}

func (b *controlBuilder) VisitText(o *schema.TextOption) {
	b.c.Kind = TextControl
	b.c.Placeholder = o.Placeholder
}

func (b *controlBuilder) VisitNumber(o *schema.NumberOption) {
	b.c.Kind = NumberControl
	b.c.Min, b.c.Max = o.Min, o.Max
}

func (b *controlBuilder) VisitBoolean(*schema.BooleanOption) {
	b.c.Kind = ToggleControl
}

func (b *controlBuilder) VisitSelect(o *schema.SelectOption) {
	b.c.Kind = ChoiceControl
	b.c.Choices = o.Choices
	b.c.Multiple = o.Multiple
}

// ParseNumber reads a number field's text. Anything that is not a finite
// number becomes 0.
func ParseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// nextChoice returns the choice value after current, wrapping around.
func nextChoice(choices []schema.Choice, current schema.Value, step int) schema.Value {
	if len(choices) == 0 {
		return current
	}
	i := slices.IndexFunc(choices, func(c schema.Choice) bool { return c.Value == current })
	if i < 0 {
		return choices[0].Value
	}
	n := len(choices)
	return choices[((i+step)%n+n)%n].Value
}

// selectedChoices lists the members of a multiselect value.
func selectedChoices(v schema.Value) []schema.Value {
	var out []schema.Value
	switch vs := v.(type) {
	case []string:
		for _, s := range vs {
			out = append(out, s)
		}
	case []float64:
		for _, f := range vs {
			out = append(out, f)
		}
	}
	return out
}

// toggleChoice adds or removes value, keeping choice order. The result is a
// []float64 for numeric choices and a []string otherwise, never nil.
func toggleChoice(choices []schema.Choice, selected, value schema.Value) schema.Value {
	current := selectedChoices(selected)
	had := slices.Contains(current, value)

	strs := []string{}
	nums := []float64{}
	for _, c := range choices {
		in := slices.Contains(current, c.Value)
		if c.Value == value {
			in = !had
		}
		if !in {
			continue
		}
		switch v := c.Value.(type) {
		case string:
			strs = append(strs, v)
		case float64:
			nums = append(nums, v)
		}
	}
	if len(choices) > 0 {
		if _, ok := choices[0].Value.(float64); ok {
			return nums
		}
	}
	return strs
}
