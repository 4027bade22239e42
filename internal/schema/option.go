package schema

// Option is one editable setting. The set of implementations is closed:
// TextOption, NumberOption, BooleanOption and SelectOption.
type Option interface {
	OptionID() string
	OptionLabel() string
	OptionDescription() string
	// DefaultValue returns the static default carried by the schema.
	DefaultValue() Value

	sealed()
}

// Base holds the fields every option shares.
type Base struct {
	ID          string
	Label       string
	Description string
}

func (b Base) OptionID() string          { return b.ID }
func (b Base) OptionLabel() string       { return b.Label }
func (b Base) OptionDescription() string { return b.Description }

// TextOption is a single-line text field.
type TextOption struct {
	Base
	Default     string
	Placeholder string
}

// NumberOption is a numeric field. Min and Max are inclusive and advisory.
type NumberOption struct {
	Base
	Default float64
	Min     *float64
	Max     *float64
}

// BooleanOption is an on/off toggle.
type BooleanOption struct {
	Base
	Default bool
}

// Choice is one entry of a select list. Value is a string or a float64.
type Choice struct {
	Label string
	Value Value
}

// SelectOption picks one (or, with Multiple, several) values from Choices.
type SelectOption struct {
	Base
	Choices  []Choice
	Multiple bool
	Default  Value
}

func (o *TextOption) DefaultValue() Value    { return o.Default }
func (o *NumberOption) DefaultValue() Value  { return o.Default }
func (o *BooleanOption) DefaultValue() Value { return o.Default }

func (o *SelectOption) DefaultValue() Value {
	if o.Default != nil {
		return CloneValue(o.Default)
	}
	if o.Multiple {
		if o.numeric() {
			return []float64{}
		}
		return []string{}
	}
	if len(o.Choices) > 0 {
		return o.Choices[0].Value
	}
	return ""
}

func (*TextOption) sealed()    {}
func (*NumberOption) sealed()  {}
func (*BooleanOption) sealed() {}
func (*SelectOption) sealed()  {}

// HasChoice reports whether v is one of the option's choice values.
func (o *SelectOption) HasChoice(v Value) bool {
	for _, c := range o.Choices {
		if c.Value == v {
			return true
		}
	}
	return false
}

// numeric reports whether every choice value is a number.
func (o *SelectOption) numeric() bool {
	if len(o.Choices) == 0 {
		return false
	}
	for _, c := range o.Choices {
		if _, ok := c.Value.(float64); !ok {
			return false
		}
	}
	return true
}

// Visitor handles each option variant. Adding a variant adds a method here,
// which breaks every visitor until it handles the new case.
type Visitor interface {
	VisitText(*TextOption)
	VisitNumber(*NumberOption)
	VisitBoolean(*BooleanOption)
	VisitSelect(*SelectOption)
}

// Visit dispatches opt to the matching visitor method.
func Visit(opt Option, v Visitor) {
	switch o := opt.(type) {
	case *TextOption:
		v.VisitText(o)
	case *NumberOption:
		v.VisitNumber(o)
	case *BooleanOption:
		v.VisitBoolean(o)
	case *SelectOption:
		v.VisitSelect(o)
	}
}

// Kind names the variant, matching the "type" discriminator used in schema files.
func Kind(opt Option) string {
	switch o := opt.(type) {
	case *TextOption:
		return "text"
	case *NumberOption:
		return "number"
	case *BooleanOption:
		return "boolean"
	case *SelectOption:
		if o.Multiple {
			return "multiselect"
		}
		return "select"
	}
	return ""
}

// Float returns a pointer to f, for Min/Max literals.
func Float(f float64) *float64 { return &f }
