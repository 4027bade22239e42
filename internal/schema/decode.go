package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type sectionDoc struct {
	ID          string      `yaml:"id"`
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Options     []optionDoc `yaml:"options"`
}

type optionDoc struct {
	ID          string      `yaml:"id"`
	Label       string      `yaml:"label"`
	Description string      `yaml:"description"`
	Type        string      `yaml:"type"`
	Default     any         `yaml:"default"`
	Placeholder string      `yaml:"placeholder"`
	Min         *float64    `yaml:"min"`
	Max         *float64    `yaml:"max"`
	Multiple    bool        `yaml:"multiple"`
	Choices     []choiceDoc `yaml:"choices"`
}

type choiceDoc struct {
	Label string `yaml:"label"`
	Value any    `yaml:"value"`
}

// Decode parses a YAML list of sections and validates the result.
//
//	- id: general
//	  title: General
//	  options:
//	    - id: tax
//	      type: number
//	      default: 0
func Decode(data []byte) ([]Section, error) {
	var docs []sectionDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	sections := make([]Section, 0, len(docs))
	for _, sd := range docs {
		s := Section{ID: sd.ID, Title: sd.Title, Description: sd.Description}
		for _, od := range sd.Options {
			opt, err := od.build()
			if err != nil {
				return nil, fmt.Errorf("section %q: %w", sd.ID, err)
			}
			s.Options = append(s.Options, opt)
		}
		sections = append(sections, s)
	}

	if err := Validate(sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func (od optionDoc) build() (Option, error) {
	base := Base{ID: od.ID, Label: od.Label, Description: od.Description}

	switch od.Type {
	case "text":
		opt := &TextOption{Base: base, Placeholder: od.Placeholder}
		if od.Default != nil {
			s, ok := od.Default.(string)
			if !ok {
				return nil, fmt.Errorf("%s: text default must be a string", od.ID)
			}
			opt.Default = s
		}
		return opt, nil
	case "number":
		opt := &NumberOption{Base: base, Min: od.Min, Max: od.Max}
		if od.Default != nil {
			f, ok := Normalize(od.Default).(float64)
			if !ok {
				return nil, fmt.Errorf("%s: number default must be numeric", od.ID)
			}
			opt.Default = f
		}
		return opt, nil
	case "boolean":
		opt := &BooleanOption{Base: base}
		if od.Default != nil {
			b, ok := od.Default.(bool)
			if !ok {
				return nil, fmt.Errorf("%s: boolean default must be true or false", od.ID)
			}
			opt.Default = b
		}
		return opt, nil
	case "select", "multiselect":
		opt := &SelectOption{Base: base, Multiple: od.Multiple || od.Type == "multiselect"}
		for _, c := range od.Choices {
			opt.Choices = append(opt.Choices, Choice{Label: c.Label, Value: Normalize(c.Value)})
		}
		if od.Default != nil {
			opt.Default = NormalizeFor(opt, od.Default)
		}
		return opt, nil
	default:
		return nil, fmt.Errorf("%s: unknown option type %q", od.ID, od.Type)
	}
}
