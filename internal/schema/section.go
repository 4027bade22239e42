package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Section is a titled, ordered group of options.
type Section struct {
	ID          string
	Title       string
	Description string
	Options     []Option
}

// Path addresses one option inside one section.
type Path struct {
	Section string
	Option  string
}

// String renders the flat "{section}.{option}" key used by persistence callbacks.
func (p Path) String() string {
	return p.Section + "." + p.Option
}

// ParsePath splits a flat key on its first dot.
func ParsePath(key string) (Path, error) {
	section, option, ok := strings.Cut(key, ".")
	if !ok || section == "" || option == "" {
		return Path{}, fmt.Errorf("invalid option path %q", key)
	}
	return Path{Section: section, Option: option}, nil
}

// Lookup finds the option at p.
func Lookup(sections []Section, p Path) (Option, bool) {
	for _, s := range sections {
		if s.ID != p.Section {
			continue
		}
		for _, o := range s.Options {
			if o.OptionID() == p.Option {
				return o, true
			}
		}
	}
	return nil, false
}

// Walk calls fn for every option in schema order.
func Walk(sections []Section, fn func(Path, Option)) {
	for _, s := range sections {
		for _, o := range s.Options {
			fn(Path{Section: s.ID, Option: o.OptionID()}, o)
		}
	}
}

// Validate checks the structural rules of a schema and returns every
// violation joined together.
func Validate(sections []Section) error {
	var errs []error
	seenSections := make(map[string]bool)

	for _, s := range sections {
		if s.ID == "" {
			errs = append(errs, errors.New("section with empty id"))
		}
		if seenSections[s.ID] {
			errs = append(errs, fmt.Errorf("duplicate section %q", s.ID))
		}
		seenSections[s.ID] = true

		seenOptions := make(map[string]bool)
		for _, o := range s.Options {
			id := o.OptionID()
			if id == "" || strings.Contains(id, ".") {
				errs = append(errs, fmt.Errorf("section %q: invalid option id %q", s.ID, id))
			}
			if seenOptions[id] {
				errs = append(errs, fmt.Errorf("section %q: duplicate option %q", s.ID, id))
			}
			seenOptions[id] = true

			if err := validateOption(o); err != nil {
				errs = append(errs, fmt.Errorf("section %q: %w", s.ID, err))
			}
		}
	}

	return errors.Join(errs...)
}

func validateOption(opt Option) error {
	switch o := opt.(type) {
	case *NumberOption:
		if o.Min != nil && o.Max != nil && *o.Min > *o.Max {
			return fmt.Errorf("%s: min %v exceeds max %v", o.ID, *o.Min, *o.Max)
		}
	case *SelectOption:
		if len(o.Choices) == 0 {
			return fmt.Errorf("%s: select without choices", o.ID)
		}
		seen := make(map[Value]bool, len(o.Choices))
		for _, c := range o.Choices {
			switch c.Value.(type) {
			case string, float64:
			default:
				return fmt.Errorf("%s: choice %q has unsupported value %T", o.ID, c.Label, c.Value)
			}
			if seen[c.Value] {
				return fmt.Errorf("%s: duplicate choice value %v", o.ID, c.Value)
			}
			seen[c.Value] = true
		}
	}
	return CheckValue(opt, opt.DefaultValue())
}
