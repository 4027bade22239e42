package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/billie-coop/configurator/internal/configstore"
	"github.com/billie-coop/configurator/internal/instances"
	"github.com/billie-coop/configurator/internal/schema"
)

// findOption returns the option with the given id in any instance of m.
func findOption(m configstore.Module, id string) (schema.Option, error) {
	ins, err := instances.ForModule(m)
	if err != nil {
		return nil, err
	}
	for _, in := range ins {
		var found schema.Option
		schema.Walk(in.Sections, func(_ schema.Path, o schema.Option) {
			if o.OptionID() == id {
				found = o
			}
		})
		if found != nil {
			return found, nil
		}
	}
	return nil, fmt.Errorf("%s has no option %q", m, id)
}

// parseAssignments turns key=value arguments into typed module values.
func parseAssignments(m configstore.Module, args []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		opt, err := findOption(m, key)
		if err != nil {
			return nil, err
		}
		v, err := coerce(opt, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		values[key] = v
	}
	return values, nil
}

// coerce parses raw into the value type opt expects.
func coerce(opt schema.Option, raw string) (schema.Value, error) {
	c := &coercer{raw: raw}
	schema.Visit(opt, c)
	if c.err != nil {
		return nil, c.err
	}
	if err := schema.CheckValue(opt, c.value); err != nil {
		return nil, err
	}
	return c.value, nil
}

type coercer struct {
	raw   string
	value schema.Value
	err   error
}

func (c *coercer) VisitText(*schema.TextOption) {
	c.value = c.raw
}

func (c *coercer) VisitNumber(*schema.NumberOption) {
	f, err := strconv.ParseFloat(strings.TrimSpace(c.raw), 64)
	if err != nil {
		c.err = fmt.Errorf("%q is not a number", c.raw)
		return
	}
	c.value = f
}

func (c *coercer) VisitBoolean(*schema.BooleanOption) {
	b, err := strconv.ParseBool(strings.TrimSpace(c.raw))
	if err != nil {
		c.err = fmt.Errorf("%q is not true or false", c.raw)
		return
	}
	c.value = b
}

func (c *coercer) VisitSelect(o *schema.SelectOption) {
	numeric := len(o.Choices) > 0
	for _, ch := range o.Choices {
		if _, ok := ch.Value.(float64); !ok {
			numeric = false
		}
	}

	parse := func(s string) (schema.Value, error) {
		s = strings.TrimSpace(s)
		if !numeric {
			return s, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return f, nil
	}

	if !o.Multiple {
		c.value, c.err = parse(c.raw)
		return
	}

	var parts []string
	if strings.TrimSpace(c.raw) != "" {
		parts = strings.Split(c.raw, ",")
	}
	if numeric {
		fs := []float64{}
		for _, p := range parts {
			v, err := parse(p)
			if err != nil {
				c.err = err
				return
			}
			fs = append(fs, v.(float64))
		}
		c.value = fs
		return
	}
	ss := []string{}
	for _, p := range parts {
		ss = append(ss, strings.TrimSpace(p))
	}
	c.value = ss
}
