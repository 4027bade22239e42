package schema

import (
	"fmt"
	"math"
	"reflect"
	"slices"
)

// Value is a setting value: string, float64, bool, []string or []float64.
type Value = any

// CheckValue reports whether v has the dynamic type opt expects. Select values
// must also be members of the option's choices.
func CheckValue(opt Option, v Value) error {
	switch o := opt.(type) {
	case *TextOption:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%s: expected text, got %T", o.ID, v)
		}
	case *NumberOption:
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("%s: expected number, got %T", o.ID, v)
		}
		if math.IsNaN(f) {
			return fmt.Errorf("%s: not a number", o.ID)
		}
	case *BooleanOption:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%s: expected boolean, got %T", o.ID, v)
		}
	case *SelectOption:
		return checkSelect(o, v)
	default:
		return fmt.Errorf("unsupported option %T", opt)
	}
	return nil
}

func checkSelect(o *SelectOption, v Value) error {
	if !o.Multiple {
		switch v.(type) {
		case string, float64:
		default:
			return fmt.Errorf("%s: expected a single choice, got %T", o.ID, v)
		}
		if !o.HasChoice(v) {
			return fmt.Errorf("%s: %v is not a valid choice", o.ID, v)
		}
		return nil
	}

	switch vs := v.(type) {
	case []string:
		for _, s := range vs {
			if !o.HasChoice(s) {
				return fmt.Errorf("%s: %q is not a valid choice", o.ID, s)
			}
		}
	case []float64:
		for _, f := range vs {
			if !o.HasChoice(f) {
				return fmt.Errorf("%s: %v is not a valid choice", o.ID, f)
			}
		}
	default:
		return fmt.Errorf("%s: expected a list of choices, got %T", o.ID, v)
	}
	return nil
}

// CloneValue copies slice values so callers cannot alias state.
func CloneValue(v Value) Value {
	switch vs := v.(type) {
	case []string:
		return slices.Clone(vs)
	case []float64:
		return slices.Clone(vs)
	case []any:
		return slices.Clone(vs)
	}
	return v
}

// Normalize converts values that went through a generic decoder (JSON, YAML)
// back into the types CheckValue expects: ints become float64 and []any
// becomes []string or []float64.
func Normalize(v Value) Value {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case []any:
		if len(x) == 0 {
			return []string{}
		}
		strs := make([]string, 0, len(x))
		nums := make([]float64, 0, len(x))
		for _, e := range x {
			switch n := Normalize(e).(type) {
			case string:
				strs = append(strs, n)
			case float64:
				nums = append(nums, n)
			}
		}
		if len(nums) == len(x) {
			return nums
		}
		if len(strs) == len(x) {
			return strs
		}
		return x
	}
	return v
}

// NormalizeFor normalizes v for opt. Unlike Normalize it knows the element
// type of a multiselect, so an empty list of numeric choices stays []float64.
func NormalizeFor(opt Option, v Value) Value {
	v = Normalize(v)
	o, ok := opt.(*SelectOption)
	if !ok || !o.Multiple || !o.numeric() {
		return v
	}
	if vs, ok := v.([]string); ok && len(vs) == 0 {
		return []float64{}
	}
	return v
}

// EqualValues compares two values, including slice values.
func EqualValues(a, b Value) bool {
	switch as := a.(type) {
	case []string:
		bs, ok := b.([]string)
		return ok && slices.Equal(as, bs)
	case []float64:
		bs, ok := b.([]float64)
		return ok && slices.Equal(as, bs)
	}
	return reflect.DeepEqual(a, b)
}
