package configstore

import "fmt"

// Rule checks one key of a module's values and returns an error message, or
// "" when the value is acceptable.
type Rule struct {
	Key   string
	Check func(v any, present bool) string
}

// Rules maps each module to its validation rules.
type Rules map[Module][]Rule

// Required fails when key is missing, nil or an empty string.
func Required(key, msg string) Rule {
	return Rule{Key: key, Check: func(v any, present bool) string {
		if !present || v == nil {
			return msg
		}
		if s, ok := v.(string); ok && s == "" {
			return msg
		}
		return ""
	}}
}

// AtLeast fails when key is set to a number below min. Missing keys pass.
func AtLeast(key string, min float64, msg string) Rule {
	return Rule{Key: key, Check: func(v any, present bool) string {
		if !present || v == nil {
			return ""
		}
		f, ok := v.(float64)
		if !ok {
			return fmt.Sprintf("%s must be a number", key)
		}
		if f < min {
			return msg
		}
		return ""
	}}
}

// DefaultRules returns the built-in validation rules.
func DefaultRules() Rules {
	return Rules{
		InvoiceCreator: {
			Required("defaultCurrency", "Default currency is required"),
			AtLeast("taxRate", 0, "Tax rate cannot be negative"),
		},
		TimeTracking: {
			AtLeast("roundingMinutes", 0, "Rounding must be zero or more minutes"),
		},
		ProposalGenerator: {
			AtLeast("validityDays", 1, "Proposals must be valid for at least one day"),
		},
	}
}

// validate runs the module's rules against values.
func (r Rules) validate(m Module, values map[string]any) map[string]string {
	errs := make(map[string]string)
	for _, rule := range r[m] {
		v, ok := values[rule.Key]
		if msg := rule.Check(v, ok); msg != "" {
			errs[rule.Key] = msg
		}
	}
	return errs
}
