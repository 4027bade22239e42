package dialog

import (
	"testing"

	"github.com/billie-coop/configurator/internal/form"
	"github.com/billie-coop/configurator/internal/schema"
	"github.com/google/go-cmp/cmp"
)

func testSections() []schema.Section {
	return []schema.Section{
		{ID: "general", Title: "General", Description: "Invoice **basics**", Options: []schema.Option{
			&schema.TextOption{Base: schema.Base{ID: "prefix", Label: "Prefix"}, Default: "INV-", Placeholder: "INV-"},
			&schema.NumberOption{Base: schema.Base{ID: "taxRate", Label: "Tax rate"}, Default: 0, Min: schema.Float(0), Max: schema.Float(100)},
			&schema.BooleanOption{Base: schema.Base{ID: "showLogo", Label: "Show logo"}, Default: true},
		}},
		{ID: "payment", Title: "Payment", Options: []schema.Option{
			&schema.SelectOption{
				Base:    schema.Base{ID: "currency", Label: "Currency"},
				Choices: []schema.Choice{{Label: "US Dollar", Value: "USD"}, {Label: "Euro", Value: "EUR"}, {Label: "Pound", Value: "GBP"}},
				Default: "USD",
			},
			&schema.SelectOption{
				Base:     schema.Base{ID: "methods"},
				Multiple: true,
				Choices:  []schema.Choice{{Label: "Bank", Value: "bank"}, {Label: "Card", Value: "card"}, {Label: "PayPal", Value: "paypal"}},
				Default:  []string{"bank"},
			},
		}},
	}
}

func TestControlsMapsEveryVariant(t *testing.T) {
	st := form.Initial(testSections(), nil)
	controls := Controls(testSections(), st)

	want := []ControlKind{TextControl, NumberControl, ToggleControl, ChoiceControl, ChoiceControl}
	var got []ControlKind
	for _, c := range controls {
		got = append(got, c.Kind)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}

	if controls[4].Label != "methods" {
		t.Errorf("unlabelled option should fall back to its id, got %q", controls[4].Label)
	}
	if !controls[4].Multiple {
		t.Error("multiselect should be multiple")
	}
	if controls[0].Placeholder != "INV-" {
		t.Errorf("placeholder = %q", controls[0].Placeholder)
	}
}

func TestControlsCarryErrors(t *testing.T) {
	sections := testSections()
	initial := form.Initial(sections, nil)
	st := form.Reduce(initial, initial, form.SetError{Path: schema.Path{Section: "general", Option: "taxRate"}, Error: "Must be at most 100"})
	st = form.Reduce(initial, st, form.SetError{Path: schema.Path{Section: "general", Option: "prefix"}, Error: ""})

	controls := Controls(sections, st)
	if controls[1].Error != "Must be at most 100" || !controls[1].HasError {
		t.Errorf("tax control error = %q (%v)", controls[1].Error, controls[1].HasError)
	}
	if !controls[0].HasError {
		t.Error("empty error message must still be reported")
	}
	if controls[2].HasError {
		t.Error("untouched control should have no error")
	}
}

func TestControlDisplay(t *testing.T) {
	controls := Controls(testSections(), form.Initial(testSections(), nil))

	tests := []struct {
		index int
		want  string
	}{
		{0, "INV-"},
		{1, "0"},
		{2, "[x]"},
		{3, "US Dollar"},
		{4, "Bank"},
	}
	for _, tt := range tests {
		if got := controls[tt.index].Display(); got != tt.want {
			t.Errorf("controls[%d].Display() = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"7.5", 7.5},
		{" 12 ", 12},
		{"-3", -3},
		{"abc", 0},
		{"", 0},
		{"NaN", 0},
		{"Inf", 0},
	}
	for _, tt := range tests {
		if got := ParseNumber(tt.in); got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestChoiceHelpers(t *testing.T) {
	choices := []schema.Choice{{Value: "a"}, {Value: "b"}, {Value: "c"}}

	if got := nextChoice(choices, "c", 1); got != "a" {
		t.Errorf("next wraps forward, got %q", got)
	}
	if got := nextChoice(choices, "a", -1); got != "c" {
		t.Errorf("previous wraps backward, got %q", got)
	}
	if got := nextChoice(choices, "zzz", 1); got != "a" {
		t.Errorf("unknown value restarts at first choice, got %q", got)
	}

	got := toggleChoice(choices, []string{"c"}, "a")
	if diff := cmp.Diff([]string{"a", "c"}, got); diff != "" {
		t.Errorf("toggle on keeps choice order (-want +got):\n%s", diff)
	}
	got = toggleChoice(choices, []string{"a", "c"}, "c")
	if diff := cmp.Diff([]string{"a"}, got); diff != "" {
		t.Errorf("toggle off (-want +got):\n%s", diff)
	}
	if got, ok := toggleChoice(choices, []string{"a"}, "a").([]string); !ok || got == nil || len(got) != 0 {
		t.Errorf("emptied selection should be an empty slice, got %#v", got)
	}

	nums := []schema.Choice{{Value: 0.0}, {Value: 15.0}, {Value: 30.0}}
	if got := nextChoice(nums, 15.0, 1); got != 30.0 {
		t.Errorf("numeric next = %v, want 30", got)
	}
	if diff := cmp.Diff([]float64{0, 30}, toggleChoice(nums, []float64{30}, 0.0)); diff != "" {
		t.Errorf("numeric toggle (-want +got):\n%s", diff)
	}
}
