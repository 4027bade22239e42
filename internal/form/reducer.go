// Package form holds the editing state of one open configurator dialog.
//
// State changes only through Reduce, a pure function of (state, action).
// Session wraps a State with a mutex and exposes imperative helpers so
// callers never build actions by hand.
package form

import (
	"maps"

	"github.com/billie-coop/configurator/internal/schema"
)

// State is the editable session state.
type State struct {
	Values map[schema.Path]schema.Value
	Errors map[schema.Path]string
	Dirty  bool
	Valid  bool
}

// Empty returns a state with no values, no errors and Valid set.
func Empty() State {
	return State{
		Values: make(map[schema.Path]schema.Value),
		Errors: make(map[schema.Path]string),
		Valid:  true,
	}
}

// Initial seeds a state from each option's static default, overlaid with
// initialValues. Values for unknown paths are kept as-is.
func Initial(sections []schema.Section, initialValues map[schema.Path]schema.Value) State {
	s := Empty()
	schema.Walk(sections, func(p schema.Path, o schema.Option) {
		s.Values[p] = o.DefaultValue()
	})
	for p, v := range initialValues {
		s.Values[p] = schema.CloneValue(v)
	}
	return s
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := State{
		Values: make(map[schema.Path]schema.Value, len(s.Values)),
		Errors: maps.Clone(s.Errors),
		Dirty:  s.Dirty,
		Valid:  s.Valid,
	}
	if c.Errors == nil {
		c.Errors = make(map[schema.Path]string)
	}
	for p, v := range s.Values {
		c.Values[p] = schema.CloneValue(v)
	}
	return c
}

// Flat returns the values keyed by "{section}.{option}".
func (s State) Flat() map[string]schema.Value {
	out := make(map[string]schema.Value, len(s.Values))
	for p, v := range s.Values {
		out[p.String()] = schema.CloneValue(v)
	}
	return out
}

// Action is one of SetValue, SetError, ClearError, ResetForm or SubmitForm.
type Action interface {
	action()
}

type SetValue struct {
	Path  schema.Path
	Value schema.Value
}

// SetError records a field error. An empty Error still counts as an error.
type SetError struct {
	Path  schema.Path
	Error string
}

type ClearError struct {
	Path schema.Path
}

type ResetForm struct{}

// SubmitForm only clears Dirty; persisting is the caller's job.
type SubmitForm struct{}

func (SetValue) action()   {}
func (SetError) action()   {}
func (ClearError) action() {}
func (ResetForm) action()  {}
func (SubmitForm) action() {}

// Reduce applies a to state and returns the next state. Neither initial nor
// state is modified. Unrecognized actions return state unchanged.
func Reduce(initial, state State, a Action) State {
	switch a := a.(type) {
	case SetValue:
		next := state.Clone()
		next.Values[a.Path] = schema.CloneValue(a.Value)
		next.Dirty = true
		return next
	case SetError:
		next := state.Clone()
		next.Errors[a.Path] = a.Error
		next.Valid = false
		return next
	case ClearError:
		next := state.Clone()
		delete(next.Errors, a.Path)
		next.Valid = len(next.Errors) == 0
		return next
	case ResetForm:
		return initial.Clone()
	case SubmitForm:
		next := state.Clone()
		next.Dirty = false
		return next
	}
	return state
}
