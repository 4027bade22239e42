package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/billie-coop/configurator/internal/schema"
	"go.uber.org/zap"
)

// ErrNoSession is the panic value of FromContext when no session is attached.
var ErrNoSession = errors.New("form: no session in context")

// SubmitFunc persists the flat "{section}.{option}" value map.
type SubmitFunc func(ctx context.Context, values map[string]schema.Value) error

// Session binds one reducer state to one dialog.
type Session struct {
	mu       sync.Mutex
	sections []schema.Section
	initial  State
	state    State
	// revision counts dispatched changes; SubmitForm only clears Dirty if
	// nothing changed while the callback ran.
	revision int64
	onSubmit SubmitFunc
	logger   *zap.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates a session seeded from the schema defaults and initialValues.
func NewSession(sections []schema.Section, initialValues map[schema.Path]schema.Value, onSubmit SubmitFunc, opts ...SessionOption) *Session {
	initial := Initial(sections, initialValues)
	s := &Session{
		sections: sections,
		initial:  initial,
		state:    initial.Clone(),
		onSubmit: onSubmit,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sections returns the schema the session edits.
func (s *Session) Sections() []schema.Section {
	return s.sections
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Value returns the current value at p.
func (s *Session) Value(p schema.Path) (schema.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state.Values[p]
	return schema.CloneValue(v), ok
}

func (s *Session) dispatch(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.initial, s.state, a)
	s.revision++
}

// snapshot returns a copy of the state and the revision it was taken at.
func (s *Session) snapshot() (State, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), s.revision
}

func (s *Session) SetValue(p schema.Path, v schema.Value) { s.dispatch(SetValue{Path: p, Value: v}) }
func (s *Session) SetError(p schema.Path, msg string)     { s.dispatch(SetError{Path: p, Error: msg}) }
func (s *Session) ClearError(p schema.Path)               { s.dispatch(ClearError{Path: p}) }
func (s *Session) ResetForm()                             { s.dispatch(ResetForm{}) }

// SubmitForm hands the values to the submit callback and clears Dirty on
// success. An invalid state is a silent no-op reported as (false, nil); run
// Validate first to surface field errors. A callback error leaves the state
// untouched, and so does a change made while the callback was running.
func (s *Session) SubmitForm(ctx context.Context) (bool, error) {
	st, rev := s.snapshot()
	if !st.Valid {
		s.logger.Debug("Submit skipped, form invalid", zap.Int("errors", len(st.Errors)))
		return false, nil
	}

	if s.onSubmit != nil {
		if err := s.onSubmit(ctx, st.Flat()); err != nil {
			s.logger.Warn("Submit failed", zap.Error(err))
			return false, fmt.Errorf("submit failed: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision != rev {
		s.logger.Debug("Form changed during submit, keeping it dirty")
		return true, nil
	}
	s.state = Reduce(s.initial, s.state, SubmitForm{})
	s.revision++
	return true, nil
}

// Validate checks every option's current value against the schema, setting
// or clearing its error, and reports whether the form is valid afterwards.
func (s *Session) Validate() bool {
	s.mu.Lock()
	values := s.state.Values
	s.mu.Unlock()

	schema.Walk(s.sections, func(p schema.Path, o schema.Option) {
		v, ok := values[p]
		if !ok {
			v = o.DefaultValue()
		}
		if msg := fieldError(o, v); msg != "" {
			s.SetError(p, msg)
		} else {
			s.ClearError(p)
		}
	})

	return s.State().Valid
}

func fieldError(o schema.Option, v schema.Value) string {
	if err := schema.CheckValue(o, v); err != nil {
		return err.Error()
	}
	if n, ok := o.(*schema.NumberOption); ok {
		f := v.(float64)
		if n.Min != nil && f < *n.Min {
			return fmt.Sprintf("Must be at least %g", *n.Min)
		}
		if n.Max != nil && f > *n.Max {
			return fmt.Sprintf("Must be at most %g", *n.Max)
		}
	}
	return ""
}

type sessionKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session attached to ctx. It panics when there is
// none: reaching for a session outside a provider is a programming error.
func FromContext(ctx context.Context) *Session {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	if !ok || s == nil {
		panic(ErrNoSession)
	}
	return s
}
