package configstore

import (
	"errors"
	"fmt"
	"maps"

	"github.com/billie-coop/configurator/internal/schema"
)

// CurrentVersion is the layout version of the persisted store.
const CurrentVersion = 2

// Step transforms one module's values during a migration.
type Step interface {
	apply(values map[string]any)
}

// AddField sets Key to Default when it is missing. Existing values win.
type AddField struct {
	Key     string
	Default any
}

func (s AddField) apply(values map[string]any) {
	if _, ok := values[s.Key]; !ok {
		values[s.Key] = schema.CloneValue(s.Default)
	}
}

// RenameField moves From to To. If To already exists it is kept and From is dropped.
type RenameField struct {
	From string
	To   string
}

func (s RenameField) apply(values map[string]any) {
	v, ok := values[s.From]
	if !ok {
		return
	}
	if _, exists := values[s.To]; !exists {
		values[s.To] = v
	}
	delete(values, s.From)
}

// MigrationKey indexes a migration by module and the version it upgrades from.
type MigrationKey struct {
	Module Module
	From   int
}

// Migrations holds the steps that take a module from version From to From+1.
type Migrations map[MigrationKey][]Step

// DefaultMigrations returns the built-in migration table.
func DefaultMigrations() Migrations {
	return Migrations{
		{ClientManager, 1}: {
			AddField{Key: "portalEnabled", Default: false},
			AddField{Key: "defaultPaymentTermDays", Default: 30.0},
		},
		{InvoiceCreator, 1}: {
			RenameField{From: "currency", To: "defaultCurrency"},
		},
		{ProjectManagement, 1}: {},
		{ProposalGenerator, 1}: {
			AddField{Key: "validityDays", Default: 30.0},
		},
		{TimeTracking, 1}: {
			AddField{Key: "roundingMinutes", Default: 15.0},
		},
	}
}

// Validate checks that every module has an entry for every version step
// below current, so a gap shows up at startup instead of mid-migration.
func (ms Migrations) Validate(current int) error {
	var errs []error
	for _, m := range Modules() {
		for v := 1; v < current; v++ {
			if _, ok := ms[MigrationKey{m, v}]; !ok {
				errs = append(errs, fmt.Errorf("no migration for %s from version %d", m, v))
			}
		}
	}
	return errors.Join(errs...)
}

// Apply returns a copy of values upgraded from version from to version to.
// Versions below 1 are treated as 1.
func (ms Migrations) Apply(m Module, values map[string]any, from, to int) (map[string]any, error) {
	out := maps.Clone(values)
	if out == nil {
		out = make(map[string]any)
	}
	if from < 1 {
		from = 1
	}
	for v := from; v < to; v++ {
		steps, ok := ms[MigrationKey{m, v}]
		if !ok {
			return nil, fmt.Errorf("no migration for %s from version %d", m, v)
		}
		for _, step := range steps {
			step.apply(out)
		}
	}
	return out, nil
}
