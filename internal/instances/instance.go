// Package instances defines the per-domain configurator dialogs: each one
// is an embedded schema bound to the module it reads from and saves to.
package instances

import (
	"context"
	"embed"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/billie-coop/configurator/internal/configstore"
	"github.com/billie-coop/configurator/internal/form"
	"github.com/billie-coop/configurator/internal/schema"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// Reporter receives the outcome of an instance save. *events.Broker
// implements it.
type Reporter interface {
	Saved(module, instance string)
	SaveFailed(module, instance string, err error)
}

// Instance is one settings dialog for one module.
type Instance struct {
	Name     string
	Title    string
	Module   configstore.Module
	Sections []schema.Section
}

type definition struct {
	name   string
	title  string
	module configstore.Module
}

var definitions = []definition{
	{"invoice", "Invoice Settings", configstore.InvoiceCreator},
	{"tax", "Tax Settings", configstore.InvoiceCreator},
	{"paymentTerms", "Payment Terms", configstore.InvoiceCreator},
	{"invoiceNumbering", "Invoice Numbering", configstore.InvoiceCreator},
	{"clientManager", "Client Settings", configstore.ClientManager},
	{"clientPortal", "Client Portal", configstore.ClientManager},
	{"milestones", "Milestones", configstore.ProjectManagement},
	{"projectDefaults", "Project Defaults", configstore.ProjectManagement},
	{"taskBoard", "Task Board", configstore.ProjectManagement},
	{"proposals", "Proposal Settings", configstore.ProposalGenerator},
	{"proposalTemplates", "Proposal Templates", configstore.ProposalGenerator},
	{"pricing", "Pricing", configstore.ProposalGenerator},
	{"timeTracking", "Time Tracking", configstore.TimeTracking},
	{"billableRates", "Billable Rates", configstore.TimeTracking},
	{"timesheetReminders", "Timesheet Reminders", configstore.TimeTracking},
}

var loadAll = sync.OnceValues(func() ([]*Instance, error) {
	out := make([]*Instance, 0, len(definitions))
	for _, d := range definitions {
		data, err := schemaFS.ReadFile("schemas/" + d.name + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", d.name, err)
		}
		sections, err := schema.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", d.name, err)
		}
		out = append(out, &Instance{Name: d.name, Title: d.title, Module: d.module, Sections: sections})
	}
	return out, nil
})

// All returns every instance in menu order.
func All() ([]*Instance, error) {
	return loadAll()
}

// Get returns the instance with the given name.
func Get(name string) (*Instance, error) {
	all, err := All()
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(all, func(in *Instance) bool { return in.Name == name })
	if i < 0 {
		return nil, fmt.Errorf("unknown instance %q", name)
	}
	return all[i], nil
}

// ForModule returns the instances that edit m.
func ForModule(m configstore.Module) ([]*Instance, error) {
	all, err := All()
	if err != nil {
		return nil, err
	}
	var out []*Instance
	for _, in := range all {
		if in.Module == m {
			out = append(out, in)
		}
	}
	return out, nil
}

// Defaults returns the schema default of every option of every instance of
// m, keyed by option id.
func Defaults(m configstore.Module) (map[string]any, error) {
	ins, err := ForModule(m)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for _, in := range ins {
		schema.Walk(in.Sections, func(_ schema.Path, o schema.Option) {
			out[o.OptionID()] = schema.CloneValue(o.DefaultValue())
		})
	}
	return out, nil
}

// Seed returns the session's initial values from the module's current
// values. Stored values that no longer fit the option are left to the
// schema default.
func (i *Instance) Seed(values map[string]any) map[schema.Path]schema.Value {
	seed := make(map[schema.Path]schema.Value)
	schema.Walk(i.Sections, func(p schema.Path, o schema.Option) {
		v, ok := values[o.OptionID()]
		if !ok {
			return
		}
		v = schema.NormalizeFor(o, v)
		if schema.CheckValue(o, v) != nil {
			return
		}
		seed[p] = v
	})
	return seed
}

// Open starts a session seeded from the store.
func (i *Instance) Open(store *configstore.Store, reporter Reporter, logger *zap.Logger) *form.Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("instance", i.Name), zap.String("module", string(i.Module)))
	seed := i.Seed(store.Module(i.Module).Values)
	return form.NewSession(i.Sections, seed, i.Submit(store, reporter, logger), form.WithLogger(logger))
}

// Submit returns the session callback: the flat "{section}.{option}" values
// are stored under their option ids, then the module is saved. Every
// failure goes to reporter.
func (i *Instance) Submit(store *configstore.Store, reporter Reporter, logger *zap.Logger) form.SubmitFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, values map[string]schema.Value) error {
		moduleValues, err := ModuleValues(values)
		if err != nil {
			return i.fail(reporter, err)
		}
		// Keys owned by sibling instances start at their schema defaults so
		// module-wide rules see a complete value set.
		defaults, err := Defaults(i.Module)
		if err != nil {
			return i.fail(reporter, err)
		}
		current := store.Module(i.Module).Values
		for k, v := range defaults {
			_, stored := current[k]
			_, submitted := moduleValues[k]
			if !stored && !submitted {
				moduleValues[k] = v
			}
		}

		if err := store.SetConfig(i.Module, moduleValues); err != nil {
			return i.fail(reporter, err)
		}
		if _, err := store.SaveConfig(ctx, i.Module); err != nil {
			return i.fail(reporter, err)
		}
		logger.Info("Saved settings", zap.Int("keys", len(moduleValues)))
		if reporter != nil {
			reporter.Saved(string(i.Module), i.Name)
		}
		return nil
	}
}

func (i *Instance) fail(reporter Reporter, err error) error {
	if reporter != nil {
		reporter.SaveFailed(string(i.Module), i.Name, err)
	}
	return err
}

// ModuleValues turns flat "{section}.{option}" keys into option-id keys.
func ModuleValues(values map[string]schema.Value) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for key, v := range values {
		p, err := schema.ParsePath(key)
		if err != nil {
			return nil, err
		}
		out[p.Option] = v
	}
	return out, nil
}
