package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/billie-coop/configurator/internal/configstore"
	"github.com/billie-coop/configurator/internal/instances"
	"github.com/billie-coop/configurator/internal/remote"
)

// moduleView is how show prints a module.
type moduleView struct {
	Module    string            `yaml:"module" json:"module"`
	Phase     string            `yaml:"phase" json:"phase"`
	Dirty     bool              `yaml:"dirty" json:"dirty"`
	Valid     bool              `yaml:"valid" json:"valid"`
	LastError string            `yaml:"lastError,omitempty" json:"lastError,omitempty"`
	Values    map[string]any    `yaml:"values" json:"values"`
	Errors    map[string]string `yaml:"errors,omitempty" json:"errors,omitempty"`
}

func newModuleView(m configstore.Module, ms configstore.ModuleState) moduleView {
	return moduleView{
		Module:    string(m),
		Phase:     ms.Phase.String(),
		Dirty:     ms.Dirty,
		Valid:     ms.Valid,
		LastError: ms.LastError,
		Values:    ms.Values,
		Errors:    ms.Errors,
	}
}

func (a *app) modulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List modules and their state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := a.store.Snapshot()
			w := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODULE\tPHASE\tKEYS\tERROR")
			for _, m := range configstore.Modules() {
				ms := snap.Modules[m]
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", m, ms.Phase, len(ms.Values), ms.LastError)
			}
			return w.Flush()
		},
	}
}

func (a *app) instancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "instances",
		Short: "List the settings dialogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := instances.All()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INSTANCE\tMODULE\tTITLE")
			for _, in := range all {
				fmt.Fprintf(w, "%s\t%s\t%s\n", in.Name, in.Module, in.Title)
			}
			return w.Flush()
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <module>",
		Short: "Print a module's values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseModule(args[0])
			if err != nil {
				return err
			}
			view := newModuleView(m, a.store.Module(m))

			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out(cmd))
				enc.SetIndent(2)
				if err := enc.Encode(view); err != nil {
					return fmt.Errorf("failed to encode yaml: %w", err)
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out(cmd))
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			return fmt.Errorf("unknown output format %q (yaml|json)", format)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "Output format (yaml|json)")
	return cmd
}

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <module> key=value...",
		Short: "Change module values locally without saving",
		Long: `Sets values in the local store and marks the module dirty.
Lists are comma separated: paymentMethods=bank,card`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseModule(args[0])
			if err != nil {
				return err
			}
			values, err := parseAssignments(m, args[1:])
			if err != nil {
				return err
			}
			if err := a.store.SetConfig(m, values); err != nil {
				return err
			}
			keys := slices.Sorted(maps.Keys(values))
			fmt.Fprintf(out(cmd), "Updated %s: %v\n", m, keys)
			return nil
		},
	}
}

func (a *app) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <module>",
		Short: "Discard a module's local values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseModule(args[0])
			if err != nil {
				return err
			}
			if err := a.store.ResetConfig(m); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Reset %s\n", m)
			return nil
		},
	}
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <module>",
		Short: "Check a module against its rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseModule(args[0])
			if err != nil {
				return err
			}
			valid, err := a.store.ValidateConfig(m)
			if err != nil {
				return err
			}
			if valid {
				fmt.Fprintf(out(cmd), "%s is valid\n", m)
				return nil
			}
			errs := a.store.Module(m).Errors
			for _, k := range slices.Sorted(maps.Keys(errs)) {
				fmt.Fprintf(out(cmd), "%s: %s\n", k, errs[k])
			}
			return fmt.Errorf("%s: %w", m, configstore.ErrInvalid)
		},
	}
}

func (a *app) saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <module>",
		Short: "Validate a module and send it to the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseModule(args[0])
			if err != nil {
				return err
			}
			if _, err := a.store.SaveConfig(cmd.Context(), m); err != nil {
				if errors.Is(err, configstore.ErrInvalid) {
					errs := a.store.Module(m).Errors
					for _, k := range slices.Sorted(maps.Keys(errs)) {
						fmt.Fprintf(out(cmd), "%s: %s\n", k, errs[k])
					}
				}
				return err
			}
			fmt.Fprintf(out(cmd), "Saved %s\n", m)
			return nil
		},
	}
}

func (a *app) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load [module]",
		Short: "Merge saved values from the backend into the local store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if err := a.store.LoadAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out(cmd), "Loaded all modules")
				return nil
			}
			m, err := parseModule(args[0])
			if err != nil {
				return err
			}
			if _, err := a.store.LoadConfig(cmd.Context(), m); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Loaded %s\n", m)
			return nil
		},
	}
}

func (a *app) migrateCmd() *cobra.Command {
	var from int
	cmd := &cobra.Command{
		Use:   "migrate <module>",
		Short: "Upgrade a module's values from an older layout version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseModule(args[0])
			if err != nil {
				return err
			}
			if err := a.store.MigrateConfig(m, from); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Migrated %s from v%d to v%d\n", m, from, configstore.CurrentVersion)
			return nil
		},
	}
	cmd.Flags().IntVar(&from, "from", 1, "Version the values were written by")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <module>",
		Short: "Show saved revisions (sqlite backend)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseModule(args[0])
			if err != nil {
				return err
			}
			db, ok := a.backend.(*remote.SQLiteBackend)
			if !ok {
				return errors.New("history needs the sqlite backend")
			}
			revs, err := db.History(cmd.Context(), string(m), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "REVISION\tSAVED\tKEYS")
			for _, r := range revs {
				fmt.Fprintf(w, "%d\t%s\t%d\n", r.Revision, r.SavedAt.Format("2006-01-02 15:04:05"), len(r.Values))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of revisions to show")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configurator settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				enc := json.NewEncoder(out(cmd))
				enc.SetIndent("", "  ")
				return enc.Encode(a.config.Get())
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one configuration key",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.config.Set(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Set %s = %s\n", args[0], args[1])
				return nil
			},
		},
	)
	return cmd
}
