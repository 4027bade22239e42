// Package cli implements the configurator command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/billie-coop/configurator/internal/config"
	"github.com/billie-coop/configurator/internal/configstore"
	"github.com/billie-coop/configurator/internal/logging"
	"github.com/billie-coop/configurator/internal/remote"
	"github.com/billie-coop/configurator/internal/tui/events"
	"github.com/billie-coop/configurator/internal/tui/styles"
)

// app is the state shared by every command of one invocation.
type app struct {
	projectPath string
	verbose     bool
	backendFlag string

	config  *config.Manager
	logger  *zap.Logger
	backend remote.Backend
	store   *configstore.Store

	broker  *events.Broker
	logDone chan struct{}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "configurator",
		Short: "Schema-driven settings for invoicing, clients, projects, proposals and time tracking",
		Long: `configurator edits per-module business settings.

Each module (invoiceCreator, clientManager, ...) keeps its values in a local
store that survives restarts. Saving a module sends its values to the
configured backend.

Run "configurator edit <instance>" to open a settings dialog.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.projectPath, "project", "p", "", "Project directory (default: current)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")
	root.PersistentFlags().StringVar(&a.backendFlag, "backend", "", "Override the configured backend (sqlite|memory)")

	root.AddCommand(
		a.modulesCmd(),
		a.instancesCmd(),
		a.showCmd(),
		a.setCmd(),
		a.resetCmd(),
		a.validateCmd(),
		a.saveCmd(),
		a.loadCmd(),
		a.migrateCmd(),
		a.historyCmd(),
		a.editCmd(),
		a.configCmd(),
	)
	return root, a
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) error {
	root, a := newRootCommand()
	defer a.teardown()
	return root.ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.projectPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		a.projectPath = wd
	}

	a.config = config.NewManager(a.projectPath)
	if err := a.config.Load(); err != nil {
		return err
	}
	cfg := a.config.Get()
	styles.SetTheme(cfg.Theme)

	// The config command only touches config.json.
	if isConfigCmd(cmd) {
		a.logger = zap.NewNop()
		return nil
	}

	logOpts := logging.Options{Level: cfg.LogLevel, Debug: cfg.Debug}
	if a.verbose {
		logOpts.Level = "debug"
	} else {
		logOpts.File = filepath.Join(a.config.DataDir(), "configurator.log")
		if err := os.MkdirAll(a.config.DataDir(), 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	a.logger = logger

	backend, err := a.openBackend(cfg)
	if err != nil {
		return err
	}
	a.backend = backend

	a.broker = events.NewBroker()
	a.logEvents()

	store, err := configstore.New(configstore.Options{
		Dir:      a.config.DataDir(),
		SlotName: cfg.StoreName,
		Backend:  backend,
		Logger:   logger,
		Observer: a.broker,
	})
	if err != nil {
		_ = backend.Close()
		return fmt.Errorf("failed to open settings store: %w", err)
	}
	a.store = store
	return nil
}

func (a *app) openBackend(cfg *config.Config) (remote.Backend, error) {
	name := cfg.Backend
	if a.backendFlag != "" {
		name = a.backendFlag
	}
	switch name {
	case config.BackendMemory:
		return remote.NewMemoryBackend(), nil
	case config.BackendSQLite:
		return remote.NewSQLiteBackend(a.config.DatabasePath(), a.logger)
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

// logEvents records every settings event in the log until teardown.
func (a *app) logEvents() {
	ch := a.broker.Subscribe(
		events.ConfigChangedEvent,
		events.ConfigResetEvent,
		events.ConfigLoadedEvent,
		events.ConfigSavedEvent,
		events.ConfigSaveFailedEvent,
	)
	a.logDone = make(chan struct{})
	logger := a.logger.Named("events")
	go func() {
		defer close(a.logDone)
		for ev := range ch {
			p, _ := ev.Payload.(events.ConfigPayload)
			logger.Info("Settings event",
				zap.String("type", string(ev.Type)),
				zap.String("module", p.Module),
				zap.String("instance", p.Instance),
				zap.Strings("keys", p.Keys),
				zap.String("error", p.Error))
		}
	}()
}

func (a *app) teardown() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Failed to close backend", zap.Error(err))
		}
		a.store = nil
	} else if a.backend != nil {
		_ = a.backend.Close()
	}
	a.backend = nil
	if a.broker != nil {
		a.broker.Clear()
		<-a.logDone
		a.broker = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func isConfigCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" {
			return true
		}
	}
	return false
}

func parseModule(name string) (configstore.Module, error) {
	m, err := configstore.ParseModule(name)
	if errors.Is(err, configstore.ErrUnknownModule) {
		return "", fmt.Errorf("%w (one of %v)", err, configstore.Modules())
	}
	return m, err
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
