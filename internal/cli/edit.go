package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/billie-coop/configurator/internal/configstore"
	"github.com/billie-coop/configurator/internal/instances"
	"github.com/billie-coop/configurator/internal/tui"
	"github.com/billie-coop/configurator/internal/tui/components/dialog"
	"github.com/billie-coop/configurator/internal/tui/events"
)

func (a *app) editCmd() *cobra.Command {
	var (
		load  bool
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "edit <instance>",
		Short: "Open a settings dialog",
		Long: `Opens the dialog for one instance, e.g. "configurator edit tax".
Run "configurator instances" for the list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := instances.Get(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if load {
				if _, err := a.store.LoadConfig(ctx, in.Module); err != nil {
					// Editing local values still works without the backend.
					a.logger.Warn("Load before edit failed", zap.Error(err))
				}
			}

			broker := a.broker

			session := in.Open(a.store, broker, a.logger)
			dlg := dialog.NewConfiguratorDialog(ctx, in.Title, session, broker, a.logger)
			model := tui.New(dlg, broker)

			watchDone := make(chan struct{})
			if watch {
				go func() {
					defer close(watchDone)
					err := a.store.Watch(ctx, func(configstore.Snapshot) {
						broker.Publish(events.Event{
							Type:    events.ConfigRehydrateEvent,
							Payload: events.ConfigPayload{Module: string(in.Module), Instance: in.Name},
						})
					})
					if err != nil {
						a.logger.Warn("Watch stopped", zap.Error(err))
					}
				}()
			} else {
				close(watchDone)
			}

			saved, err := tui.Run(ctx, model)
			cancel()
			<-watchDone
			if err != nil {
				return err
			}

			if saved {
				fmt.Fprintf(out(cmd), "Saved %s settings\n", in.Module)
			} else {
				fmt.Fprintln(out(cmd), "No changes saved")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&load, "load", false, "Load saved values from the backend before editing")
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload when another process changes the store")
	return cmd
}
