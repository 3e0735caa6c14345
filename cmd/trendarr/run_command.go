package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/trendarr/internal/app"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sync every kind now, then on the configured interval (SIGUSR1 triggers an extra sync)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ctx.ensure()
			if err != nil {
				return err
			}
			log.InfoObj("trendarr starting", "config", cfg.Redacted())

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			syncer, err := app.NewSyncer(runCtx, cfg, log)
			if err != nil {
				log.ErrorObj("failed to initialize syncer", "error", err.Error())
				return err
			}
			defer syncer.Close()

			go forwardTriggers(runCtx, syncer)

			if err := syncer.Run(runCtx); err != nil {
				return fmt.Errorf("syncer run: %w", err)
			}
			return nil
		},
	}
}

// forwardTriggers turns SIGUSR1 into an ad-hoc sync of every kind.
func forwardTriggers(ctx context.Context, syncer *app.Syncer) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			syncer.Trigger("")
		}
	}
}
