package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/trendarr/internal/app"
	"github.com/samvad-hq/trendarr/internal/domain"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [movies|series|all]",
		Short: "Run one sync pass and exit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args)
			if err != nil {
				return err
			}
			cfg, log, err := ctx.ensure()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			syncer, err := app.NewSyncer(runCtx, cfg, log)
			if err != nil {
				return err
			}
			defer syncer.Close()

			var (
				rows   [][]string
				failed []string
			)
			for _, kind := range kinds {
				out, err := syncer.SyncKind(runCtx, kind)
				status := "ok"
				switch {
				case errors.Is(err, app.ErrTargetDisabled):
					status = "disabled"
				case err != nil:
					status = "failed: " + err.Error()
					failed = append(failed, string(kind))
				}
				rows = append(rows, []string{
					string(kind),
					string(out.Stage),
					strconv.Itoa(out.Stats.Scraped),
					strconv.Itoa(out.Stats.Eligible),
					strconv.Itoa(out.Stats.Imported),
					strconv.Itoa(out.Stats.AlreadyPresent),
					strconv.Itoa(out.Stats.Failed),
					status,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Kind", "Stage", "Scraped", "Eligible", "Imported", "Present", "Failed", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			if len(failed) > 0 {
				return fmt.Errorf("sync failed for %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}

// parseKinds maps the optional positional argument onto media kinds. No argument means all.
func parseKinds(args []string) ([]domain.MediaKind, error) {
	if len(args) == 0 || strings.EqualFold(strings.TrimSpace(args[0]), "all") {
		return domain.Kinds(), nil
	}
	kind, err := domain.ParseKind(args[0])
	if err != nil {
		return nil, err
	}
	return []domain.MediaKind{kind}, nil
}
