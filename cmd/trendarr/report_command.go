package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/trendarr/internal/app"
	"github.com/samvad-hq/trendarr/internal/storage"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "report [movies|series|all]",
		Short: "Show the titles imported by the most recent run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args)
			if err != nil {
				return err
			}
			cfg, _, err := ctx.ensure()
			if err != nil {
				return err
			}

			store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer store.Close()

			entries, err := app.Reports(store, kinds...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, entry := range entries {
				if !entry.Found {
					fmt.Fprintf(out, "%s: no run recorded\n", entry.Kind)
					continue
				}
				if len(entry.Titles) == 0 {
					fmt.Fprintf(out, "%s: last run imported nothing\n", entry.Kind)
					continue
				}
				rows := make([][]string, 0, len(entry.Titles))
				for i, title := range entry.Titles {
					rows = append(rows, []string{strconv.Itoa(i + 1), title})
				}
				fmt.Fprintf(out, "%s (%d imported)\n", entry.Kind, len(entry.Titles))
				fmt.Fprintln(out, renderTable([]string{"#", "Title"}, rows, []columnAlignment{alignRight, alignLeft}))
			}
			return nil
		},
	}
}
