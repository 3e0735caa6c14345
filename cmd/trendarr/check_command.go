package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/trendarr/internal/app"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify each target's quality profile and root folder exist downstream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ctx.ensure()
			if err != nil {
				return err
			}

			results, err := app.Check(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(results))
			failures := 0
			for _, res := range results {
				status := "ok"
				if !res.OK() {
					failures++
					status = "problem"
				}
				if res.Err != nil {
					status = res.Err.Error()
				}
				profile := "-"
				if res.ProfileFound {
					profile = res.ProfileName
				} else if res.Err == nil {
					profile = "missing (" + strconv.Itoa(len(res.Profiles)) + " available)"
				}
				rows = append(rows, []string{
					string(res.Kind),
					res.Service,
					yesNo(res.Enabled),
					profile,
					yesNo(res.RootFolderFound),
					status,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Kind", "Service", "Enabled", "Profile", "Root folder", "Status"},
				rows,
				nil,
			))
			if failures > 0 {
				return errors.New("preflight check found problems")
			}
			return nil
		},
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
