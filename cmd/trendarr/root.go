package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/trendarr/internal/config"
	"github.com/samvad-hq/trendarr/internal/logger"
)

// commandContext loads config and the logger once per process.
type commandContext struct {
	targetsFlag string

	once sync.Once
	cfg  *config.Config
	log  logger.Logger
	err  error
}

func (c *commandContext) ensure() (*config.Config, logger.Logger, error) {
	c.once.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.err = err
			return
		}
		if path := strings.TrimSpace(c.targetsFlag); path != "" {
			cfg.TargetsFile = path
		}
		log, err := logger.Init(cfg)
		if err != nil {
			c.err = err
			return
		}
		c.cfg, c.log = cfg, log
	})
	return c.cfg, c.log, c.err
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "trendarr",
		Short:         "Sync popular charts into Radarr and Sonarr",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, _, err := ctx.ensure()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.targetsFlag, "targets", "t", "", "Targets file (overrides TARGETS_FILE)")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newSyncCommand(ctx))
	rootCmd.AddCommand(newReportCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))

	return rootCmd
}
