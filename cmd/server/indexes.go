package main

import (
	"github.com/spf13/cobra"

	"github.com/pricelens/backend/internal/logging"
)

func ensureIndexesCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create or repair the catalog and mirror indexes, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			logger := logging.New(cfg)
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if err := a.search.EnsureIndex(ctx); err != nil {
				return err
			}
			if a.mirror != nil {
				if err := a.mirror.EnsureIndex(ctx); err != nil {
					return err
				}
			}
			logger.Info().Msg("indexes are up to date")
			return nil
		},
	}
}
