package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pricelens/backend/internal/infrastructure/importer"
	"github.com/pricelens/backend/internal/logging"
	"github.com/pricelens/backend/internal/usecase"
)

func ingestCmd(envFile *string) *cobra.Command {
	var (
		file     string
		defaults importer.Defaults
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest listings from a file",
		Long: `Ingest listings from a JSON lines (.jsonl, .json), Excel (.xlsx) or product page
(.html, .htm) file. Listings without their own store take --store-id and --store-name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			if defaults.Currency == "" {
				defaults.Currency = cfg.Ingest.DefaultCurrency
			}
			logger := logging.New(cfg)
			ctx := cmd.Context()

			entries, err := importer.ReadFile(file, defaults)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			a.prepare(ctx, logger)

			results := a.ingest.IngestAll(ctx, entries)
			out := cmd.OutOrStdout()
			for _, r := range results {
				if r.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "listing %d (%s): %v\n", r.Index+1, r.Name, r.Err)
				}
			}
			summary := usecase.Summarize(results)
			fmt.Fprintf(out, "ingested %d listings: %d created, %d merged, %d failed\n",
				len(results), summary.Created, summary.Merged, summary.Failed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Listing file to ingest")
	cmd.Flags().StringVar(&defaults.StoreID, "store-id", "", "Store id for listings without one")
	cmd.Flags().StringVar(&defaults.StoreName, "store-name", "", "Store name for listings without one")
	cmd.Flags().StringVar(&defaults.Currency, "currency", "", "Currency for listings without one (default: ingest.default_currency)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
