package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
	"github.com/pricelens/backend/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(envFile *string) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is read from config.yaml (., ./config, /etc/pricelens/), then from
environment variables prefixed with PRICELENS_, for example:
  PRICELENS_SERVER_PORT            Port to listen on (default: 8080)
  PRICELENS_DATABASE_TYPE          Catalog store: mongo or memory (default: memory)
  PRICELENS_DATABASE_URI           MongoDB connection string
  PRICELENS_GEO_API_KEY            Google Maps key for store lookups
  PRICELENS_OPENAI_API_KEY         OpenAI key for embeddings and categorization
  PRICELENS_MEILI_URL              Meilisearch URL for the search mirror`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *envFile, port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (overrides server.port)")

	return cmd
}

func runServe(ctx context.Context, envFile, port string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Server.Port = port
	}

	logger := logging.New(cfg)
	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("database", cfg.Database.Type).
		Bool("geo", cfg.Geo.Enabled()).
		Bool("embeddings", cfg.OpenAI.EnableEmbeddings).
		Bool("categorization", cfg.OpenAI.EnableCategorization).
		Bool("mirror", cfg.Meili.Enabled()).
		Msg("starting pricelens backend")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("failed to close catalog store")
		}
	}()

	a.prepare(ctx, logger)
	if n, err := a.search.WarmVectors(ctx); err != nil {
		logger.Warn().Err(err).Msg("loading stored embeddings failed")
	} else if n > 0 {
		logger.Info().Int("vectors", n).Msg("vector index loaded")
	}

	handler := httpDelivery.NewHandler(httpDelivery.Services{
		Ingest:   a.ingest,
		Search:   a.search,
		Stores:   a.stores,
		Barcodes: a.barcodes,
	}, cfg.Server.Version, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
