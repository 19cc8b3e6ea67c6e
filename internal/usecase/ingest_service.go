package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pricelens/backend/internal/domain"
)

// DefaultIngestWorkers bounds concurrent resolutions during bulk ingestion.
const DefaultIngestWorkers = 4

// IngestServiceConfig holds configuration for the ingest service
type IngestServiceConfig struct {
	Workers     int
	Categorizer domain.Categorizer
}

// IngestResult is the outcome of one listing in a bulk ingestion.
type IngestResult struct {
	Index     int
	Name      string
	ProductID string
	Created   bool
	Err       error
}

// IngestSummary counts bulk ingestion outcomes.
type IngestSummary struct {
	Created int
	Merged  int
	Failed  int
}

// IngestService feeds listings into the resolution service, filling missing
// categories from the categorizer when one is configured.
type IngestService struct {
	resolver     *ResolutionService
	categorizer  domain.Categorizer
	preprocessor *QueryPreprocessor
	workers      int
	logger       zerolog.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(resolver *ResolutionService, config IngestServiceConfig, logger zerolog.Logger) *IngestService {
	workers := config.Workers
	if workers <= 0 {
		workers = DefaultIngestWorkers
	}
	logger = logger.With().Str("component", "ingest").Logger()
	return &IngestService{
		resolver:     resolver,
		categorizer:  config.Categorizer,
		preprocessor: NewQueryPreprocessor(logger),
		workers:      workers,
		logger:       logger,
	}
}

// Ingest enriches and resolves one listing.
func (s *IngestService) Ingest(ctx context.Context, entry domain.ManualEntry) (domain.Resolution, error) {
	s.categorize(ctx, &entry)
	return s.resolver.UpsertManualEntry(ctx, entry)
}

// IngestAll resolves entries concurrently. An invalid or failing listing is reported
// in its result and does not stop the others. Results are in input order.
func (s *IngestService) IngestAll(ctx context.Context, entries []domain.ManualEntry) []IngestResult {
	results := make([]IngestResult, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, entry := range entries {
		results[i] = IngestResult{Index: i, Name: entry.Name}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			resolution, err := s.Ingest(gctx, entry)
			if err != nil {
				s.logger.Warn().Err(err).Int("index", i).Str("name", entry.Name).Msg("listing rejected")
				results[i].Err = err
				return nil
			}
			results[i].ProductID = resolution.ProductID
			results[i].Created = resolution.Created
			return nil
		})
	}
	_ = g.Wait()

	summary := Summarize(results)
	s.logger.Info().
		Int("created", summary.Created).
		Int("merged", summary.Merged).
		Int("failed", summary.Failed).
		Msg("bulk ingestion finished")
	return results
}

// Summarize counts created, merged and failed results.
func Summarize(results []IngestResult) IngestSummary {
	var summary IngestSummary
	for _, r := range results {
		switch {
		case r.Err != nil:
			summary.Failed++
		case r.Created:
			summary.Created++
		default:
			summary.Merged++
		}
	}
	return summary
}

// categorize fills an empty category from the categorizer. Failures leave it empty.
func (s *IngestService) categorize(ctx context.Context, entry *domain.ManualEntry) {
	if s.categorizer == nil || strings.TrimSpace(entry.Category) != "" || strings.TrimSpace(entry.Name) == "" {
		return
	}

	query := s.preprocessor.PreprocessQuery(entry.Name, "")
	categories, err := s.categorizer.Categorize(ctx, query, entry.Brand)
	if err != nil {
		s.logger.Warn().Err(err).Str("name", entry.Name).Msg("categorization failed")
		return
	}
	if len(categories) > 0 {
		entry.Category = strings.Join(categories, ",")
	}
}
