package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/finlens/statement-analyzer/internal/analyzer"
	"github.com/finlens/statement-analyzer/internal/cache"
	"github.com/finlens/statement-analyzer/internal/config"
	"github.com/finlens/statement-analyzer/internal/docsource"
	"github.com/finlens/statement-analyzer/internal/domain"
	"github.com/finlens/statement-analyzer/internal/extract"
	"github.com/finlens/statement-analyzer/internal/jobs"
	"github.com/finlens/statement-analyzer/internal/jobs/inmemory"
	"github.com/finlens/statement-analyzer/internal/logger"
	"github.com/finlens/statement-analyzer/internal/notionsync"
	"github.com/finlens/statement-analyzer/internal/parse"
	"github.com/finlens/statement-analyzer/internal/store"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := logger.WithContext(context.Background(), log)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var genaiClient *genai.Client
	if cfg.GeminiAPIKey != "" {
		genaiClient, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GenAI client")
		}
	} else {
		log.Warn().Msg("No Gemini API key configured - vision tier and AI parsing disabled")
	}

	var txStore store.TransactionStore
	if cfg.BigQueryProject != "" {
		txStore, err = store.NewBigQueryStore(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create transaction store")
		}
		defer txStore.Close()
	} else {
		log.Warn().Msg("No BigQuery project configured - persistence disabled")
	}

	a := analyzer.New(analyzer.Deps{
		Tiers:  buildTiers(cfg, genaiClient, log),
		Parser: buildParser(cfg, genaiClient, log),
		Store:  txStore,
		Cache:  cache.New(cfg.CacheTTL),
		Mirror: buildMirror(cfg),
	})

	// In production this queue would be replaced with Cloud Tasks or
	// Pub/Sub; the worker shape stays the same.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 3, jobStore)

	log.Info().Msg("Starting worker service")

	handler := func(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
		log.Info().
			Str("job_id", job.JobID).
			Str("gcs_uri", job.GCSURI).
			Msg("Processing analysis job")

		doc, err := docsource.FetchFromGCS(ctx, resolveGCSURI(cfg.GCSBucket, job.GCSURI))
		if err != nil {
			log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to fetch statement")
			return err
		}

		result := a.Analyze(ctx, doc, job.UserID)
		if !result.Success {
			log.Warn().Str("job_id", job.JobID).Str("error", result.Error).Msg("Analysis failed")
		}
		job.TransactionCount = len(result.Transactions)

		log.Info().
			Str("job_id", job.JobID).
			Str("method", string(result.Method)).
			Int("transactions", len(result.Transactions)).
			Msg("Analysis job completed")

		return nil
	}

	if err := jobQueue.Start(runCtx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}

// resolveGCSURI turns a bare object name into a gs:// URI against the
// configured bucket; full URIs pass through.
func resolveGCSURI(bucket, uri string) string {
	if strings.HasPrefix(uri, "gs://") || bucket == "" {
		return uri
	}
	return "gs://" + bucket + "/" + strings.TrimPrefix(uri, "/")
}

func buildTiers(cfg *config.Config, genaiClient *genai.Client, log zerolog.Logger) []extract.Tier {
	var tiers []extract.Tier
	for _, name := range cfg.TierOrder {
		switch domain.ExtractionMethod(name) {
		case domain.MethodExternal:
			if cfg.ParseServiceURL == "" {
				continue
			}
			tiers = append(tiers, extract.NewExternalTier(cfg.ParseServiceURL, nil, log))
		case domain.MethodTextLayer:
			tiers = append(tiers, extract.NewTextLayerTier())
		case domain.MethodVision:
			var rec extract.PageRecognizer
			if genaiClient != nil {
				rec = extract.NewGenAIRecognizer(genaiClient, cfg.GeminiModel)
			}
			tiers = append(tiers, extract.NewVisionTier(extract.NewFitzRasterizer(), rec, log))
		}
	}
	return tiers
}

func buildParser(cfg *config.Config, genaiClient *genai.Client, log zerolog.Logger) parse.StatementParser {
	if genaiClient == nil {
		return nil
	}
	return parse.NewModelParser(parse.NewGenAIGenerator(genaiClient, cfg.GeminiModel), log)
}

func buildMirror(cfg *config.Config) analyzer.TransactionMirror {
	if cfg.NotionToken == "" || cfg.NotionDatabaseID == "" {
		return nil
	}
	return notionsync.NewMirror(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionDatabaseID)
}
