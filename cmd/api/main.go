package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/finlens/statement-analyzer/internal/analyzer"
	"github.com/finlens/statement-analyzer/internal/api/handlers"
	"github.com/finlens/statement-analyzer/internal/api/middleware"
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

	// Gemini powers both the vision tier and the structured parser. An
	// absent key downgrades the pipeline rather than failing startup.
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

	// Job infrastructure: the API process also consumes its own queue so
	// single-instance deployments need no separate worker.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 3, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
		doc, err := docsource.FetchFromGCS(ctx, resolveGCSURI(cfg.GCSBucket, job.GCSURI))
		if err != nil {
			return err
		}
		result := a.Analyze(ctx, doc, job.UserID)
		if !result.Success {
			log.Warn().Str("job_id", job.JobID).Str("error", result.Error).Msg("Analysis failed")
		}
		job.TransactionCount = len(result.Transactions)
		return nil
	}

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	statementsHandler := handlers.NewStatementsHandler(a, jobQueue, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/statements/analyze", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.AnalyzeStatement(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/statements/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.EnqueueAnalysis(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	if txStore != nil {
		transactionsHandler := handlers.NewTransactionsHandler(txStore, log)
		mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				transactionsHandler.ListTransactions(w, r)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		})
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server stopped")
}

// resolveGCSURI turns a bare object name into a gs:// URI against the
// configured bucket; full URIs pass through.
func resolveGCSURI(bucket, uri string) string {
	if strings.HasPrefix(uri, "gs://") || bucket == "" {
		return uri
	}
	return "gs://" + bucket + "/" + strings.TrimPrefix(uri, "/")
}

// buildTiers assembles the extraction chain in configured order, skipping
// tiers whose collaborators are not configured.
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
