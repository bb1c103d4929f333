package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/finlens/statement-analyzer/internal/analyzer"
	"github.com/finlens/statement-analyzer/internal/config"
	"github.com/finlens/statement-analyzer/internal/docsource"
	"github.com/finlens/statement-analyzer/internal/domain"
	"github.com/finlens/statement-analyzer/internal/extract"
	"github.com/finlens/statement-analyzer/internal/logger"
	"github.com/finlens/statement-analyzer/internal/parse"
	"github.com/finlens/statement-analyzer/internal/store"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(log)
	case "ingest":
		runIngest(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Analyzer CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  analyze   Analyze a local statement PDF and print the result")
	fmt.Println("  ingest    Analyze a statement PDF stored in GCS and persist it")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runAnalyze(log zerolog.Logger) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	file := fs.String("file", "", "Path of the statement PDF")
	userID := fs.String("user", "", "User ID to persist transactions under (empty skips persistence)")
	asJSON := fs.Bool("json", false, "Print the full result as JSON")
	fs.Parse(os.Args[2:])

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required")
		fs.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read statement")
	}

	doc := &domain.RawDocument{
		Data:     data,
		MimeType: "application/pdf",
		Filename: filepath.Base(*file),
	}

	analyzeAndPrint(log, doc, *userID, *asJSON)
}

func runIngest(log zerolog.Logger) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	gcsURI := fs.String("gcs-uri", "", "GCS URI of the statement PDF")
	userID := fs.String("user", "", "User ID to persist transactions under")
	asJSON := fs.Bool("json", false, "Print the full result as JSON")
	fs.Parse(os.Args[2:])

	if *gcsURI == "" {
		fmt.Fprintln(os.Stderr, "Error: -gcs-uri is required")
		fs.Usage()
		os.Exit(1)
	}

	ctx := logger.WithContext(context.Background(), log)
	doc, err := docsource.FetchFromGCS(ctx, *gcsURI)
	if err != nil {
		log.Fatal().Err(err).Str("gcs_uri", *gcsURI).Msg("Failed to fetch statement")
	}

	analyzeAndPrint(log, doc, *userID, *asJSON)
}

func analyzeAndPrint(log zerolog.Logger, doc *domain.RawDocument, userID string, asJSON bool) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	var genaiClient *genai.Client
	if cfg.GeminiAPIKey != "" {
		genaiClient, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GenAI client")
		}
	}

	var txStore store.TransactionStore
	if userID != "" && cfg.BigQueryProject != "" {
		txStore, err = store.NewBigQueryStore(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create transaction store")
		}
		defer txStore.Close()
	}

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

	var parser parse.StatementParser
	if genaiClient != nil {
		parser = parse.NewModelParser(parse.NewGenAIGenerator(genaiClient, cfg.GeminiModel), log)
	}

	a := analyzer.New(analyzer.Deps{Tiers: tiers, Parser: parser, Store: txStore})
	result := a.Analyze(ctx, doc, userID)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode result")
		}
		if !result.Success {
			os.Exit(1)
		}
		return
	}

	if !result.Success {
		fmt.Fprintf(os.Stderr, "Analysis failed: %s\n", result.Error)
		os.Exit(1)
	}

	fmt.Printf("Statement: %s\n", doc.Filename)
	if result.BankName != "" {
		fmt.Printf("Bank: %s\n", result.BankName)
	}
	if result.StatementPeriod != "" {
		fmt.Printf("Period: %s\n", result.StatementPeriod)
	}
	fmt.Printf("Extraction method: %s\n", result.Method)
	fmt.Printf("\nTransactions (%d):\n", len(result.Transactions))
	for _, tx := range result.Transactions {
		sign := "-"
		if tx.Type == domain.TypeIncome {
			sign = "+"
		}
		fmt.Printf("  %-12s %-40.40s %s%10.2f  %s\n", tx.Date, tx.Description, sign, tx.Amount, tx.Category)
	}

	s := result.Summary
	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Income:   %12.2f\n", s.TotalIncome)
	fmt.Printf("  Expenses: %12.2f\n", s.TotalExpenses)
	fmt.Printf("  Net:      %12.2f\n", s.NetChange)
	if s.DateRange.Start != "" {
		fmt.Printf("  Range:    %s to %s\n", s.DateRange.Start, s.DateRange.End)
	}
	if len(s.TopCategories) > 0 {
		fmt.Printf("  Top categories:\n")
		for _, c := range s.TopCategories {
			fmt.Printf("    %-20s %10.2f\n", c.Category, c.Amount)
		}
	}

	if len(result.Insights) > 0 {
		fmt.Printf("\nInsights:\n")
		for _, in := range result.Insights {
			fmt.Printf("  - %s\n", in)
		}
	}

	if result.Saved != nil {
		if *result.Saved {
			fmt.Printf("\nSaved %d transactions for user %s\n", result.SavedCount, userID)
		} else {
			fmt.Printf("\nWarning: transactions were not saved\n")
		}
	}
}
