package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the statement analyzer.
// Values come from the environment, optionally seeded from a .env file.
type Config struct {
	// Port is the HTTP listen port for the API server.
	Port string

	// GeminiAPIKey enables the vision recognition tier and the structured
	// parser. An empty key is a normal "skip vision" condition.
	GeminiAPIKey string

	// GeminiModel is the model used for both vision transcription and
	// structured extraction.
	GeminiModel string

	// ParseServiceURL is the base URL of the external structured
	// extraction service. Empty disables that tier.
	ParseServiceURL string

	// GCSBucket is the bucket async jobs read uploaded statements from.
	GCSBucket string

	// BigQueryProject/BigQueryDataset configure the persistence store.
	// An empty project disables persistence.
	BigQueryProject string
	BigQueryDataset string

	// NotionToken/NotionDatabaseID configure the optional Notion mirror.
	NotionToken      string
	NotionDatabaseID string

	// TierOrder is the ordered list of extraction tiers to attempt.
	TierOrder []string

	// CacheTTL bounds how long a document's analysis result is memoized.
	CacheTTL time.Duration
}

// DefaultTierOrder tries the external service first since it is the cheaper
// path when available, then the embedded text layer, then vision.
var DefaultTierOrder = []string{"external", "text", "vision"}

// Load reads configuration from the environment. A missing .env file is not
// an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ParseServiceURL:  os.Getenv("PARSE_SERVICE_URL"),
		GCSBucket:        os.Getenv("GCS_BUCKET"),
		BigQueryProject:  os.Getenv("BIGQUERY_PROJECT"),
		BigQueryDataset:  getEnv("BIGQUERY_DATASET", "finance"),
		NotionToken:      os.Getenv("NOTION_TOKEN"),
		NotionDatabaseID: os.Getenv("NOTION_DATABASE_ID"),
		TierOrder:        DefaultTierOrder,
	}

	if raw := os.Getenv("TIER_ORDER"); raw != "" {
		order, err := parseTierOrder(raw)
		if err != nil {
			return nil, err
		}
		cfg.TierOrder = order
	}

	ttl := getEnv("CACHE_TTL", "15m")
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return nil, fmt.Errorf("config: invalid CACHE_TTL %q: %w", ttl, err)
	}
	cfg.CacheTTL = d

	return cfg, nil
}

func parseTierOrder(raw string) ([]string, error) {
	var order []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		switch name {
		case "external", "text", "vision":
			order = append(order, name)
		default:
			return nil, fmt.Errorf("config: unknown extraction tier %q in TIER_ORDER", name)
		}
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("config: TIER_ORDER is empty")
	}
	return order, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
