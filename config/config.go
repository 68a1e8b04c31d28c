package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ModelRate holds per-token prices for one provider model.
type ModelRate struct {
	InputPerToken  float64
	OutputPerToken float64
}

// Config represents the application configuration
type Config struct {
	// Target configuration
	URLs       []string
	Fields     []string
	Pagination bool
	MaxPages   int
	// Free-text hint forwarded to the pagination detector
	PaginationHint string

	// Extraction provider configuration
	Provider        string
	Model           string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaURL       string
	MaxContentRunes int

	// Browser configuration
	UseBrowser  bool
	NavTimeout  time.Duration
	SettleDelay time.Duration

	// Fetch block gate
	MemcacheAddr string
	BlockTime    time.Duration

	// Persistence
	DatabasePath string
	OutputDir    string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Environment
	Environment string

	// Pricing is inert data loaded once and injected into the extraction
	// client; keys are "provider/model".
	Pricing map[string]ModelRate
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	maxPages, _ := strconv.Atoi(getEnv("MAX_PAGES", "5"))
	blockTime, _ := strconv.Atoi(getEnv("BLOCK_TIME_SECONDS", "300"))
	navTimeout, _ := strconv.Atoi(getEnv("NAV_TIMEOUT_SECONDS", "30"))
	settleDelay, _ := strconv.Atoi(getEnv("SETTLE_DELAY_MS", "1500"))
	maxRunes, _ := strconv.Atoi(getEnv("MAX_CONTENT_RUNES", "480000"))

	return &Config{
		URLs:           splitList(getEnv("SCRAPE_URLS", "")),
		Fields:         splitList(getEnv("SCRAPE_FIELDS", strings.Join(DefaultFields, ","))),
		Pagination:     getEnv("PAGINATION", "false") == "true",
		MaxPages:       maxPages,
		PaginationHint: getEnv("PAGINATION_HINT", ""),

		Provider:        getEnv("LLM_PROVIDER", "openai"),
		Model:           getEnv("LLM_MODEL", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OllamaURL:       getEnv("OLLAMA_URL", "http://localhost:11434"),
		MaxContentRunes: maxRunes,

		UseBrowser:  getEnv("USE_BROWSER", "true") == "true",
		NavTimeout:  time.Duration(navTimeout) * time.Second,
		SettleDelay: time.Duration(settleDelay) * time.Millisecond,

		MemcacheAddr: getEnv("MEMCACHE_ADDR", "localhost:11211"),
		BlockTime:    time.Duration(blockTime) * time.Second,

		DatabasePath: getEnv("DATABASE_PATH", "scraper.db"),
		OutputDir:    getEnv("OUTPUT_DIR", "output"),

		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "listings"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,

		Environment: getEnv("SCRAPER_ENVIRONMENT", "development"),

		Pricing: defaultPricing(),
	}
}

// Validate checks that the configuration is coherent enough to run
func (c *Config) Validate() error {
	if len(c.URLs) == 0 {
		return fmt.Errorf("no target URLs configured (SCRAPE_URLS)")
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("no extraction fields configured (SCRAPE_FIELDS)")
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("MAX_PAGES must be at least 1, got %d", c.MaxPages)
	}
	switch c.Provider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("provider openai requires OPENAI_API_KEY")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("provider anthropic requires ANTHROPIC_API_KEY")
		}
	case "ollama":
		if c.OllamaURL == "" {
			return fmt.Errorf("provider ollama requires OLLAMA_URL")
		}
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
	return nil
}

// ResolvedModel returns the configured model, falling back to the
// provider's default.
func (c *Config) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case "openai":
		return "gpt-4o-mini"
	case "anthropic":
		return "claude-3-5-haiku-latest"
	case "ollama":
		return "llama3.1"
	}
	return ""
}

// DefaultFields are the canonical listing columns the structured table is
// shaped after; they double as the default extraction schema.
var DefaultFields = []string{
	"Title", "Description", "Date", "Deadline", "Reference Number",
	"Category", "Location", "Organization", "Contact", "Value",
}

// defaultPricing returns the static per-token price table, keyed by
// "provider/model". Prices are USD per token.
func defaultPricing() map[string]ModelRate {
	return map[string]ModelRate{
		"openai/gpt-4o-mini":                {InputPerToken: 0.150 / 1e6, OutputPerToken: 0.600 / 1e6},
		"openai/gpt-4o-2024-08-06":          {InputPerToken: 2.500 / 1e6, OutputPerToken: 10.000 / 1e6},
		"anthropic/claude-3-5-haiku-latest": {InputPerToken: 0.800 / 1e6, OutputPerToken: 4.000 / 1e6},
		"anthropic/claude-sonnet-4-0":       {InputPerToken: 3.000 / 1e6, OutputPerToken: 15.000 / 1e6},
		// Local models cost nothing; the entry keeps cost reporting uniform.
		"ollama/llama3.1": {},
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// splitList parses a comma-separated env value into trimmed, non-empty parts
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
