package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"asha/internal/logging"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all Asha configuration.
type Config struct {
	Name string `yaml:"name"`

	// LLM configuration (chat + keyword extraction)
	LLM LLMConfig `yaml:"llm"`

	// Embedding engine for the knowledge base
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Vector store
	Store StoreConfig `yaml:"store"`

	// PDF knowledge base
	Knowledge KnowledgeConfig `yaml:"knowledge"`

	// Live web search
	Search SearchConfig `yaml:"search"`

	// Job/event scraping
	Scraper ScraperConfig `yaml:"scraper"`

	// Response filtering
	Safety SafetyConfig `yaml:"safety"`
	Guard  GuardConfig  `yaml:"guard"`

	// HTTP API
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging logging.Config `yaml:"logging"`
}

// LLMConfig configures the chat model.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // gemini, ollama
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"` // ollama endpoint
	Temperature float32 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // genai, ollama
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	TaskType       string `yaml:"task_type"`
	BatchSize      int    `yaml:"batch_size"`
}

// StoreConfig configures the SQLite vector store.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite3 (cgo) or sqlite (pure Go)
	Path   string `yaml:"path"`
	TopK   int    `yaml:"top_k"`
}

// KnowledgeConfig configures PDF ingestion.
type KnowledgeConfig struct {
	PDFDir       string `yaml:"pdf_dir"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	IngestOnBoot bool   `yaml:"ingest_on_boot"`
}

// SearchConfig configures web search.
type SearchConfig struct {
	Provider  string  `yaml:"provider"` // serpapi, duckduckgo, none
	APIKey    string  `yaml:"api_key"`
	Engine    string  `yaml:"engine"`
	Country   string  `yaml:"gl"`
	Language  string  `yaml:"hl"`
	CacheTTL  string  `yaml:"cache_ttl"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second
	Burst     int     `yaml:"burst"`
	Timeout   string  `yaml:"timeout"`
}

// ScraperConfig configures HerKey job and event scraping.
type ScraperConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Mode         string   `yaml:"mode"` // browser, static
	ChromeBin    string   `yaml:"chrome_bin"`
	DebuggerURL  string   `yaml:"debugger_url"`
	Headless     bool     `yaml:"headless"`
	ChromeFlags  []string `yaml:"chrome_flags"`
	WaitTimeout  string   `yaml:"wait_timeout"`
	SettleDelay  string   `yaml:"settle_delay"`
	CacheTTL     string   `yaml:"cache_ttl"`
	JobsURL      string   `yaml:"jobs_url"`
	EventsURL    string   `yaml:"events_url"`
	MaxJobs      int      `yaml:"max_jobs"`
	MaxEvents    int      `yaml:"max_events"`
	FetchTimeout string   `yaml:"fetch_timeout"`
}

// SafetyConfig configures the bias/safety/inclusive pipeline.
type SafetyConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RulesFile string `yaml:"rules_file"`
}

// GuardConfig configures output validation.
type GuardConfig struct {
	Enabled      bool   `yaml:"enabled"`
	RulesFile    string `yaml:"rules_file"`
	FallbackFile string `yaml:"fallback_file"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	AllowOrigins []string `yaml:"allow_origins"`
	Suggestions  []string `yaml:"suggestions"`
	// StageSuggestions maps a career stage (beginner, mid-career, advanced)
	// to its question bank.
	StageSuggestions map[string][]string `yaml:"stage_suggestions"`
	RequestTimeout   string              `yaml:"request_timeout"`
	ShutdownTimeout  string              `yaml:"shutdown_timeout"`
}

// DefaultSuggestions are the starter prompts shown by clients.
var DefaultSuggestions = []string{
	"What are high-paying careers in India?",
	"How to switch from commerce to tech?",
	"Will AI replace software engineers?",
}

// DefaultStageSuggestions is the question bank per career stage.
var DefaultStageSuggestions = map[string][]string{
	"beginner": {
		"What factors should I consider when choosing a career?",
		"How do I identify my strengths and interests?",
		"What are the fastest growing career fields for beginners?",
	},
	"mid-career": {
		"How can I switch to a tech role from a non-tech background?",
		"What are some good upskilling options for working professionals?",
		"How to manage a career break and return to work?",
	},
	"advanced": {
		"How can I move into leadership roles?",
		"Are there government programs for women entrepreneurs?",
		"How can I mentor other professionals in my domain?",
	},
}

func defaultStageSuggestions() map[string][]string {
	out := make(map[string][]string, len(DefaultStageSuggestions))
	for stage, qs := range DefaultStageSuggestions {
		out[stage] = append([]string(nil), qs...)
	}
	return out
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "asha",

		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-1.5-flash",
			BaseURL:     "http://localhost:11434",
			Temperature: 0,
			Timeout:     "120s",
		},

		Embedding: EmbeddingConfig{
			Provider:       "genai",
			Model:          "gemini-embedding-001",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			TaskType:       "RETRIEVAL_DOCUMENT",
			BatchSize:      32,
		},

		Store: StoreConfig{
			Driver: "sqlite3",
			Path:   "data/asha.db",
			TopK:   4,
		},

		Knowledge: KnowledgeConfig{
			PDFDir:       "pdf",
			ChunkSize:    1000,
			ChunkOverlap: 200,
			IngestOnBoot: true,
		},

		Search: SearchConfig{
			Provider:  "serpapi",
			Engine:    "bing",
			Country:   "us",
			Language:  "en",
			CacheTTL:  "30m",
			RateLimit: 2,
			Burst:     2,
			Timeout:   "30s",
		},

		Scraper: ScraperConfig{
			Enabled:      true,
			Mode:         "browser",
			Headless:     true,
			ChromeFlags:  []string{"--no-sandbox", "--disable-dev-shm-usage", "--window-size=1920,1080"},
			WaitTimeout:  "60s",
			SettleDelay:  "3s",
			CacheTTL:     "15m",
			JobsURL:      "https://www.herkey.com/jobs",
			EventsURL:    "https://events.herkey.com/events/",
			MaxJobs:      3,
			MaxEvents:    5,
			FetchTimeout: "90s",
		},

		Safety: SafetyConfig{Enabled: true},

		Guard: GuardConfig{
			Enabled:      true,
			FallbackFile: "asha_fallback_response.md",
		},

		Server: ServerConfig{
			Addr:             ":8000",
			AllowOrigins:     []string{"*"},
			Suggestions:      append([]string(nil), DefaultSuggestions...),
			StageSuggestions: defaultStageSuggestions(),
			RequestTimeout:   "180s",
			ShutdownTimeout:  "10s",
		},

		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	googleKey := os.Getenv("GOOGLE_API_KEY")
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		googleKey = key
	}
	if googleKey != "" {
		if c.LLM.Provider == "gemini" {
			c.LLM.APIKey = googleKey
		}
		if c.Embedding.Provider == "genai" {
			c.Embedding.APIKey = googleKey
		}
	}

	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if !strings.HasPrefix(host, "http") {
			host = "http://" + host
		}
		c.LLM.BaseURL = host
		c.Embedding.OllamaEndpoint = host
	}

	if key := os.Getenv("SERPAPI_API_KEY"); key != "" {
		c.Search.APIKey = key
	}

	if path := os.Getenv("ASHA_DB"); path != "" {
		c.Store.Path = path
	}
	if dir := os.Getenv("ASHA_PDF_DIR"); dir != "" {
		c.Knowledge.PDFDir = dir
	}
	if addr := os.Getenv("ASHA_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		c.Scraper.ChromeBin = bin
	}
}

// ValidLLMProviders lists supported chat providers.
var ValidLLMProviders = []string{"gemini", "ollama"}

// ValidEmbeddingProviders lists supported embedding providers.
var ValidEmbeddingProviders = []string{"genai", "ollama"}

// ValidSearchProviders lists supported web search providers.
var ValidSearchProviders = []string{"serpapi", "duckduckgo", "none"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !contains(ValidLLMProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidLLMProviders)
	}
	if c.LLM.Provider == "gemini" && c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set GEMINI_API_KEY or GOOGLE_API_KEY)")
	}

	if !contains(ValidEmbeddingProviders, c.Embedding.Provider) {
		return fmt.Errorf("invalid embedding provider: %s (valid: %v)", c.Embedding.Provider, ValidEmbeddingProviders)
	}
	if c.Embedding.Provider == "genai" && c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding API key not configured (set GEMINI_API_KEY or GOOGLE_API_KEY)")
	}

	if !contains(ValidSearchProviders, c.Search.Provider) {
		return fmt.Errorf("invalid search provider: %s (valid: %v)", c.Search.Provider, ValidSearchProviders)
	}
	if c.Search.Provider == "serpapi" && c.Search.APIKey == "" {
		return fmt.Errorf("search API key not configured (set SERPAPI_API_KEY or use provider duckduckgo)")
	}

	switch c.Store.Driver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("invalid store driver: %s (valid: sqlite3, sqlite)", c.Store.Driver)
	}

	switch c.Scraper.Mode {
	case "browser", "static":
	default:
		return fmt.Errorf("invalid scraper mode: %s (valid: browser, static)", c.Scraper.Mode)
	}

	if c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Knowledge.ChunkOverlap, c.Knowledge.ChunkSize)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 120*time.Second)
}

// GetSearchTimeout returns the web search timeout.
func (c *Config) GetSearchTimeout() time.Duration {
	return parseDuration(c.Search.Timeout, 30*time.Second)
}

// GetSearchCacheTTL returns how long search digests are cached.
func (c *Config) GetSearchCacheTTL() time.Duration {
	return parseDuration(c.Search.CacheTTL, 30*time.Minute)
}

// GetScrapeWaitTimeout returns how long to wait for listing cards to appear.
func (c *Config) GetScrapeWaitTimeout() time.Duration {
	return parseDuration(c.Scraper.WaitTimeout, 60*time.Second)
}

// GetScrapeSettleDelay returns the pause after cards appear, letting late cards render.
func (c *Config) GetScrapeSettleDelay() time.Duration {
	d, err := time.ParseDuration(c.Scraper.SettleDelay)
	if err != nil || d < 0 {
		return 3 * time.Second
	}
	return d
}

// GetScrapeCacheTTL returns how long scraped listings are cached.
func (c *Config) GetScrapeCacheTTL() time.Duration {
	return parseDuration(c.Scraper.CacheTTL, 15*time.Minute)
}

// GetScrapeFetchTimeout bounds a whole scrape inside a chat turn.
func (c *Config) GetScrapeFetchTimeout() time.Duration {
	return parseDuration(c.Scraper.FetchTimeout, 90*time.Second)
}

// GetRequestTimeout returns the per-request timeout of the HTTP API.
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDuration(c.Server.RequestTimeout, 180*time.Second)
}

// GetShutdownTimeout returns the graceful shutdown budget.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}
