package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// CONFIG TESTS
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "SERPAPI_API_KEY", "OLLAMA_HOST", "ASHA_DB", "ASHA_PDF_DIR", "ASHA_ADDR", "CHROME_BIN"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("expected Provider=gemini, got %s", cfg.LLM.Provider)
	}
	if cfg.Knowledge.ChunkSize != 1000 || cfg.Knowledge.ChunkOverlap != 200 {
		t.Errorf("expected 1000/200 chunking, got %d/%d", cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)
	}
	if cfg.Scraper.MaxJobs != 3 || cfg.Scraper.MaxEvents != 5 {
		t.Errorf("expected 3 jobs / 5 events, got %d/%d", cfg.Scraper.MaxJobs, cfg.Scraper.MaxEvents)
	}
	if len(cfg.Server.Suggestions) != 3 {
		t.Errorf("expected 3 suggestions, got %d", len(cfg.Server.Suggestions))
	}
	for _, stage := range []string{"beginner", "mid-career", "advanced"} {
		if len(cfg.Server.StageSuggestions[stage]) != 3 {
			t.Errorf("expected 3 %s questions, got %d", stage, len(cfg.Server.StageSuggestions[stage]))
		}
	}
	cfg.Server.StageSuggestions["beginner"][0] = "changed"
	if DefaultStageSuggestions["beginner"][0] == "changed" {
		t.Error("DefaultConfig shares the stage question bank")
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "asha.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "llama3.2"
	cfg.Search.Provider = "duckduckgo"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.LLM.Provider != "ollama" || loaded.LLM.Model != "llama3.2" {
		t.Errorf("unexpected LLM config: %+v", loaded.LLM)
	}
	if loaded.Search.Provider != "duckduckgo" {
		t.Errorf("expected duckduckgo, got %s", loaded.Search.Provider)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("expected default addr, got %s", cfg.Server.Addr)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "asha.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected :9000, got %s", cfg.Server.Addr)
	}
	if cfg.Knowledge.ChunkSize != 1000 {
		t.Errorf("expected default chunk size to survive, got %d", cfg.Knowledge.ChunkSize)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asha.yaml")
	if err := os.WriteFile(path, []byte("llm: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing API key")
	}

	cfg.LLM.APIKey = "k"
	cfg.Embedding.APIKey = "k"
	cfg.Search.APIKey = "s"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	cfg.Store.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid driver error")
	}
	cfg.Store.Driver = "sqlite"

	cfg.Knowledge.ChunkOverlap = cfg.Knowledge.ChunkSize
	if err := cfg.Validate(); err == nil {
		t.Error("expected overlap error")
	}
}

func TestConfig_Validate_LocalStack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Provider = "ollama"
	cfg.Embedding.Provider = "ollama"
	cfg.Search.Provider = "duckduckgo"
	cfg.Scraper.Mode = "static"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected local stack to validate without keys, got %v", err)
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetLLMTimeout(); got != 120*time.Second {
		t.Errorf("GetLLMTimeout = %v", got)
	}
	cfg.LLM.Timeout = "garbage"
	if got := cfg.GetLLMTimeout(); got != 120*time.Second {
		t.Errorf("fallback GetLLMTimeout = %v", got)
	}
	cfg.Scraper.SettleDelay = "0s"
	if got := cfg.GetScrapeSettleDelay(); got != 0 {
		t.Errorf("zero settle delay should be honoured, got %v", got)
	}
	if got := cfg.GetScrapeWaitTimeout(); got != 60*time.Second {
		t.Errorf("GetScrapeWaitTimeout = %v", got)
	}
}
