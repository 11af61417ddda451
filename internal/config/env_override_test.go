package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides_GoogleKeys(t *testing.T) {
	t.Run("GOOGLE_API_KEY feeds gemini and genai", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GOOGLE_API_KEY", "g-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "g-key", cfg.LLM.APIKey)
		assert.Equal(t, "g-key", cfg.Embedding.APIKey)
	})

	t.Run("GEMINI_API_KEY wins over GOOGLE_API_KEY", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GOOGLE_API_KEY", "g-key")
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "gem-key", cfg.LLM.APIKey)
	})

	t.Run("ollama provider ignores google key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg := DefaultConfig()
		cfg.LLM.Provider = "ollama"
		cfg.applyEnvOverrides()

		assert.Empty(t, cfg.LLM.APIKey)
		assert.Equal(t, "gem-key", cfg.Embedding.APIKey)
	})
}

func TestEnvOverrides_Paths(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_HOST", "ollama:11434")
	t.Setenv("ASHA_DB", "/tmp/asha.db")
	t.Setenv("ASHA_PDF_DIR", "/books")
	t.Setenv("ASHA_ADDR", ":9999")
	t.Setenv("CHROME_BIN", "/usr/bin/chromium")
	t.Setenv("SERPAPI_API_KEY", "serp")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "http://ollama:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "http://ollama:11434", cfg.Embedding.OllamaEndpoint)
	assert.Equal(t, "/tmp/asha.db", cfg.Store.Path)
	assert.Equal(t, "/books", cfg.Knowledge.PDFDir)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "/usr/bin/chromium", cfg.Scraper.ChromeBin)
	assert.Equal(t, "serp", cfg.Search.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("SERPAPI_API_KEY")
	t.Cleanup(func() { os.Unsetenv("SERPAPI_API_KEY") })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SERPAPI_API_KEY=from-dotenv\n"), 0644))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("SERPAPI_API_KEY"))
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERPAPI_API_KEY", "from-shell")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SERPAPI_API_KEY=from-dotenv\n"), 0644))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-shell", os.Getenv("SERPAPI_API_KEY"))
}
