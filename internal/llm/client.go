// Package llm wraps the chat-completion backends used by the responder.
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"asha/internal/logging"
)

// Client is a single-turn text completion backend.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Config selects and configures a Client.
type Config struct {
	Provider    string // "gemini" or "ollama"
	APIKey      string
	Model       string
	BaseURL     string // Ollama host
	Temperature float32
	Timeout     time.Duration
}

// NewClient builds the configured Client.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	logging.LLM("Creating LLM client: provider=%s model=%s", cfg.Provider, cfg.Model)

	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	case "ollama":
		return NewOllamaClient(OllamaConfig{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s (use 'gemini' or 'ollama')", cfg.Provider)
	}
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThinking removes <think>...</think> reasoning blocks some local models
// emit before their answer.
func stripThinking(text string) string {
	text = thinkBlock.ReplaceAllString(text, "")
	// An unterminated block means the model never closed its reasoning.
	if idx := strings.Index(text, "<think>"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
