package llm

import (
	"context"
	"fmt"
	"strings"

	"asha/internal/logging"
)

const keywordPrompt = `Extract the most relevant simple job or event keyword from the user's input below.
Only output the single keyword like "java", "python", "data analyst", "frontend", "backend", etc.
No extra words or sentences.

User Input: %s
Keyword:`

// KeywordExtractor asks the LLM for one job or event search keyword.
type KeywordExtractor struct {
	client Client
}

// NewKeywordExtractor creates a KeywordExtractor backed by client.
func NewKeywordExtractor(client Client) *KeywordExtractor {
	return &KeywordExtractor{client: client}
}

// Extract returns the keyword for message, trimmed and lower-cased.
func (k *KeywordExtractor) Extract(ctx context.Context, message string) (string, error) {
	out, err := k.client.Complete(ctx, fmt.Sprintf(keywordPrompt, message))
	if err != nil {
		return "", fmt.Errorf("keyword extraction failed: %w", err)
	}
	keyword := strings.ToLower(strings.TrimSpace(out))
	logging.LLMDebug("Extracted keyword %q", keyword)
	return keyword, nil
}
