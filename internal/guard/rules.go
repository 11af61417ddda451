// Package guard validates the final conversation text before it leaves the
// responder. A reply that fails validation is replaced with fallback markdown.
package guard

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ErrValidation is wrapped by every Validate failure.
var ErrValidation = errors.New("output validation failed")

// Redacted replaces text matched by a redact pattern.
const Redacted = "[redacted]"

// Rules configures the validator.
type Rules struct {
	MinLength      int      `yaml:"min_length"`
	MaxLength      int      `yaml:"max_length"`
	BannedPhrases  []string `yaml:"banned_phrases"`
	RedactPatterns []string `yaml:"redact_patterns"`
}

// DefaultRules rejects empty replies and runaway output, and masks email
// addresses the model may echo back. Phone numbers are left alone: the
// safety pipeline appends crisis hotlines to the reply before it is checked.
func DefaultRules() Rules {
	return Rules{
		MinLength: 1,
		MaxLength: 8000,
		BannedPhrases: []string{
			"as an ai language model",
			"i cannot help with that",
		},
		RedactPatterns: []string{
			`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
		},
	}
}

// LoadRules reads YAML rules over the defaults. An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read guard rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse guard rules: %w", err)
	}
	return rules, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
