package guard

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"asha/internal/logging"
)

//go:embed asha_fallback_response.md
var defaultFallback string

// Stats counts validation outcomes.
type Stats struct {
	Validated int `json:"validated"`
	Rejected  int `json:"rejected"`
	Redacted  int `json:"redacted"`
}

// Validator checks replies against Rules.
type Validator struct {
	rules    Rules
	banned   []string
	redact   []*regexp.Regexp
	fallback string

	mu    sync.Mutex
	stats Stats
}

// NewValidator compiles rules. fallbackFile may be empty or missing, in which
// case the built-in fallback is used.
func NewValidator(rules Rules, fallbackFile string) (*Validator, error) {
	redact, err := compilePatterns(rules.RedactPatterns)
	if err != nil {
		return nil, err
	}

	banned := make([]string, 0, len(rules.BannedPhrases))
	for _, p := range rules.BannedPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			banned = append(banned, p)
		}
	}

	return &Validator{
		rules:    rules,
		banned:   banned,
		redact:   redact,
		fallback: loadFallback(fallbackFile),
	}, nil
}

func loadFallback(path string) string {
	if path == "" {
		return defaultFallback
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.GuardWarn("Failed to read fallback %s: %v", path, err)
		}
		return defaultFallback
	}
	if strings.TrimSpace(string(data)) == "" {
		return defaultFallback
	}
	return string(data)
}

// Fallback returns the markdown shown when validation fails.
func (v *Validator) Fallback() string {
	return v.fallback
}

// Validate returns text with redactions applied, or an error wrapping
// ErrValidation when the text is out of bounds or contains a banned phrase.
func (v *Validator) Validate(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	n := utf8.RuneCountInString(trimmed)

	if n < v.rules.MinLength {
		return "", v.reject("reply has %d characters, minimum is %d", n, v.rules.MinLength)
	}
	if v.rules.MaxLength > 0 && n > v.rules.MaxLength {
		return "", v.reject("reply has %d characters, maximum is %d", n, v.rules.MaxLength)
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range v.banned {
		if strings.Contains(lower, phrase) {
			return "", v.reject("reply contains banned phrase %q", phrase)
		}
	}

	redactions := 0
	out := trimmed
	for _, re := range v.redact {
		out = re.ReplaceAllStringFunc(out, func(string) string {
			redactions++
			return Redacted
		})
	}

	v.mu.Lock()
	v.stats.Validated++
	v.stats.Redacted += redactions
	v.mu.Unlock()

	if redactions > 0 {
		logging.Guard("Redacted %d span(s) from reply", redactions)
	}
	return out, nil
}

func (v *Validator) reject(format string, args ...interface{}) error {
	v.mu.Lock()
	v.stats.Rejected++
	v.mu.Unlock()

	err := fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
	logging.GuardWarn("%v", err)
	return err
}

// Stats returns a snapshot of the counters.
func (v *Validator) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}
