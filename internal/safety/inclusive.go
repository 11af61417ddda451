package safety

import (
	"regexp"
	"strings"
	"unicode"
)

const contextRadius = 40

// Suggestion is one non-inclusive term found in a text.
type Suggestion struct {
	Term         string   `json:"term"`
	Alternatives []string `json:"alternatives"`
	Context      string   `json:"context"`
}

type inclusiveTerm struct {
	TermAlternatives
	re *regexp.Regexp
}

// InclusiveChecker finds non-inclusive terms and rewrites them.
// Terms match as plain substrings, so "fat" also matches inside longer words.
type InclusiveChecker struct {
	terms []inclusiveTerm
}

// NewInclusiveChecker creates a checker from rules.
func NewInclusiveChecker(rules Rules) *InclusiveChecker {
	c := &InclusiveChecker{}
	for _, t := range rules.InclusiveTerms {
		c.terms = append(c.terms, inclusiveTerm{
			TermAlternatives: t,
			re:               regexp.MustCompile("(?i)" + regexp.QuoteMeta(t.Term)),
		})
	}
	return c
}

// Check returns a suggestion per term present, in rule order.
func (c *InclusiveChecker) Check(text string) []Suggestion {
	lower := strings.ToLower(text)
	suggestions := []Suggestion{}
	for _, t := range c.terms {
		if !strings.Contains(lower, t.Term) {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Term:         t.Term,
			Alternatives: t.Alternatives,
			Context:      termContext(text, t.Term),
		})
	}
	return suggestions
}

// Improve replaces every suggested term with its first alternative, matching
// the case of each occurrence.
func (c *InclusiveChecker) Improve(text string) string {
	found := make(map[string]bool)
	for _, s := range c.Check(text) {
		found[s.Term] = true
	}

	improved := text
	for _, t := range c.terms {
		if !found[t.Term] {
			continue
		}
		replacement := t.Alternatives[0]
		improved = t.re.ReplaceAllStringFunc(improved, func(match string) string {
			return matchCase(match, replacement)
		})
	}
	return improved
}

// termContext returns the first occurrence of term with up to 40 characters
// either side, with ellipses where the text was cut.
func termContext(text, term string) string {
	runes := []rune(text)
	lowerRunes := make([]rune, len(runes))
	for i, r := range runes {
		lowerRunes[i] = unicode.ToLower(r)
	}
	termRunes := []rune(strings.ToLower(term))

	idx := indexRunes(lowerRunes, termRunes)
	if idx < 0 {
		return ""
	}

	start := max(0, idx-contextRadius)
	end := min(len(runes), idx+len(termRunes)+contextRadius)

	ctx := string(runes[start:end])
	if start > 0 {
		ctx = "..." + ctx
	}
	if end < len(runes) {
		ctx += "..."
	}
	return ctx
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// matchCase shapes replacement like match: all-lower, all-upper, or
// capitalized. Anything else gets the replacement unchanged.
func matchCase(match, replacement string) string {
	switch {
	case isLower(match):
		return strings.ToLower(replacement)
	case isUpper(match):
		return strings.ToUpper(replacement)
	case startsUpper(match):
		r := []rune(replacement)
		r[0] = unicode.ToUpper(r[0])
		return string(r)
	default:
		return replacement
	}
}

// isLower reports whether s has at least one cased letter and no upper-case ones.
func isLower(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}

// isUpper reports whether s has at least one cased letter and no lower-case ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
