package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// Score weights.
const (
	codedTermWeight    = 0.2
	genderedTermWeight = 0.15
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// BiasReport is the result of BiasMitigator.Detect.
type BiasReport struct {
	Score                     float64  `json:"bias_score"`
	StereotypicalAssociations []string `json:"stereotypical_associations"`
	GenderedLanguage          []string `json:"gendered_language"`
	NeedsReview               bool     `json:"needs_review"`
}

type compiledMitigation struct {
	re          *regexp.Regexp
	replacement string
}

// BiasMitigator detects stereotyped or needlessly gendered wording and
// rewrites a few masculine defaults.
type BiasMitigator struct {
	pairs       []GenderPair
	masculine   map[string]bool
	feminine    map[string]bool
	mitigations []compiledMitigation
	threshold   float64
}

// NewBiasMitigator compiles the bias rules.
func NewBiasMitigator(rules Rules) (*BiasMitigator, error) {
	b := &BiasMitigator{
		pairs:     rules.GenderPairs,
		masculine: toSet(rules.MasculineCoded),
		feminine:  toSet(rules.FeminineCoded),
		threshold: rules.ReviewThreshold,
	}
	for _, m := range rules.Mitigations {
		re, err := regexp.Compile("(?i)" + m.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid mitigation pattern %q: %w", m.Pattern, err)
		}
		b.mitigations = append(b.mitigations, compiledMitigation{re: re, replacement: m.Replacement})
	}
	return b, nil
}

// Detect scores text. Each coded profession token adds 0.2, and each male
// word used without its female counterpart anywhere in the text adds 0.15.
func (b *BiasMitigator) Detect(text string) BiasReport {
	report := BiasReport{
		StereotypicalAssociations: []string{},
		GenderedLanguage:          []string{},
	}

	lower := strings.ToLower(text)
	words := wordPattern.FindAllString(lower, -1)
	present := toSet(words)

	for _, w := range words {
		if b.masculine[w] {
			report.StereotypicalAssociations = append(report.StereotypicalAssociations, "Masculine-coded term: "+w)
			report.Score += codedTermWeight
		}
		if b.feminine[w] {
			report.StereotypicalAssociations = append(report.StereotypicalAssociations, "Feminine-coded term: "+w)
			report.Score += codedTermWeight
		}
	}

	for _, p := range b.pairs {
		if present[p.Male] && !strings.Contains(lower, p.Female) {
			report.GenderedLanguage = append(report.GenderedLanguage, "Potentially unnecessary gendered term: "+p.Male)
			report.Score += genderedTermWeight
		}
	}

	report.NeedsReview = report.Score > b.threshold
	return report
}

// Mitigate applies the rewrites in order.
func (b *BiasMitigator) Mitigate(text string) string {
	for _, m := range b.mitigations {
		text = m.re.ReplaceAllLiteralString(text, m.replacement)
	}
	return text
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
