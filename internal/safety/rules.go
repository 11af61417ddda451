// Package safety post-processes chatbot replies: it detects and softens
// gender bias, rewrites non-inclusive terms and attaches crisis resources and
// privacy disclaimers.
package safety

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// GenderPair is a male/female word pair used for gendered-language checks.
type GenderPair struct {
	Male   string `yaml:"male"`
	Female string `yaml:"female"`
}

// Mitigation is an ordered regex rewrite applied case-insensitively.
type Mitigation struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// SensitiveTopic maps a topic phrase to a crisis resource key ("" for none).
type SensitiveTopic struct {
	Term     string `yaml:"term"`
	Resource string `yaml:"resource,omitempty"`
}

// TermAlternatives lists inclusive replacements for a term, best first.
type TermAlternatives struct {
	Term         string   `yaml:"term"`
	Alternatives []string `yaml:"alternatives"`
}

// Rules holds every word list the safety passes use.
type Rules struct {
	GenderPairs         []GenderPair       `yaml:"gender_pairs"`
	MasculineCoded      []string           `yaml:"masculine_coded"`
	FeminineCoded       []string           `yaml:"feminine_coded"`
	Mitigations         []Mitigation       `yaml:"mitigations"`
	ReviewThreshold     float64            `yaml:"review_threshold"`
	MitigationThreshold float64            `yaml:"mitigation_threshold"`
	SensitiveTopics     []SensitiveTopic   `yaml:"sensitive_topics"`
	CrisisResources     map[string]string  `yaml:"crisis_resources"`
	PrivacySensitive    []string           `yaml:"privacy_sensitive"`
	PrivacyNote         string             `yaml:"privacy_note"`
	InclusiveTerms      []TermAlternatives `yaml:"inclusive_terms"`
}

// DefaultRules returns the built-in lists.
func DefaultRules() Rules {
	return Rules{
		GenderPairs: []GenderPair{
			{"he", "she"}, {"him", "her"}, {"his", "hers"},
			{"man", "woman"}, {"men", "women"},
			{"boy", "girl"}, {"boys", "girls"},
			{"male", "female"}, {"father", "mother"},
			{"husband", "wife"}, {"son", "daughter"},
		},
		// "CEO" stays upper-case; tokens are lower-cased so it never matches.
		MasculineCoded: []string{"engineer", "doctor", "scientist", "programmer", "CEO", "analyst"},
		FeminineCoded:  []string{"nurse", "teacher", "assistant", "secretary", "homemaker"},
		Mitigations: []Mitigation{
			{`\b(?:mankind|man-made)\b`, "humanity|artificial"},
			{`\b(?:businessman|businessmen)\b`, "business professional(s)"},
			{`\b(?:fireman|firemen)\b`, "firefighter(s)"},
			{`\b(?:policeman|policemen)\b`, "police officer(s)"},
			{`\b(?:chairman|chairmen)\b`, "chairperson|chair"},
			{`\bhe or she\b`, "they"},
			{`\bhis or hers?\b`, "theirs"},
		},
		ReviewThreshold:     0.5,
		MitigationThreshold: 0.3,
		SensitiveTopics: []SensitiveTopic{
			{"sexual assault", "sexual_assault"},
			{"rape", "sexual_assault"},
			{"domestic violence", "domestic_violence"},
			{"abuse", "domestic_violence"},
			{"harassment", ""},
			{"eating disorder", "mental_health"},
			{"self-harm", "suicide"},
			{"suicide", "suicide"},
			{"abortion", ""},
			{"miscarriage", ""},
			{"fertility", ""},
			{"pregnancy loss", ""},
		},
		CrisisResources: map[string]string{
			"domestic_violence": "National Domestic Violence Hotline: 1-800-799-7233",
			"sexual_assault":    "RAINN: 1-800-656-HOPE (4673)",
			"mental_health":     "Crisis Text Line: Text HOME to 741741",
			"suicide":           "National Suicide Prevention Lifeline: 1-800-273-8255",
			"general":           "If you're experiencing an emergency, please call 911 or your local emergency number.",
		},
		PrivacySensitive: []string{
			"medical", "health", "menstruation", "gynecological",
			"reproductive", "pregnancy", "birth control",
		},
		PrivacyNote: "\n\nPlease note: This chatbot is not a substitute for professional medical advice, " +
			"and our conversation is not protected by medical privacy laws. " +
			"For health concerns, please consult with a healthcare provider.",
		InclusiveTerms: []TermAlternatives{
			// Body size terms
			{"overweight", []string{"higher weight", "larger body"}},
			{"obese", []string{"person with obesity", "higher weight"}},
			{"fat", []string{"higher weight", "larger body"}},
			// Medical terms
			{"diabetic", []string{"person with diabetes", "person living with diabetes"}},
			{"handicapped", []string{"person with a disability", "person with mobility needs"}},
			{"disabled", []string{"person with a disability", "person with accessibility needs"}},
			// Othering language
			{"normal women", []string{"typically developing women", "women without [specific condition]"}},
			{"normal body", []string{"typical body", "average body"}},
			// Gendered terms that exclude some women
			{"pregnant women", []string{"pregnant people", "people who are pregnant"}},
			{"breastfeeding", []string{"chestfeeding", "nursing", "feeding"}},
			// Mental health
			{"crazy", []string{"concerning", "unusual"}},
			{"insane", []string{"extreme", "extraordinary"}},
			// Age-related
			{"elderly women", []string{"older women", "women over X age"}},
			{"girls", []string{"women", "adults"}}, // when referring to adult women
		},
	}
}

// LoadRules reads a YAML rules file over the defaults. Lists present in the
// file replace the built-in ones; absent keys keep their defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read safety rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse safety rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate checks that patterns compile and every term has an alternative.
func (r Rules) Validate() error {
	for _, m := range r.Mitigations {
		if _, err := regexp.Compile(m.Pattern); err != nil {
			return fmt.Errorf("invalid mitigation pattern %q: %w", m.Pattern, err)
		}
	}
	for _, t := range r.InclusiveTerms {
		if t.Term == "" || len(t.Alternatives) == 0 {
			return fmt.Errorf("inclusive term %q needs at least one alternative", t.Term)
		}
	}
	for _, t := range r.SensitiveTopics {
		if t.Resource == "" {
			continue
		}
		if _, ok := r.CrisisResources[t.Resource]; !ok {
			return fmt.Errorf("sensitive topic %q references unknown resource %q", t.Term, t.Resource)
		}
	}
	return nil
}
