package safety

import "strings"

// SafetyReport is the result of Guardrails.Check.
type SafetyReport struct {
	SensitiveTopicsDetected []string `json:"sensitive_topics_detected"`
	PrivacyWarningNeeded    bool     `json:"privacy_warning_needed"`
	CrisisResources         []string `json:"crisis_resources"`
	ContentWarningNeeded    bool     `json:"content_warning_needed"`
	ModifiedResponse        string   `json:"modified_response"`
}

// Guardrails flags sensitive topics and appends support resources and a
// privacy disclaimer to replies.
type Guardrails struct {
	topics      []SensitiveTopic
	resources   map[string]string
	privacy     []string
	privacyNote string
}

// NewGuardrails creates Guardrails from rules.
func NewGuardrails(rules Rules) *Guardrails {
	return &Guardrails{
		topics:      rules.SensitiveTopics,
		resources:   rules.CrisisResources,
		privacy:     rules.PrivacySensitive,
		privacyNote: rules.PrivacyNote,
	}
}

// Check scans the user input and reply together. Topics are substring
// matches in list order; a resource repeats when several topics share it.
func (g *Guardrails) Check(userInput, response string) SafetyReport {
	report := SafetyReport{
		SensitiveTopicsDetected: []string{},
		CrisisResources:         []string{},
		ModifiedResponse:        response,
	}

	combined := strings.ToLower(userInput + " " + response)

	for _, topic := range g.topics {
		if !strings.Contains(combined, topic.Term) {
			continue
		}
		report.SensitiveTopicsDetected = append(report.SensitiveTopicsDetected, topic.Term)
		report.ContentWarningNeeded = true
		if res, ok := g.resources[topic.Resource]; ok && topic.Resource != "" {
			report.CrisisResources = append(report.CrisisResources, res)
		}
	}

	for _, term := range g.privacy {
		if strings.Contains(combined, term) {
			report.PrivacyWarningNeeded = true
			break
		}
	}

	if report.PrivacyWarningNeeded {
		report.ModifiedResponse += g.privacyNote
	}
	if len(report.CrisisResources) > 0 {
		report.ModifiedResponse += "\n\nSupport resources:\n" + strings.Join(report.CrisisResources, "\n")
	}
	return report
}
