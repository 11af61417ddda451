package safety

import (
	"asha/internal/logging"
)

// Result carries the final reply plus every analysis that shaped it.
type Result struct {
	FinalResponse string       `json:"final_response"`
	Bias          BiasReport   `json:"bias_analysis"`
	Safety        SafetyReport `json:"safety_analysis"`
	Inclusive     []Suggestion `json:"inclusive_language_analysis"`
}

// Pipeline chains bias mitigation, inclusive rewriting and guardrails.
type Pipeline struct {
	bias      *BiasMitigator
	guard     *Guardrails
	inclusive *InclusiveChecker
	threshold float64
}

// NewPipeline builds a pipeline from rules.
func NewPipeline(rules Rules) (*Pipeline, error) {
	bias, err := NewBiasMitigator(rules)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		bias:      bias,
		guard:     NewGuardrails(rules),
		inclusive: NewInclusiveChecker(rules),
		threshold: rules.MitigationThreshold,
	}, nil
}

// NewDefaultPipeline builds a pipeline from DefaultRules.
func NewDefaultPipeline() *Pipeline {
	p, err := NewPipeline(DefaultRules())
	if err != nil {
		panic(err) // built-in rules always compile
	}
	return p
}

// Process runs rawResponse through every pass:
//  1. bias detection on the raw reply
//  2. mitigation when the bias score exceeds the threshold
//  3. inclusive-language rewrite when any term is found
//  4. guardrails over the user input and processed reply
func (p *Pipeline) Process(userInput, rawResponse string) Result {
	bias := p.bias.Detect(rawResponse)

	processed := rawResponse
	if bias.Score > p.threshold {
		processed = p.bias.Mitigate(rawResponse)
		logging.SafetyDebug("Bias score %.2f > %.2f, mitigated", bias.Score, p.threshold)
	}

	suggestions := p.inclusive.Check(processed)
	if len(suggestions) > 0 {
		processed = p.inclusive.Improve(processed)
		logging.SafetyDebug("Applied %d inclusive-language rewrites", len(suggestions))
	}

	report := p.guard.Check(userInput, processed)
	if report.ContentWarningNeeded || report.PrivacyWarningNeeded {
		logging.Safety("Sensitive content: topics=%v privacy=%v", report.SensitiveTopicsDetected, report.PrivacyWarningNeeded)
	}

	return Result{
		FinalResponse: report.ModifiedResponse,
		Bias:          bias,
		Safety:        report,
		Inclusive:     suggestions,
	}
}
