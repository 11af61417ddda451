package safety

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_RewritesNonInclusiveReply(t *testing.T) {
	p := NewDefaultPipeline()

	res := p.Process(
		"I've been experiencing severe depression lately.",
		"Many girls feel down sometimes. You should try to be more positive and not act crazy about it. Normal women can handle these emotions better.",
	)

	assert.Equal(t,
		"Many women feel down sometimes. You should try to be more positive and not act concerning about it. Typically developing women can handle these emotions better.",
		res.FinalResponse)
	assert.Zero(t, res.Bias.Score)
	require.Len(t, res.Inclusive, 3)
	assert.Empty(t, res.Safety.SensitiveTopicsDetected)
}

func TestPipeline_MitigatesAboveThreshold(t *testing.T) {
	p := NewDefaultPipeline()

	// engineer + programmer = 0.4 > 0.3
	res := p.Process("career?", "Ask an engineer or programmer, or the chairman.")

	assert.InDelta(t, 0.4, res.Bias.Score, 1e-9)
	assert.Equal(t, "Ask an engineer or programmer, or the chairperson|chair.", res.FinalResponse)
}

func TestPipeline_NoMitigationAtOrBelowThreshold(t *testing.T) {
	p := NewDefaultPipeline()

	res := p.Process("career?", "Ask the chairman.")

	assert.Equal(t, "Ask the chairman.", res.FinalResponse)
}

func TestPipeline_GuardrailsSeeProcessedReply(t *testing.T) {
	p := NewDefaultPipeline()

	res := p.Process("dealing with domestic violence", "You are not alone.")

	assert.Contains(t, res.FinalResponse, "Support resources:")
	assert.Equal(t, []string{"domestic violence"}, res.Safety.SensitiveTopicsDetected)
}

func TestLoadRules_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	yaml := `
inclusive_terms:
  - term: rockstar
    alternatives: [skilled professional]
mitigation_threshold: 0.1
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Len(t, rules.InclusiveTerms, 1)
	assert.InDelta(t, 0.1, rules.MitigationThreshold, 1e-9)
	assert.Equal(t, DefaultRules().SensitiveTopics, rules.SensitiveTopics)

	p, err := NewPipeline(rules)
	require.NoError(t, err)
	assert.Equal(t, "Hire a skilled professional.", p.Process("", "Hire a rockstar.").FinalResponse)
}

func TestLoadRules_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sensitive_topics:\n  - term: x\n    resource: nope\n"), 0o644))

	_, err := LoadRules(path)
	assert.Error(t, err)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRules_EmptyPathIsDefault(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}
