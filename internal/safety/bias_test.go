package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMitigator(t *testing.T) *BiasMitigator {
	t.Helper()
	b, err := NewBiasMitigator(DefaultRules())
	require.NoError(t, err)
	return b
}

func TestBiasDetect_CodedAndGendered(t *testing.T) {
	b := newMitigator(t)

	report := b.Detect("The engineer said he would help.")

	assert.InDelta(t, 0.35, report.Score, 1e-9)
	assert.Equal(t, []string{"Masculine-coded term: engineer"}, report.StereotypicalAssociations)
	assert.Equal(t, []string{"Potentially unnecessary gendered term: he"}, report.GenderedLanguage)
	assert.False(t, report.NeedsReview)
}

func TestBiasDetect_CountsEveryOccurrence(t *testing.T) {
	b := newMitigator(t)

	report := b.Detect("A nurse and another nurse met a teacher.")

	assert.InDelta(t, 0.6, report.Score, 1e-9)
	assert.Len(t, report.StereotypicalAssociations, 3)
	assert.True(t, report.NeedsReview)
}

func TestBiasDetect_FemaleCounterpartSuppressesPair(t *testing.T) {
	b := newMitigator(t)

	report := b.Detect("He or she can apply.")

	assert.Empty(t, report.GenderedLanguage)
	assert.Zero(t, report.Score)
}

func TestBiasDetect_UpperCaseCodedTermNeverMatches(t *testing.T) {
	b := newMitigator(t)

	report := b.Detect("Our CEO is hiring.")

	assert.Empty(t, report.StereotypicalAssociations)
}

func TestBiasDetect_Empty(t *testing.T) {
	b := newMitigator(t)

	report := b.Detect("")

	assert.Zero(t, report.Score)
	assert.NotNil(t, report.StereotypicalAssociations)
	assert.NotNil(t, report.GenderedLanguage)
}

func TestBiasMitigate(t *testing.T) {
	b := newMitigator(t)

	tests := []struct {
		in, want string
	}{
		{"The Chairman spoke of mankind.", "The chairperson|chair spoke of humanity|artificial."},
		{"Ask the businessmen.", "Ask the business professional(s)."},
		{"Call the firemen or a policeman.", "Call the firefighter(s) or a police officer(s)."},
		{"He or she should bring his or her CV.", "they should bring theirs CV."},
		{"No change here.", "No change here."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Mitigate(tt.in), tt.in)
	}
}

func TestNewBiasMitigator_BadPattern(t *testing.T) {
	rules := DefaultRules()
	rules.Mitigations = []Mitigation{{Pattern: "(", Replacement: "x"}}

	_, err := NewBiasMitigator(rules)
	assert.Error(t, err)
}
