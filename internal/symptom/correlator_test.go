package symptom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
	"github.com/joseph-ayodele/lab-interpreter/internal/rules"
)

func f(v float64) *float64 { return &v }

func newCorrelator(t *testing.T) *Correlator {
	t.Helper()
	set, err := rules.Default()
	require.NoError(t, err)
	return New(set.Symptoms, nil)
}

func values(hb float64, hbClass entity.Classification, mcvClass entity.Classification) []entity.ClassifiedValue {
	return []entity.ClassifiedValue{
		{Analyte: constants.Hemoglobin, Value: f(hb), Unit: "g/dL", Classification: hbClass},
		{Analyte: constants.MCV, Value: f(88), Unit: "fL", Classification: mcvClass},
		{Analyte: constants.MCH, Classification: entity.Unavailable},
		{Analyte: constants.MCHC, Classification: entity.Unavailable},
		{Analyte: constants.Age, Classification: entity.Unavailable},
		{Analyte: constants.Gender, Classification: entity.Unavailable},
	}
}

func ruleIDs(notes []entity.SymptomNote) []string {
	ids := make([]string, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.RuleID)
	}
	return ids
}

func TestCorrelate_EmptyText(t *testing.T) {
	c := newCorrelator(t)
	assert.Empty(t, c.Correlate("", values(10, entity.Low, entity.Normal)))
	assert.Empty(t, c.Correlate("   \n ", values(10, entity.Low, entity.Normal)))
}

func TestCorrelate_FatigueWithLowHemoglobin(t *testing.T) {
	c := newCorrelator(t)
	notes := c.Correlate("I have been very tired lately. My knee is fine.", values(10, entity.Low, entity.Normal))

	require.Len(t, notes, 1)
	n := notes[0]
	assert.Equal(t, "fatigue-low-hb", n.RuleID)
	assert.Equal(t, entity.Moderate, n.Strength)
	assert.Equal(t, []string{"tired"}, n.Matched)
	assert.Equal(t, "I have been very tired lately", n.Fragment)
	assert.Contains(t, n.Statement, "hemoglobin value of 10 g/dL")
}

func TestCorrelate_EscalatesBelowThreshold(t *testing.T) {
	c := newCorrelator(t)
	notes := c.Correlate("constant exhaustion", values(6.5, entity.CriticalLow, entity.Low))

	require.Len(t, notes, 1)
	assert.Equal(t, "fatigue-low-hb", notes[0].RuleID)
	assert.Equal(t, entity.Strong, notes[0].Strength)
}

func TestCorrelate_FatigueFallsThroughGroup(t *testing.T) {
	c := newCorrelator(t)

	notes := c.Correlate("feeling weak", values(13.5, entity.Normal, entity.Low))
	assert.Equal(t, []string{"fatigue-other-abnormal"}, ruleIDs(notes))
	assert.Equal(t, entity.Weak, notes[0].Strength)

	notes = c.Correlate("feeling weak", values(13.5, entity.Normal, entity.Normal))
	assert.Equal(t, []string{"fatigue-unlinked"}, ruleIDs(notes))
}

func TestCorrelate_WordBoundaries(t *testing.T) {
	c := newCorrelator(t)
	notes := c.Correlate("weakness and feeling light   headed", values(10, entity.Low, entity.Normal))

	assert.Equal(t, []string{"fatigue-low-hb", "dizziness-low-hb"}, ruleIDs(notes))
	assert.Equal(t, []string{"weakness"}, notes[0].Matched)
}

func TestCorrelate_RedFlags(t *testing.T) {
	c := newCorrelator(t)
	notes := c.Correlate("Sudden chest pain this morning, and I passed out yesterday", values(13.5, entity.Normal, entity.Normal))

	assert.Equal(t, []string{"red-flag-chest-pain", "red-flag-fainting"}, ruleIDs(notes))
	for _, n := range notes {
		assert.Equal(t, entity.Strong, n.Strength)
		assert.NotEmpty(t, n.Statement)
	}
}

func TestCorrelate_BreathlessNeedsAbnormalValue(t *testing.T) {
	c := newCorrelator(t)

	notes := c.Correlate("I get out of breath on stairs", values(7.5, entity.Low, entity.Normal))
	require.Equal(t, []string{"breathless-exertion-low-hb"}, ruleIDs(notes))
	assert.Equal(t, entity.Strong, notes[0].Strength)

	notes = c.Correlate("I get out of breath on stairs", values(14, entity.Normal, entity.Normal))
	assert.Equal(t, []string{"no-specific-link"}, ruleIDs(notes))
}

func TestCorrelate_Fallback(t *testing.T) {
	c := newCorrelator(t)
	notes := c.Correlate("my knee hurts", values(10, entity.Low, entity.Normal))

	require.Len(t, notes, 1)
	assert.Equal(t, "no-specific-link", notes[0].RuleID)
	assert.Empty(t, notes[0].Matched)
	assert.Equal(t, entity.Weak, notes[0].Strength)
}

func TestFragment(t *testing.T) {
	text := "First part. Second part has it; third"
	assert.Equal(t, "Second part has it", fragment(text, 12))
	assert.Equal(t, "", fragment(text, -1))
	assert.Equal(t, "third", fragment(text, len(text)-2))
}
