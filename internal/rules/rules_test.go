package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/common"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
)

func f(v float64) *float64 { return &v }

func TestDefault_Loads(t *testing.T) {
	set, err := Default()
	require.NoError(t, err)

	assert.Len(t, set.Ranges.Ranges, 8)
	assert.NotEmpty(t, set.Symptoms.Rules)
	assert.NotEmpty(t, set.Interpretation.Rules)
	assert.Len(t, set.Safety.Triggers, 3)

	for _, r := range set.Interpretation.Rules {
		assert.NotNil(t, r.tmpl, r.ID)
	}
	_, ok := set.Symptoms.Rule("no-specific-link")
	assert.True(t, ok)
}

func TestParseRanges_RejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"overlapping brackets": `{"version":1,"boundaries":{"normal":"inclusive","critical":"inclusive"},"ranges":[
			{"id":"a","analyte":"hemoglobin","gender":"male","age_min":18,"age_max":65,"low":13,"high":17},
			{"id":"b","analyte":"hemoglobin","gender":"male","age_min":60,"age_max":120,"low":12,"high":16}]}`,
		"low above high": `{"version":1,"boundaries":{"normal":"inclusive","critical":"inclusive"},"ranges":[
			{"id":"a","analyte":"mcv","gender":"any","low":100,"high":80}]}`,
		"critical inside normal": `{"version":1,"boundaries":{"normal":"inclusive","critical":"inclusive"},"ranges":[
			{"id":"a","analyte":"mcv","gender":"any","low":80,"high":100,"critical_low":85}]}`,
		"two defaults": `{"version":1,"boundaries":{"normal":"inclusive","critical":"inclusive"},"ranges":[
			{"id":"a","analyte":"mch","gender":"any","low":27,"high":33},
			{"id":"b","analyte":"mch","gender":"any","low":26,"high":34}]}`,
		"half open bracket": `{"version":1,"boundaries":{"normal":"inclusive","critical":"inclusive"},"ranges":[
			{"id":"a","analyte":"mch","gender":"any","age_min":5,"low":27,"high":33}]}`,
		"duplicate id": `{"version":1,"boundaries":{"normal":"inclusive","critical":"inclusive"},"ranges":[
			{"id":"a","analyte":"mch","gender":"any","low":27,"high":33},
			{"id":"a","analyte":"mchc","gender":"any","low":32,"high":36}]}`,
		"unknown field": `{"version":1,"boundaries":{"normal":"inclusive","critical":"inclusive"},"ranges":[
			{"id":"a","analyte":"mch","gender":"any","low":27,"high":33,"lower":1}]}`,
		"bad boundary": `{"version":1,"boundaries":{"normal":"closed","critical":"inclusive"},"ranges":[
			{"id":"a","analyte":"mch","gender":"any","low":27,"high":33}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRanges([]byte(doc), "test")
			require.Error(t, err)
			assert.True(t, common.IsConfigError(err), "want config error, got %v", err)
		})
	}
}

func TestParseRanges_DefaultPerUnit(t *testing.T) {
	doc := `{"version":1,"boundaries":{"normal":"inclusive","critical":"inclusive"},"ranges":[
		{"id":"hb-gdl","analyte":"hemoglobin","gender":"any","low":12,"high":17,"unit":"g/dL"},
		{"id":"hb-gl","analyte":"hemoglobin","gender":"any","low":120,"high":170,"unit":"g/L"}]}`

	table, err := ParseRanges([]byte(doc), "test")
	require.NoError(t, err)
	assert.Len(t, table.Ranges, 2)
}

func TestParseRanges_AdjacentBracketsAllowed(t *testing.T) {
	doc := `{"version":1,"boundaries":{"normal":"inclusive","critical":"exclusive"},"ranges":[
		{"id":"a","analyte":"hemoglobin","gender":"female","age_min":18,"age_max":64,"low":12,"high":15},
		{"id":"b","analyte":"hemoglobin","gender":"female","age_min":65,"age_max":120,"low":11.5,"high":15,
		 "boundaries":{"normal":"exclusive"}}]}`
	tbl, err := ParseRanges([]byte(doc), "test")
	require.NoError(t, err)

	p := tbl.PolicyFor(tbl.Ranges[1])
	assert.Equal(t, Exclusive, p.Normal)
	assert.Equal(t, Exclusive, p.Critical)
	assert.Equal(t, Inclusive, tbl.PolicyFor(tbl.Ranges[0]).Normal)
}

func TestParseInterpretation_Validation(t *testing.T) {
	cases := map[string]string{
		"missing hedge": `{"version":1,"hedges":["may"],"rules":[
			{"id":"r","tier":"single","scope":"each","when":[{"analyte":"*","classifications":["low"]}],
			 "template":"{{.Name}} is low."}]}`,
		"unknown template field": `{"version":1,"hedges":["may"],"rules":[
			{"id":"r","tier":"single","scope":"each","when":[{"analyte":"*","classifications":["low"]}],
			 "template":"{{.Nope}} may be low."}]}`,
		"broken template": `{"version":1,"hedges":["may"],"rules":[
			{"id":"r","tier":"single","scope":"each","when":[{"analyte":"*","classifications":["low"]}],
			 "template":"{{.Name may be low."}]}`,
		"wildcard in all scope": `{"version":1,"hedges":["may"],"rules":[
			{"id":"r","tier":"combination","scope":"all","when":[{"analyte":"*","classifications":["low"]}],
			 "template":"This may matter."}]}`,
		"each without condition": `{"version":1,"hedges":["may"],"rules":[
			{"id":"r","tier":"single","scope":"each","template":"This may matter."}]}`,
		"unknown tier": `{"version":1,"hedges":["may"],"rules":[
			{"id":"r","tier":"safety","scope":"none_available","template":"This may matter."}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseInterpretation([]byte(doc), "test")
			require.Error(t, err)
			assert.True(t, common.IsConfigError(err))
		})
	}
}

func TestHedgeMatcher_WordBoundaries(t *testing.T) {
	re, err := hedgeMatcher([]string{"may", "not a diagnosis"})
	require.NoError(t, err)

	assert.True(t, re.MatchString("This May help."))
	assert.True(t, re.MatchString("This is not a diagnosis."))
	assert.False(t, re.MatchString("Results from mayday."))

	_, err = hedgeMatcher(nil)
	assert.Error(t, err)

	_, err = hedgeMatcher([]string{" ", "", "\t"})
	assert.Error(t, err)
}

func TestParseInterpretation_BlankHedgeRejected(t *testing.T) {
	doc := `{"version":1,"hedges":[" "],"rules":[
		{"id":"hb-low","tier":"single","scope":"each","when":[{"analyte":"hemoglobin","classifications":["low"]}],
		 "template":"{{.Name}} is low. You have anemia."}]}`

	_, err := ParseInterpretation([]byte(doc), "test")
	require.Error(t, err)
	assert.True(t, common.IsConfigError(err))
}

func writeTable(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_UnknownSymptomRuleReference(t *testing.T) {
	safety := writeTable(t, "safety.json", `{"version":1,
		"statement":"This may need urgent attention: {{.Findings}}.",
		"triggers":[
			{"id":"critical","classifications":["critical_low","critical_high"],"finding":"{{.Values}}"},
			{"id":"x","symptom_rules":["no-such-rule"],"finding":"something"}]}`)

	_, err := Load(Paths{Safety: safety}, nil)
	require.Error(t, err)
	assert.True(t, common.IsConfigError(err))
	assert.Contains(t, err.Error(), "no-such-rule")
}

func TestLoad_UnhedgedSafetyStatement(t *testing.T) {
	safety := writeTable(t, "safety.json", `{"version":1,
		"statement":"Go to hospital: {{.Findings}}.",
		"triggers":[{"id":"x","classifications":["critical_low","critical_high"],"finding":"something"}]}`)

	_, err := Load(Paths{Safety: safety}, nil)
	require.Error(t, err)
	assert.True(t, common.IsConfigError(err))
}

func TestParseSafety_RequiresCriticalValueTrigger(t *testing.T) {
	cases := map[string]string{
		"symptom trigger only": `{"version":1,"statement":"This may need urgent attention: {{.Findings}}.",
			"triggers":[{"id":"red-flag-symptom","symptom_rules":["red-flag-chest-pain"],"finding":"reported {{.Symptoms}}"}]}`,
		"critical low only": `{"version":1,"statement":"This may need urgent attention: {{.Findings}}.",
			"triggers":[{"id":"c","classifications":["critical_low"],"finding":"{{.Values}}"}]}`,
		"narrowed to one analyte": `{"version":1,"statement":"This may need urgent attention: {{.Findings}}.",
			"triggers":[{"id":"c","classifications":["critical_low","critical_high"],"analytes":["hemoglobin"],"finding":"{{.Values}}"}]}`,
		"narrowed by a condition": `{"version":1,"statement":"This may need urgent attention: {{.Findings}}.",
			"triggers":[{"id":"c","classifications":["critical_low","critical_high"],
				"conditions":[{"analyte":"hemoglobin","below":5}],"finding":"{{.Values}}"}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSafety([]byte(doc), "test")
			require.Error(t, err)
			assert.True(t, common.IsConfigError(err))
			assert.Contains(t, err.Error(), "critical_low and critical_high")
		})
	}

	ok := `{"version":1,"statement":"This may need urgent attention: {{.Findings}}.",
		"triggers":[{"id":"c","classifications":["critical_high","critical_low"],"finding":"{{.Values}}"}]}`
	_, err := ParseSafety([]byte(ok), "test")
	require.NoError(t, err)
}

func TestLoad_MissingOverrideFile(t *testing.T) {
	_, err := Load(Paths{Ranges: filepath.Join(t.TempDir(), "absent.json")}, nil)
	require.Error(t, err)
	assert.True(t, common.IsConfigError(err))
}

func TestCondition_Match(t *testing.T) {
	hb := entity.ClassifiedValue{Analyte: constants.Hemoglobin, Value: f(7.5), Classification: entity.Low}
	age := entity.ClassifiedValue{Analyte: constants.Age, Classification: entity.Unavailable}

	assert.True(t, Condition{Analyte: Wildcard, Classifications: []entity.Classification{entity.Low}}.Match(hb))
	assert.False(t, Condition{Analyte: Wildcard, Classifications: []entity.Classification{entity.Unavailable}}.Match(age),
		"wildcard only covers measured analytes")
	assert.True(t, Condition{Analyte: "age", Classifications: []entity.Classification{entity.Unavailable}}.Match(age))
	assert.True(t, Condition{Analyte: "hemoglobin", Below: f(8)}.Match(hb))
	assert.False(t, Condition{Analyte: "hemoglobin", Below: f(7.5)}.Match(hb), "below is strict")
	assert.False(t, Condition{Analyte: "hemoglobin", Above: f(1)}.Match(entity.ClassifiedValue{Analyte: constants.Hemoglobin}))

	mcv := entity.ClassifiedValue{Analyte: constants.MCV, Value: f(70), Classification: entity.Low}
	conds := []Condition{
		{Analyte: "hemoglobin", Classifications: []entity.Classification{entity.Low, entity.CriticalLow}},
		{Analyte: "mcv", Classifications: []entity.Classification{entity.Low}},
	}
	assert.True(t, MatchAll(conds, []entity.ClassifiedValue{hb, mcv}))
	assert.False(t, MatchAll(conds, []entity.ClassifiedValue{hb}))
	assert.True(t, AnyAbnormal([]entity.ClassifiedValue{age, hb}))
}

func TestEscalation_Applies(t *testing.T) {
	e := Escalation{Analyte: constants.Hemoglobin, Below: f(8), Strength: entity.Strong}
	assert.True(t, e.Applies([]entity.ClassifiedValue{{Analyte: constants.Hemoglobin, Value: f(6)}}))
	assert.False(t, e.Applies([]entity.ClassifiedValue{{Analyte: constants.Hemoglobin, Value: f(8)}}))
	assert.False(t, e.Applies(nil))
}

func TestRender_DefaultTemplates(t *testing.T) {
	set, err := Default()
	require.NoError(t, err)

	hb := entity.ClassifiedValue{
		Analyte: constants.Hemoglobin, Value: f(10.5), Unit: "g/dL", Classification: entity.Low,
		Range: &entity.AppliedRange{ID: "hb-default", Low: 12, High: 17}, DefaultRange: true,
	}
	d := NewTemplateData([]entity.ClassifiedValue{hb})

	var low InterpretationRule
	for _, r := range set.Interpretation.Rules {
		if r.ID == "single-low" {
			low = r
		}
	}
	text, err := low.Render(d.For(hb))
	require.NoError(t, err)
	assert.Equal(t, "Hemoglobin is 10.5 g/dL, below the reference range of 12-17 g/dL (a general range, because age or gender could not be read). This may be worth discussing with a clinician.", text)

	_, err = InterpretationRule{ID: "raw"}.Render(d)
	assert.Error(t, err)
}
