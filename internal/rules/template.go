package rules

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
)

// ValueView is the template-facing form of a classified value.
type ValueView struct {
	Name           string
	Value          string
	Unit           string
	Low            string
	High           string
	Classification string
	Fallback       bool
	Known          bool
}

// TemplateData is what every rule template executes against.
type TemplateData struct {
	ValueView
	V        map[string]ValueView
	Keyword  string
	Keywords string
	Values   string
	Symptoms string
	Findings string
}

// FormatNumber prints a value without trailing zeros.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func NewValueView(cv entity.ClassifiedValue) ValueView {
	vv := ValueView{
		Name:           cv.Analyte.DisplayName(),
		Unit:           cv.Unit,
		Classification: string(cv.Classification),
		Fallback:       cv.DefaultRange,
	}
	if vv.Unit == "" {
		vv.Unit = cv.Analyte.DefaultUnit()
	}
	switch {
	case cv.Value != nil:
		vv.Value = FormatNumber(*cv.Value)
		vv.Known = true
	case cv.Label != "":
		vv.Value = cv.Label
		vv.Known = true
	}
	if cv.Range != nil {
		vv.Low = FormatNumber(cv.Range.Low)
		vv.High = FormatNumber(cv.Range.High)
	}
	return vv
}

// NewTemplateData builds the shared V map for a set of classified values.
func NewTemplateData(values []entity.ClassifiedValue) TemplateData {
	d := TemplateData{V: make(map[string]ValueView, len(values))}
	for _, a := range constants.AllAnalytes() {
		d.V[string(a)] = ValueView{Name: a.DisplayName(), Unit: a.DefaultUnit()}
	}
	for _, v := range values {
		d.V[string(v.Analyte)] = NewValueView(v)
	}
	return d
}

// For returns a copy of d focused on one value.
func (d TemplateData) For(cv entity.ClassifiedValue) TemplateData {
	d.ValueView = NewValueView(cv)
	return d
}

func compile(name, text string) (*template.Template, error) {
	return template.New(name).Option("missingkey=zero").Parse(text)
}

func execute(t *template.Template, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// sampleData exercises every field so a bad field reference fails at load time.
func sampleData() TemplateData {
	v := 1.0
	cv := entity.ClassifiedValue{
		Analyte:        constants.Hemoglobin,
		Value:          &v,
		Unit:           "g/dL",
		Classification: entity.Low,
		Range:          &entity.AppliedRange{Low: 12, High: 15},
	}
	d := NewTemplateData([]entity.ClassifiedValue{cv}).For(cv)
	d.Keyword, d.Keywords, d.Values, d.Symptoms, d.Findings = "tired", "tired", "Hemoglobin 1 g/dL", "chest pain", "a finding"
	return d
}

func hedgeMatcher(hedges []string) (*regexp.Regexp, error) {
	parts := make([]string, 0, len(hedges))
	for _, h := range hedges {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(h))
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no hedge phrases configured")
	}
	return regexp.Compile(`(?i)\b(` + strings.Join(parts, "|") + `)\b`)
}

// Render fills the rule's statement template.
func (r InterpretationRule) Render(d TemplateData) (string, error) {
	if r.tmpl == nil {
		return "", fmt.Errorf("rule %q not compiled", r.ID)
	}
	return execute(r.tmpl, d)
}

func (r SymptomRule) Render(d TemplateData) (string, error) {
	if r.tmpl == nil {
		return "", fmt.Errorf("symptom rule %q not compiled", r.ID)
	}
	return execute(r.tmpl, d)
}

func (t Trigger) Render(d TemplateData) (string, error) {
	if t.tmpl == nil {
		return "", fmt.Errorf("trigger %q not compiled", t.ID)
	}
	return execute(t.tmpl, d)
}

func (t *SafetyTable) Render(d TemplateData) (string, error) {
	if t.tmpl == nil {
		return "", fmt.Errorf("safety statement not compiled")
	}
	return execute(t.tmpl, d)
}
