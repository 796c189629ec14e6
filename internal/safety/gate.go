package safety

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
	"github.com/joseph-ayodele/lab-interpreter/internal/rules"
)

// fallbackMessage is used if the configured statement cannot be rendered. The
// flag is attached either way.
const fallbackMessage = "Some findings may need urgent medical attention. Please consider contacting a doctor or emergency services promptly. This is not a diagnosis."

// Gate is the last pipeline stage. It runs on every result and only ever adds.
type Gate struct {
	table  *rules.SafetyTable
	logger *slog.Logger
}

func New(table *rules.SafetyTable, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{table: table, logger: logger}
}

type firing struct {
	trigger rules.Trigger
	values  []entity.ClassifiedValue
	notes   []entity.SymptomNote
}

// Apply evaluates every trigger in table order. When any fires the result gets
// one SafetyFlag, an urgent risk level and an urgent statement ahead of all
// existing statements, which are kept.
func (g *Gate) Apply(res entity.InterpretationResult, values []entity.ClassifiedValue, notes []entity.SymptomNote) entity.InterpretationResult {
	var fired []firing
	for _, t := range g.table.Triggers {
		if f, ok := evaluate(t, values, notes); ok {
			fired = append(fired, f)
		}
	}
	if len(fired) == 0 {
		g.logger.Debug("safety.clear")
		return res
	}

	data := rules.NewTemplateData(values)
	findings := make([]string, 0, len(fired))
	ids := make([]string, 0, len(fired))
	var evidence []entity.ClassifiedValue
	for _, f := range fired {
		ids = append(ids, f.trigger.ID)
		d := data
		d.Values = describeValues(f.values)
		d.Symptoms = describeNotes(f.notes)
		text, err := f.trigger.Render(d)
		if err != nil {
			g.logger.Warn("safety.finding.render.failed", "trigger", f.trigger.ID, "error", err)
			text = f.trigger.ID
		}
		findings = append(findings, text)
		for _, v := range f.values {
			if !slices.ContainsFunc(evidence, func(x entity.ClassifiedValue) bool { return x.Analyte == v.Analyte }) {
				evidence = append(evidence, v)
			}
		}
	}

	data.Findings = strings.Join(findings, "; ")
	message, err := g.table.Render(data)
	if err != nil || message == "" {
		g.logger.Warn("safety.statement.render.failed", "error", err)
		message = fallbackMessage
	}

	out := res
	out.SafetyFlag = &entity.SafetyFlag{
		Trigger:  ids[0],
		Triggers: ids,
		Message:  message,
		Severity: entity.RiskUrgent,
	}
	out.OverallRiskLevel = entity.RiskUrgent
	out.Statements = make([]entity.Statement, 0, len(res.Statements)+1)
	out.Statements = append(out.Statements, entity.Statement{
		RuleID: ids[0],
		Tier:   entity.TierSafety,
		Text:   message,
		Values: evidence,
	})
	out.Statements = append(out.Statements, res.Statements...)

	g.logger.Info("safety.flagged", "triggers", ids)
	return out
}

// evaluate requires every clause present on the trigger to hold.
func evaluate(t rules.Trigger, values []entity.ClassifiedValue, notes []entity.SymptomNote) (firing, bool) {
	f := firing{trigger: t}

	if len(t.Classifications) > 0 {
		for _, v := range values {
			if !v.Analyte.Measured() || !slices.Contains(t.Classifications, v.Classification) {
				continue
			}
			if len(t.Analytes) > 0 && !slices.Contains(t.Analytes, v.Analyte) {
				continue
			}
			f.values = append(f.values, v)
		}
		if len(f.values) == 0 {
			return f, false
		}
	}

	if len(t.Conditions) > 0 {
		if !rules.MatchAll(t.Conditions, values) {
			return f, false
		}
		for _, c := range t.Conditions {
			for _, v := range values {
				if c.Match(v) && !slices.ContainsFunc(f.values, func(x entity.ClassifiedValue) bool { return x.Analyte == v.Analyte }) {
					f.values = append(f.values, v)
				}
			}
		}
	}

	if len(t.SymptomRules) > 0 {
		for _, n := range notes {
			if slices.Contains(t.SymptomRules, n.RuleID) {
				f.notes = append(f.notes, n)
			}
		}
		if len(f.notes) == 0 {
			return f, false
		}
	}

	return f, len(t.Classifications)+len(t.Conditions)+len(t.SymptomRules) > 0
}

func describeValues(values []entity.ClassifiedValue) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		vv := rules.NewValueView(v)
		parts = append(parts, strings.TrimSpace(vv.Name+" "+vv.Value+" "+vv.Unit))
	}
	return strings.Join(parts, ", ")
}

func describeNotes(notes []entity.SymptomNote) string {
	var parts []string
	for _, n := range notes {
		label := n.RuleID
		if len(n.Matched) > 0 {
			label = n.Matched[0]
		}
		if !slices.Contains(parts, label) {
			parts = append(parts, label)
		}
	}
	return strings.Join(parts, ", ")
}
