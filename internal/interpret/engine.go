package interpret

import (
	"log/slog"
	"slices"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
	"github.com/joseph-ayodele/lab-interpreter/internal/rules"
)

// tierOrder is the fixed statement order. Symptom statements always come last.
var tierOrder = []entity.Tier{
	entity.TierCritical,
	entity.TierSingle,
	entity.TierCombination,
	entity.TierCoverage,
}

// Engine turns classified values into hedged statements. All matching rules fire.
type Engine struct {
	table  *rules.InterpretationTable
	logger *slog.Logger
}

func New(table *rules.InterpretationTable, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{table: table, logger: logger}
}

func (e *Engine) Interpret(values []entity.ClassifiedValue, notes []entity.SymptomNote) entity.InterpretationResult {
	values = canonicalOrder(values)
	data := rules.NewTemplateData(values)

	res := entity.InterpretationResult{
		OverallRiskLevel: RiskLevel(values),
		Values:           values,
		Notes:            slices.Clone(notes),
	}

	for _, tier := range tierOrder {
		for _, r := range e.table.Rules {
			if r.Tier != tier {
				continue
			}
			res.Statements = append(res.Statements, e.fire(r, values, data)...)
		}
	}

	for i := range res.Notes {
		n := res.Notes[i]
		if n.Statement == "" {
			continue
		}
		res.Statements = append(res.Statements, entity.Statement{
			RuleID:  n.RuleID,
			Tier:    entity.TierSymptom,
			Text:    n.Statement,
			Symptom: &n,
		})
	}

	e.logger.Debug("interpret.done", "statements", len(res.Statements), "risk", res.OverallRiskLevel)
	return res
}

func (e *Engine) fire(r rules.InterpretationRule, values []entity.ClassifiedValue, data rules.TemplateData) []entity.Statement {
	var out []entity.Statement
	emit := func(d rules.TemplateData, evidence []entity.ClassifiedValue) {
		text, err := r.Render(d)
		if err != nil {
			e.logger.Warn("interpret.render.failed", "rule", r.ID, "error", err)
			return
		}
		out = append(out, entity.Statement{RuleID: r.ID, Tier: r.Tier, Text: text, Values: evidence})
	}

	switch r.Scope {
	case rules.ScopeEach:
		for _, v := range values {
			if r.When[0].Match(v) {
				emit(data.For(v), []entity.ClassifiedValue{v})
			}
		}
	case rules.ScopeAll:
		if rules.MatchAll(r.When, values) {
			emit(data, evidenceFor(r.When, values))
		}
	case rules.ScopeNoneAvailable:
		if noneAvailable(values) {
			emit(data, measured(values))
		}
	}
	return out
}

// RiskLevel is the most severe band across the measured values. Symptom notes
// and demographic fields never contribute.
func RiskLevel(values []entity.ClassifiedValue) entity.RiskLevel {
	risk := entity.RiskUnavailable
	for _, v := range values {
		if v.Analyte.Measured() {
			risk = entity.MaxRisk(risk, v.Classification.Risk())
		}
	}
	return risk
}

func noneAvailable(values []entity.ClassifiedValue) bool {
	for _, v := range values {
		if v.Analyte.Measured() && v.Classification != entity.Unavailable {
			return false
		}
	}
	return true
}

func measured(values []entity.ClassifiedValue) []entity.ClassifiedValue {
	var out []entity.ClassifiedValue
	for _, v := range values {
		if v.Analyte.Measured() {
			out = append(out, v)
		}
	}
	return out
}

// evidenceFor picks, per condition, the first value that satisfied it.
func evidenceFor(conds []rules.Condition, values []entity.ClassifiedValue) []entity.ClassifiedValue {
	var out []entity.ClassifiedValue
	for _, c := range conds {
		for _, v := range values {
			if c.Match(v) {
				if !slices.ContainsFunc(out, func(x entity.ClassifiedValue) bool { return x.Analyte == v.Analyte }) {
					out = append(out, v)
				}
				break
			}
		}
	}
	return out
}

func canonicalOrder(values []entity.ClassifiedValue) []entity.ClassifiedValue {
	rank := make(map[constants.Analyte]int)
	for i, a := range constants.AllAnalytes() {
		rank[a] = i
	}
	out := slices.Clone(values)
	slices.SortStableFunc(out, func(a, b entity.ClassifiedValue) int {
		return rank[a.Analyte] - rank[b.Analyte]
	})
	return out
}
