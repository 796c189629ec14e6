package entity

// Strength of a symptom correlation.
type Strength string

const (
	Weak     Strength = "weak"
	Moderate Strength = "moderate"
	Strong   Strength = "strong"
)

func ParseStrength(s string) (Strength, bool) {
	switch Strength(s) {
	case Weak, Moderate, Strong:
		return Strength(s), true
	}
	return "", false
}

func (s Strength) Rank() int {
	switch s {
	case Weak:
		return 1
	case Moderate:
		return 2
	case Strong:
		return 3
	default:
		return 0
	}
}

// SymptomNote is a piece of free text matched to a symptom rule. Advisory only.
type SymptomNote struct {
	RuleID    string   `json:"rule_id"`
	Matched   []string `json:"matched"`
	Fragment  string   `json:"fragment,omitempty"`
	Strength  Strength `json:"strength"`
	Statement string   `json:"statement,omitempty"`
}

// Tier orders statements inside a result.
type Tier string

const (
	TierSafety      Tier = "safety"
	TierCritical    Tier = "critical"
	TierSingle      Tier = "single"
	TierCombination Tier = "combination"
	TierCoverage    Tier = "coverage"
	TierSymptom     Tier = "symptom"
)

// Statement is one hedged sentence and the evidence that produced it.
type Statement struct {
	RuleID  string            `json:"rule_id"`
	Tier    Tier              `json:"tier"`
	Text    string            `json:"text"`
	Values  []ClassifiedValue `json:"values,omitempty"`
	Symptom *SymptomNote      `json:"symptom,omitempty"`
}

// SafetyFlag forces urgent-care messaging. Severity is always urgent.
type SafetyFlag struct {
	Trigger  string    `json:"trigger"`
	Triggers []string  `json:"triggers,omitempty"`
	Message  string    `json:"message"`
	Severity RiskLevel `json:"severity"`
}

// InterpretationResult is what the pipeline hands to the presentation layer.
type InterpretationResult struct {
	Statements       []Statement       `json:"statements"`
	OverallRiskLevel RiskLevel         `json:"overall_risk_level"`
	Values           []ClassifiedValue `json:"values"`
	Notes            []SymptomNote     `json:"notes,omitempty"`
	SafetyFlag       *SafetyFlag       `json:"safety_flag,omitempty"`
}

// Texts returns the statement texts in order.
func (r InterpretationResult) Texts() []string {
	out := make([]string, 0, len(r.Statements))
	for _, s := range r.Statements {
		out = append(out, s.Text)
	}
	return out
}
