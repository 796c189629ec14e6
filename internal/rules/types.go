package rules

import (
	"text/template"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
)

// Boundary says whether a bound value belongs to the band it denotes.
type Boundary string

const (
	Inclusive Boundary = "inclusive"
	Exclusive Boundary = "exclusive"
)

// BoundaryPolicy is owned by the range table; rows may override it.
type BoundaryPolicy struct {
	Normal   Boundary `json:"normal,omitempty"`
	Critical Boundary `json:"critical,omitempty"`
}

// ReferenceRange is one row of the range table. A row with gender "any" and no
// age bounds is the demographics-agnostic default for its analyte.
type ReferenceRange struct {
	ID           string                `json:"id"`
	Analyte      constants.Analyte     `json:"analyte"`
	Gender       constants.GenderValue `json:"gender"`
	AgeMin       *int                  `json:"age_min,omitempty"`
	AgeMax       *int                  `json:"age_max,omitempty"`
	Low          float64               `json:"low"`
	High         float64               `json:"high"`
	CriticalLow  *float64              `json:"critical_low,omitempty"`
	CriticalHigh *float64              `json:"critical_high,omitempty"`
	Unit         string                `json:"unit,omitempty"`
	Boundaries   *BoundaryPolicy       `json:"boundaries,omitempty"`
}

func (r ReferenceRange) IsDefault() bool {
	return r.Gender == constants.GenderAny && r.AgeMin == nil && r.AgeMax == nil
}

// ContainsAge reports whether age falls in the row's closed age bracket.
func (r ReferenceRange) ContainsAge(age int) bool {
	if r.AgeMin == nil || r.AgeMax == nil {
		return false
	}
	return age >= *r.AgeMin && age <= *r.AgeMax
}

type RangeTable struct {
	Version    int              `json:"version"`
	Boundaries BoundaryPolicy   `json:"boundaries"`
	Ranges     []ReferenceRange `json:"ranges"`
}

// PolicyFor resolves the boundary policy for a row.
func (t *RangeTable) PolicyFor(r ReferenceRange) BoundaryPolicy {
	p := t.Boundaries
	if r.Boundaries != nil {
		if r.Boundaries.Normal != "" {
			p.Normal = r.Boundaries.Normal
		}
		if r.Boundaries.Critical != "" {
			p.Critical = r.Boundaries.Critical
		}
	}
	return p
}

// Condition matches one classified value.
type Condition struct {
	Analyte         string                  `json:"analyte"` // "*" means any measured analyte
	Classifications []entity.Classification `json:"classifications,omitempty"`
	Below           *float64                `json:"below,omitempty"`
	Above           *float64                `json:"above,omitempty"`
}

// Escalation raises a symptom note's strength when a value crosses a threshold.
type Escalation struct {
	Analyte  constants.Analyte `json:"analyte"`
	Below    *float64          `json:"below,omitempty"`
	Above    *float64          `json:"above,omitempty"`
	Strength entity.Strength   `json:"strength"`
}

type SymptomRule struct {
	ID              string          `json:"id"`
	Group           string          `json:"group,omitempty"`
	Keywords        []string        `json:"keywords,omitempty"`
	Strength        entity.Strength `json:"strength"`
	Conditions      []Condition     `json:"conditions,omitempty"`
	RequireAbnormal bool            `json:"require_abnormal,omitempty"`
	Escalate        []Escalation    `json:"escalate,omitempty"`
	Fallback        bool            `json:"fallback,omitempty"`
	Statement       string          `json:"statement"`

	tmpl *template.Template
}

type SymptomTable struct {
	Version int           `json:"version"`
	Rules   []SymptomRule `json:"rules"`
}

// Rule looks a symptom rule up by id.
func (t *SymptomTable) Rule(id string) (SymptomRule, bool) {
	for _, r := range t.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return SymptomRule{}, false
}

// Scope says how an interpretation rule's conditions are applied.
type Scope string

const (
	// ScopeEach fires once per value matching the single condition.
	ScopeEach Scope = "each"
	// ScopeAll fires once when every condition holds.
	ScopeAll Scope = "all"
	// ScopeNoneAvailable fires when no measured value could be classified.
	ScopeNoneAvailable Scope = "none_available"
)

type InterpretationRule struct {
	ID       string      `json:"id"`
	Tier     entity.Tier `json:"tier"`
	Scope    Scope       `json:"scope"`
	When     []Condition `json:"when,omitempty"`
	Template string      `json:"template"`

	tmpl *template.Template
}

type InterpretationTable struct {
	Version int                  `json:"version"`
	Hedges  []string             `json:"hedges"`
	Rules   []InterpretationRule `json:"rules"`
}

// Trigger is one red-flag condition. Every clause present must hold.
type Trigger struct {
	ID              string                  `json:"id"`
	Classifications []entity.Classification `json:"classifications,omitempty"`
	Analytes        []constants.Analyte     `json:"analytes,omitempty"`
	Conditions      []Condition             `json:"conditions,omitempty"`
	SymptomRules    []string                `json:"symptom_rules,omitempty"`
	Finding         string                  `json:"finding"`

	tmpl *template.Template
}

type SafetyTable struct {
	Version   int       `json:"version"`
	Statement string    `json:"statement"`
	Triggers  []Trigger `json:"triggers"`

	tmpl *template.Template
}

// Set is the validated, read-only bundle of all four tables. Safe for concurrent reads.
type Set struct {
	Ranges         *RangeTable
	Symptoms       *SymptomTable
	Interpretation *InterpretationTable
	Safety         *SafetyTable
}
