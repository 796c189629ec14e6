package rules

import (
	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
)

// Wildcard matches any measured analyte in a condition.
const Wildcard = "*"

// AppliesTo reports whether the condition targets analyte a.
func (c Condition) AppliesTo(a constants.Analyte) bool {
	if c.Analyte == Wildcard {
		return a.Measured()
	}
	return constants.Analyte(c.Analyte) == a
}

// Match tests one classified value. Threshold clauses need a known value.
func (c Condition) Match(v entity.ClassifiedValue) bool {
	if !c.AppliesTo(v.Analyte) {
		return false
	}
	if len(c.Classifications) > 0 && !hasClassification(c.Classifications, v.Classification) {
		return false
	}
	if c.Below != nil && (v.Value == nil || !(*v.Value < *c.Below)) {
		return false
	}
	if c.Above != nil && (v.Value == nil || !(*v.Value > *c.Above)) {
		return false
	}
	return true
}

// MatchAny reports whether some value satisfies c.
func (c Condition) MatchAny(values []entity.ClassifiedValue) bool {
	for _, v := range values {
		if c.Match(v) {
			return true
		}
	}
	return false
}

// MatchAll reports whether every condition is satisfied by some value.
func MatchAll(conds []Condition, values []entity.ClassifiedValue) bool {
	for _, c := range conds {
		if !c.MatchAny(values) {
			return false
		}
	}
	return true
}

// AnyAbnormal reports whether any measured value is outside the normal band.
func AnyAbnormal(values []entity.ClassifiedValue) bool {
	for _, v := range values {
		if v.Analyte.Measured() && v.Classification.Abnormal() {
			return true
		}
	}
	return false
}

// Find returns the classified value for analyte a.
func Find(values []entity.ClassifiedValue, a constants.Analyte) (entity.ClassifiedValue, bool) {
	for _, v := range values {
		if v.Analyte == a {
			return v, true
		}
	}
	return entity.ClassifiedValue{}, false
}

// Applies reports whether the escalation threshold is crossed.
func (e Escalation) Applies(values []entity.ClassifiedValue) bool {
	v, ok := Find(values, e.Analyte)
	if !ok || v.Value == nil {
		return false
	}
	if e.Below != nil && !(*v.Value < *e.Below) {
		return false
	}
	if e.Above != nil && !(*v.Value > *e.Above) {
		return false
	}
	return e.Below != nil || e.Above != nil
}

func hasClassification(list []entity.Classification, c entity.Classification) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}
