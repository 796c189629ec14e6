// Package navigation maps a result's risk level and safety flag to static
// care-navigation guidance. It reads nothing else from the result.
package navigation

import (
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
)

const (
	firstStep = "A good first step for most questions about lab results is to speak with a general physician or primary care clinician, who can review the full report alongside your symptoms and history."
	urgent    = "Some findings may need urgent attention. Emergency or urgent-care services are more appropriate than routine appointments or online tools; if symptoms are happening now, please contact them promptly."
	symptoms  = "A short written summary of your main symptoms, when they started and what makes them better or worse may help your clinician."
	questions = "You may consider asking your doctor:\n- How do these results fit with my symptoms and overall health?\n- Are any additional tests or follow-up worth doing?\n- Is there anything I can monitor at home in the meantime?"
)

// byRisk holds the line specific to each risk level.
var byRisk = map[entity.RiskLevel]string{
	entity.RiskUnavailable: "The values could not be read reliably. It may help to share the original report directly with a clinician.",
	entity.RiskNormal:      "The values that could be read appear to be within their reference ranges; a routine check-in may still be worthwhile if you have concerns.",
	entity.RiskAbnormal:    "Because at least one value is outside its usual reference range, it may be reasonable to book a non-urgent appointment to discuss these results.",
	entity.RiskCritical:    "At least one value is far outside its reference range, so it may be sensible to contact a clinician soon rather than wait for a routine appointment.",
	entity.RiskUrgent:      urgent,
}

// Guide returns guidance lines in display order.
func Guide(risk entity.RiskLevel, flag *entity.SafetyFlag, symptomsSupplied bool) []string {
	var lines []string
	if flag != nil {
		lines = append(lines, urgent)
	} else {
		lines = append(lines, firstStep)
		if l, ok := byRisk[risk]; ok {
			lines = append(lines, l)
		}
	}
	if symptomsSupplied {
		lines = append(lines, symptoms)
	}
	return append(lines, questions)
}

// ForResult is Guide over the two fields of a result it is allowed to read.
func ForResult(res entity.InterpretationResult, symptomsSupplied bool) []string {
	return Guide(res.OverallRiskLevel, res.SafetyFlag, symptomsSupplied)
}
