package entity

import (
	"github.com/joseph-ayodele/lab-interpreter/constants"
)

// Demographics read from the same document as the lab values.
// A nil Age means unknown.
type Demographics struct {
	Age    *int                  `json:"age,omitempty"`
	Gender constants.GenderValue `json:"gender"`
}

// LabValue is one parsed field. A nil Value is a valid unresolved state.
type LabValue struct {
	Analyte  constants.Analyte `json:"analyte"`
	Value    *float64          `json:"value,omitempty"`
	Unit     string            `json:"unit,omitempty"`
	Evidence string            `json:"evidence,omitempty"`
}

func (v LabValue) Known() bool { return v.Value != nil }

// Classification is the severity band a value falls in.
type Classification string

const (
	CriticalLow  Classification = "critical_low"
	Low          Classification = "low"
	Normal       Classification = "normal"
	High         Classification = "high"
	CriticalHigh Classification = "critical_high"
	Unavailable  Classification = "unavailable"
)

var classifications = []Classification{CriticalLow, Low, Normal, High, CriticalHigh, Unavailable}

func ParseClassification(s string) (Classification, bool) {
	for _, c := range classifications {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

func (c Classification) Critical() bool { return c == CriticalLow || c == CriticalHigh }

// Abnormal is true for any band outside normal, critical included.
func (c Classification) Abnormal() bool {
	return c == CriticalLow || c == Low || c == High || c == CriticalHigh
}

// Risk maps a classification onto the overall risk scale.
func (c Classification) Risk() RiskLevel {
	switch c {
	case CriticalLow, CriticalHigh:
		return RiskCritical
	case Low, High:
		return RiskAbnormal
	case Normal:
		return RiskNormal
	default:
		return RiskUnavailable
	}
}

// AppliedRange records the bounds a value was compared against.
type AppliedRange struct {
	ID           string   `json:"id"`
	Low          float64  `json:"low"`
	High         float64  `json:"high"`
	CriticalLow  *float64 `json:"critical_low,omitempty"`
	CriticalHigh *float64 `json:"critical_high,omitempty"`
	Unit         string   `json:"unit,omitempty"`
}

// ClassifiedValue is a LabValue placed in a severity band.
// Classification is Unavailable iff Value is nil or no range applied.
type ClassifiedValue struct {
	Analyte        constants.Analyte `json:"analyte"`
	Value          *float64          `json:"value,omitempty"`
	Label          string            `json:"label,omitempty"`
	Unit           string            `json:"unit,omitempty"`
	Classification Classification    `json:"classification"`
	Range          *AppliedRange     `json:"range,omitempty"`
	DefaultRange   bool              `json:"default_range,omitempty"`
}

// RiskLevel summarizes a result. Ordered by Rank.
type RiskLevel string

const (
	RiskUnavailable RiskLevel = "unavailable"
	RiskNormal      RiskLevel = "normal"
	RiskAbnormal    RiskLevel = "abnormal"
	RiskCritical    RiskLevel = "critical"
	RiskUrgent      RiskLevel = "urgent"
)

func (r RiskLevel) Rank() int {
	switch r {
	case RiskNormal:
		return 1
	case RiskAbnormal:
		return 2
	case RiskCritical:
		return 3
	case RiskUrgent:
		return 4
	default:
		return 0
	}
}

// MaxRisk returns the more severe of a and b.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	if a == "" {
		return RiskUnavailable
	}
	return a
}
