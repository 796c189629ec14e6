package constants

import (
	"strings"
)

// Analyte is one of the six fields read from a lab report.
type Analyte string

const (
	Hemoglobin Analyte = "hemoglobin"
	MCV        Analyte = "mcv"
	MCH        Analyte = "mch"
	MCHC       Analyte = "mchc"
	Age        Analyte = "age"
	Gender     Analyte = "gender"
)

// measuredAnalytes are the blood indices in canonical order.
var measuredAnalytes = []Analyte{Hemoglobin, MCV, MCH, MCHC}

var allAnalytes = []Analyte{Hemoglobin, MCV, MCH, MCHC, Age, Gender}

// MeasuredAnalytes returns the blood indices in canonical order.
func MeasuredAnalytes() []Analyte {
	out := make([]Analyte, len(measuredAnalytes))
	copy(out, measuredAnalytes)
	return out
}

// AllAnalytes returns every recognized field in canonical order.
func AllAnalytes() []Analyte {
	out := make([]Analyte, len(allAnalytes))
	copy(out, allAnalytes)
	return out
}

// Measured reports whether a is a blood index rather than a demographic field.
func (a Analyte) Measured() bool {
	for _, m := range measuredAnalytes {
		if a == m {
			return true
		}
	}
	return false
}

// DisplayName is the label used in generated statements.
func (a Analyte) DisplayName() string {
	switch a {
	case Hemoglobin:
		return "Hemoglobin"
	case MCV:
		return "MCV"
	case MCH:
		return "MCH"
	case MCHC:
		return "MCHC"
	case Age:
		return "Age"
	case Gender:
		return "Gender"
	default:
		return string(a)
	}
}

// DefaultUnit is the unit values are normalized to.
func (a Analyte) DefaultUnit() string {
	switch a {
	case Hemoglobin, MCHC:
		return "g/dL"
	case MCV:
		return "fL"
	case MCH:
		return "pg"
	case Age:
		return "years"
	default:
		return ""
	}
}

// CanonicalizeAnalyte maps a label or synonym to an Analyte.
func CanonicalizeAnalyte(input string) (Analyte, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Analyte{
		"hb":                           Hemoglobin,
		"hgb":                          Hemoglobin,
		"haemoglobin":                  Hemoglobin,
		"mean corpuscular volume":      MCV,
		"mean cell volume":             MCV,
		"mean corpuscular hemoglobin":  MCH,
		"mean corpuscular haemoglobin": MCH,
		"mean cell hemoglobin":         MCH,
		"sex":                          Gender,
	}
	if a, ok := synonyms[normalized]; ok {
		return a, true
	}
	for _, a := range allAnalytes {
		if normalized == string(a) {
			return a, true
		}
	}
	return "", false
}
