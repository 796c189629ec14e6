package parse

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/lab-interpreter/constants"
)

// Building blocks shared by the analyte patterns. Group layout for every
// analyte pattern: 1 parenthesised label suffix, 2 number, 3 trailing unit.
const (
	parenSuffix = `(?:[ \t]*\(([^()\n]{1,24})\))?`
	sepSameLine = `[ \t.:=\-]*`
	sepNextLine = `[ \t.:=\-]*\r?\n[ \t]*`
	flagMark    = `(?:[HL*][ \t]+)?`
	number      = `(\d{1,4}(?:[.,]\d{1,3})?)`
)

const (
	unitsMass          = `g\s*/\s*dl|gm\s*/\s*dl|g\s*per\s*dl|gm?\s*%|g\s*/\s*l`
	unitsVolume        = `fl|femtolit(?:er|re)s?|[µμu]m3|cu\.?\s*microns?`
	unitsPicogram      = `pg|picograms?`
	hemoglobinLabels   = `ha?emoglobin|hgb|hb`
	mcvLabels          = `mean\s+(?:corpuscular|cell)\s+volume|mcv`
	mchLabels          = `mean\s+(?:corpuscular|cell)\s+ha?emoglobin|mch`
	mchcLabels         = `mean\s+(?:corpuscular|cell)\s+ha?emoglobin\s+concentration|mchc`
	hemoglobinExcluded = `(?:corpuscular|cell|glycated|glycosylated)\s*$`
	// HbA1c is reported in % (or mmol/mol) and must not be read as hemoglobin.
	hemoglobinA1c = `a1c|glyc`
)

// unitRule maps a matched unit string to the canonical unit, dividing the value
// by divisor when the source unit is ten times finer.
type unitRule struct {
	re        *regexp.Regexp
	canonical string
	divisor   float64
}

type analyteSpec struct {
	analyte  constants.Analyte
	patterns []*regexp.Regexp
	units    []unitRule
	// exclude rejects a match when the text right before it matches.
	exclude *regexp.Regexp
	// excludeSuffix rejects a match whose parenthesised label suffix matches.
	excludeSuffix *regexp.Regexp
	// noBarePercent rejects a value followed by "%" without a mass unit.
	noBarePercent bool
}

func labelled(labels, units, sep string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + labels + `)\b` + parenSuffix + sep + flagMark + number + `[ \t]*(` + units + `)?`)
}

func analytePatterns(labels, units string) []*regexp.Regexp {
	return []*regexp.Regexp{
		labelled(labels, units, sepSameLine),
		labelled(labels, units, sepNextLine),
	}
}

var massUnits = []unitRule{
	{re: regexp.MustCompile(`(?i)^g\s*/\s*l$`), canonical: "g/dL", divisor: 10},
	{re: regexp.MustCompile(`(?i)^(?:g\s*/\s*dl|gm\s*/\s*dl|g\s*per\s*dl|gm?\s*%)$`), canonical: "g/dL", divisor: 1},
}

var analyteSpecs = []analyteSpec{
	{
		analyte:       constants.Hemoglobin,
		patterns:      analytePatterns(hemoglobinLabels, unitsMass),
		units:         massUnits,
		exclude:       regexp.MustCompile(`(?i)` + hemoglobinExcluded),
		excludeSuffix: regexp.MustCompile(`(?i)` + hemoglobinA1c),
		noBarePercent: true,
	},
	{
		analyte:  constants.MCV,
		patterns: analytePatterns(mcvLabels, unitsVolume),
		units:    []unitRule{{re: regexp.MustCompile(`(?i)^(?:` + unitsVolume + `)$`), canonical: "fL", divisor: 1}},
	},
	{
		analyte:  constants.MCH,
		patterns: analytePatterns(mchLabels, unitsPicogram),
		units:    []unitRule{{re: regexp.MustCompile(`(?i)^(?:` + unitsPicogram + `)$`), canonical: "pg", divisor: 1}},
	},
	{
		analyte:  constants.MCHC,
		patterns: analytePatterns(mchcLabels, unitsMass),
		units:    massUnits,
	},
}

// Demographic patterns, tried in order.
var (
	// "Age/Sex: 30 Y / F", "Age / Gender - 45 years/Male"
	reAgeSex = regexp.MustCompile(`(?i)\bage\s*/\s*(?:sex|gender)\b[ \t]*[:=\-]?[ \t]*(-?\d+(?:[.,]\d+)?)[ \t]*(?:y(?:ea)?rs?|y)?[ \t]*/[ \t]*([a-z]+\.?)`)
	// "Sex/Age: F/30"
	reSexAge = regexp.MustCompile(`(?i)\b(?:sex|gender)\s*/\s*age\b[ \t]*[:=\-]?[ \t]*([a-z]+\.?)[ \t]*/[ \t]*(-?\d+(?:[.,]\d+)?)`)

	reAgeLabel = regexp.MustCompile(`(?i)\bage\b(?:[ \t]*\((?:years?|yrs?|y)\))?[ \t]*[:=\-]?[ \t]*(-?\d+(?:[.,]\d+)?)`)
	reAgeYears = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)[ \t]*(?:years?|yrs?)\b(?:[ \t]+old)?`)

	reGenderLabel = regexp.MustCompile(`(?i)\b(?:gender|sex)\b[ \t]*[:=\-]?[ \t]*([a-z]+\.?)`)
	reGenderWord  = regexp.MustCompile(`(?i)\b(male|female)\b`)
	reGenderTitle = regexp.MustCompile(`\b((?i:mrs|mr|ms|miss))\.?[ \t]+\p{Lu}`)
)

// maxAge is the sanity ceiling for a parsed age.
const maxAge = 120

func normalizeUnit(rules []unitRule, raw string) (string, float64, bool) {
	raw = strings.TrimSpace(raw)
	for _, u := range rules {
		if u.re.MatchString(raw) {
			return u.canonical, u.divisor, true
		}
	}
	return "", 1, false
}
