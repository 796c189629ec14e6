package parse

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
)

// Result holds every field the parser looked for. Values always has one entry
// per measured analyte; a nil Value means the field was not found.
type Result struct {
	Values       map[constants.Analyte]entity.LabValue `json:"values"`
	Demographics entity.Demographics                   `json:"demographics"`
	Unresolved   []constants.Analyte                   `json:"unresolved,omitempty"`
}

// LabValues returns the measured values in canonical order.
func (r Result) LabValues() []entity.LabValue {
	out := make([]entity.LabValue, 0, len(r.Values))
	for _, a := range constants.MeasuredAnalytes() {
		if v, ok := r.Values[a]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Parser scans extracted text for the six recognised fields. It holds only
// compiled patterns and is safe for concurrent use.
type Parser struct {
	specs  []analyteSpec
	logger *slog.Logger
}

func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{specs: analyteSpecs, logger: logger}
}

// Parse never fails: a field without a usable match is left unknown.
func (p *Parser) Parse(text string) Result {
	text = strings.ReplaceAll(text, "\u00a0", " ")

	res := Result{Values: make(map[constants.Analyte]entity.LabValue, len(p.specs))}
	for _, spec := range p.specs {
		v := p.parseAnalyte(spec, text)
		res.Values[spec.analyte] = v
		if !v.Known() {
			res.Unresolved = append(res.Unresolved, spec.analyte)
		}
	}

	res.Demographics = parseDemographics(text)
	if res.Demographics.Age == nil {
		res.Unresolved = append(res.Unresolved, constants.Age)
	}
	if !res.Demographics.Gender.Known() {
		res.Unresolved = append(res.Unresolved, constants.Gender)
	}

	p.logger.Debug("parse.done",
		"resolved", len(constants.AllAnalytes())-len(res.Unresolved),
		"unresolved", res.Unresolved,
	)
	return res
}

func (p *Parser) parseAnalyte(spec analyteSpec, text string) entity.LabValue {
	lv := entity.LabValue{Analyte: spec.analyte}
	for _, re := range spec.patterns {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if spec.rejects(text, m) {
				continue
			}
			value, ok := parseNumber(group(text, m, 2))
			if !ok {
				continue
			}
			unit, divisor, known := normalizeUnit(spec.units, group(text, m, 3))
			if !known {
				unit, divisor, known = normalizeUnit(spec.units, group(text, m, 1))
			}
			if !known {
				unit, divisor = spec.analyte.DefaultUnit(), 1
			}
			value /= divisor
			lv.Value = &value
			lv.Unit = unit
			lv.Evidence = strings.TrimSpace(text[m[0]:m[1]])
			return lv
		}
	}
	return lv
}

func (spec analyteSpec) rejects(text string, m []int) bool {
	if spec.exclude != nil && spec.exclude.MatchString(text[max(0, m[0]-24):m[0]]) {
		return true
	}
	if spec.excludeSuffix != nil && spec.excludeSuffix.MatchString(group(text, m, 1)) {
		return true
	}
	return spec.noBarePercent && group(text, m, 3) == "" &&
		strings.HasPrefix(strings.TrimLeft(text[m[1]:], " \t"), "%")
}

func parseDemographics(text string) entity.Demographics {
	d := entity.Demographics{Gender: constants.GenderUnknown}

	// combined columns decide both fields at once
	if m := reAgeSex.FindStringSubmatch(text); m != nil {
		d.Age = parseAge(m[1])
		d.Gender = constants.CanonicalizeGender(m[2])
		return d
	}
	if m := reSexAge.FindStringSubmatch(text); m != nil {
		d.Gender = constants.CanonicalizeGender(m[1])
		d.Age = parseAge(m[2])
		return d
	}

	d.Age = firstAge(text)
	d.Gender = firstGender(text)
	return d
}

func firstAge(text string) *int {
	for _, re := range []*regexp.Regexp{reAgeLabel, reAgeYears} {
		if m := re.FindStringSubmatch(text); m != nil {
			return parseAge(m[1])
		}
	}
	return nil
}

// firstGender takes the first match that names a known gender, so a label such
// as "Sex hormone binding globulin" does not hide a later "Sex: F".
func firstGender(text string) constants.GenderValue {
	for _, re := range []*regexp.Regexp{reGenderLabel, reGenderWord, reGenderTitle} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if g := constants.CanonicalizeGender(m[1]); g.Known() {
				return g
			}
		}
	}
	return constants.GenderUnknown
}

// parseAge accepts whole numbers in [0, maxAge] only.
func parseAge(raw string) *int {
	raw = strings.TrimSpace(raw)
	if strings.ContainsAny(raw, ".,") {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > maxAge {
		return nil
	}
	return &n
}

// parseNumber accepts a decimal comma as well as a decimal point.
func parseNumber(raw string) (float64, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func group(text string, m []int, i int) string {
	if 2*i+1 >= len(m) || m[2*i] < 0 {
		return ""
	}
	return text[m[2*i]:m[2*i+1]]
}
