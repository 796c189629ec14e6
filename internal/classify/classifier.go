package classify

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
	"github.com/joseph-ayodele/lab-interpreter/internal/rules"
)

// Classifier places lab values in severity bands using a read-only range table.
type Classifier struct {
	table  *rules.RangeTable
	logger *slog.Logger
}

func New(table *rules.RangeTable, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{table: table, logger: logger}
}

// Lookup finds the range for an analyte measured in unit. With both age and
// gender known it tries the exact key, then a gender-agnostic bracket, then the
// default row. Otherwise only the default row is consulted. A row written in a
// different unit is not a match; an empty unit on either side matches any.
func (c *Classifier) Lookup(a constants.Analyte, unit string, d entity.Demographics) (rules.ReferenceRange, bool) {
	applies := func(r rules.ReferenceRange) bool {
		return r.Analyte == a && (unit == "" || r.Unit == "" || strings.EqualFold(unit, r.Unit))
	}
	if d.Age != nil && d.Gender.Known() {
		for _, g := range []constants.GenderValue{d.Gender, constants.GenderAny} {
			for _, r := range c.table.Ranges {
				if applies(r) && r.Gender == g && r.ContainsAge(*d.Age) {
					return r, true
				}
			}
		}
	}
	for _, r := range c.table.Ranges {
		if applies(r) && r.IsDefault() {
			return r, true
		}
	}
	return rules.ReferenceRange{}, false
}

// Classify never fails; missing data comes back as Unavailable.
func (c *Classifier) Classify(v entity.LabValue, d entity.Demographics) entity.ClassifiedValue {
	cv := entity.ClassifiedValue{
		Analyte:        v.Analyte,
		Value:          v.Value,
		Unit:           v.Unit,
		Classification: entity.Unavailable,
	}
	if v.Value == nil {
		return cv
	}

	r, ok := c.Lookup(v.Analyte, v.Unit, d)
	if !ok {
		c.logger.Debug("classify.no_range", "analyte", v.Analyte, "unit", v.Unit, "gender", d.Gender)
		return cv
	}

	cv.Classification = Band(*v.Value, r, c.table.PolicyFor(r))
	cv.Range = &entity.AppliedRange{
		ID:           r.ID,
		Low:          r.Low,
		High:         r.High,
		CriticalLow:  r.CriticalLow,
		CriticalHigh: r.CriticalHigh,
		Unit:         r.Unit,
	}
	cv.DefaultRange = r.IsDefault()
	if cv.Unit == "" {
		cv.Unit = r.Unit
	}
	return cv
}

// ClassifyAll returns one value per recognised field in canonical order: the
// measured analytes, then Age and Gender.
func (c *Classifier) ClassifyAll(values []entity.LabValue, d entity.Demographics) []entity.ClassifiedValue {
	byAnalyte := make(map[constants.Analyte]entity.LabValue, len(values))
	for _, v := range values {
		byAnalyte[v.Analyte] = v
	}

	out := make([]entity.ClassifiedValue, 0, len(constants.AllAnalytes()))
	for _, a := range constants.MeasuredAnalytes() {
		v, ok := byAnalyte[a]
		if !ok {
			v = entity.LabValue{Analyte: a}
		}
		out = append(out, c.Classify(v, d))
	}
	return append(out, demographicValues(d)...)
}

// demographicValues reports age and gender as read (normal) or unknown (unavailable).
func demographicValues(d entity.Demographics) []entity.ClassifiedValue {
	age := entity.ClassifiedValue{Analyte: constants.Age, Unit: constants.Age.DefaultUnit(), Classification: entity.Unavailable}
	if d.Age != nil {
		v := float64(*d.Age)
		age.Value = &v
		age.Classification = entity.Normal
	}
	gender := entity.ClassifiedValue{Analyte: constants.Gender, Classification: entity.Unavailable}
	if d.Gender.Known() {
		gender.Label = string(d.Gender)
		gender.Classification = entity.Normal
	}
	return []entity.ClassifiedValue{age, gender}
}

// Band applies the precedence critical, then low/high, then normal.
func Band(v float64, r rules.ReferenceRange, p rules.BoundaryPolicy) entity.Classification {
	critical := p.Critical != rules.Exclusive
	switch {
	case r.CriticalLow != nil && below(v, *r.CriticalLow, critical):
		return entity.CriticalLow
	case r.CriticalHigh != nil && above(v, *r.CriticalHigh, critical):
		return entity.CriticalHigh
	}

	// an inclusive normal band owns its bounds, so a breach must be strict
	normal := p.Normal != rules.Exclusive
	switch {
	case below(v, r.Low, !normal):
		return entity.Low
	case above(v, r.High, !normal):
		return entity.High
	default:
		return entity.Normal
	}
}

func below(v, bound float64, inclusive bool) bool {
	if inclusive {
		return v <= bound
	}
	return v < bound
}

func above(v, bound float64, inclusive bool) bool {
	if inclusive {
		return v >= bound
	}
	return v > bound
}
