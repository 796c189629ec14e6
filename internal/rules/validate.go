package rules

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
)

func uniqueIDs(kind string, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate %s id %q", kind, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (t *RangeTable) validate() error {
	ids := make([]string, 0, len(t.Ranges))
	defaults := map[string]string{}
	var errs []error

	for _, r := range t.Ranges {
		ids = append(ids, r.ID)
		if !r.Analyte.Measured() {
			errs = append(errs, fmt.Errorf("range %q: analyte %q has no reference ranges", r.ID, r.Analyte))
		}
		if r.Low > r.High {
			errs = append(errs, fmt.Errorf("range %q: low %v > high %v", r.ID, r.Low, r.High))
		}
		if r.CriticalLow != nil && *r.CriticalLow > r.Low {
			errs = append(errs, fmt.Errorf("range %q: critical_low %v > low %v", r.ID, *r.CriticalLow, r.Low))
		}
		if r.CriticalHigh != nil && *r.CriticalHigh < r.High {
			errs = append(errs, fmt.Errorf("range %q: critical_high %v < high %v", r.ID, *r.CriticalHigh, r.High))
		}
		if (r.AgeMin == nil) != (r.AgeMax == nil) {
			errs = append(errs, fmt.Errorf("range %q: age_min and age_max must be set together", r.ID))
			continue
		}
		if r.AgeMin != nil && *r.AgeMin > *r.AgeMax {
			errs = append(errs, fmt.Errorf("range %q: age_min %d > age_max %d", r.ID, *r.AgeMin, *r.AgeMax))
		}
		if r.AgeMin == nil && r.Gender != constants.GenderAny {
			errs = append(errs, fmt.Errorf("range %q: gender-specific rows need an age bracket", r.ID))
		}
		if r.IsDefault() {
			key := string(r.Analyte) + "/" + strings.ToLower(r.Unit)
			if prev, dup := defaults[key]; dup {
				errs = append(errs, fmt.Errorf("range %q: second default for %s (first is %q)", r.ID, r.Analyte, prev))
			}
			defaults[key] = r.ID
		}
	}
	if err := uniqueIDs("range", ids); err != nil {
		errs = append(errs, err)
	}

	// bracketed rows sharing (analyte, gender, unit) must not overlap
	for i := range t.Ranges {
		a := t.Ranges[i]
		if a.AgeMin == nil || a.AgeMax == nil {
			continue
		}
		for j := i + 1; j < len(t.Ranges); j++ {
			b := t.Ranges[j]
			if b.AgeMin == nil || b.AgeMax == nil || a.Analyte != b.Analyte || a.Gender != b.Gender ||
				!strings.EqualFold(a.Unit, b.Unit) {
				continue
			}
			if *a.AgeMin <= *b.AgeMax && *b.AgeMin <= *a.AgeMax {
				errs = append(errs, fmt.Errorf("ranges %q and %q overlap for %s/%s", a.ID, b.ID, a.Analyte, a.Gender))
			}
		}
	}
	return errors.Join(errs...)
}

func checkConditions(owner string, conds []Condition) error {
	for _, c := range conds {
		if c.Analyte != Wildcard {
			if _, ok := constants.CanonicalizeAnalyte(c.Analyte); !ok {
				return fmt.Errorf("%s: unknown analyte %q", owner, c.Analyte)
			}
		}
		for _, cl := range c.Classifications {
			if _, ok := entity.ParseClassification(string(cl)); !ok {
				return fmt.Errorf("%s: unknown classification %q", owner, cl)
			}
		}
		if len(c.Classifications) == 0 && c.Below == nil && c.Above == nil {
			return fmt.Errorf("%s: condition on %s matches everything", owner, c.Analyte)
		}
	}
	return nil
}

func (t *SymptomTable) validate() error {
	ids := make([]string, 0, len(t.Rules))
	fallbacks := 0
	sample := sampleData()
	var errs []error

	for i := range t.Rules {
		r := &t.Rules[i]
		ids = append(ids, r.ID)
		owner := "symptom rule " + r.ID
		if _, ok := entity.ParseStrength(string(r.Strength)); !ok {
			errs = append(errs, fmt.Errorf("%s: unknown strength %q", owner, r.Strength))
		}
		if r.Fallback {
			fallbacks++
			if len(r.Keywords) > 0 || len(r.Conditions) > 0 {
				errs = append(errs, fmt.Errorf("%s: fallback rule takes no keywords or conditions", owner))
			}
		} else if len(r.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("%s: no keywords", owner))
		}
		if err := checkConditions(owner, r.Conditions); err != nil {
			errs = append(errs, err)
		}
		for _, e := range r.Escalate {
			if e.Below == nil && e.Above == nil {
				errs = append(errs, fmt.Errorf("%s: escalation on %s has no threshold", owner, e.Analyte))
			}
		}
		tmpl, err := compile(r.ID, r.Statement)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", owner, err))
			continue
		}
		if _, err := execute(tmpl, sample); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", owner, err))
			continue
		}
		r.tmpl = tmpl
	}
	if fallbacks > 1 {
		errs = append(errs, fmt.Errorf("at most one fallback symptom rule allowed, found %d", fallbacks))
	}
	if err := uniqueIDs("symptom rule", ids); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (t *InterpretationTable) validate() error {
	hedge, err := hedgeMatcher(t.Hedges)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(t.Rules))
	sample := sampleData()
	var errs []error

	for i := range t.Rules {
		r := &t.Rules[i]
		ids = append(ids, r.ID)
		owner := "interpretation rule " + r.ID
		switch r.Tier {
		case entity.TierCritical, entity.TierSingle, entity.TierCombination, entity.TierCoverage:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown tier %q", owner, r.Tier))
		}
		switch r.Scope {
		case ScopeEach:
			if len(r.When) != 1 {
				errs = append(errs, fmt.Errorf("%s: scope each needs exactly one condition", owner))
			}
		case ScopeAll:
			if len(r.When) == 0 {
				errs = append(errs, fmt.Errorf("%s: scope all needs conditions", owner))
			}
			for _, c := range r.When {
				if c.Analyte == Wildcard {
					errs = append(errs, fmt.Errorf("%s: wildcard analyte only allowed with scope each", owner))
				}
			}
		case ScopeNoneAvailable:
			if len(r.When) != 0 {
				errs = append(errs, fmt.Errorf("%s: scope none_available takes no conditions", owner))
			}
		default:
			errs = append(errs, fmt.Errorf("%s: unknown scope %q", owner, r.Scope))
		}
		if err := checkConditions(owner, r.When); err != nil {
			errs = append(errs, err)
		}
		if !hedge.MatchString(r.Template) {
			errs = append(errs, fmt.Errorf("%s: template carries no hedge phrase", owner))
		}
		tmpl, err := compile(r.ID, r.Template)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", owner, err))
			continue
		}
		if _, err := execute(tmpl, sample); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", owner, err))
			continue
		}
		r.tmpl = tmpl
	}
	if err := uniqueIDs("interpretation rule", ids); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (t *SafetyTable) validate() error {
	sample := sampleData()
	var errs []error

	tmpl, err := compile("safety", t.Statement)
	if err == nil {
		_, err = execute(tmpl, sample)
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("safety statement: %w", err))
	} else {
		t.tmpl = tmpl
	}

	ids := make([]string, 0, len(t.Triggers))
	for i := range t.Triggers {
		tr := &t.Triggers[i]
		ids = append(ids, tr.ID)
		owner := "safety trigger " + tr.ID
		if len(tr.Classifications) == 0 && len(tr.Conditions) == 0 && len(tr.SymptomRules) == 0 {
			errs = append(errs, fmt.Errorf("%s: no clauses", owner))
		}
		if len(tr.Analytes) > 0 && len(tr.Classifications) == 0 {
			errs = append(errs, fmt.Errorf("%s: analytes only narrow a classifications clause", owner))
		}
		if err := checkConditions(owner, tr.Conditions); err != nil {
			errs = append(errs, err)
		}
		ft, err := compile(tr.ID, tr.Finding)
		if err == nil {
			_, err = execute(ft, sample)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", owner, err))
			continue
		}
		tr.tmpl = ft
	}
	if err := uniqueIDs("safety trigger", ids); err != nil {
		errs = append(errs, err)
	}
	if !slices.ContainsFunc(t.Triggers, coversCriticalValues) {
		errs = append(errs, fmt.Errorf("safety table: no trigger fires on every critical_low and critical_high value"))
	}
	return errors.Join(errs...)
}

// coversCriticalValues reports whether tr fires on any critical value of any
// measured analyte, with no other clause narrowing it.
func coversCriticalValues(tr Trigger) bool {
	return len(tr.Analytes) == 0 && len(tr.Conditions) == 0 && len(tr.SymptomRules) == 0 &&
		slices.Contains(tr.Classifications, entity.CriticalLow) &&
		slices.Contains(tr.Classifications, entity.CriticalHigh)
}

// crossCheck validates references between tables and hedging of every statement.
func (s *Set) crossCheck() error {
	hedge, err := hedgeMatcher(s.Interpretation.Hedges)
	if err != nil {
		return err
	}
	return errors.Join(
		checkHedges(hedge, s),
		checkSymptomRefs(s),
	)
}

func checkHedges(hedge *regexp.Regexp, s *Set) error {
	var errs []error
	for _, r := range s.Symptoms.Rules {
		if !hedge.MatchString(r.Statement) {
			errs = append(errs, fmt.Errorf("symptom rule %s: statement carries no hedge phrase", r.ID))
		}
	}
	if !hedge.MatchString(s.Safety.Statement) {
		errs = append(errs, fmt.Errorf("safety statement carries no hedge phrase"))
	}
	return errors.Join(errs...)
}

func checkSymptomRefs(s *Set) error {
	var errs []error
	for _, tr := range s.Safety.Triggers {
		for _, id := range tr.SymptomRules {
			if _, ok := s.Symptoms.Rule(id); !ok {
				errs = append(errs, fmt.Errorf("safety trigger %s: unknown symptom rule %q", tr.ID, id))
			}
		}
	}
	return errors.Join(errs...)
}
