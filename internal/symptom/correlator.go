package symptom

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
	"github.com/joseph-ayodele/lab-interpreter/internal/rules"
)

// Correlator matches free-text symptoms against the symptom rule table. Notes
// are advisory: they never feed the risk level.
type Correlator struct {
	table    *rules.SymptomTable
	keywords [][]*regexp.Regexp // aligned with table.Rules
	logger   *slog.Logger
}

func New(table *rules.SymptomTable, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Correlator{table: table, logger: logger, keywords: make([][]*regexp.Regexp, len(table.Rules))}
	for i, r := range table.Rules {
		for _, kw := range r.Keywords {
			c.keywords[i] = append(c.keywords[i], keywordPattern(kw))
		}
	}
	return c
}

// keywordPattern matches a phrase on word boundaries with any run of
// whitespace between its words.
func keywordPattern(kw string) *regexp.Regexp {
	words := strings.Fields(strings.ToLower(kw))
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
}

var reSentenceBreak = regexp.MustCompile(`[.!?;\n]`)

// Correlate returns one note per matching rule. Within a group only the first
// matching rule fires. Empty text yields no notes.
func (c *Correlator) Correlate(text string, values []entity.ClassifiedValue) []entity.SymptomNote {
	text = strings.ReplaceAll(strings.TrimSpace(text), "’", "'")
	if text == "" {
		return nil
	}

	data := rules.NewTemplateData(values)
	fired := map[string]bool{}
	var notes []entity.SymptomNote

	for i, r := range c.table.Rules {
		if r.Fallback || (r.Group != "" && fired[r.Group]) {
			continue
		}
		matched, at := c.match(i, text)
		if len(matched) == 0 {
			continue
		}
		if !rules.MatchAll(r.Conditions, values) {
			continue
		}
		if r.RequireAbnormal && !rules.AnyAbnormal(values) {
			continue
		}
		if r.Group != "" {
			fired[r.Group] = true
		}

		d := data
		d.Keyword = matched[0]
		d.Keywords = strings.Join(matched, ", ")
		notes = append(notes, c.note(r, matched, fragment(text, at), strength(r, values), d))
	}

	if len(notes) == 0 {
		for _, r := range c.table.Rules {
			if r.Fallback {
				notes = append(notes, c.note(r, nil, "", r.Strength, data))
				break
			}
		}
	}

	c.logger.Debug("symptom.correlated", "notes", len(notes))
	return notes
}

// match returns the rule's keywords found in text, in table order, and the
// offset of the earliest hit.
func (c *Correlator) match(i int, text string) ([]string, int) {
	var matched []string
	at := -1
	for j, re := range c.keywords[i] {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		matched = append(matched, c.table.Rules[i].Keywords[j])
		if at < 0 || loc[0] < at {
			at = loc[0]
		}
	}
	return matched, at
}

func (c *Correlator) note(r rules.SymptomRule, matched []string, frag string, s entity.Strength, d rules.TemplateData) entity.SymptomNote {
	n := entity.SymptomNote{
		RuleID:   r.ID,
		Matched:  matched,
		Fragment: frag,
		Strength: s,
	}
	text, err := r.Render(d)
	if err != nil {
		c.logger.Warn("symptom.render.failed", "rule", r.ID, "error", err)
		return n
	}
	n.Statement = text
	return n
}

// strength is the base strength raised by any escalation that applies.
func strength(r rules.SymptomRule, values []entity.ClassifiedValue) entity.Strength {
	s := r.Strength
	for _, e := range r.Escalate {
		if e.Applies(values) && e.Strength.Rank() > s.Rank() {
			s = e.Strength
		}
	}
	return s
}

// fragment returns the sentence of text containing offset at.
func fragment(text string, at int) string {
	if at < 0 {
		return ""
	}
	start := 0
	for _, loc := range reSentenceBreak.FindAllStringIndex(text[:at], -1) {
		start = loc[1]
	}
	end := len(text)
	if loc := reSentenceBreak.FindStringIndex(text[at:]); loc != nil {
		end = at + loc[0]
	}
	return strings.TrimSpace(text[start:end])
}
