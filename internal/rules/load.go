package rules

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/joseph-ayodele/lab-interpreter/internal/common"
)

//go:embed defaults/*.json schemas/*.json
var files embed.FS

// Table names, used for file and schema lookup.
const (
	TableRanges         = "ranges"
	TableSymptoms       = "symptoms"
	TableInterpretation = "interpretation"
	TableSafety         = "safety"
)

// Paths points at override files. An empty path loads the embedded default.
type Paths struct {
	Ranges         string
	Symptoms       string
	Interpretation string
	Safety         string
}

// DefaultTable returns the embedded JSON for a table.
func DefaultTable(table string) ([]byte, error) {
	return files.ReadFile(path.Join("defaults", table+".json"))
}

func schemaFor(table string) ([]byte, error) {
	return files.ReadFile(path.Join("schemas", table+".schema.json"))
}

func readTable(table, override string) ([]byte, string, error) {
	if override == "" {
		b, err := DefaultTable(table)
		return b, "embedded:" + table, err
	}
	b, err := os.ReadFile(override)
	return b, override, err
}

// decode schema-validates then unmarshals one table document.
func decode(table, source string, data []byte, out any) error {
	schemaDoc, err := schemaFor(table)
	if err != nil {
		return common.ConfigError("missing schema for "+table, err)
	}
	if err := ValidateJSONAgainstSchema(table+".schema.json", schemaDoc, data); err != nil {
		return common.ConfigError(fmt.Sprintf("%s table %s", table, source), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return common.ConfigError(fmt.Sprintf("%s table %s", table, source), err)
	}
	return nil
}

func ParseRanges(data []byte, source string) (*RangeTable, error) {
	var t RangeTable
	if err := decode(TableRanges, source, data, &t); err != nil {
		return nil, err
	}
	if err := t.validate(); err != nil {
		return nil, common.ConfigError("ranges table "+source, err)
	}
	return &t, nil
}

func ParseSymptoms(data []byte, source string) (*SymptomTable, error) {
	var t SymptomTable
	if err := decode(TableSymptoms, source, data, &t); err != nil {
		return nil, err
	}
	if err := t.validate(); err != nil {
		return nil, common.ConfigError("symptoms table "+source, err)
	}
	return &t, nil
}

func ParseInterpretation(data []byte, source string) (*InterpretationTable, error) {
	var t InterpretationTable
	if err := decode(TableInterpretation, source, data, &t); err != nil {
		return nil, err
	}
	if err := t.validate(); err != nil {
		return nil, common.ConfigError("interpretation table "+source, err)
	}
	return &t, nil
}

func ParseSafety(data []byte, source string) (*SafetyTable, error) {
	var t SafetyTable
	if err := decode(TableSafety, source, data, &t); err != nil {
		return nil, err
	}
	if err := t.validate(); err != nil {
		return nil, common.ConfigError("safety table "+source, err)
	}
	return &t, nil
}

// Load reads, validates and cross-checks all four tables. Any failure is a
// configuration error and the pipeline must not run.
func Load(p Paths, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slog.Default()
	}

	read := func(table, override string) ([]byte, string, error) {
		b, src, err := readTable(table, override)
		if err != nil {
			return nil, src, common.ConfigError("read "+table+" table "+src, err)
		}
		return b, src, nil
	}

	b, src, err := read(TableRanges, p.Ranges)
	if err != nil {
		return nil, err
	}
	ranges, err := ParseRanges(b, src)
	if err != nil {
		return nil, err
	}

	if b, src, err = read(TableSymptoms, p.Symptoms); err != nil {
		return nil, err
	}
	symptoms, err := ParseSymptoms(b, src)
	if err != nil {
		return nil, err
	}

	if b, src, err = read(TableInterpretation, p.Interpretation); err != nil {
		return nil, err
	}
	interp, err := ParseInterpretation(b, src)
	if err != nil {
		return nil, err
	}

	if b, src, err = read(TableSafety, p.Safety); err != nil {
		return nil, err
	}
	safety, err := ParseSafety(b, src)
	if err != nil {
		return nil, err
	}

	set := &Set{Ranges: ranges, Symptoms: symptoms, Interpretation: interp, Safety: safety}
	if err := set.crossCheck(); err != nil {
		return nil, common.ConfigError("rule tables", err)
	}

	logger.Info("rules.loaded",
		"ranges", len(ranges.Ranges),
		"symptom_rules", len(symptoms.Rules),
		"interpretation_rules", len(interp.Rules),
		"safety_triggers", len(safety.Triggers),
	)
	return set, nil
}

// Default loads the embedded tables.
func Default() (*Set, error) {
	return Load(Paths{}, nil)
}
