package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
	"github.com/joseph-ayodele/lab-interpreter/internal/extract"
)

// Input is one upload: the document and optional free-text symptoms.
type Input struct {
	Document extract.Document
	Symptoms string
}

// Report is everything one run produced. It is owned by the caller.
type Report struct {
	ID           uuid.UUID                   `json:"id"`
	DocumentName string                      `json:"document_name,omitempty"`
	ContentHash  string                      `json:"content_hash,omitempty"`
	Extracted    extract.ExtractedText       `json:"extracted"`
	Demographics entity.Demographics         `json:"demographics"`
	Unresolved   []constants.Analyte         `json:"unresolved,omitempty"`
	Result       entity.InterpretationResult `json:"result"`
	Stages       []constants.Stage           `json:"stages"`
	CreatedAt    time.Time                   `json:"created_at"`
	Duration     time.Duration               `json:"duration"`
}

// Stage is the last state the run reached.
func (r *Report) Stage() constants.Stage {
	if len(r.Stages) == 0 {
		return ""
	}
	return r.Stages[len(r.Stages)-1]
}

func (r *Report) advance(s constants.Stage) {
	r.Stages = append(r.Stages, s)
}

// Run converts the report to its stored form. Raw document text is not kept.
func (r *Report) Run() (*entity.Run, error) {
	body, err := json.Marshal(r.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	run := &entity.Run{
		ID:                   r.ID,
		DocumentName:         r.DocumentName,
		ContentHash:          r.ContentHash,
		Format:               r.Extracted.Format,
		ExtractionMethod:     string(r.Extracted.Method),
		ExtractionConfidence: r.Extracted.Confidence,
		RiskLevel:            r.Result.OverallRiskLevel,
		Stage:                string(r.Stage()),
		ResultJSON:           body,
		CreatedAt:            r.CreatedAt,
	}
	if r.Result.SafetyFlag != nil {
		trigger := r.Result.SafetyFlag.Trigger
		run.SafetyTrigger = &trigger
	}
	return run, nil
}
