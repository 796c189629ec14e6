package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Run is a stored pipeline run for data transfer between layers.
type Run struct {
	ID                   uuid.UUID       `json:"id"`
	DocumentName         string          `json:"document_name"`
	ContentHash          string          `json:"content_hash"`
	Format               string          `json:"format"`
	ExtractionMethod     string          `json:"extraction_method"`
	ExtractionConfidence float32         `json:"extraction_confidence"`
	RiskLevel            RiskLevel       `json:"risk_level"`
	SafetyTrigger        *string         `json:"safety_trigger,omitempty"`
	Stage                string          `json:"stage"`
	ResultJSON           json.RawMessage `json:"result_json,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}
