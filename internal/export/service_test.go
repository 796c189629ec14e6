package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
	"github.com/joseph-ayodele/lab-interpreter/internal/extract"
	"github.com/joseph-ayodele/lab-interpreter/internal/pipeline"
)

func ptr[T any](v T) *T { return &v }

func TestExportReportsXLSX(t *testing.T) {
	report := &pipeline.Report{
		ID:           uuid.New(),
		DocumentName: "cbc.pdf",
		ContentHash:  "0123456789abcdef0123",
		Extracted:    extract.ExtractedText{Method: extract.MethodDirect, Confidence: 1},
		Demographics: entity.Demographics{Age: ptr(30), Gender: constants.Female},
		Result: entity.InterpretationResult{
			OverallRiskLevel: entity.RiskCritical,
			Values: []entity.ClassifiedValue{
				{Analyte: constants.Hemoglobin, Value: ptr(6.0), Unit: "g/dL", Classification: entity.CriticalLow},
				{Analyte: constants.MCV, Value: ptr(70.0), Unit: "fL", Classification: entity.Low},
			},
			Statements: []entity.Statement{
				{RuleID: "critical-value", Tier: entity.TierCritical, Text: "Hemoglobin may be in a critical range."},
				{RuleID: "single-low", Tier: entity.TierSingle, Text: "MCV appears low."},
			},
			SafetyFlag: &entity.SafetyFlag{Trigger: "critical-value", Severity: entity.RiskUrgent},
		},
		CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}

	data, err := NewService(nil).ExportReportsXLSX([]*pipeline.Report{report, nil})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetResults)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Document", rows[0][0])
	assert.Equal(t, "Hemoglobin", rows[0][4])
	got := rows[1]
	assert.Equal(t, "cbc.pdf", got[0])
	assert.Equal(t, "0123456789abcde…", got[1])
	assert.Equal(t, "direct", got[2])
	assert.Equal(t, "1.00", got[3])
	assert.Equal(t, "6 g/dL", got[4])
	assert.Equal(t, "critical_low", got[5])
	assert.Equal(t, "70 fL", got[6])
	assert.Equal(t, "low", got[7])
	assert.Equal(t, "unavailable", got[9])
	assert.Equal(t, "unavailable", got[11])
	assert.Equal(t, "30", got[12])
	assert.Equal(t, "female", got[13])
	assert.Equal(t, "critical", got[14])
	assert.Equal(t, "critical-value", got[15])
	assert.Equal(t, "2026-03-01T09:30:00Z", got[16])

	stmts, err := f.GetRows(SheetStatements)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, []string{"cbc.pdf", "critical", "critical-value", "Hemoglobin may be in a critical range."}, stmts[1])
	assert.Equal(t, "single-low", stmts[2][2])
}

func TestExportReportsXLSX_Empty(t *testing.T) {
	data, err := NewService(nil).ExportReportsXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetResults)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
