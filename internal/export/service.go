package export

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/lab-interpreter/constants"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
	"github.com/joseph-ayodele/lab-interpreter/internal/pipeline"
)

const (
	SheetResults    = "Results"
	SheetStatements = "Statements"
)

// Service produces XLSX bytes for a batch of pipeline reports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportReportsXLSX returns a workbook with one Results row per report and one
// Statements row per generated statement. Nil reports are skipped.
func (s *Service) ExportReportsXLSX(reports []*pipeline.Report) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetResults); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetStatements); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(SheetResults)
	f.SetActiveSheet(activeIndex)

	headers := []string{"Document", "Content Hash", "Extraction", "Confidence"}
	for _, a := range constants.MeasuredAnalytes() {
		headers = append(headers, a.DisplayName(), a.DisplayName()+" Class")
	}
	headers = append(headers, "Age", "Gender", "Risk Level", "Safety Trigger", "Created At")
	writeRow(f, SheetResults, 1, headers)
	writeRow(f, SheetStatements, 1, []string{"Document", "Tier", "Rule", "Statement"})

	row, stmtRow := 2, 2
	for _, r := range reports {
		if r == nil {
			continue
		}
		writeRow(f, SheetResults, row, resultRow(r))
		row++

		for _, st := range r.Result.Statements {
			writeRow(f, SheetStatements, stmtRow, []string{displayName(r), string(st.Tier), st.RuleID, st.Text})
			stmtRow++
		}
	}

	_ = f.SetColWidth(SheetResults, "A", "A", 28)
	_ = f.SetColWidth(SheetResults, "B", "B", 20)
	_ = f.SetColWidth(SheetStatements, "A", "A", 28)
	_ = f.SetColWidth(SheetStatements, "C", "C", 24)
	_ = f.SetColWidth(SheetStatements, "D", "D", 100)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", row-2,
		"statements", stmtRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func resultRow(r *pipeline.Report) []string {
	byAnalyte := make(map[constants.Analyte]entity.ClassifiedValue, len(r.Result.Values))
	for _, v := range r.Result.Values {
		byAnalyte[v.Analyte] = v
	}

	out := []string{
		displayName(r),
		truncate(r.ContentHash, 16),
		string(r.Extracted.Method),
		strconv.FormatFloat(float64(r.Extracted.Confidence), 'f', 2, 32),
	}
	for _, a := range constants.MeasuredAnalytes() {
		v, ok := byAnalyte[a]
		if !ok {
			out = append(out, "", string(entity.Unavailable))
			continue
		}
		out = append(out, formatValue(v), string(v.Classification))
	}

	age := ""
	if r.Demographics.Age != nil {
		age = strconv.Itoa(*r.Demographics.Age)
	}
	trigger := ""
	if r.Result.SafetyFlag != nil {
		trigger = r.Result.SafetyFlag.Trigger
	}
	return append(out,
		age,
		string(r.Demographics.Gender),
		string(r.Result.OverallRiskLevel),
		trigger,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
}

func formatValue(v entity.ClassifiedValue) string {
	if v.Value == nil {
		return ""
	}
	s := strconv.FormatFloat(*v.Value, 'f', -1, 64)
	if v.Unit != "" {
		s += " " + v.Unit
	}
	return s
}

func displayName(r *pipeline.Report) string {
	if r.DocumentName != "" {
		return r.DocumentName
	}
	return r.ID.String()
}

func writeRow(f *excelize.File, sheet string, row int, cells []string) {
	for i, v := range cells {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
