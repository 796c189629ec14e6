package ocr

import (
	"regexp"
	"strings"
)

var (
	reAnalyteLabel = regexp.MustCompile(`\b(h(a)?emoglobin|hgb|hb|mcv|mch|mchc)\b`)
	reLabUnit      = regexp.MustCompile(`\b(g/dl|g/l|fl|pg)\b`)
	reDecimal      = regexp.MustCompile(`\b\d{1,3}[.,]\d\b`)
	reDemographic  = regexp.MustCompile(`\b(age|sex|gender)\b`)
)

func hasAnalyteLabel(s string) bool { return reAnalyteLabel.MatchString(s) }
func hasLabUnit(s string) bool      { return reLabUnit.MatchString(s) }
func hasDecimal(s string) bool      { return reDecimal.MatchString(s) }
func hasDemographic(s string) bool  { return reDemographic.MatchString(s) }

// heuristicConfidence scores decoded text by how much it looks like a blood report.
func heuristicConfidence(txt string) float32 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if hasAnalyteLabel(txtL) {
		score += 0.25
	}
	if hasLabUnit(txtL) {
		score += 0.15
	}
	if hasDecimal(txtL) {
		score += 0.15
	}
	if hasDemographic(txtL) {
		score += 0.1
	}
	if len(txt) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// blendConfidence weights recognition confidence higher when present.
func blendConfidence(ocrConf, heurConf float32) float32 {
	conf := heurConf
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
