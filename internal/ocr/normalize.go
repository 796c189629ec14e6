package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reFormFeed   = regexp.MustCompile(`\f`)
	// "l3.5" / "I3.5" where recognition read a leading 1 as a letter
	reDigitArtifacts = regexp.MustCompile(`\b[lI](\d+[.,]\d+)\b`)
	// "1O.5" / "12.O" letter O inside a number
	reNumericToken = regexp.MustCompile(`\b[0-9oO][0-9oO.,]*\b`)
)

var reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-=|]{3,}\s*$`)

// Normalize collapses noisy whitespace and fixes common recognition artifacts in numbers.
// Keeps line breaks; collapses >2 newlines into a single blank line.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reFormFeed.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	s = reDigitArtifacts.ReplaceAllString(s, "1$1")
	s = fixOInNumbers(s)
	return strings.TrimSpace(s)
}

// fixOInNumbers replaces a letter O with zero, but only inside tokens that are
// otherwise numeric so words like "NO2" or "MCHC" stay intact.
func fixOInNumbers(s string) string {
	return reNumericToken.ReplaceAllStringFunc(s, func(tok string) string {
		if !strings.ContainsAny(tok, "0123456789") {
			return tok
		}
		return strings.NewReplacer("o", "0", "O", "0").Replace(tok)
	})
}

// CountSignificant counts non-whitespace characters.
func CountSignificant(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ', '\n', '\t', '\r', '\f', '\v':
		default:
			n++
		}
	}
	return n
}
