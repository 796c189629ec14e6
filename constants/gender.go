package constants

import "strings"

type GenderValue string

const (
	Male          GenderValue = "male"
	Female        GenderValue = "female"
	GenderUnknown GenderValue = "unknown"
	// GenderAny only appears in reference range rows.
	GenderAny GenderValue = "any"
)

var genderVariants = map[string]GenderValue{
	"m":      Male,
	"male":   Male,
	"man":    Male,
	"boy":    Male,
	"mr":     Male,
	"f":      Female,
	"female": Female,
	"woman":  Female,
	"girl":   Female,
	"mrs":    Female,
	"ms":     Female,
	"miss":   Female,
}

// CanonicalizeGender maps the closed set of textual variants to a gender.
// Anything else is GenderUnknown.
func CanonicalizeGender(input string) GenderValue {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.TrimSuffix(s, ".")
	if g, ok := genderVariants[s]; ok {
		return g
	}
	return GenderUnknown
}

func (g GenderValue) Known() bool {
	return g == Male || g == Female
}
