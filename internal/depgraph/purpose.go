package depgraph

import "strings"

// purposeKeywords maps each semantic-purpose category to the formula
// fragments that indicate it. Matching is a plain substring count over
// the cluster's combined upper-cased formula text.
var purposeKeywords = []struct {
	name     string
	keywords []string
}{
	{"lookup", []string{"VLOOKUP", "HLOOKUP", "XLOOKUP", "MATCH", "INDEX"}},
	{"aggregation", []string{"SUM", "AVERAGE", "COUNT", "MIN", "MAX", "SUBTOTAL"}},
	{"conditional_logic", []string{"IF(", "IFS(", "AND(", "OR(", "NOT(", "SWITCH"}},
	{"date_calculation", []string{"DATE", "YEAR", "MONTH", "DAY", "TODAY", "NOW", "EDATE", "EOMONTH", "DATEDIF"}},
	{"financial_formula", []string{"PMT", "NPV", "IRR", "RATE", "FV(", "PV(", "IPMT", "PPMT"}},
	{"percentage", []string{"%", "*100", "/100", "PERCENT"}},
	{"rounding", []string{"ROUND", "CEILING", "FLOOR", "INT(", "TRUNC", "MROUND"}},
	{"text", []string{"CONCAT", "TEXT(", "LEFT(", "RIGHT(", "MID(", "UPPER", "LOWER", "TRIM", "LEN("}},
}

// scorePurpose picks the highest-scoring keyword category for a set of
// formulas, or "" when nothing matches. Ties resolve to the category
// listed first, keeping the result stable.
func scorePurpose(formulas []string) string {
	if len(formulas) == 0 {
		return ""
	}
	combined := strings.ToUpper(strings.Join(formulas, " "))

	best := ""
	bestScore := 0
	for _, group := range purposeKeywords {
		score := 0
		for _, kw := range group.keywords {
			score += strings.Count(combined, kw)
		}
		if score > bestScore {
			best = group.name
			bestScore = score
		}
	}
	return best
}
