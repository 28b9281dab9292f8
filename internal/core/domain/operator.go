package domain

import "strings"

// Operator is the closed set of railway operators the rule engine knows
// about. Anything that cannot be mapped becomes OperatorOther, which never
// carries an override scheme.
type Operator string

const (
	OperatorVy      Operator = "VY"
	OperatorSJ      Operator = "SJ"
	OperatorGoAhead Operator = "GOAHEAD"
	OperatorOther   Operator = "OTHER"
)

// operatorAliases maps exact normalized spellings seen on tickets to the
// canonical operator. Substring heuristics below catch the long-tail
// variants ("Vy Tog AS", "SJ Norge AS", ...).
var operatorAliases = map[string]Operator{
	"VY":              OperatorVy,
	"NSB":             OperatorVy, // pre-2019 brand, still printed on some tickets
	"VYGRUPPEN":       OperatorVy,
	"SJ":              OperatorSJ,
	"SJ NORGE":        OperatorSJ,
	"SJ-NORGE":        OperatorSJ,
	"GOAHEAD":         OperatorGoAhead,
	"GO-AHEAD":        OperatorGoAhead,
	"GO AHEAD":        OperatorGoAhead,
	"GO-AHEAD NORDIC": OperatorGoAhead,
}

// NormalizeOperator maps a free-form operator string from a ticket or feed
// record onto the closed Operator set.
func NormalizeOperator(s string) Operator {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if normalized == "" {
		return OperatorOther
	}

	if op, ok := operatorAliases[normalized]; ok {
		return op
	}

	switch {
	case strings.Contains(normalized, "VY"):
		return OperatorVy
	case strings.Contains(normalized, "SJ NORGE"), strings.Contains(normalized, "SJ-NORGE"):
		return OperatorSJ
	case strings.Contains(normalized, "GO-AHEAD"), strings.Contains(normalized, "GO AHEAD"):
		return OperatorGoAhead
	}

	return OperatorOther
}
