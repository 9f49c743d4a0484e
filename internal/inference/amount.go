package inference

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Bounds for a plausible receipt total. Matches outside them are treated as OCR noise.
const (
	MinAmount = 0.01
	MaxAmount = 10000.0
)

const amountNumber = `(\d+(?:[.,]\d{3})*(?:[.,]\d{1,2})?)`

func labeledAmount(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + label + `[ \t]*:?[ \t]*(?:[$€£][ \t]*)?` + amountNumber)
}

// amountRules are in priority order. Changing the order changes which total wins
// on receipts that print several labeled amounts.
var amountRules = []Rule[float64]{
	amountRule("total", 0.9, labeledAmount(`total`)),
	amountRule("amount", 0.85, labeledAmount(`amount(?:[ \t]+due)?`)),
	amountRule("balance", 0.8, labeledAmount(`balance(?:[ \t]+due)?`)),
	// Unreachable in practice: `\btotal` already matches inside "Grand Total"
	// and yields the same value at the same confidence.
	amountRule("grand-total", 0.9, labeledAmount(`grand[ \t]+total`)),
	amountRule("currency-prefix", 0.6, regexp.MustCompile(`[$€£][ \t]*`+amountNumber)),
	amountRule("currency-code", 0.5, regexp.MustCompile(`(?i)`+amountNumber+`[ \t]*(?:USD|EUR|GBP|CAD|AUD)\b`)),
}

// amountRule accepts the first match of re whose value is within bounds.
// Out of bounds matches are skipped rather than ending the rule.
func amountRule(name string, confidence float64, re *regexp.Regexp) Rule[float64] {
	return Rule[float64]{
		Name:       name,
		Confidence: confidence,
		Extract: func(text string) (float64, bool) {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				v, ok := parseAmount(m[1])
				if ok && InAmountRange(v) {
					return v, true
				}
			}
			return 0, false
		},
	}
}

// InAmountRange reports whether v is a plausible receipt amount
func InAmountRange(v float64) bool {
	return v >= MinAmount && v <= MaxAmount
}

// parseAmount normalizes the decimal separator. The last '.' or ',' is the
// decimal point when at most two digits follow it; every other separator is
// a thousands grouping and dropped.
func parseAmount(raw string) (float64, bool) {
	last := strings.LastIndexAny(raw, ".,")
	decimal := last >= 0 && len(raw)-last-1 <= 2

	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case i == last && decimal:
			b.WriteByte('.')
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return math.Round(v*100) / 100, true
}
