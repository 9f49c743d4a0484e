package inference

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule is one extraction strategy for a field.
// Rules for a field are evaluated in slice order and the first one whose
// Extract reports a match wins; there is no ranking across rules.
type Rule[T any] struct {
	Name       string
	Confidence float64
	Extract    func(text string) (T, bool)
}

// Apply runs the rule against text and wraps a match in a Field
func (r Rule[T]) Apply(text string) (*Field[T], bool) {
	v, ok := r.Extract(text)
	if !ok {
		return nil, false
	}
	return &Field[T]{Value: v, Confidence: r.Confidence}, true
}

func resolve[T any](rules []Rule[T], text string) *Field[T] {
	for _, rule := range rules {
		if f, ok := rule.Apply(text); ok {
			return f
		}
	}
	return nil
}

// patternRule returns the first whole-match of re, trimmed
func patternRule(name string, confidence float64, re *regexp.Regexp) Rule[string] {
	return Rule[string]{
		Name:       name,
		Confidence: confidence,
		Extract: func(text string) (string, bool) {
			m := strings.TrimSpace(re.FindString(text))
			return m, m != ""
		},
	}
}

// Merchant

const merchantScanLines = 8

var (
	numericLine = regexp.MustCompile(`^[\d\s.,:;/\\\-$€£#*%()+]+$`)
	headerLine  = regexp.MustCompile(`(?i)^(?:receipt|invoice)[\s#:.]*$`)
)

var merchantRules = []Rule[string]{
	{Name: "leading-line", Confidence: 0.7, Extract: extractMerchant},
}

func extractMerchant(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	if len(lines) > merchantScanLines {
		lines = lines[:merchantScanLines]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || numericLine.MatchString(line) || headerLine.MatchString(line) || isDateShaped(line) {
			continue
		}
		if utf8.RuneCountInString(line) > 3 {
			return line, true
		}
	}
	return "", false
}

// Date

const monthNames = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?`

var dateRules = []Rule[string]{
	patternRule("mm/dd/yyyy", 0.9, regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{4}\b`)),
	patternRule("mm/dd/yy", 0.8, regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2}\b`)),
	patternRule("yyyy/mm/dd", 0.9, regexp.MustCompile(`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`)),
	patternRule("month dd, yyyy", 0.85, regexp.MustCompile(`(?i)\b`+monthNames+`[ \t]+\d{1,2},?[ \t]+\d{4}\b`)),
	patternRule("dd month yyyy", 0.85, regexp.MustCompile(`(?i)\b\d{1,2}[ \t]+`+monthNames+`,?[ \t]+\d{4}\b`)),
}

// isDateShaped reports whether the whole trimmed line is a date.
// A line that merely contains a date, like "Joe's Diner 11/10/2025", is not.
func isDateShaped(line string) bool {
	line = strings.TrimSpace(line)
	for _, rule := range dateRules {
		if m, ok := rule.Extract(line); ok && m == line {
			return true
		}
	}
	return false
}

// Location

var locationRules = []Rule[string]{
	patternRule("street-address", 0.7, regexp.MustCompile(
		`(?i)\b\d{1,6}[ \t]+(?:[A-Za-z0-9.'#-]+[ \t]+){0,4}?(?:street|st|avenue|ave|road|rd|boulevard|blvd|drive|dr|lane|ln|way|court|ct|place|pl|highway|hwy|parkway|pkwy)\b\.?`)),
	patternRule("city-state-zip", 0.6, regexp.MustCompile(
		`\b[A-Z][A-Za-z.]*(?:[ \t]+[A-Z][A-Za-z.]*)*,[ \t]*[A-Z]{2}[ \t]+\d{5}(?:-\d{4})?\b`)),
}

// Card

var cardSuffix = regexp.MustCompile(`(?i)(?:[*x#]{4,}[ \t-]*|ending(?:[ \t]+in)?[ \t]*:?[ \t]*|card[ \t]*(?:no\.?|#)[ \t]*:?[ \t]*[*x#]*)(\d{4})\b`)

var cardRules = []Rule[string]{
	{
		Name:       "masked-suffix",
		Confidence: 0.8,
		Extract: func(text string) (string, bool) {
			m := cardSuffix.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			return m[1], true
		},
	},
}
