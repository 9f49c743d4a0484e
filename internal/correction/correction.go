// Package correction captures the difference between what the inference
// engine read from a receipt and what a human finally submitted.
//
// Only changes to a value the engine actually inferred count as corrections.
// Filling in a field the engine left empty is a first-time entry: it says
// nothing about whether a rule misfired, so it is never recorded as one.
package correction

import (
	"math"
	"strings"
	"time"

	"github.com/zombor/receipt-ocr/internal/inference"
)

// Fields holds the user-editable values that corrections are tracked for.
// A nil pointer means the value was not submitted.
type Fields struct {
	Merchant *string  `json:"merchant,omitempty"`
	Amount   *float64 `json:"amount,omitempty"`
	Date     *string  `json:"date,omitempty"`
	Category *string  `json:"category,omitempty"`
}

// IsEmpty reports whether no field is set
func (f Fields) IsEmpty() bool {
	return f.Merchant == nil && f.Amount == nil && f.Date == nil && f.Category == nil
}

// Record is the learning signal sent for one submitted expense
type Record struct {
	ID                string             `json:"id,omitempty"`
	ExpenseID         string             `json:"expenseId,omitempty"`
	OriginalOCRText   string             `json:"originalOCRText"`
	OriginalInference inference.FieldSet `json:"originalInference"`
	CorrectedFields   Fields             `json:"correctedFields"`
	Notes             string             `json:"notes"`
	RecordedAt        time.Time          `json:"recordedAt"`
}

// Diff is the result of comparing an inference with submitted values
type Diff struct {
	Corrected Fields
	// FirstEntries names fields the engine left unset and the human filled in
	FirstEntries []string
}

// Compare diffs each of merchant, amount, date and category independently.
// Amounts compare by cents, text compares after normalizing case and whitespace.
func Compare(original inference.FieldSet, submitted Fields) Diff {
	var d Diff

	if submitted.Merchant != nil {
		switch {
		case original.Merchant == nil:
			d.firstEntry("merchant", *submitted.Merchant)
		case !sameText(original.Merchant.Value, *submitted.Merchant):
			d.Corrected.Merchant = submitted.Merchant
		}
	}

	if submitted.Amount != nil {
		switch {
		case original.Amount == nil:
			d.FirstEntries = append(d.FirstEntries, "amount")
		case !sameAmount(original.Amount.Value, *submitted.Amount):
			d.Corrected.Amount = submitted.Amount
		}
	}

	if submitted.Date != nil {
		switch {
		case original.Date == nil:
			d.firstEntry("date", *submitted.Date)
		case !sameText(original.Date.Value, *submitted.Date):
			d.Corrected.Date = submitted.Date
		}
	}

	if submitted.Category != nil {
		switch {
		case original.Category == nil:
			d.firstEntry("category", *submitted.Category)
		case !sameText(string(original.Category.Value), *submitted.Category):
			d.Corrected.Category = submitted.Category
		}
	}

	return d
}

func (d *Diff) firstEntry(field, value string) {
	if normalize(value) != "" {
		d.FirstEntries = append(d.FirstEntries, field)
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func sameText(a, b string) bool {
	return normalize(a) == normalize(b)
}

func sameAmount(a, b float64) bool {
	return math.Round(a*100) == math.Round(b*100)
}
