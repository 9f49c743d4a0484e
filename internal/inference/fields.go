package inference

// Field is a single inferred value with the confidence of the rule that produced it.
// A nil *Field means no rule matched, which is an expected outcome and not an error.
type Field[T any] struct {
	Value      T       `json:"value"`
	Confidence float64 `json:"confidence"`
}

// FieldSet contains the independently inferred fields of a receipt
type FieldSet struct {
	Merchant     *Field[string]   `json:"merchant,omitempty"`
	Amount       *Field[float64]  `json:"amount,omitempty"`
	Date         *Field[string]   `json:"date,omitempty"`
	Category     *Field[Category] `json:"category,omitempty"`
	Location     *Field[string]   `json:"location,omitempty"`
	CardLastFour *Field[string]   `json:"cardLastFour,omitempty"`
}

// Infer extracts a FieldSet from raw OCR text.
// It has no side effects: identical text always yields an identical FieldSet.
func Infer(text string) FieldSet {
	return FieldSet{
		Merchant:     resolve(merchantRules, text),
		Amount:       resolve(amountRules, text),
		Date:         resolve(dateRules, text),
		Category:     resolve(categoryRules, text),
		Location:     resolve(locationRules, text),
		CardLastFour: resolve(cardRules, text),
	}
}
