package receipt

import (
	"github.com/zombor/receipt-ocr/internal/cards"
	"github.com/zombor/receipt-ocr/internal/correction"
	"github.com/zombor/receipt-ocr/internal/inference"
	"github.com/zombor/receipt-ocr/internal/quality"
)

// RawDocument is an uploaded receipt image. It is consumed by one scan and not retained.
type RawDocument struct {
	Data        []byte
	Path        string
	ContentType string
}

// Inference is the result of scanning one receipt, consumed by the expense form
type Inference struct {
	Text       string             `json:"text"`
	Confidence float64            `json:"confidence"`
	Provider   string             `json:"provider"`
	Fields     inference.FieldSet `json:"fields"`
	quality.Report
	CardMatch *cards.Card `json:"cardMatch,omitempty"`
}

// CorrectionRequest is an expense as finally submitted, together with what the scan produced
type CorrectionRequest struct {
	ExpenseID         string             `json:"expenseId,omitempty"`
	OriginalOCRText   string             `json:"originalOCRText"`
	OriginalInference inference.FieldSet `json:"originalInference"`
	FinalFields       correction.Fields  `json:"finalFields"`
	Notes             string             `json:"notes"`
}
