package parsing

import "time"

// ParsingVersion identifies the heuristic rule set that produced a ParsedReceipt
const ParsingVersion = "1.0"

// Field is a single extracted value together with its confidence and provenance.
// A field that was not found has a nil Value and zero Confidence.
type Field[T any] struct {
	Value      *T     `json:"value"`
	Confidence int    `json:"confidence"`
	Source     string `json:"source"`
	Context    string `json:"context,omitempty"`
}

// Found reports whether the field carries a value
func (f Field[T]) Found() bool {
	return f.Value != nil
}

// ValueOr returns the field value, or def when nothing was found
func (f Field[T]) ValueOr(def T) T {
	if f.Value == nil {
		return def
	}
	return *f.Value
}

func found[T any](v T, confidence int, source string) Field[T] {
	return Field[T]{Value: &v, Confidence: clampConfidence(max(confidence, 1)), Source: source}
}

func notFound[T any](source string) Field[T] {
	return Field[T]{Source: source}
}

// DateField is a date field formatted as MM/DD/YYYY with the calendar date attached
type DateField struct {
	Field[string]
	Parsed *time.Time `json:"parsed,omitempty"`
}

// ItemsField holds the line items found on a receipt
type ItemsField struct {
	Value      []LineItem `json:"value"`
	Confidence int        `json:"confidence"`
	Count      int        `json:"count"`
	Source     string     `json:"source"`
}

// LineItem is a single purchased product
type LineItem struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Category   string  `json:"category"`
	Subtotal   float64 `json:"subtotal"`
	Confidence int     `json:"confidence,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// NewLineItem builds a LineItem, forcing quantity to at least one and computing the subtotal
func NewLineItem(name string, price float64, quantity int, category string) LineItem {
	if quantity < 1 {
		quantity = 1
	}
	if category == "" {
		category = DefaultCategory
	}
	return LineItem{
		Name:     name,
		Price:    roundMoney(price),
		Quantity: quantity,
		Category: category,
		Subtotal: multiplyMoney(price, quantity),
	}
}

// DefaultCategory is assigned to items whose category is unknown
const DefaultCategory = "other"

// Patterns summarises coarse features of the cleaned text
type Patterns struct {
	HasCurrency   bool    `json:"has_currency"`
	HasTotal      bool    `json:"has_total"`
	HasDate       bool    `json:"has_date"`
	LineCount     int     `json:"line_count"`
	AvgLineLength float64 `json:"avg_line_length"`
}

// Metadata describes how a ParsedReceipt was produced
type Metadata struct {
	Confidence        int       `json:"confidence"`
	RawText           string    `json:"raw_text"`
	CleanedText       string    `json:"cleaned_text"`
	ParsingVersion    string    `json:"parsing_version"`
	Timestamp         time.Time `json:"timestamp"`
	ParsingConfidence int       `json:"parsing_confidence"`
	Patterns          Patterns  `json:"patterns"`
	Error             string    `json:"error,omitempty"`
}

// ParsedReceipt is the result of heuristically parsing receipt text
type ParsedReceipt struct {
	Merchant Field[string]  `json:"merchant"`
	Total    Field[float64] `json:"total"`
	Date     DateField      `json:"date"`
	Items    ItemsField     `json:"items"`
	Metadata Metadata       `json:"metadata"`
}

func emptyResult(now time.Time, confidence int, message string) *ParsedReceipt {
	return &ParsedReceipt{
		Merchant: notFound[string](sourceError),
		Total:    notFound[float64](sourceError),
		Date:     DateField{Field: notFound[string](sourceError)},
		Items:    ItemsField{Source: sourceError},
		Metadata: Metadata{
			Confidence:     confidence,
			ParsingVersion: ParsingVersion,
			Timestamp:      now,
			Error:          message,
		},
	}
}

// Provenance tags
const (
	sourceNotFound        = "not_found"
	sourceError           = "error"
	sourceHeader          = "header_extraction"
	sourceFallbackCaps    = "fallback_caps"
	sourcePatternMatching = "pattern_matching"
)
