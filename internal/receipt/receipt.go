package receipt

import (
	"time"

	"github.com/zombor/receipt-manager/internal/parsing"
	"github.com/zombor/receipt-manager/internal/tagging"
)

// Extraction methods recorded on a receipt
const (
	MethodOracle    = "oracle"
	MethodHeuristic = "heuristic"
	MethodText      = "text"
	MethodImport    = "import"
)

// LineItem is a purchased product on a receipt
type LineItem = parsing.LineItem

// Parsing describes how the fields of a receipt were extracted
type Parsing struct {
	Method            string `json:"method"`
	Version           string `json:"version,omitempty"`
	ParsingConfidence int    `json:"parsing_confidence,omitempty"`
	OracleConfidence  int    `json:"oracle_confidence,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Receipt is a stored receipt. Total is nil when no amount could be read.
type Receipt struct {
	ID          string         `json:"id"`
	Merchant    string         `json:"merchant"`
	Total       *float64       `json:"total"`
	Date        string         `json:"date"` // MM/DD/YYYY
	Items       []LineItem     `json:"items"`
	Confidence  int            `json:"confidence"`
	RawText     string         `json:"raw_text,omitempty"`
	Filename    string         `json:"filename,omitempty"`
	ContentType string         `json:"content_type,omitempty"`
	ImageData   string         `json:"image_data,omitempty"` // base64 JPEG
	Tags        tagging.TagSet `json:"tags"`
	Parsing     Parsing        `json:"parsing"`
	UserEdited  bool           `json:"user_edited"`
	Timestamp   time.Time      `json:"timestamp"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TransactionDate returns the printed date, falling back to when the receipt was added
func (r *Receipt) TransactionDate() time.Time {
	if t, err := time.ParseInLocation("01/02/2006", r.Date, r.Timestamp.Location()); err == nil {
		return t
	}
	return r.Timestamp
}

// tagRecord is the view of the receipt the tag rules run over
func (r *Receipt) tagRecord() tagging.Record {
	record := tagging.Record{
		Merchant: r.Merchant,
		Total:    r.Total,
		Date:     r.Date,
	}
	for _, item := range r.Items {
		record.Items = append(record.Items, tagging.Item{Name: item.Name, Category: item.Category, Quantity: item.Quantity})
	}
	if !r.Timestamp.IsZero() {
		ts := r.Timestamp
		record.Timestamp = &ts
	}
	confidence := float64(r.Confidence) / 100
	record.Confidence = &confidence
	return record
}

// sanitizeItems drops items without a usable name or price and recomputes subtotals
func sanitizeItems(items []LineItem) []LineItem {
	clean := make([]LineItem, 0, len(items))
	for _, item := range items {
		if len([]rune(item.Name)) < 2 || item.Price <= 0 {
			continue
		}
		normalized := parsing.NewLineItem(item.Name, item.Price, item.Quantity, item.Category)
		normalized.Confidence = item.Confidence
		normalized.Source = item.Source
		clean = append(clean, normalized)
	}
	return clean
}
