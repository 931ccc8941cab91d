package scanning

// DefaultConfidence is assumed when a vision model does not report its own confidence
const DefaultConfidence = 85

// Item is a line item read by a vision model
type Item struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity,omitempty"`
}

// ReceiptData contains extracted information from a receipt
type ReceiptData struct {
	Merchant   string   `json:"merchant"`
	Total      *float64 `json:"total"`
	Date       string   `json:"date"` // MM/DD/YYYY when recognizable
	Items      []Item   `json:"items"`
	Confidence int      `json:"confidence"` // 0-100
	RawText    string   `json:"raw_text"`
}

// HasFields reports whether the model found anything usable
func (d *ReceiptData) HasFields() bool {
	return d != nil && (d.Merchant != "" || d.Total != nil || d.Date != "" || len(d.Items) > 0)
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts structured fields
	ScanReceipt(imageData []byte, contentType string) (*ReceiptData, error)
	// Close closes the scanner and releases resources
	Close() error
}

// RecognizedText is the plain text read from a receipt image
type RecognizedText struct {
	Text       string
	Confidence float64 // mean word confidence, 0-100
}

// TextRecognizer reads plain text from an image for heuristic parsing
type TextRecognizer interface {
	RecognizeText(imageData []byte, contentType string) (*RecognizedText, error)
	Close() error
}
