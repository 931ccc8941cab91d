package scanning

import (
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements TextRecognizer with a local Tesseract install.
// A gosseract client is not safe for concurrent use, so calls are serialized.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a recognizer. An empty tessdataPrefix uses the system default.
func NewTesseract(tessdataPrefix string, language string) (*Tesseract, error) {
	client := gosseract.NewClient()
	if tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(tessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("setting tessdata prefix: %w", err)
		}
	}
	if language == "" {
		language = "eng"
	}
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting language: %w", err)
	}
	return &Tesseract{client: client}, nil
}

// RecognizeText reads the receipt text and the mean word confidence
func (t *Tesseract) RecognizeText(imageData []byte, contentType string) (*RecognizedText, error) {
	prepared, err := prepareForOCR(imageData, contentType)
	if err != nil {
		return nil, fmt.Errorf("preparing image: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(prepared); err != nil {
		return nil, fmt.Errorf("setting image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("reading word confidence: %w", err)
	}
	var confidence float64
	if len(boxes) > 0 {
		for _, box := range boxes {
			confidence += box.Confidence
		}
		confidence /= float64(len(boxes))
	}

	return &RecognizedText{Text: text, Confidence: confidence}, nil
}

// Close releases the Tesseract engine
func (t *Tesseract) Close() error {
	return t.client.Close()
}
