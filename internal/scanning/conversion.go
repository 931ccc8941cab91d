package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// Stored image limits, matching what the receipt list can display without scaling up
const (
	MaxImageWidth     = 1200
	MaxImageHeight    = 1600
	TargetImageKB     = 200
	InitialQuality    = 80
	MinQuality        = 30
	qualityStep       = 10
	minOCRHeight      = 800
	upscaledOCRHeight = 1200
)

// normalizeMimeType lowercases the content type and strips parameters
func normalizeMimeType(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return mimeType
}

// decodeImage decodes the first page of a PDF, a HEIC/HEIF photo or any registered image format
func decodeImage(imageData []byte, mimeType string) (image.Image, error) {
	if mimeType == "application/pdf" {
		doc, err := fitz.NewFromMemory(imageData)
		if err != nil {
			return nil, fmt.Errorf("opening PDF: %w", err)
		}
		defer doc.Close()

		// Receipts are single page
		img, err := doc.Image(0)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page: %w", err)
		}
		return img, nil
	}

	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err := heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		if strings.Contains(err.Error(), "unknown format") {
			return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF: %w", err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// isHEICFormat checks for an ftyp box with a HEIC-family brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// prepareImageData converts PDFs and non-PNG images to PNG for the vision models.
// PNG input is passed through unchanged.
func prepareImageData(imageData []byte, contentType string) ([]byte, error) {
	mimeType := normalizeMimeType(contentType)
	if mimeType == "image/png" && !isHEICFormat(imageData) {
		return imageData, nil
	}

	img, err := decodeImage(imageData, mimeType)
	if err != nil {
		return nil, fmt.Errorf("converting %s to PNG: %w", mimeType, err)
	}
	return encodePNG(img)
}

// prepareForOCR converts to grayscale and upscales short images so Tesseract sees larger glyphs
func prepareForOCR(imageData []byte, contentType string) ([]byte, error) {
	img, err := decodeImage(imageData, normalizeMimeType(contentType))
	if err != nil {
		return nil, err
	}

	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < minOCRHeight {
		gray = imaging.Resize(gray, 0, upscaledOCRHeight, imaging.Lanczos)
	}
	return encodePNG(gray)
}

// CompressedImage is a JPEG ready to be stored alongside a receipt
type CompressedImage struct {
	Data    []byte
	Width   int
	Height  int
	Quality int
}

// SizeKB returns the encoded size in kilobytes
func (c *CompressedImage) SizeKB() float64 {
	return float64(len(c.Data)) / 1024
}

// CompressImage fits the image inside MaxImageWidth x MaxImageHeight and re-encodes it as JPEG,
// lowering the quality until the result is under TargetImageKB or MinQuality is reached.
func CompressImage(imageData []byte, contentType string) (*CompressedImage, error) {
	img, err := decodeImage(imageData, normalizeMimeType(contentType))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() > MaxImageWidth || bounds.Dy() > MaxImageHeight {
		img = imaging.Fit(img, MaxImageWidth, MaxImageHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	quality := InitialQuality
	for {
		buf.Reset()
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, fmt.Errorf("encoding JPEG: %w", err)
		}
		if buf.Len() <= TargetImageKB*1024 || quality <= MinQuality {
			break
		}
		quality -= qualityStep
	}

	return &CompressedImage{
		Data:    bytes.Clone(buf.Bytes()),
		Width:   img.Bounds().Dx(),
		Height:  img.Bounds().Dy(),
		Quality: quality,
	}, nil
}
