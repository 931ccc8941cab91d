package receipt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-manager/internal/parsing"
	"github.com/zombor/receipt-manager/internal/scanning"
	"github.com/zombor/receipt-manager/internal/storage"
	"github.com/zombor/receipt-manager/internal/tagging"
)

var (
	// ErrEmptyInput is returned when there is no file or text to process
	ErrEmptyInput = errors.New("no receipt data provided")
	// ErrNoText is returned when neither the vision model nor local OCR produced anything to parse
	ErrNoText = errors.New("no text could be read from the receipt")
)

// DefaultMinOracleConfidence is the vision model confidence below which heuristic parsing takes over
const DefaultMinOracleConfidence = 50

// SaveError carries the quota manager's verdict on a failed save
type SaveError struct {
	Result *storage.SaveResult
	Err    error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("saving receipt: %v", e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random (v4) UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Config holds the optional collaborators and tuning of a Service
type Config struct {
	// Recognizer reads text locally when the vision model is unavailable or unsure
	Recognizer scanning.TextRecognizer
	// MinOracleConfidence is the lowest vision model confidence accepted without fallback
	MinOracleConfidence int
	// StoreImages keeps a compressed copy of uploaded images on the receipt
	StoreImages bool
}

// Service handles receipt operations. Writes are serialized so read-modify-write sequences
// against the store do not interleave.
type Service struct {
	mu          sync.Mutex
	db          DB
	scanner     scanning.Scanner
	archive     Storage
	config      Config
	parser      *parsing.Parser
	tagger      *tagging.Engine
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with a UUID generator and the wall clock
func NewService(db DB, scanner scanning.Scanner, archive Storage, config Config) *Service {
	return NewServiceWithDeps(db, scanner, archive, config, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, archive Storage, config Config, idGen IDGenerator, timeSrc TimeSource) *Service {
	if config.MinOracleConfidence <= 0 {
		config.MinOracleConfidence = DefaultMinOracleConfidence
	}
	return &Service{
		db:          db,
		scanner:     scanner,
		archive:     archive,
		config:      config,
		parser:      parsing.NewParserWithTimeSource(timeSrc),
		tagger:      tagging.NewEngine(),
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// extraction is what was read from an upload before it becomes a Receipt
type extraction struct {
	merchant   string
	total      *float64
	date       string
	items      []LineItem
	confidence int
	rawText    string
	parsing    Parsing
}

// ProcessReceipt reads a receipt image, tags it and saves it
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string, userTags []string) (*Receipt, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	ext, err := s.extract(data, contentType)
	if err != nil {
		slog.Error("Failed to read receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, err
	}

	now := s.timeSource.Now()
	receipt := &Receipt{
		ID:          s.idGenerator.Generate(),
		Merchant:    ext.merchant,
		Total:       ext.total,
		Date:        ext.date,
		Items:       sanitizeItems(ext.items),
		Confidence:  ext.confidence,
		RawText:     ext.rawText,
		Filename:    filename,
		ContentType: contentType,
		Parsing:     ext.parsing,
		Timestamp:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if s.config.StoreImages {
		compressed, err := scanning.CompressImage(data, contentType)
		if err != nil {
			slog.Warn("Failed to compress receipt image", "filename", filename, "error", err)
		} else {
			receipt.ImageData = base64.StdEncoding.EncodeToString(compressed.Data)
		}
	}

	receipt.Tags = tagging.MergeTags(s.tagger.GenerateAutoTags(receipt.tagRecord()), userTags)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// extract asks the vision model first and falls back to heuristic parsing of whatever text is
// available when the model fails, finds nothing or is not confident enough
func (s *Service) extract(data []byte, contentType string) (*extraction, error) {
	var scanned *scanning.ReceiptData
	if s.scanner != nil {
		var err error
		scanned, err = s.scanner.ScanReceipt(data, contentType)
		if err != nil {
			slog.Warn("Vision model failed, falling back to text parsing", "error", err)
			scanned = nil
		}
	}

	if scanned.HasFields() && scanned.Confidence >= s.config.MinOracleConfidence {
		return s.fromOracle(scanned), nil
	}
	if scanned != nil {
		slog.Warn("Vision model result not usable, falling back to text parsing",
			"confidence", scanned.Confidence,
			"has_fields", scanned.HasFields(),
		)
	}

	text, base := "", parsing.DefaultBaseConfidence
	if scanned != nil && strings.TrimSpace(scanned.RawText) != "" {
		text, base = scanned.RawText, scanned.Confidence
	} else if s.config.Recognizer != nil {
		recognized, err := s.config.Recognizer.RecognizeText(data, contentType)
		if err != nil {
			return nil, fmt.Errorf("recognizing text: %w", err)
		}
		text, base = recognized.Text, int(recognized.Confidence+0.5)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}

	ext := s.fromParsed(s.parser.ParseWithConfidence(text, base))
	// Whatever the model did find fills the gaps
	if scanned != nil {
		if ext.merchant == "" {
			ext.merchant = scanned.Merchant
		}
		if ext.total == nil {
			ext.total = scanned.Total
		}
		if ext.date == "" {
			ext.date = scanned.Date
		}
		if len(scanned.Items) > 0 {
			ext.items = oracleItems(scanned.Items)
		}
		ext.parsing.OracleConfidence = scanned.Confidence
	}
	return ext, nil
}

func (s *Service) fromOracle(scanned *scanning.ReceiptData) *extraction {
	ext := &extraction{
		merchant:   scanned.Merchant,
		total:      scanned.Total,
		date:       scanned.Date,
		items:      oracleItems(scanned.Items),
		confidence: scanned.Confidence,
		rawText:    scanned.RawText,
		parsing: Parsing{
			Method:           MethodOracle,
			OracleConfidence: scanned.Confidence,
		},
	}
	if len(ext.items) == 0 && scanned.RawText != "" {
		ext.items = parsing.ExtractLineItems(parsing.Normalize(scanned.RawText)).Value
	}
	return ext
}

func (s *Service) fromParsed(parsed *parsing.ParsedReceipt) *extraction {
	return &extraction{
		merchant:   parsed.Merchant.ValueOr(""),
		total:      parsed.Total.Value,
		date:       parsed.Date.ValueOr(""),
		items:      parsed.Items.Value,
		confidence: parsed.Metadata.ParsingConfidence,
		rawText:    parsed.Metadata.RawText,
		parsing: Parsing{
			Method:            MethodHeuristic,
			Version:           parsed.Metadata.ParsingVersion,
			ParsingConfidence: parsed.Metadata.ParsingConfidence,
			Error:             parsed.Metadata.Error,
		},
	}
}

func oracleItems(items []scanning.Item) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		lineItem := parsing.NewLineItem(item.Name, item.Price, item.Quantity, "")
		lineItem.Source = MethodOracle
		out = append(out, lineItem)
	}
	return out
}

// ParseText runs the heuristic parser without saving anything
func (s *Service) ParseText(text string, baseConfidence int) *parsing.ParsedReceipt {
	if baseConfidence <= 0 {
		baseConfidence = parsing.DefaultBaseConfidence
	}
	return s.parser.ParseWithConfidence(text, baseConfidence)
}

// SaveText parses receipt text, tags it and saves it
func (s *Service) SaveText(text string, userTags []string, baseConfidence int) (*Receipt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	ext := s.fromParsed(s.ParseText(text, baseConfidence))
	ext.parsing.Method = MethodText

	now := s.timeSource.Now()
	receipt := &Receipt{
		ID:         s.idGenerator.Generate(),
		Merchant:   ext.merchant,
		Total:      ext.total,
		Date:       ext.date,
		Items:      sanitizeItems(ext.items),
		Confidence: ext.confidence,
		RawText:    ext.rawText,
		Parsing:    ext.parsing,
		Timestamp:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	receipt.Tags = tagging.MergeTags(s.tagger.GenerateAutoTags(receipt.tagRecord()), userTags)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// save writes through the DB, turning quota verdicts into a SaveError. Callers hold s.mu.
func (s *Service) save(receipt *Receipt) error {
	result, err := s.db.SaveReceipt(receipt)
	if err != nil {
		slog.Error("Failed to save receipt", "id", receipt.ID, "error", err)
		return &SaveError{Result: result, Err: err}
	}
	if result != nil && result.CleanupPerformed {
		slog.Warn("Old receipts evicted to make room", "id", receipt.ID, "evicted", len(result.Evicted))
	}
	return nil
}

// Update holds the editable fields of a receipt. Nil fields are left unchanged.
type Update struct {
	Merchant *string     `json:"merchant"`
	Total    *float64    `json:"total"`
	Date     *string     `json:"date"`
	Items    *[]LineItem `json:"items"`
	Tags     *[]string   `json:"tags"` // user tags
}

// UpdateReceipt applies user edits, regenerates the automatic tags and saves the receipt
func (s *Service) UpdateReceipt(id string, update Update) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	if update.Merchant != nil {
		receipt.Merchant = strings.TrimSpace(*update.Merchant)
	}
	if update.Total != nil {
		total := *update.Total
		receipt.Total = &total
	}
	if update.Date != nil {
		receipt.Date = strings.TrimSpace(*update.Date)
	}
	if update.Items != nil {
		receipt.Items = sanitizeItems(*update.Items)
	}
	userTags := receipt.Tags.User
	if update.Tags != nil {
		userTags = *update.Tags
	}

	receipt.ID = id
	receipt.UserEdited = true
	receipt.UpdatedAt = s.timeSource.Now()
	receipt.Tags = tagging.MergeTags(s.tagger.GenerateAutoTags(receipt.tagRecord()), userTags)

	if err := s.save(receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts, newest first
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	slices.SortStableFunc(receipts, func(a, b *Receipt) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return receipts, nil
}

// DeleteReceipt removes a receipt
func (s *Service) DeleteReceipt(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	return nil
}

// ClearReceipts removes every receipt
func (s *Service) ClearReceipts() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.db.Clear()
	if err != nil {
		return removed, fmt.Errorf("clearing receipts: %w", err)
	}
	slog.Info("Cleared all receipts", "removed", removed)
	return removed, nil
}

// StorageUsage measures the store
func (s *Service) StorageUsage() (storage.Usage, error) {
	usage, err := s.db.Usage()
	if err != nil {
		return storage.Usage{}, fmt.Errorf("measuring storage: %w", err)
	}
	return usage, nil
}

// Recommendations suggests storage actions
func (s *Service) Recommendations() ([]storage.Recommendation, error) {
	recommendations, err := s.db.Recommendations()
	if err != nil {
		return nil, fmt.Errorf("building recommendations: %w", err)
	}
	return recommendations, nil
}

// UploadSafety projects storage usage after one more receipt with a typical stored image
func (s *Service) UploadSafety() (storage.Safety, error) {
	imageKB := 0.0
	if s.config.StoreImages {
		imageKB = storage.DefaultImageKB
	}
	size, err := storage.EstimateReceiptSize(&Receipt{Tags: tagging.MergeTags(nil, nil)}, imageKB)
	if err != nil {
		return storage.Safety{}, err
	}
	safety, err := s.db.CheckSafety(size)
	if err != nil {
		return storage.Safety{}, fmt.Errorf("checking storage safety: %w", err)
	}
	return safety, nil
}

// CleanupStorage evicts the oldest receipts. A target of zero evicts the default share.
func (s *Service) CleanupStorage(target int) (*storage.CleanupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Cleanup(target)
	if err != nil {
		return nil, fmt.Errorf("cleaning up storage: %w", err)
	}
	slog.Info("Storage cleanup", "removed", result.ItemsRemoved, "remaining", result.RemainingCount)
	return result, nil
}
