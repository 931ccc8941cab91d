package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
)

const bytesPerMB = 1024 * 1024

// Default thresholds, sized after the ~5MB browsers give local storage
const (
	DefaultWarningBytes  = 4 * bytesPerMB
	DefaultCriticalBytes = 4.5 * bytesPerMB
	DefaultMaximumBytes  = 5 * bytesPerMB
)

var (
	// ErrQuotaWarning means the write was refused because it would cross the critical threshold
	ErrQuotaWarning = errors.New("storage nearly full")

	// ErrQuotaExceededAfterCleanup means eviction ran but the retried write still did not fit
	ErrQuotaExceededAfterCleanup = errors.New("storage still full after cleanup")

	// ErrCleanupFailed means eviction could not free any space
	ErrCleanupFailed = errors.New("cleanup failed")
)

// Level classifies store usage against the Limits
type Level string

const (
	LevelSafe     Level = "safe"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
	LevelFull     Level = "full"
)

// Code identifies the outcome of a failed SafeSave
type Code string

const (
	CodeQuotaWarning              Code = "QUOTA_WARNING"
	CodeSaveError                 Code = "SAVE_ERROR"
	CodeQuotaExceededAfterCleanup Code = "QUOTA_EXCEEDED_AFTER_CLEANUP"
	CodeCleanupFailed             Code = "CLEANUP_FAILED"
	CodeQuotaExceeded             Code = "QUOTA_EXCEEDED"
)

// Limits are the byte thresholds for the warning, critical and full levels
type Limits struct {
	Warning  int64
	Critical int64
	Maximum  int64
}

// DefaultLimits returns the browser-sized thresholds
func DefaultLimits() Limits {
	return Limits{
		Warning:  DefaultWarningBytes,
		Critical: DefaultCriticalBytes,
		Maximum:  DefaultMaximumBytes,
	}
}

// Level classifies a total size
func (l Limits) Level(total int64) Level {
	switch {
	case total >= l.Maximum:
		return LevelFull
	case total >= l.Critical:
		return LevelCritical
	case total >= l.Warning:
		return LevelWarning
	}
	return LevelSafe
}

// Usage describes how much of the store is in use
type Usage struct {
	TotalBytes   int64   `json:"total_bytes"`
	ReceiptBytes int64   `json:"receipt_bytes"`
	ReceiptCount int     `json:"receipt_count"`
	PercentUsed  float64 `json:"percent_used"`
	Level        Level   `json:"level"`
}

// TotalMB is TotalBytes in megabytes
func (u Usage) TotalMB() float64 {
	return float64(u.TotalBytes) / bytesPerMB
}

// Safety is the outcome of checking whether additional bytes fit
type Safety struct {
	Safe             bool  `json:"safe"`
	Current          Usage `json:"current"`
	AdditionalBytes  int64 `json:"additional_bytes"`
	ProjectedBytes   int64 `json:"projected_bytes"`
	ProjectedLevel   Level `json:"projected_level"`
	RecommendCleanup bool  `json:"recommend_cleanup"`
}

// EvictedReceipt identifies a receipt removed by cleanup
type EvictedReceipt struct {
	ID       string `json:"id"`
	Merchant string `json:"merchant"`
	Date     string `json:"date"`
}

// SaveResult reports the outcome of SafeSave. Failed saves carry a Code.
type SaveResult struct {
	Success          bool             `json:"success"`
	Code             Code             `json:"code,omitempty"`
	Message          string           `json:"message"`
	Usage            Usage            `json:"usage"`
	CleanupPerformed bool             `json:"cleanup_performed,omitempty"`
	Evicted          []EvictedReceipt `json:"evicted,omitempty"`
}

// QuotaManager guards writes to a Store so total usage stays below the critical threshold,
// and evicts the oldest receipts when the store itself reports it is full. It assumes it is the
// only writer to the store.
type QuotaManager struct {
	mu     sync.Mutex
	store  Store
	limits Limits
}

// NewQuotaManager creates a QuotaManager over store
func NewQuotaManager(store Store, limits Limits) *QuotaManager {
	return &QuotaManager{store: store, limits: limits}
}

// Store returns the underlying store
func (q *QuotaManager) Store() Store {
	return q.store
}

// Limits returns the configured thresholds
func (q *QuotaManager) Limits() Limits {
	return q.limits
}

// Usage measures the store
func (q *QuotaManager) Usage() (Usage, error) {
	var usage Usage
	err := q.store.ForEach(func(key, value string) error {
		size := ItemSize(key, value)
		usage.TotalBytes += size
		if IsRecordKey(key) {
			usage.ReceiptBytes += size
			usage.ReceiptCount++
		}
		return nil
	})
	if err != nil {
		return Usage{}, fmt.Errorf("measuring storage usage: %w", err)
	}

	if q.limits.Maximum > 0 {
		usage.PercentUsed = math.Round(float64(usage.TotalBytes)/float64(q.limits.Maximum)*1000) / 10
	}
	usage.Level = q.limits.Level(usage.TotalBytes)
	return usage, nil
}

// CheckSafety reports whether writing additional bytes keeps the store below the critical level
func (q *QuotaManager) CheckSafety(additional int64) (Safety, error) {
	usage, err := q.Usage()
	if err != nil {
		return Safety{}, err
	}

	projected := usage.TotalBytes + additional
	level := q.limits.Level(projected)
	return Safety{
		Safe:             projected < q.limits.Critical,
		Current:          usage,
		AdditionalBytes:  additional,
		ProjectedBytes:   projected,
		ProjectedLevel:   level,
		RecommendCleanup: level == LevelCritical || level == LevelFull,
	}, nil
}

// SafeSave writes value under key.
//
// The write is refused with ErrQuotaWarning, leaving the store untouched, when it would take the
// store to the critical threshold. If the store rejects the write with ErrQuotaExceeded, the oldest
// receipts (other than key itself) are evicted and the write is retried once. The returned
// SaveResult is always populated; err is non-nil whenever SaveResult.Success is false.
func (q *QuotaManager) SafeSave(key, value string) (*SaveResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	additional := ItemSize(key, value)
	existing, err := q.store.Get(key)
	switch {
	case err == nil:
		additional -= ItemSize(key, existing)
	case !errors.Is(err, ErrNotFound):
		return q.failure(CodeSaveError, fmt.Sprintf("Failed to save: %v", err)), fmt.Errorf("reading %s: %w", key, err)
	}

	safety, err := q.CheckSafety(additional)
	if err != nil {
		return q.failure(CodeSaveError, fmt.Sprintf("Failed to save: %v", err)), err
	}
	if !safety.Safe {
		return &SaveResult{
			Code:    CodeQuotaWarning,
			Message: fmt.Sprintf("Storage nearly full (%.2fMB). Cleanup recommended.", float64(safety.ProjectedBytes)/bytesPerMB),
			Usage:   safety.Current,
		}, ErrQuotaWarning
	}

	err = q.store.Set(key, value)
	switch {
	case err == nil:
		return q.success("Data saved successfully"), nil
	case errors.Is(err, ErrQuotaExceeded):
		return q.saveAfterCleanup(key, value)
	}
	return q.failure(CodeSaveError, fmt.Sprintf("Failed to save: %v", err)), fmt.Errorf("saving %s: %w", key, err)
}

func (q *QuotaManager) saveAfterCleanup(key, value string) (*SaveResult, error) {
	slog.Warn("Storage quota exceeded, attempting cleanup", "key", key)

	cleanup, err := q.cleanup(0, key)
	if errors.Is(err, ErrCleanupFailed) {
		return q.failure(CodeCleanupFailed, "Failed to free up storage space."), err
	}
	if err != nil {
		return q.failure(CodeQuotaExceeded, "Storage quota exceeded and cleanup failed."),
			fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	}

	if err := q.store.Set(key, value); err != nil {
		result := q.failure(CodeQuotaExceededAfterCleanup, "Storage still full after cleanup. Manual cleanup required.")
		result.CleanupPerformed = true
		result.Evicted = cleanup.Evicted
		return result, fmt.Errorf("%w: %w", ErrQuotaExceededAfterCleanup, err)
	}

	result := q.success(fmt.Sprintf("Saved after cleanup. Removed %d old receipts.", cleanup.ItemsRemoved))
	result.CleanupPerformed = true
	result.Evicted = cleanup.Evicted
	return result, nil
}

func (q *QuotaManager) success(message string) *SaveResult {
	return &SaveResult{Success: true, Message: message, Usage: q.usageOrZero()}
}

func (q *QuotaManager) failure(code Code, message string) *SaveResult {
	return &SaveResult{Code: code, Message: message, Usage: q.usageOrZero()}
}

func (q *QuotaManager) usageOrZero() Usage {
	usage, err := q.Usage()
	if err != nil {
		slog.Warn("Failed to measure storage usage", "error", err)
		return Usage{Level: LevelSafe}
	}
	return usage
}

// DefaultImageKB is the assumed compressed image size when estimating a receipt
const DefaultImageKB = 150

const base64Overhead = 1.33

// EstimateReceiptSize estimates the bytes a receipt will need once serialized, including an
// image of imageKB kilobytes stored as base64.
func EstimateReceiptSize(record any, imageKB float64) (int64, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("marshaling receipt: %w", err)
	}
	jsonSize := float64(utf16Len(string(data)) * 2)
	imageSize := imageKB * 1024 * base64Overhead
	return int64(math.Round(jsonSize + imageSize)), nil
}
