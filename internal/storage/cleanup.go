package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Eviction sizing: a fifth of the receipts, but never fewer than MinEvictions
const (
	EvictionFraction = 0.2
	MinEvictions     = 5
)

// CleanupResult describes an eviction pass
type CleanupResult struct {
	ItemsRemoved   int              `json:"items_removed"`
	Evicted        []EvictedReceipt `json:"evicted"`
	RemainingCount int              `json:"remaining_count"`
	Message        string           `json:"message"`
}

// evictable is the part of a stored receipt that eviction needs
type evictable struct {
	ID        string     `json:"id"`
	Merchant  string     `json:"merchant"`
	Date      string     `json:"date"`
	Timestamp *time.Time `json:"timestamp"`
	CreatedAt *time.Time `json:"created_at"`
}

func (e evictable) effectiveTime() time.Time {
	if e.Timestamp != nil && !e.Timestamp.IsZero() {
		return *e.Timestamp
	}
	if e.CreatedAt != nil {
		return *e.CreatedAt
	}
	return time.Time{}
}

type evictionCandidate struct {
	key    string
	record evictable
}

// Cleanup evicts the target number of oldest receipts, or the default count when target is
// zero. It fails with ErrCleanupFailed rather than remove every receipt.
func (q *QuotaManager) Cleanup(target int) (*CleanupResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.cleanup(target, "")
}

// cleanup evicts receipts oldest first, never touching the exclude key
func (q *QuotaManager) cleanup(target int, exclude string) (*CleanupResult, error) {
	var candidates []evictionCandidate
	err := q.store.ForEach(func(key, value string) error {
		if !IsRecordKey(key) || key == exclude {
			return nil
		}
		var record evictable
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			slog.Warn("Unreadable receipt queued for eviction", "key", key, "error", err)
		}
		if record.ID == "" {
			record.ID = RecordID(key)
		}
		candidates = append(candidates, evictionCandidate{key: key, record: record})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no receipts to clean up", ErrCleanupFailed)
	}

	removeCount := target
	if removeCount <= 0 {
		removeCount = max(int(float64(len(candidates))*EvictionFraction), MinEvictions)
	}
	if removeCount >= len(candidates) {
		return nil, fmt.Errorf("%w: cannot remove all %d receipts", ErrCleanupFailed, len(candidates))
	}

	slices.SortStableFunc(candidates, func(a, b evictionCandidate) int {
		return a.record.effectiveTime().Compare(b.record.effectiveTime())
	})

	result := &CleanupResult{}
	for _, c := range candidates[:removeCount] {
		if err := q.store.Remove(c.key); err != nil {
			return nil, fmt.Errorf("removing %s: %w", c.key, err)
		}
		result.Evicted = append(result.Evicted, EvictedReceipt{
			ID:       c.record.ID,
			Merchant: c.record.Merchant,
			Date:     c.record.Date,
		})
	}
	result.ItemsRemoved = removeCount
	result.RemainingCount = len(candidates) - removeCount
	result.Message = fmt.Sprintf("Removed %d oldest receipts", removeCount)

	slog.Warn("Automatic cleanup removed old receipts", "removed", removeCount, "remaining", result.RemainingCount)
	return result, nil
}

// LargeCollectionThreshold is the receipt count above which archiving is suggested
const LargeCollectionThreshold = 100

// Recommendation is advice shown to the user about storage
type Recommendation struct {
	Type    string   `json:"type"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Actions []string `json:"actions"`
}

// Recommendations suggests actions based on the current usage level and receipt count
func (q *QuotaManager) Recommendations() ([]Recommendation, error) {
	usage, err := q.Usage()
	if err != nil {
		return nil, err
	}
	return recommendationsFor(usage), nil
}

func recommendationsFor(usage Usage) []Recommendation {
	recommendations := []Recommendation{}

	switch usage.Level {
	case LevelCritical, LevelFull:
		recommendations = append(recommendations, Recommendation{
			Type:    "urgent",
			Title:   "Storage Critical",
			Message: fmt.Sprintf("You're using %.1f%% of available storage. Immediate cleanup recommended.", usage.PercentUsed),
			Actions: []string{"Delete old receipts", "Export data", "Clear all data"},
		})
	case LevelWarning:
		recommendations = append(recommendations, Recommendation{
			Type:    "warning",
			Title:   "Storage Warning",
			Message: fmt.Sprintf("You're using %.1f%% of available storage. Consider cleanup soon.", usage.PercentUsed),
			Actions: []string{"Archive old receipts", "Export data"},
		})
	}

	if usage.ReceiptCount > LargeCollectionThreshold {
		recommendations = append(recommendations, Recommendation{
			Type:    "info",
			Title:   "Large Receipt Collection",
			Message: fmt.Sprintf("You have %d receipts stored. Consider organizing or archiving.", usage.ReceiptCount),
			Actions: []string{"Export by date range", "Delete by category"},
		})
	}
	return recommendations
}
