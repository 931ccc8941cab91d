package receipt

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-manager/internal/tagging"
)

// Stats summarises the stored receipts
type Stats struct {
	Count         int            `json:"count"`
	TotalAmount   float64        `json:"total_amount"`
	AverageAmount float64        `json:"average_amount"`
	Categories    map[string]int `json:"categories"`
	Merchants     map[string]int `json:"merchants"`
	EarliestDate  string         `json:"earliest_date,omitempty"`
	LatestDate    string         `json:"latest_date,omitempty"`
	StorageBytes  int64          `json:"storage_bytes"`
}

// Stats computes totals over every receipt. Receipts without a total count toward Count but
// not toward the average.
func (s *Service) Stats() (*Stats, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	usage, err := s.db.Usage()
	if err != nil {
		return nil, fmt.Errorf("measuring storage: %w", err)
	}

	stats := &Stats{
		Count:        len(receipts),
		Categories:   map[string]int{},
		Merchants:    map[string]int{},
		StorageBytes: usage.TotalBytes,
	}

	sum := decimal.Zero
	priced := 0
	var earliest, latest time.Time
	for _, r := range receipts {
		if r.Total != nil {
			sum = sum.Add(decimal.NewFromFloat(*r.Total))
			priced++
		}
		if r.Merchant != "" {
			stats.Merchants[r.Merchant]++
		}
		for _, item := range r.Items {
			stats.Categories[item.Category]++
		}

		date := r.TransactionDate()
		if date.IsZero() {
			continue
		}
		if earliest.IsZero() || date.Before(earliest) {
			earliest = date
		}
		if latest.IsZero() || date.After(latest) {
			latest = date
		}
	}

	stats.TotalAmount = sum.Round(2).InexactFloat64()
	if priced > 0 {
		stats.AverageAmount = sum.Div(decimal.NewFromInt(int64(priced))).Round(2).InexactFloat64()
	}
	if !earliest.IsZero() {
		stats.EarliestDate = earliest.Format("01/02/2006")
		stats.LatestDate = latest.Format("01/02/2006")
	}
	return stats, nil
}

// TagStatistics counts tag usage across every receipt
func (s *Service) TagStatistics() (tagging.Statistics, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return tagging.Statistics{}, fmt.Errorf("listing receipts: %w", err)
	}

	sets := make([]tagging.TagSet, 0, len(receipts))
	for _, r := range receipts {
		sets = append(sets, r.Tags)
	}
	return tagging.ComputeStatistics(sets), nil
}
