package receipt

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Filters narrow a search. Zero values match everything.
type Filters struct {
	StartDate *time.Time
	EndDate   *time.Time
	MinAmount *float64
	MaxAmount *float64
	Category  string
	Tag       string
}

// Search returns receipts, newest first, whose merchant or item names contain query and that
// pass every filter. Date bounds are inclusive calendar days.
func (s *Service) Search(query string, filters Filters) ([]*Receipt, error) {
	receipts, err := s.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("searching receipts: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	matches := make([]*Receipt, 0, len(receipts))
	for _, r := range receipts {
		if matchesQuery(r, query) && filters.match(r) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

func matchesQuery(r *Receipt, query string) bool {
	if query == "" || strings.Contains(strings.ToLower(r.Merchant), query) {
		return true
	}
	return slices.ContainsFunc(r.Items, func(item LineItem) bool {
		return strings.Contains(strings.ToLower(item.Name), query)
	})
}

func (f Filters) match(r *Receipt) bool {
	if f.StartDate != nil || f.EndDate != nil {
		day := truncateDay(r.TransactionDate())
		if f.StartDate != nil && day.Before(truncateDay(*f.StartDate)) {
			return false
		}
		if f.EndDate != nil && day.After(truncateDay(*f.EndDate)) {
			return false
		}
	}

	if f.MinAmount != nil || f.MaxAmount != nil {
		if r.Total == nil {
			return false
		}
		if f.MinAmount != nil && *r.Total < *f.MinAmount {
			return false
		}
		if f.MaxAmount != nil && *r.Total > *f.MaxAmount {
			return false
		}
	}

	if f.Category != "" {
		category := strings.ToLower(f.Category)
		if !slices.ContainsFunc(r.Items, func(item LineItem) bool { return strings.ToLower(item.Category) == category }) {
			return false
		}
	}

	if f.Tag != "" && !slices.Contains(r.Tags.All, strings.ToLower(f.Tag)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
