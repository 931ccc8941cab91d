package tagging

import (
	"fmt"
	"strings"
	"time"
)

// Price buckets, in the receipt's currency (HKD)
const (
	ExpensiveThreshold = 500.0
	ModerateThreshold  = 100.0
	BudgetThreshold    = 50.0

	HighValueThreshold     = 2000.0
	MajorPurchaseThreshold = 1000.0
	MicroPurchaseThreshold = 20.0
)

// Item count and quantity thresholds
const (
	ManyItemsThreshold    = 10
	FewItemsThreshold     = 3
	BulkQuantityThreshold = 20
	genericItemCategory   = "other"
	defaultItemQuantity   = 1
)

// Confidence tiers, as fractions of one
const (
	HighConfidence   = 0.9
	MediumConfidence = 0.7
	LowConfidence    = 0.5
)

var seasons = map[time.Month]string{
	time.December: "winter", time.January: "winter", time.February: "winter",
	time.March: "spring", time.April: "spring", time.May: "spring",
	time.June: "summer", time.July: "summer", time.August: "summer",
	time.September: "fall", time.October: "fall", time.November: "fall",
}

// dateLayouts are tried in order when reading a record date
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"2006-01-02",
	time.RFC3339,
}

func merchantTags(r Record) ([]string, error) {
	if strings.TrimSpace(r.Merchant) == "" {
		return nil, nil
	}
	name := strings.ToLower(r.Merchant)

	var tags []string
	for _, kt := range merchantKeywords {
		if strings.Contains(name, kt.keyword) {
			tags = append(tags, kt.tags...)
		}
	}
	return append(tags, "merchant"), nil
}

func itemTags(r Record) ([]string, error) {
	var tags []string
	for _, item := range r.Items {
		if item.Name == "" {
			continue
		}
		name := strings.ToLower(item.Name)
		for _, kt := range itemKeywords {
			if strings.Contains(name, kt.keyword) {
				tags = append(tags, kt.tags...)
			}
		}
		if category := strings.ToLower(strings.TrimSpace(item.Category)); category != "" && category != genericItemCategory {
			tags = append(tags, category)
		}
	}

	switch n := len(r.Items); {
	case n > ManyItemsThreshold:
		tags = append(tags, "many-items")
	case n > 0 && n <= FewItemsThreshold:
		tags = append(tags, "few-items")
	}
	return tags, nil
}

func priceTags(r Record) ([]string, error) {
	if r.Total == nil || *r.Total <= 0 {
		return nil, nil
	}
	total := *r.Total

	var tags []string
	switch {
	case total >= ExpensiveThreshold:
		tags = append(tags, "expensive")
	case total >= ModerateThreshold:
		tags = append(tags, "moderate")
	case total >= BudgetThreshold:
		tags = append(tags, "budget")
	default:
		tags = append(tags, "cheap")
	}

	if total >= HighValueThreshold {
		tags = append(tags, "high-value")
	}
	if total >= MajorPurchaseThreshold {
		tags = append(tags, "major-purchase")
	}
	if total < MicroPurchaseThreshold {
		tags = append(tags, "micro-purchase")
	}
	return tags, nil
}

// dateTags uses the receipt date, or the timestamp when the receipt has no date
func dateTags(r Record) ([]string, error) {
	var date time.Time
	switch {
	case strings.TrimSpace(r.Date) != "":
		parsed, err := parseRecordDate(r.Date)
		if err != nil {
			return nil, err
		}
		date = parsed
	case r.Timestamp != nil:
		date = *r.Timestamp
	default:
		return nil, nil
	}

	month := date.Month()
	tags := []string{
		seasons[month],
		fmt.Sprintf("year-%d", date.Year()),
		strings.ToLower(month.String()),
	}
	return append(tags, holidayTags(month, date.Day())...), nil
}

func parseRecordDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// holidayTags marks fixed seasonal windows around Hong Kong holidays
func holidayTags(month time.Month, day int) []string {
	var tags []string
	if (month == time.January && day >= 15) || (month == time.February && day <= 25) {
		tags = append(tags, "chinese-new-year-season")
	}
	if month == time.December && day >= 15 {
		tags = append(tags, "christmas-season")
	}
	if (month == time.December && day >= 30) || (month == time.January && day <= 2) {
		tags = append(tags, "new-year")
	}
	if month == time.February && day >= 10 && day <= 16 {
		tags = append(tags, "valentines")
	}
	if (month == time.September && day >= 15) || (month == time.October && day <= 15) {
		tags = append(tags, "mid-autumn-season")
	}
	if month == time.August || (month == time.September && day <= 15) {
		tags = append(tags, "back-to-school")
	}
	if month == time.July || month == time.August {
		tags = append(tags, "summer-vacation")
	}
	return tags
}

func timeTags(r Record) ([]string, error) {
	if r.Timestamp == nil {
		return nil, nil
	}
	ts := *r.Timestamp

	var tags []string
	switch hour := ts.Hour(); {
	case hour >= 5 && hour < 12:
		tags = append(tags, "morning")
	case hour >= 12 && hour < 17:
		tags = append(tags, "afternoon")
	case hour >= 17 && hour < 21:
		tags = append(tags, "evening")
	default:
		tags = append(tags, "night")
	}

	if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
		tags = append(tags, "weekend")
	} else {
		tags = append(tags, "weekday")
	}
	return tags, nil
}

func quantityTags(r Record) ([]string, error) {
	if len(r.Items) == 0 {
		return nil, nil
	}

	total := 0
	for _, item := range r.Items {
		if item.Quantity > 0 {
			total += item.Quantity
		} else {
			total += defaultItemQuantity
		}
	}

	switch {
	case total > BulkQuantityThreshold:
		return []string{"bulk-quantity"}, nil
	case total == 1:
		return []string{"single-item"}, nil
	}
	return nil, nil
}

// confidenceTags reads Record.Confidence as a fraction of one
func confidenceTags(r Record) ([]string, error) {
	if r.Confidence == nil {
		return nil, nil
	}
	c := *r.Confidence

	switch {
	case c >= HighConfidence:
		return []string{"high-confidence"}, nil
	case c >= MediumConfidence:
		return []string{"medium-confidence"}, nil
	case c >= LowConfidence:
		return []string{"low-confidence"}, nil
	}
	return []string{"very-low-confidence"}, nil
}
