package parsing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateConfidence = 80

type dateLayout int

const (
	layoutSlash dateLayout = iota
	layoutDash
	layoutISO
	layoutMonthDayYear
	layoutDayMonthYear
)

type datePattern struct {
	layout dateLayout
	re     *regexp.Regexp
}

// datePatterns are tried in order; the first match inside the acceptance window wins
var datePatterns = []datePattern{
	{layoutSlash, regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)},
	{layoutDash, regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{2,4})\b`)},
	{layoutISO, regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)},
	{layoutMonthDayYear, regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+(\d{1,2}),?\s+(\d{4})`)},
	{layoutDayMonthYear, regexp.MustCompile(`(?i)\b(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+(\d{4})`)},
}

var monthAbbreviations = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var errMalformedDate = errors.New("malformed date")

type dateCandidate struct {
	date      time.Time
	formatted string
}

// ExtractDate finds the purchase date using the current time as the acceptance window anchor
func ExtractDate(text string) DateField {
	return defaultParser.ExtractDate(text)
}

// ExtractDate finds the first date in text that falls between one year before and one month
// after the parser's current time. Dates are returned formatted as MM/DD/YYYY.
func (p *Parser) ExtractDate(text string) DateField {
	now := p.timeSource.Now()
	loc := now.Location()
	earliest := time.Date(now.Year()-1, now.Month(), now.Day(), 0, 0, 0, 0, loc)
	latest := time.Date(now.Year(), now.Month()+1, now.Day(), 0, 0, 0, 0, loc)

	for _, pattern := range datePatterns {
		for _, m := range pattern.re.FindAllStringSubmatch(text, -1) {
			candidate, err := parseDateMatch(pattern.layout, m, loc)
			if err != nil {
				continue
			}
			if candidate.date.Before(earliest) || candidate.date.After(latest) {
				continue
			}
			parsed := candidate.date
			return DateField{
				Field:  found(candidate.formatted, dateConfidence, m[0]),
				Parsed: &parsed,
			}
		}
	}

	return DateField{Field: notFound[string](sourceNotFound)}
}

// parseDateMatch turns a regexp match into a calendar date. Numeric slash and dash dates are
// read as month/day; when the first number cannot be a month but the second can, the two are
// swapped so day-first dates like 31/01/2024 still resolve.
func parseDateMatch(layout dateLayout, m []string, loc *time.Location) (dateCandidate, error) {
	var year, month, day int
	var err error

	switch layout {
	case layoutSlash, layoutDash:
		if month, err = strconv.Atoi(m[1]); err != nil {
			return dateCandidate{}, fmt.Errorf("%w: %v", errMalformedDate, err)
		}
		if day, err = strconv.Atoi(m[2]); err != nil {
			return dateCandidate{}, fmt.Errorf("%w: %v", errMalformedDate, err)
		}
		if year, err = strconv.Atoi(m[3]); err != nil {
			return dateCandidate{}, fmt.Errorf("%w: %v", errMalformedDate, err)
		}
		year = expandYear(year)
		if month > 12 && day <= 12 {
			month, day = day, month
		}
	case layoutISO:
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
	case layoutMonthDayYear:
		month = int(monthAbbreviations[strings.ToLower(m[1])])
		day, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	case layoutDayMonthYear:
		day, _ = strconv.Atoi(m[1])
		month = int(monthAbbreviations[strings.ToLower(m[2])])
		year, _ = strconv.Atoi(m[3])
	}

	if month < 1 || month > 12 || day < 1 {
		return dateCandidate{}, fmt.Errorf("%w: %q", errMalformedDate, m[0])
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes overflow, e.g. February 30th, which is not a real date
	if date.Day() != day || int(date.Month()) != month {
		return dateCandidate{}, fmt.Errorf("%w: %q", errMalformedDate, m[0])
	}

	return dateCandidate{
		date:      date,
		formatted: fmt.Sprintf("%02d/%02d/%d", month, day, year),
	}, nil
}

// expandYear converts two-digit years: above 50 is the 1900s, otherwise the 2000s
func expandYear(year int) int {
	if year >= 100 {
		return year
	}
	if year > 50 {
		return 1900 + year
	}
	return 2000 + year
}
