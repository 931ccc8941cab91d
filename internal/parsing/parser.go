package parsing

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Parser runs the heuristic extractors over recognized receipt text. Its only state is the
// clock used to anchor the date acceptance window, so a single Parser is safe for concurrent use.
type Parser struct {
	timeSource TimeSource
}

// NewParser creates a Parser that uses the system clock
func NewParser() *Parser {
	return &Parser{timeSource: &defaultTimeSource{}}
}

// NewParserWithTimeSource creates a Parser with a custom clock for testing
func NewParserWithTimeSource(timeSrc TimeSource) *Parser {
	return &Parser{timeSource: timeSrc}
}

var defaultParser = NewParser()

// Parse parses text with DefaultBaseConfidence using the system clock
func Parse(text string) *ParsedReceipt {
	return defaultParser.Parse(text)
}

// Parse parses text assuming the recognizer's default confidence
func (p *Parser) Parse(text string) *ParsedReceipt {
	return p.ParseWithConfidence(text, DefaultBaseConfidence)
}

var (
	patternCurrency = regexp.MustCompile(`[$€£¥]`)
	patternTotal    = regexp.MustCompile(`(?i)total|sum|amount`)
	patternDate     = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
)

// ParseWithConfidence normalizes text and runs every field extractor over it. It never fails:
// empty input and unexpected panics both produce an empty result with Metadata.Error set.
func (p *Parser) ParseWithConfidence(text string, baseConfidence int) (result *ParsedReceipt) {
	now := p.timeSource.Now()

	if strings.TrimSpace(text) == "" {
		return emptyResult(now, 0, "no text provided")
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Receipt parsing failed", "error", r)
			result = emptyResult(now, 0, fmt.Sprint(r))
			result.Metadata.RawText = text
		}
	}()

	cleaned := Normalize(text)
	result = &ParsedReceipt{
		Merchant: ExtractMerchant(cleaned),
		Total:    ExtractTotal(cleaned),
		Date:     p.ExtractDate(cleaned),
		Items:    ExtractLineItems(cleaned),
		Metadata: Metadata{
			Confidence:     clampConfidence(baseConfidence),
			RawText:        text,
			CleanedText:    cleaned,
			ParsingVersion: ParsingVersion,
			Timestamp:      now,
			Patterns:       detectPatterns(cleaned),
		},
	}
	result.Metadata.ParsingConfidence = AggregateConfidence(result, baseConfidence)
	return result
}

func detectPatterns(cleaned string) Patterns {
	lines := splitLines(cleaned)
	patterns := Patterns{
		HasCurrency: patternCurrency.MatchString(cleaned),
		HasTotal:    patternTotal.MatchString(cleaned),
		HasDate:     patternDate.MatchString(cleaned),
		LineCount:   len(lines),
	}
	if len(lines) > 0 {
		total := 0
		for _, line := range lines {
			total += utf8.RuneCountInString(line)
		}
		patterns.AvgLineLength = float64(total) / float64(len(lines))
	}
	return patterns
}
