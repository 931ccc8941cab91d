package parsing

import (
	"regexp"
	"unicode/utf8"
)

var skippableLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(receipt|invoice|bill|store|shop)[\s#]*\d*$`),
	regexp.MustCompile(`(?i)^(date|time|cashier|clerk|register)`),
	regexp.MustCompile(`^[\d\s\-:/]+$`),
	regexp.MustCompile(`^[*=\-_]{3,}$`),
	regexp.MustCompile(`(?i)^(thank\s+you|thanks|have\s+a|welcome)`),
	regexp.MustCompile(`^\d+\s*$`),
	regexp.MustCompile(`(?i)^[a-z\s]{1,3}$`),
}

// summaryLinePattern matches totals, taxes and tender lines, which carry prices but are not items
var summaryLinePattern = regexp.MustCompile(`(?i)\b(sub\s*total|total|tax|change|cash|balance|amount\s+due|discount|visa|mastercard|credit|debit)\b`)

// isSkippableLine reports whether a line is receipt boilerplate rather than content
func isSkippableLine(line string) bool {
	for _, p := range skippableLinePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func isSummaryLine(line string) bool {
	return summaryLinePattern.MatchString(line)
}

// snippet returns up to radius bytes of text on either side of index, widened to rune boundaries
func snippet(text string, index, radius int) string {
	start := max(0, index-radius)
	end := min(len(text), index+radius)
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return text[start:end]
}
