package parsing

import (
	"regexp"
	"slices"
	"strings"
)

// Amount confidence scoring
const (
	amountBaseConfidence = 40
	amountKeywordBonus   = 30
	amountCurrencyBonus  = 10
	amountCentsBonus     = 15
	amountMaxConfidence  = 95
	amountMin            = 0
	amountMax            = 10000
	amountContextRadius  = 20
)

// totalPatterns are scanned in order, most specific first
var totalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:total|sum|amount\s+due|balance|pay)\s*:?\s*[$€£]?(\d+\.?\d{0,2})`),
	regexp.MustCompile(`(?m)[$€£]\s*(\d+\.\d{2})\s*$`),
	regexp.MustCompile(`\b(\d+\.\d{2})\b`),
}

var (
	totalKeyword   = regexp.MustCompile(`(?i)total|sum|amount\s+due`)
	currencySymbol = regexp.MustCompile(`[$€£]`)
	centsSuffix    = regexp.MustCompile(`\.\d{2}$`)
)

// ExtractTotal finds the receipt total. Every amount in range becomes a candidate; the winner is
// the most confident candidate whose matched text mentions total, amount or due, or failing
// that the most confident candidate overall. Equal confidences keep scan order.
func ExtractTotal(text string) Field[float64] {
	var candidates []Field[float64]

	for _, pattern := range totalPatterns {
		for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
			amount, ok := parseAmount(text[loc[2]:loc[3]])
			if !ok || amount <= amountMin || amount >= amountMax {
				continue
			}
			matched := text[loc[0]:loc[1]]
			candidate := found(amount, amountConfidence(matched), strings.TrimSpace(matched))
			candidate.Context = snippet(text, loc[0], amountContextRadius)
			candidates = append(candidates, candidate)
		}
	}

	if len(candidates) == 0 {
		return notFound[float64](sourceNotFound)
	}

	slices.SortStableFunc(candidates, func(a, b Field[float64]) int {
		return b.Confidence - a.Confidence
	})

	for _, c := range candidates {
		if mentionsTotal(c.Source) {
			return c
		}
	}
	return candidates[0]
}

func amountConfidence(matched string) int {
	confidence := amountBaseConfidence
	if totalKeyword.MatchString(matched) {
		confidence += amountKeywordBonus
	}
	if currencySymbol.MatchString(matched) {
		confidence += amountCurrencyBonus
	}
	if centsSuffix.MatchString(strings.TrimSpace(matched)) {
		confidence += amountCentsBonus
	}
	return min(confidence, amountMaxConfidence)
}

func mentionsTotal(source string) bool {
	s := strings.ToLower(source)
	return strings.Contains(s, "total") || strings.Contains(s, "amount") || strings.Contains(s, "due")
}
