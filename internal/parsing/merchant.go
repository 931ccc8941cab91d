package parsing

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Merchant confidence scoring
const (
	merchantBaseConfidence     = 50
	merchantSuffixBonus        = 20
	merchantTitleCaseBonus     = 15
	merchantShortNameBonus     = 10
	merchantNoDigitBonus       = 10
	merchantMaxConfidence      = 95
	merchantFallbackConfidence = 40

	merchantCandidateLines = 5
	merchantMinLength      = 3
	merchantMaxLength      = 50
	merchantShortMaxLength = 25
)

var (
	storeNumberPrefix  = regexp.MustCompile(`(?i)^(store|shop)[\s#]*\d+`)
	trailingSeparators = regexp.MustCompile(`[\s-]+$`)
	businessSuffix     = regexp.MustCompile(`(?i)\b(inc|llc|corp|ltd|store|market|shop)\b`)
	titleCaseName      = regexp.MustCompile(`^[A-Z][a-z]+(?:\s+[A-Z][a-z]*)*$`)
	capsRun            = regexp.MustCompile(`\b[A-Z][A-Z\s]{2,20}\b`)
	anyDigit           = regexp.MustCompile(`\d`)
)

// ExtractMerchant looks for the merchant name in the header lines of a receipt, falling back
// to the first run of capital letters anywhere in the text.
func ExtractMerchant(text string) Field[string] {
	lines := splitLines(text)
	if len(lines) > merchantCandidateLines {
		lines = lines[:merchantCandidateLines]
	}

	for _, line := range lines {
		if isSkippableLine(line) {
			continue
		}
		length := utf8.RuneCountInString(line)
		if length < merchantMinLength || length > merchantMaxLength {
			continue
		}

		cleaned := storeNumberPrefix.ReplaceAllString(line, "")
		cleaned = trailingSeparators.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(cleaned)

		if utf8.RuneCountInString(cleaned) >= merchantMinLength {
			return found(cleaned, merchantConfidence(cleaned), sourceHeader)
		}
	}

	if m := capsRun.FindString(text); m != "" {
		if merchant := strings.TrimSpace(m); merchant != "" {
			return found(merchant, merchantFallbackConfidence, sourceFallbackCaps)
		}
	}

	return notFound[string](sourceNotFound)
}

func merchantConfidence(name string) int {
	confidence := merchantBaseConfidence
	if businessSuffix.MatchString(name) {
		confidence += merchantSuffixBonus
	}
	if titleCaseName.MatchString(name) {
		confidence += merchantTitleCaseBonus
	}
	if n := utf8.RuneCountInString(name); n >= merchantMinLength && n <= merchantShortMaxLength {
		confidence += merchantShortNameBonus
	}
	if !anyDigit.MatchString(name) {
		confidence += merchantNoDigitBonus
	}
	return min(confidence, merchantMaxConfidence)
}
