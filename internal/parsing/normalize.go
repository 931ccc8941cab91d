package parsing

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var repeatedPunctuation = regexp.MustCompile(`[.,]{2,}`)

// currencyGlyphs maps currency symbol look-alikes that survive NFKC folding (which already
// turns full-width and small-form signs into ASCII) to their canonical glyph
var currencyGlyphs = map[rune]rune{
	'₤': '£',
	'＄': '$',
	'￡': '£',
}

// Normalize cleans recognized receipt text so the extractors see a predictable shape.
//
// Whitespace runs inside a line collapse to a single space and blank lines are dropped; line
// breaks themselves are kept because merchant and line-item extraction work per line.
// Letters that OCR commonly confuses with digits are rewritten only when they touch a digit,
// so merchant names are left alone. Normalize is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFKC.String(text)
	text = strings.Map(func(r rune) rune {
		if c, ok := currencyGlyphs[r]; ok {
			return c
		}
		return r
	}, text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		line = fixDigitConfusions(line)
		line = repeatedPunctuation.ReplaceAllString(line, ".")
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}

// fixDigitConfusions rewrites O/o next to a digit to 0, and l/I, S and Z directly before a
// digit to 1, 5 and 2. It repeats until nothing changes so "OO1" becomes "001".
func fixDigitConfusions(line string) string {
	b := []byte(line)
	for changed := true; changed; {
		changed = false
		for i, c := range b {
			prevDigit := i > 0 && isDigit(b[i-1])
			nextDigit := i+1 < len(b) && isDigit(b[i+1])

			var fixed byte
			switch c {
			case 'O', 'o':
				if prevDigit || nextDigit {
					fixed = '0'
				}
			case 'l', 'I':
				if nextDigit {
					fixed = '1'
				}
			case 'S':
				if nextDigit {
					fixed = '5'
				}
			case 'Z':
				if nextDigit {
					fixed = '2'
				}
			}
			if fixed != 0 {
				b[i] = fixed
				changed = true
			}
		}
	}
	return string(b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// splitLines returns the trimmed, non-empty lines of text
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
