package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	itemConfidence       = 60
	itemsFoundConfidence = 65
	itemMinNameLength    = 2
	itemMaxQuantity      = 999
)

var (
	itemLine      = regexp.MustCompile(`^(.+?)\s+[$€£]?(\d+\.\d{2})$`)
	quantityToken = regexp.MustCompile(`^(\d+)\s*(?:[xX]\s+|\s)`)
)

// ExtractLineItems matches "<name> <price>" lines. A leading quantity such as "2 " or "2x "
// is stripped from the name and recorded as the item quantity.
// Summary lines (totals, tax, tender) are never items, even when they carry a price, so item
// counts and the item-count tags only see purchased goods.
func ExtractLineItems(text string) ItemsField {
	var items []LineItem

	for _, line := range splitLines(text) {
		if isSkippableLine(line) || isSummaryLine(line) {
			continue
		}

		m := itemLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		name, quantity := splitQuantity(m[1])
		price, ok := parseAmount(m[2])
		if !ok || price <= 0 || utf8.RuneCountInString(name) < itemMinNameLength {
			continue
		}

		item := NewLineItem(name, price, quantity, DefaultCategory)
		item.Confidence = itemConfidence
		item.Source = line
		items = append(items, item)
	}

	if len(items) == 0 {
		return ItemsField{Source: sourcePatternMatching}
	}
	return ItemsField{
		Value:      items,
		Confidence: itemsFoundConfidence,
		Count:      len(items),
		Source:     sourcePatternMatching,
	}
}

func splitQuantity(name string) (string, int) {
	name = strings.TrimSpace(name)
	m := quantityToken.FindStringSubmatch(name)
	if m == nil {
		return name, 1
	}
	quantity, err := strconv.Atoi(m[1])
	if err != nil || quantity < 1 || quantity > itemMaxQuantity {
		quantity = 1
	}
	return strings.TrimSpace(name[len(m[0]):]), quantity
}
