package scanning

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// modelResponse mirrors the JSON the prompt asks for. Models are inconsistent about
// numbers, so amounts are decoded loosely.
type modelResponse struct {
	Merchant   string          `json:"merchant"`
	Total      json.RawMessage `json:"total"`
	Date       string          `json:"date"`
	Items      []modelItem     `json:"items"`
	Confidence json.RawMessage `json:"confidence"`
	RawText    string          `json:"rawText"`
}

type modelItem struct {
	Name     string          `json:"name"`
	Price    json.RawMessage `json:"price"`
	Quantity json.RawMessage `json:"quantity"`
}

// Raw-text item fallbacks, tried in order on each line
var rawTextItemPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.+?)\s+\$(\d+\.\d{2})$`),
	regexp.MustCompile(`^(.+?)\s+(\d+\.\d{2})$`),
	regexp.MustCompile(`^(.+?)\s+\d+\s+\$(\d+\.\d{2})$`),
}

var rawTextSkip = regexp.MustCompile(`(?i)total|subtotal|tax|discount|thank|receipt|store|phone|address`)

const maxRawTextItemPrice = 1000

// parseReceiptJSON parses the JSON answer of a vision model
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	// Models sometimes wrap the object in prose
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var resp modelResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data := &ReceiptData{
		Merchant:   strings.TrimSpace(resp.Merchant),
		Date:       normalizeDate(resp.Date),
		RawText:    strings.TrimSpace(resp.RawText),
		Confidence: DefaultConfidence,
	}
	if total, ok := looseNumber(resp.Total); ok {
		data.Total = &total
	}
	if confidence, ok := looseNumber(resp.Confidence); ok && confidence > 0 {
		data.Confidence = int(math.Round(min(confidence, 100)))
	}

	for _, item := range resp.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		price, _ := looseNumber(item.Price)
		quantity, _ := looseNumber(item.Quantity)
		data.Items = append(data.Items, Item{Name: name, Price: price, Quantity: int(quantity)})
	}
	if len(data.Items) == 0 && data.RawText != "" {
		data.Items = itemsFromRawText(data.RawText)
	}

	return data, nil
}

// looseNumber accepts a JSON number or a string such as "$12.50", rounded to cents
func looseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return roundCents(n), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	return parseNumber(s)
}

var nonNumeric = regexp.MustCompile(`[^\d.\-]`)

// parseNumber strips currency symbols and separators from a string amount
func parseNumber(s string) (float64, bool) {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) {
		return 0, false
	}
	return roundCents(n), true
}

func roundCents(n float64) float64 {
	return math.Round(n*100) / 100
}

var (
	isoDate   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})`)
	slashDate = regexp.MustCompile(`^(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})$`)
)

// normalizeDate converts model dates to MM/DD/YYYY. Dates it cannot read are returned unchanged.
func normalizeDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" || strings.EqualFold(date, "null") {
		return ""
	}

	if m := isoDate.FindStringSubmatch(date); m != nil {
		return formatDate(m[1], m[2], m[3])
	}
	if m := slashDate.FindStringSubmatch(date); m != nil {
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		return formatDate(year, m[1], m[2])
	}
	for _, layout := range []string{"January 2, 2006", "Jan 2, 2006", "2 January 2006", "2 Jan 2006"} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format("01/02/2006")
		}
	}
	return date
}

func formatDate(year, month, day string) string {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return fmt.Sprintf("%02d/%02d/%04d", m, d, y)
}

// itemsFromRawText recovers priced lines when the model returned text but no items
func itemsFromRawText(rawText string) []Item {
	var items []Item
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || rawTextSkip.MatchString(line) {
			continue
		}
		for _, pattern := range rawTextItemPatterns {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := strings.TrimSpace(m[1])
			price, err := strconv.ParseFloat(m[2], 64)
			if err == nil && len(name) > 2 && price > 0 && price < maxRawTextItemPrice {
				items = append(items, Item{Name: name, Price: price, Quantity: 1})
				break
			}
		}
	}
	return items
}
