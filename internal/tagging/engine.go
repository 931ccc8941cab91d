// Package tagging derives semantic tags for receipts from their merchant, items, amounts,
// dates and recognition confidence, and validates the tags users add by hand.
package tagging

import (
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Item is the part of a line item the tag rules look at
type Item struct {
	Name     string
	Category string
	Quantity int
}

// Record is the receipt view the tag rules run over. Every field is optional.
type Record struct {
	Merchant   string
	Items      []Item
	Total      *float64
	Date       string
	Timestamp  *time.Time
	Confidence *float64 // 0..1
}

// Rule produces tags for a record. A rule that fails or panics contributes nothing; the
// other rules still run.
type Rule struct {
	Name  string
	Apply func(Record) ([]string, error)
}

// Engine applies a fixed list of tag rules
type Engine struct {
	rules []Rule
}

// NewEngine creates an Engine with the default rule set
func NewEngine() *Engine {
	return NewEngineWithRules(DefaultRules()...)
}

// NewEngineWithRules creates an Engine with custom rules
func NewEngineWithRules(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// DefaultRules returns the merchant, item, price, date, time, quantity and confidence rules
func DefaultRules() []Rule {
	return []Rule{
		{Name: "merchant", Apply: merchantTags},
		{Name: "items", Apply: itemTags},
		{Name: "price", Apply: priceTags},
		{Name: "date", Apply: dateTags},
		{Name: "time", Apply: timeTags},
		{Name: "quantity", Apply: quantityTags},
		{Name: "confidence", Apply: confidenceTags},
	}
}

// GenerateAutoTags runs every rule over the record and returns the sorted, de-duplicated union
// of their tags.
func (e *Engine) GenerateAutoTags(r Record) []string {
	seen := make(map[string]struct{})
	for _, rule := range e.rules {
		tags, err := runRule(rule, r)
		if err != nil {
			slog.Warn("Tag rule failed", "rule", rule.Name, "error", err)
			continue
		}
		for _, tag := range tags {
			if tag != "" {
				seen[tag] = struct{}{}
			}
		}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

func runRule(rule Rule, r Record) (tags []string, err error) {
	defer func() {
		if p := recover(); p != nil {
			tags = nil
			err = fmt.Errorf("rule panicked: %v", p)
		}
	}()
	return rule.Apply(r)
}
