package parsing

import "math"

// DefaultBaseConfidence is used when the text recognizer reports no confidence of its own
const DefaultBaseConfidence = 85

// Weights of the parsing confidence score. Line items are not weighted.
const (
	BaseConfidenceWeight     = 0.30
	MerchantConfidenceWeight = 0.25
	TotalConfidenceWeight    = 0.30
	DateConfidenceWeight     = 0.15
)

// AggregateConfidence combines the recognizer's base confidence with the merchant, total and
// date field confidences into a single score in [0, 100].
func AggregateConfidence(p *ParsedReceipt, base int) int {
	if p == nil {
		return 0
	}
	score := float64(clampConfidence(base))*BaseConfidenceWeight +
		float64(p.Merchant.Confidence)*MerchantConfidenceWeight +
		float64(p.Total.Confidence)*TotalConfidenceWeight +
		float64(p.Date.Confidence)*DateConfidenceWeight
	return clampConfidence(int(math.Round(score)))
}

func clampConfidence(c int) int {
	return min(max(c, 0), 100)
}
