package receipt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-manager/internal/tagging"
)

var _ = Describe("Receipt", func() {
	Describe("confidence tier tags", func() {
		DescribeTable("scores out of 100",
			func(confidence int, expected string) {
				tags := tagging.NewEngine().GenerateAutoTags((&Receipt{Confidence: confidence}).tagRecord())
				Expect(tags).To(ContainElement(expected))
				Expect(tags).To(HaveLen(1))
			},
			Entry("zero", 0, "very-low-confidence"),
			Entry("one", 1, "very-low-confidence"),
			Entry("fifty", 50, "low-confidence"),
			Entry("seventy five", 75, "medium-confidence"),
			Entry("ninety five", 95, "high-confidence"),
		)
	})
})
