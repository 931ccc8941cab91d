package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Gemini", func() {
	Describe("NewGemini", func() {
		It("should require an API key", func() {
			scanner, err := NewGemini("", DefaultGeminiModel)
			Expect(err).To(MatchError(ContainSubstring("api key is required")))
			Expect(scanner).To(BeNil())
		})
	})
})
