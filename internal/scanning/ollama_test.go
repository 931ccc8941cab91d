package scanning

import (
	"encoding/base64"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server  *ghttp.Server
		scanner *Ollama
		image   []byte
		data    *ReceiptData
		err     error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		image = []byte("\x89PNG fake image bytes")

		var newErr error
		scanner, newErr = NewOllama(server.URL(), "llava:1.6")
		Expect(newErr).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		data, err = scanner.ScanReceipt(image, "image/png")
	})

	When("the model answers with receipt JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					defer GinkgoRecover()
					var req ollamaChatRequest
					Expect(decodeJSON(r, &req)).To(Succeed())
					Expect(req.Model).To(Equal("llava:1.6"))
					Expect(req.Format).To(Equal("json"))
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[1].Images).To(Equal([]string{base64.StdEncoding.EncodeToString(image)}))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Done: true,
					Message: ollamaMessage{
						Role:    "assistant",
						Content: `{"merchant": "Starbucks", "total": 8.45, "date": "2024-01-02", "items": [], "confidence": 70}`,
					},
				}),
			))
		})

		It("should return the parsed receipt", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(data.Merchant).To(Equal("Starbucks"))
			Expect(*data.Total).To(Equal(8.45))
			Expect(data.Date).To(Equal("01/02/2024"))
			Expect(data.Confidence).To(Equal(70))
		})
	})

	When("the server fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("should return the status and body", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
			Expect(err).To(MatchError(ContainSubstring("model not loaded")))
		})
	})

	When("the model answers with prose", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Done:    true,
				Message: ollamaMessage{Role: "assistant", Content: "I cannot see a receipt."},
			}))
		})

		It("should return a parse error", func() {
			Expect(err).To(MatchError(ContainSubstring("parsing receipt data")))
		})
	})
})
