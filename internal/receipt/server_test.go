package receipt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/receipt-manager/internal/scanning"
	"github.com/zombor/receipt-manager/internal/storage"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		scanner     *mockScanner
		archive     *mockStorage
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	// do routes one request through the server
	do := func(method, path string, body io.Reader, contentType string) *http.Response {
		ghttpServer.AppendHandlers(server.ServeHTTP)
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if auth.Username != "" {
			req.SetBasicAuth(auth.Username, auth.Password)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	decode := func(resp *http.Response, v any) {
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	upload := func(filename, contentType string, data []byte, tags string) (*bytes.Buffer, string) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if contentType != "" {
			header.Set("Content-Type", contentType)
		}
		part, err := writer.CreatePart(header)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		if tags != "" {
			Expect(writer.WriteField("tags", tags)).To(Succeed())
		}
		Expect(writer.Close()).To(Succeed())
		return body, writer.FormDataContentType()
	}

	BeforeEach(func() {
		db = newMockDB()
		scanner = &mockScanner{
			receiptData: &scanning.ReceiptData{
				Merchant:   "Starbucks",
				Total:      ptr(38.0),
				Date:       "03/10/2024",
				Confidence: 90,
			},
		}
		archive = newMockStorage()
		auth = BasicAuth{}
		ghttpServer = ghttp.NewServer()
	})

	JustBeforeEach(func() {
		clock := &mockTimeSource{now: time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)}
		service = NewServiceWithDeps(db, scanner, archive, Config{}, &mockIDGenerator{}, clock)
		server = NewServerWithMux(service, auth, http.NewServeMux())
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("should accept valid credentials", func() {
			resp := do(http.MethodGet, "/api/receipts", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should reject missing credentials", func() {
			ghttpServer.AppendHandlers(server.ServeHTTP)
			resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Receipt Manager"))
		})

		It("should reject wrong credentials", func() {
			ghttpServer.AppendHandlers(server.ServeHTTP)
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/receipts", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:wrong")))
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			resp := do(http.MethodOptions, "/api/receipts", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("PUT"))
		})
	})

	Describe("POST /api/receipts", func() {
		It("should process the upload", func() {
			body, contentType := upload("receipt.png", "image/png", []byte("png bytes"), "work, travel")
			resp := do(http.MethodPost, "/api/receipts", body, contentType)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var receipt Receipt
			decode(resp, &receipt)
			Expect(receipt.Merchant).To(Equal("Starbucks"))
			Expect(receipt.Tags.User).To(Equal([]string{"travel", "work"}))
			Expect(receipt.ContentType).To(Equal("image/png"))
		})

		It("should infer the content type from the file name", func() {
			body, contentType := upload("scan.PDF", "", []byte("%PDF"), "")
			resp := do(http.MethodPost, "/api/receipts", body, contentType)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var receipt Receipt
			decode(resp, &receipt)
			Expect(receipt.ContentType).To(Equal("application/pdf"))
		})

		It("should reject requests without a file", func() {
			body := &bytes.Buffer{}
			writer := multipart.NewWriter(body)
			Expect(writer.WriteField("tags", "x")).To(Succeed())
			Expect(writer.Close()).To(Succeed())

			resp := do(http.MethodPost, "/api/receipts", body, writer.FormDataContentType())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		When("the store is full", func() {
			BeforeEach(func() {
				db.saveErr = storage.ErrQuotaExceededAfterCleanup
			})

			It("should answer 507 with the save result", func() {
				body, contentType := upload("receipt.png", "image/png", []byte("png bytes"), "")
				resp := do(http.MethodPost, "/api/receipts", body, contentType)
				Expect(resp.StatusCode).To(Equal(http.StatusInsufficientStorage))

				var result storage.SaveResult
				decode(resp, &result)
				Expect(result.Success).To(BeFalse())
				Expect(result.Code).NotTo(BeEmpty())
			})
		})

		When("nothing can be read", func() {
			BeforeEach(func() {
				scanner.scanErr = errors.New("offline")
			})

			It("should answer 422", func() {
				body, contentType := upload("receipt.png", "image/png", []byte("png bytes"), "")
				resp := do(http.MethodPost, "/api/receipts", body, contentType)
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
			})
		})
	})

	Describe("text endpoints", func() {
		const text = `{"text": "Wellcome Supermarket\n03/15/2024\nMilk 3.50\nTOTAL $3.50", "tags": ["groceries"]}`

		It("should parse without saving", func() {
			resp := do(http.MethodPost, "/api/parse", strings.NewReader(text), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var parsed map[string]any
			decode(resp, &parsed)
			Expect(parsed).To(HaveKey("merchant"))
			Expect(db.saves).To(Equal(0))
		})

		It("should save parsed text", func() {
			resp := do(http.MethodPost, "/api/receipts/text", strings.NewReader(text), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var receipt Receipt
			decode(resp, &receipt)
			Expect(receipt.Merchant).To(Equal("Wellcome Supermarket"))
			Expect(*receipt.Total).To(Equal(3.5))
			Expect(receipt.Tags.User).To(Equal([]string{"groceries"}))
		})

		It("should reject invalid JSON", func() {
			resp := do(http.MethodPost, "/api/receipts/text", strings.NewReader("{"), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should reject empty text", func() {
			resp := do(http.MethodPost, "/api/receipts/text", strings.NewReader(`{"text": ""}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("receipt resources", func() {
		JustBeforeEach(func() {
			seedReceipt(db, "a", "Starbucks", "01/05/2024", ptr(45.0), nil, []string{"work"})
			seedReceipt(db, "b", "Wellcome", "02/10/2024", ptr(12.0), nil, nil)
		})

		It("should list receipts", func() {
			resp := do(http.MethodGet, "/api/receipts", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var receipts []Receipt
			decode(resp, &receipts)
			Expect(receipts).To(HaveLen(2))
		})

		It("should search with query parameters", func() {
			resp := do(http.MethodGet, "/api/receipts?q=well&min=10&start=2024-02-01", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var receipts []Receipt
			decode(resp, &receipts)
			Expect(receipts).To(HaveLen(1))
			Expect(receipts[0].ID).To(Equal("b"))
		})

		It("should reject malformed filters", func() {
			resp := do(http.MethodGet, "/api/receipts?min=lots", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should get one receipt", func() {
			resp := do(http.MethodGet, "/api/receipts/a", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var receipt Receipt
			decode(resp, &receipt)
			Expect(receipt.Merchant).To(Equal("Starbucks"))
		})

		It("should answer 404 for unknown receipts", func() {
			resp := do(http.MethodGet, "/api/receipts/zzz", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should update a receipt", func() {
			resp := do(http.MethodPut, "/api/receipts/a", strings.NewReader(`{"merchant": "Pacific Coffee"}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var receipt Receipt
			decode(resp, &receipt)
			Expect(receipt.Merchant).To(Equal("Pacific Coffee"))
			Expect(receipt.UserEdited).To(BeTrue())
			Expect(receipt.Tags.User).To(Equal([]string{"work"}))
		})

		It("should delete a receipt", func() {
			resp := do(http.MethodDelete, "/api/receipts/a", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			_, err := service.GetReceipt("a")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should clear all receipts", func() {
			resp := do(http.MethodDelete, "/api/receipts", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]int
			decode(resp, &body)
			Expect(body["removed"]).To(Equal(2))
		})

		It("should report statistics", func() {
			resp := do(http.MethodGet, "/api/stats", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var stats Stats
			decode(resp, &stats)
			Expect(stats.Count).To(Equal(2))
			Expect(stats.TotalAmount).To(Equal(57.0))
		})

		It("should report tag statistics", func() {
			resp := do(http.MethodGet, "/api/tags/stats", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]any
			decode(resp, &body)
			Expect(body).To(HaveKeyWithValue("total_unique_tags", BeNumerically("==", 1)))
		})

		It("should report storage usage", func() {
			resp := do(http.MethodGet, "/api/storage", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body struct {
				Usage           storage.Usage            `json:"usage"`
				Recommendations []storage.Recommendation `json:"recommendations"`
				NextUpload      storage.Safety           `json:"next_upload"`
			}
			decode(resp, &body)
			Expect(body.Usage.ReceiptCount).To(Equal(2))
			Expect(body.Recommendations).To(BeEmpty())
			Expect(body.NextUpload.Safe).To(BeTrue())
			Expect(body.NextUpload.AdditionalBytes).To(BeNumerically(">", 0))
		})

		It("should evict the oldest receipts on request", func() {
			resp := do(http.MethodPost, "/api/storage/cleanup?count=1", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var result storage.CleanupResult
			decode(resp, &result)
			Expect(result.ItemsRemoved).To(Equal(1))
			Expect(result.RemainingCount).To(Equal(1))
		})

		It("should refuse a cleanup that would remove everything", func() {
			resp := do(http.MethodPost, "/api/storage/cleanup?count=2", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("should reject a malformed cleanup count", func() {
			resp := do(http.MethodPost, "/api/storage/cleanup?count=-1", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should export as an attachment", func() {
			resp := do(http.MethodGet, "/api/export", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("receipts-2024-03-20.json"))
			var doc Export
			decode(resp, &doc)
			Expect(doc.Count).To(Equal(2))
		})

		It("should archive an export", func() {
			resp := do(http.MethodPost, "/api/export/archive", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(archive.files).To(HaveLen(1))
		})

		It("should list, download and delete archives", func() {
			created := do(http.MethodPost, "/api/export/archive", nil, "")
			Expect(created.StatusCode).To(Equal(http.StatusCreated))
			var body map[string]string
			decode(created, &body)
			name := body["file"]

			list := do(http.MethodGet, "/api/export/archive", nil, "")
			Expect(list.StatusCode).To(Equal(http.StatusOK))
			var names []string
			decode(list, &names)
			Expect(names).To(Equal([]string{name}))

			download := do(http.MethodGet, "/api/export/archive/"+name, nil, "")
			Expect(download.StatusCode).To(Equal(http.StatusOK))
			Expect(download.Header.Get("Content-Disposition")).To(ContainSubstring(name))
			var doc Export
			decode(download, &doc)
			Expect(doc.Count).To(Equal(2))

			deleted := do(http.MethodDelete, "/api/export/archive/"+name, nil, "")
			Expect(deleted.StatusCode).To(Equal(http.StatusNoContent))

			missing := do(http.MethodGet, "/api/export/archive/"+name, nil, "")
			Expect(missing.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should restore receipts from an archive", func() {
			created := do(http.MethodPost, "/api/export/archive", nil, "")
			var body map[string]string
			decode(created, &body)

			cleared := do(http.MethodDelete, "/api/receipts", nil, "")
			Expect(cleared.StatusCode).To(Equal(http.StatusOK))

			resp := do(http.MethodPost, "/api/export/archive/"+body["file"]+"/import?replace=true", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var result ImportResult
			decode(resp, &result)
			Expect(result.Imported).To(Equal(2))
		})

		It("should answer 404 when importing an unknown archive", func() {
			resp := do(http.MethodPost, "/api/export/archive/nope.json/import", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should import with replace", func() {
			resp := do(http.MethodPost, "/api/import?replace=true", strings.NewReader(`[{"id": "n", "merchant": "New"}]`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var result ImportResult
			decode(resp, &result)
			Expect(result.Imported).To(Equal(1))

			receipts, err := service.ListReceipts()
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(HaveLen(1))
		})

		It("should reject an unreadable import", func() {
			resp := do(http.MethodPost, "/api/import", strings.NewReader("garbage"), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})
})
