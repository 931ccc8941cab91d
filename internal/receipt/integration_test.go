package receipt_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/receipt-manager/internal/receipt"
	"github.com/zombor/receipt-manager/internal/scanning"
	"github.com/zombor/receipt-manager/internal/storage"
)

// fakeScanner returns canned model output
type fakeScanner struct {
	receiptData *scanning.ReceiptData
}

func (f *fakeScanner) ScanReceipt(imageData []byte, contentType string) (*scanning.ReceiptData, error) {
	return f.receiptData, nil
}

func (f *fakeScanner) Close() error {
	return nil
}

var _ = Describe("Integration", func() {
	var (
		tempDir  string
		dbPath   string
		db       *receipt.QuotaDB
		archive  *receipt.LocalStorage
		service  *receipt.Service
		server   *receipt.Server
		ghServer *ghttp.Server
		err      error
	)

	total := 42.5

	openDB := func() {
		db, err = receipt.NewBoltDB(dbPath, 0, storage.DefaultLimits())
		Expect(err).NotTo(HaveOccurred())
		service = receipt.NewService(db, &fakeScanner{
			receiptData: &scanning.ReceiptData{
				Merchant:   "Mannings Pharmacy",
				Total:      &total,
				Date:       "2024-03-20",
				Items:      []scanning.Item{{Name: "Vitamin C", Price: 42.5, Quantity: 1}},
				Confidence: 92,
			},
		}, archive, receipt.Config{})
		server = receipt.NewServer(service, receipt.BasicAuth{})
	}

	BeforeEach(func() {
		tempDir, err = os.MkdirTemp("", "receipt-manager-test-*")
		Expect(err).NotTo(HaveOccurred())
		dbPath = filepath.Join(tempDir, "receipts.db")

		archive, err = receipt.NewLocalStorage(filepath.Join(tempDir, "archive"))
		Expect(err).NotTo(HaveOccurred())

		openDB()
		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		ghServer.Close()
		if db != nil {
			db.Close()
		}
		os.RemoveAll(tempDir)
	})

	It("should upload, persist, archive and delete a receipt", func() {
		ghServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP)

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "receipt.pdf")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("%PDF-1.4 fake"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.WriteField("tags", "family")).To(Succeed())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/receipts", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var created receipt.Receipt
		Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
		Expect(created.ID).NotTo(BeEmpty())
		Expect(created.Merchant).To(Equal("Mannings Pharmacy"))
		Expect(created.Parsing.Method).To(Equal(receipt.MethodOracle))
		Expect(created.Tags.User).To(Equal([]string{"family"}))
		Expect(created.Tags.Auto).To(ContainElement("pharmacy"))

		resp2, err := http.Post(ghServer.URL()+"/api/export/archive", "application/json", nil)
		Expect(err).NotTo(HaveOccurred())
		defer resp2.Body.Close()
		Expect(resp2.StatusCode).To(Equal(http.StatusCreated))

		files, err := archive.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))

		data, err := archive.Get(files[0])
		Expect(err).NotTo(HaveOccurred())
		var doc receipt.Export
		Expect(json.Unmarshal(data, &doc)).To(Succeed())
		Expect(doc.Count).To(Equal(1))
		Expect(doc.ExportedAt).To(BeTemporally("~", time.Now(), time.Minute))

		// Survives a restart
		Expect(db.Close()).To(Succeed())
		openDB()

		saved, err := service.GetReceipt(created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(*saved.Total).To(Equal(42.5))
		Expect(saved.Items).To(HaveLen(1))

		Expect(service.DeleteReceipt(created.ID)).To(Succeed())
		_, err = service.GetReceipt(created.ID)
		Expect(err).To(MatchError(receipt.ErrNotFound))
	})
})
