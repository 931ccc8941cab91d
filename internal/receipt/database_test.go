package receipt

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-manager/internal/storage"
)

var _ = Describe("QuotaDB", func() {
	var (
		store *storage.MemoryStore
		db    *QuotaDB
	)

	BeforeEach(func() {
		store = storage.NewMemoryStore(0)
		db = NewQuotaDB(storage.NewQuotaManager(store, storage.DefaultLimits()))
	})

	Describe("SaveReceipt", func() {
		It("should store the receipt under its own key", func() {
			result, err := db.SaveReceipt(&Receipt{ID: "1", Merchant: "Shop"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeTrue())

			_, err = store.Get("receipt:1")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should replace an existing receipt", func() {
			_, err := db.SaveReceipt(&Receipt{ID: "1", Merchant: "Old"})
			Expect(err).NotTo(HaveOccurred())
			_, err = db.SaveReceipt(&Receipt{ID: "1", Merchant: "New"})
			Expect(err).NotTo(HaveOccurred())

			receipt, err := db.GetReceipt("1")
			Expect(err).NotTo(HaveOccurred())
			Expect(receipt.Merchant).To(Equal("New"))
		})

		When("the receipt would cross the critical threshold", func() {
			BeforeEach(func() {
				db = NewQuotaDB(storage.NewQuotaManager(store, storage.Limits{Warning: 100, Critical: 200, Maximum: 300}))
			})

			It("should refuse with a quota warning", func() {
				result, err := db.SaveReceipt(&Receipt{ID: "1", Merchant: "A merchant with a long enough name"})
				Expect(err).To(MatchError(storage.ErrQuotaWarning))
				Expect(result.Code).To(Equal(storage.CodeQuotaWarning))
			})
		})
	})

	Describe("GetReceipt", func() {
		It("should return ErrNotFound for unknown IDs", func() {
			_, err := db.GetReceipt("missing")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("ListReceipts", func() {
		BeforeEach(func() {
			_, err := db.SaveReceipt(&Receipt{ID: "1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Set("receipt:broken", "{not json")).To(Succeed())
			Expect(store.Set("settings", `{"theme":"dark"}`)).To(Succeed())
		})

		It("should skip unreadable records and other keys", func() {
			receipts, err := db.ListReceipts()
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(HaveLen(1))
			Expect(receipts[0].ID).To(Equal("1"))
		})

		It("should return an empty slice when there are no receipts", func() {
			empty := NewQuotaDB(storage.NewQuotaManager(storage.NewMemoryStore(0), storage.DefaultLimits()))
			receipts, err := empty.ListReceipts()
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).NotTo(BeNil())
			Expect(receipts).To(BeEmpty())
		})
	})

	Describe("DeleteReceipt", func() {
		It("should remove the receipt", func() {
			_, err := db.SaveReceipt(&Receipt{ID: "1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(db.DeleteReceipt("1")).To(Succeed())
			_, err = db.GetReceipt("1")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should return ErrNotFound for unknown IDs", func() {
			Expect(db.DeleteReceipt("missing")).To(MatchError(ErrNotFound))
		})
	})

	Describe("Clear", func() {
		It("should remove receipts and keep other keys", func() {
			for _, id := range []string{"1", "2"} {
				_, err := db.SaveReceipt(&Receipt{ID: id})
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(store.Set("settings", "{}")).To(Succeed())

			removed, err := db.Clear()
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(2))

			_, err = store.Get("settings")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Usage", func() {
		It("should count receipts", func() {
			_, err := db.SaveReceipt(&Receipt{ID: "1"})
			Expect(err).NotTo(HaveOccurred())
			usage, err := db.Usage()
			Expect(err).NotTo(HaveOccurred())
			Expect(usage.ReceiptCount).To(Equal(1))
			Expect(usage.Level).To(Equal(storage.LevelSafe))
		})
	})
})

var _ = Describe("NewBoltDB", func() {
	It("should persist receipts across reopen", func() {
		path := filepath.Join(GinkgoT().TempDir(), "receipts.db")

		db, err := NewBoltDB(path, 0, storage.DefaultLimits())
		Expect(err).NotTo(HaveOccurred())
		created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		_, err = db.SaveReceipt(&Receipt{ID: "1", Merchant: "Shop", CreatedAt: created})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.Close()).To(Succeed())

		db, err = NewBoltDB(path, 0, storage.DefaultLimits())
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		receipt, err := db.GetReceipt("1")
		Expect(err).NotTo(HaveOccurred())
		Expect(receipt.Merchant).To(Equal("Shop"))
		Expect(receipt.CreatedAt).To(BeTemporally("==", created))
	})
})
