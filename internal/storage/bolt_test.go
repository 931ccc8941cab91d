package storage

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltStore", func() {
	var (
		dbPath   string
		capacity int64
		store    *BoltStore
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		capacity = 0
	})

	JustBeforeEach(func() {
		var err error
		store, err = NewBoltStore(dbPath, capacity)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	Describe("Get", func() {
		When("the key exists", func() {
			JustBeforeEach(func() {
				Expect(store.Set("receipt:1", `{"id":"1"}`)).To(Succeed())
			})

			It("should return the value", func() {
				value, err := store.Get("receipt:1")
				Expect(err).NotTo(HaveOccurred())
				Expect(value).To(Equal(`{"id":"1"}`))
			})
		})

		When("the key does not exist", func() {
			It("should return ErrNotFound", func() {
				_, err := store.Get("missing")
				Expect(err).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("Remove", func() {
		JustBeforeEach(func() {
			Expect(store.Set("a", "1")).To(Succeed())
			Expect(store.Remove("a")).To(Succeed())
		})

		It("should delete the key", func() {
			_, err := store.Get("a")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should tolerate missing keys", func() {
			Expect(store.Remove("never-set")).To(Succeed())
		})
	})

	Describe("ForEach", func() {
		JustBeforeEach(func() {
			Expect(store.Set("b", "2")).To(Succeed())
			Expect(store.Set("a", "1")).To(Succeed())
			Expect(store.Set("c", "3")).To(Succeed())
		})

		It("should visit keys in order", func() {
			var keys []string
			Expect(store.ForEach(func(key, value string) error {
				keys = append(keys, key)
				return nil
			})).To(Succeed())
			Expect(keys).To(Equal([]string{"a", "b", "c"}))
		})
	})

	When("a capacity is set", func() {
		BeforeEach(func() {
			capacity = ItemSize("k1", "0123456789") * 2
		})

		It("should accept writes that fit", func() {
			Expect(store.Set("k1", "0123456789")).To(Succeed())
			Expect(store.Set("k2", "0123456789")).To(Succeed())
		})

		It("should reject writes that do not fit", func() {
			Expect(store.Set("k1", "0123456789")).To(Succeed())
			Expect(store.Set("k2", "0123456789")).To(Succeed())
			Expect(store.Set("k3", "x")).To(MatchError(ErrQuotaExceeded))
		})

		It("should not count the value being replaced", func() {
			Expect(store.Set("k1", "0123456789")).To(Succeed())
			Expect(store.Set("k2", "0123456789")).To(Succeed())
			Expect(store.Set("k2", "9876543210")).To(Succeed())
		})
	})

	When("the store is reopened", func() {
		JustBeforeEach(func() {
			Expect(store.Set("receipt:1", "persisted")).To(Succeed())
			Expect(store.Close()).To(Succeed())

			var err error
			store, err = NewBoltStore(dbPath, capacity)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should keep the data", func() {
			value, err := store.Get("receipt:1")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("persisted"))
		})
	})

	Describe("with a QuotaManager", func() {
		It("should evict through the bolt store", func() {
			manager := NewQuotaManager(store, DefaultLimits())
			seedRecords(store, 6)
			result, err := manager.Cleanup(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.ItemsRemoved).To(Equal(5))
			usage, err := manager.Usage()
			Expect(err).NotTo(HaveOccurred())
			Expect(usage.ReceiptCount).To(Equal(1))
		})
	})
})
