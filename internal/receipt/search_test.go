package receipt

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-manager/internal/parsing"
	"github.com/zombor/receipt-manager/internal/tagging"
)

func seedReceipt(db DB, id, merchant, date string, total *float64, items []LineItem, tags []string) {
	r := &Receipt{
		ID:        id,
		Merchant:  merchant,
		Date:      date,
		Total:     total,
		Items:     items,
		Tags:      tagging.MergeTags(nil, tags),
		Timestamp: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
	}
	_, err := db.SaveReceipt(r)
	Expect(err).NotTo(HaveOccurred())
}

var _ = Describe("Search", func() {
	var (
		db      *mockDB
		service *Service
		query   string
		filters Filters
		results []*Receipt
		err     error
	)

	BeforeEach(func() {
		db = newMockDB()
		service = NewServiceWithDeps(db, nil, nil, Config{}, &mockIDGenerator{}, &mockTimeSource{now: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)})

		seedReceipt(db, "a", "Starbucks", "01/05/2024", ptr(45.0),
			[]LineItem{parsing.NewLineItem("Latte", 45, 1, "beverage")}, []string{"work"})
		seedReceipt(db, "b", "Wellcome", "02/10/2024", ptr(120.5),
			[]LineItem{parsing.NewLineItem("Milk", 20.5, 1, "dairy"), parsing.NewLineItem("Bread", 100, 1, "")}, nil)
		seedReceipt(db, "c", "Fortress", "03/01/2024", nil, nil, []string{"work"})

		query = ""
		filters = Filters{}
	})

	JustBeforeEach(func() {
		results, err = service.Search(query, filters)
		Expect(err).NotTo(HaveOccurred())
	})

	ids := func() []string {
		var out []string
		for _, r := range results {
			out = append(out, r.ID)
		}
		return out
	}

	When("searching by merchant", func() {
		BeforeEach(func() {
			query = "STAR"
		})

		It("should match case-insensitively", func() {
			Expect(ids()).To(Equal([]string{"a"}))
		})
	})

	When("searching by item name", func() {
		BeforeEach(func() {
			query = "bread"
		})

		It("should match receipts containing the item", func() {
			Expect(ids()).To(Equal([]string{"b"}))
		})
	})

	When("filtering by date range", func() {
		BeforeEach(func() {
			start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
			end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
			filters = Filters{StartDate: &start, EndDate: &end}
		})

		It("should include both bounds", func() {
			Expect(ids()).To(ConsistOf("b", "c"))
		})
	})

	When("filtering by amount", func() {
		BeforeEach(func() {
			filters = Filters{MinAmount: ptr(50.0)}
		})

		It("should exclude receipts without a total", func() {
			Expect(ids()).To(Equal([]string{"b"}))
		})
	})

	When("filtering by category", func() {
		BeforeEach(func() {
			filters = Filters{Category: "Dairy"}
		})

		It("should match item categories", func() {
			Expect(ids()).To(Equal([]string{"b"}))
		})
	})

	When("filtering by tag", func() {
		BeforeEach(func() {
			filters = Filters{Tag: "work"}
		})

		It("should match tagged receipts", func() {
			Expect(ids()).To(ConsistOf("a", "c"))
		})
	})
})

var _ = Describe("Stats", func() {
	var (
		db      *mockDB
		service *Service
	)

	BeforeEach(func() {
		db = newMockDB()
		service = NewServiceWithDeps(db, nil, nil, Config{}, &mockIDGenerator{}, &mockTimeSource{now: time.Now()})

		seedReceipt(db, "a", "Starbucks", "01/05/2024", ptr(10.1),
			[]LineItem{parsing.NewLineItem("Latte", 10.1, 1, "beverage")}, []string{"work"})
		seedReceipt(db, "b", "Starbucks", "02/10/2024", ptr(20.2), nil, []string{"work", "team"})
		seedReceipt(db, "c", "Fortress", "03/01/2024", nil, nil, nil)
	})

	It("should sum and average priced receipts exactly", func() {
		stats, err := service.Stats()
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Count).To(Equal(3))
		Expect(stats.TotalAmount).To(Equal(30.3))
		Expect(stats.AverageAmount).To(Equal(15.15))
	})

	It("should count merchants and categories", func() {
		stats, err := service.Stats()
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Merchants).To(Equal(map[string]int{"Starbucks": 2, "Fortress": 1}))
		Expect(stats.Categories).To(Equal(map[string]int{"beverage": 1}))
	})

	It("should report the date range", func() {
		stats, err := service.Stats()
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.EarliestDate).To(Equal("01/05/2024"))
		Expect(stats.LatestDate).To(Equal("03/01/2024"))
		Expect(stats.StorageBytes).To(BeNumerically(">", 0))
	})

	It("should count tag usage", func() {
		stats, err := service.TagStatistics()
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.TotalUniqueTags).To(Equal(2))
		Expect(stats.MostUsed[0].Tag).To(Equal("work"))
		Expect(stats.MostUsed[0].Count).To(Equal(2))
	})
})
