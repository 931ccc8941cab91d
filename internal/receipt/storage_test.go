package receipt

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = filepath.Join(GinkgoT().TempDir(), "archives")
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should create the directory", func() {
		Expect(tmpDir).To(BeADirectory())
	})

	Describe("Save", func() {
		var (
			filename string
			saved    string
			err      error
		)

		BeforeEach(func() {
			filename = "receipts-20240501.json"
		})

		JustBeforeEach(func() {
			saved, err = storage.Save(filename, []byte(`{"version":"1.0"}`))
		})

		When("saving succeeds", func() {
			It("should return the file name", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(saved).To(Equal(filename))
			})

			It("should write the file to disk", func() {
				Expect(filepath.Join(tmpDir, filename)).To(BeAnExistingFile())
			})
		})

		When("the name escapes the directory", func() {
			BeforeEach(func() {
				filename = "../escape.json"
			})

			It("should refuse it", func() {
				Expect(err).To(MatchError(ErrInvalidArchiveName))
			})
		})
	})

	Describe("Get", func() {
		It("should read a saved file", func() {
			_, err := storage.Save("a.json", []byte("content"))
			Expect(err).NotTo(HaveOccurred())
			data, err := storage.Get("a.json")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("content"))
		})

		It("should fail for missing files", func() {
			_, err := storage.Get("missing.json")
			Expect(err).To(MatchError(ErrArchiveNotFound))
		})
	})

	Describe("Delete", func() {
		It("should remove the file", func() {
			_, err := storage.Save("a.json", []byte("content"))
			Expect(err).NotTo(HaveOccurred())
			Expect(storage.Delete("a.json")).To(Succeed())
			Expect(filepath.Join(tmpDir, "a.json")).NotTo(BeAnExistingFile())
		})

		It("should report missing files", func() {
			Expect(storage.Delete("missing.json")).To(MatchError(ErrArchiveNotFound))
		})
	})

	Describe("List", func() {
		It("should list regular files in order", func() {
			for _, name := range []string{"b.json", "a.json"} {
				_, err := storage.Save(name, []byte("{}"))
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(os.Mkdir(filepath.Join(tmpDir, "nested"), 0755)).To(Succeed())

			names, err := storage.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"a.json", "b.json"}))
		})
	})
})
