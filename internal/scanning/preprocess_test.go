package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("preprocess", func() {
	It("returns a grayscale image of the same size", func() {
		gray, err := preprocess(testPNG(120, 80), "receipt.png", "image/png", defaultDPI, defaultMaxDimension)
		Expect(err).NotTo(HaveOccurred())
		Expect(gray.Bounds().Dx()).To(Equal(120))
		Expect(gray.Bounds().Dy()).To(Equal(80))
	})

	It("downscales large images keeping the aspect ratio", func() {
		gray, err := preprocess(testPNG(3000, 1000), "wide.png", "", defaultDPI, defaultMaxDimension)
		Expect(err).NotTo(HaveOccurred())
		Expect(gray.Bounds().Dx()).To(Equal(2000))
		Expect(gray.Bounds().Dy()).To(BeNumerically("~", 667, 1))
	})

	It("rejects files that are not images", func() {
		_, err := preprocess([]byte("hello"), "notes.txt", "text/plain", defaultDPI, defaultMaxDimension)
		Expect(IsInputError(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("HEIC"))
	})

	It("rejects empty files", func() {
		_, err := preprocess(nil, "empty.png", "image/png", defaultDPI, defaultMaxDimension)
		Expect(IsInputError(err)).To(BeTrue())
	})
})

var _ = Describe("format sniffing", func() {
	DescribeTable("isPDF",
		func(data, filename, contentType string, expected bool) {
			Expect(isPDF([]byte(data), filename, contentType)).To(Equal(expected))
		},
		Entry("by extension", "", "Receipt.PDF", "", true),
		Entry("by content type", "", "upload", "application/pdf", true),
		Entry("by magic bytes", "%PDF-1.7", "upload", "application/octet-stream", true),
		Entry("an image", "\x89PNG", "photo.png", "image/png", false),
	)

	It("recognizes HEIC brands", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"))).To(BeTrue())
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00"))).To(BeFalse())
		Expect(isHEICMimeType(" image/HEIF ")).To(BeTrue())
	})
})
