package scanning

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os/exec"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockRunner answers tesseract calls per --psm value
type mockRunner struct {
	outputs map[string]string
	err     error
	calls   [][]string
	stdins  [][]byte
}

func (m *mockRunner) Run(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, []byte, error) {
	m.calls = append(m.calls, append([]string{name}, args...))
	m.stdins = append(m.stdins, stdin)
	if m.err != nil {
		return nil, []byte("boom"), m.err
	}
	psm := ""
	for i, a := range args {
		if a == "--psm" && i+1 < len(args) {
			psm = args[i+1]
		}
	}
	return []byte(m.outputs[psm]), nil, nil
}

type mockTimeSource struct {
	now time.Time
}

func (m *mockTimeSource) Now() time.Time {
	return m.now
}

func testPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("OCR", func() {
	var (
		runner  *mockRunner
		cfg     OCRConfig
		scanner *OCR
		upload  Upload
		data    *ReceiptData
		err     error
	)

	BeforeEach(func() {
		runner = &mockRunner{outputs: map[string]string{"6": joesReceipt}}
		cfg = DefaultOCRConfig()
		upload = Upload{
			Data:        testPNG(40, 60),
			Filename:    "dinner.png",
			ContentType: "image/png",
		}
	})

	JustBeforeEach(func() {
		scanner = NewOCRWithDeps(cfg, runner, &mockTimeSource{now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
		data, err = scanner.ScanReceipt(context.Background(), upload)
	})

	When("scanning a receipt photo", func() {
		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("runs tesseract once with the block layout", func() {
			Expect(runner.calls).To(HaveLen(1))
			Expect(runner.calls[0]).To(Equal([]string{"tesseract", "stdin", "stdout", "-l", "eng", "--oem", "3", "--psm", "6"}))
		})

		It("pipes a PNG on stdin", func() {
			Expect(runner.stdins[0]).To(HavePrefix("\x89PNG"))
		})

		It("parses the recognized text", func() {
			Expect(data.Total.Decimal.Equal(money("17.06"))).To(BeTrue())
			Expect(data.Date).To(Equal("2024-02-20"))
			Expect(data.RestaurantName).To(ContainSubstring("Bros"))
		})

		It("returns the same result for the same bytes", func() {
			again, err := scanner.ScanReceipt(context.Background(), upload)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(data))
		})
	})

	When("a tessdata directory is configured", func() {
		BeforeEach(func() {
			cfg.TessdataDir = "/opt/tessdata"
			cfg.Language = "eng+fra"
		})

		It("passes it to tesseract", func() {
			Expect(runner.calls[0]).To(ContainElements("eng+fra", "--tessdata-dir", "/opt/tessdata"))
		})
	})

	When("the filename looks like a bank statement", func() {
		BeforeEach(func() {
			upload.Filename = "bank_statement_jan.png"
			runner.outputs = map[string]string{
				"6":  "01/05 JOES GRILL 17.06",
				"4":  bankStatement,
				"11": "FIRST NATIONAL BANK",
			}
		})

		It("tries every layout and keeps the longest text", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(runner.calls).To(HaveLen(3))
			Expect(data.DocumentType).To(Equal(DocumentBankStatement))
			Expect(data.RawText).To(ContainSubstring("Ending Balance"))
		})
	})

	When("the confidence threshold is high", func() {
		BeforeEach(func() {
			cfg.ConfidenceThreshold = 0.88
		})

		It("keeps only the strongest fields", func() {
			Expect(data.Total.Valid).To(BeTrue())
			Expect(data.RestaurantName).To(BeEmpty())
			Expect(data.Phone).To(BeEmpty())
		})
	})

	When("tesseract is not installed", func() {
		BeforeEach(func() {
			runner.err = &exec.Error{Name: "tesseract", Err: exec.ErrNotFound}
		})

		It("returns ErrOCRUnavailable", func() {
			Expect(errors.Is(err, ErrOCRUnavailable)).To(BeTrue())
			Expect(IsUnavailable(err)).To(BeTrue())
		})
	})

	When("tesseract fails", func() {
		BeforeEach(func() {
			runner.err = errors.New("exit status 1")
		})

		It("returns ErrOCRFailed", func() {
			Expect(errors.Is(err, ErrOCRFailed)).To(BeTrue())
			Expect(IsUnavailable(err)).To(BeFalse())
		})
	})

	When("scanning is disabled", func() {
		BeforeEach(func() {
			cfg.Enabled = false
		})

		It("returns ErrScannerDisabled without running tesseract", func() {
			Expect(err).To(MatchError(ErrScannerDisabled))
			Expect(runner.calls).To(BeEmpty())
		})
	})

	When("the upload is not an image", func() {
		BeforeEach(func() {
			upload = Upload{Data: []byte("definitely not an image"), Filename: "notes.txt", ContentType: "text/plain"}
		})

		It("returns ErrUnsupportedInput", func() {
			Expect(IsInputError(err)).To(BeTrue())
			Expect(runner.calls).To(BeEmpty())
		})
	})

	When("the upload is empty", func() {
		BeforeEach(func() {
			upload.Data = nil
		})

		It("returns ErrUnsupportedInput", func() {
			Expect(IsInputError(err)).To(BeTrue())
		})
	})
})

var _ = Describe("recognitionModes", func() {
	It("uses the block layout for receipts", func() {
		Expect(recognitionModes("IMG_1234.HEIC")).To(Equal([]int{6}))
	})

	It("adds column and sparse layouts for statements", func() {
		Expect(recognitionModes("Checking-Account-Activity.pdf")).To(Equal([]int{6, 4, 11}))
	})
})

var _ = Describe("tesseract", func() {
	It("reports the last failure when every mode fails", func() {
		t := tesseract{runner: &mockRunner{err: errors.New("exit status 1")}, binary: "tesseract", language: "eng"}
		_, err := t.recognize(context.Background(), []byte("png"), []int{6, 4})
		Expect(err).To(MatchError(ErrOCRFailed))
		Expect(err.Error()).To(ContainSubstring("psm 4"))
		Expect(err.Error()).To(ContainSubstring("boom"))
	})

	It("trims the recognized text", func() {
		r := &mockRunner{outputs: map[string]string{"6": "  TOTAL 5.00  "}}
		t := tesseract{runner: r, binary: "tesseract", language: "eng"}
		text, err := t.recognize(context.Background(), []byte("png"), []int{6})
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.TrimSpace(text)).To(Equal("TOTAL 5.00"))
	})
})
