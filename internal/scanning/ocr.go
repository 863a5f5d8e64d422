package scanning

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
)

// minTextLayer is the shortest PDF text layer trusted without OCR.
const minTextLayer = 50

// OCRConfig configures the local OCR scanner.
type OCRConfig struct {
	Enabled             bool
	Tesseract           string // binary name or path
	Language            string
	TessdataDir         string
	ConfidenceThreshold float64
	Timeout             time.Duration
	DPI                 float64
	MaxDimension        int
}

// DefaultOCRConfig returns the settings used when no flags are given.
func DefaultOCRConfig() OCRConfig {
	return OCRConfig{
		Enabled:             true,
		Tesseract:           "tesseract",
		Language:            "eng",
		ConfidenceThreshold: DefaultConfidenceThreshold,
		Timeout:             60 * time.Second,
		DPI:                 defaultDPI,
		MaxDimension:        defaultMaxDimension,
	}
}

// OCR implements the Scanner interface with tesseract and text heuristics.
// It holds no mutable state and is safe for concurrent use.
type OCR struct {
	cfg        OCRConfig
	tess       tesseract
	timeSource TimeSource
}

// NewOCR creates an OCR scanner that shells out to tesseract.
func NewOCR(cfg OCRConfig) *OCR {
	return NewOCRWithDeps(cfg, execRunner{}, defaultTimeSource{})
}

// NewOCRWithDeps creates an OCR scanner with custom dependencies (for testing)
func NewOCRWithDeps(cfg OCRConfig, runner Runner, timeSource TimeSource) *OCR {
	def := DefaultOCRConfig()
	if cfg.Tesseract == "" {
		cfg.Tesseract = def.Tesseract
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = def.MaxDimension
	}
	return &OCR{
		cfg: cfg,
		tess: tesseract{
			runner:      runner,
			binary:      cfg.Tesseract,
			language:    cfg.Language,
			tessdataDir: cfg.TessdataDir,
		},
		timeSource: timeSource,
	}
}

// ScanReceipt extracts text from the upload and parses it into a ReceiptData.
func (o *OCR) ScanReceipt(ctx context.Context, upload Upload) (*ReceiptData, error) {
	if !o.cfg.Enabled {
		return nil, ErrScannerDisabled
	}
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnsupportedInput)
	}

	text, err := o.ExtractText(ctx, upload)
	if err != nil {
		return nil, err
	}

	data := ParseText(text, upload.Hints, o.timeSource.Now())
	applyThreshold(data, o.cfg.ConfidenceThreshold)

	slog.Debug("receipt scanned",
		"filename", upload.Filename,
		"document_type", data.DocumentType,
		"text_length", len(text),
		"has_total", data.Total.Valid,
	)
	return data, nil
}

// ExtractText returns the text of an upload. A PDF with a usable text layer
// is read directly; everything else is rendered and run through tesseract.
func (o *OCR) ExtractText(ctx context.Context, upload Upload) (string, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	modes := recognitionModes(upload.Filename)

	if isPDF(upload.Data, upload.Filename, upload.ContentType) {
		doc, err := fitz.NewFromMemory(upload.Data)
		if err != nil {
			return "", fmt.Errorf("%w: opening PDF: %v", ErrUnsupportedInput, err)
		}
		defer doc.Close()

		if text := pdfTextLayer(doc); usableTextLayer(text) {
			slog.Debug("using PDF text layer", "filename", upload.Filename, "text_length", len(text))
			return text, nil
		}
		slog.Debug("PDF text layer too short, falling back to OCR", "filename", upload.Filename)

		img, err := renderFirstPage(doc, o.cfg.DPI)
		if err != nil {
			return "", err
		}
		return o.ocrImage(ctx, prepareForOCR(img, o.cfg.MaxDimension), modes)
	}

	gray, err := preprocess(upload.Data, upload.Filename, upload.ContentType, o.cfg.DPI, o.cfg.MaxDimension)
	if err != nil {
		return "", err
	}
	return o.ocrImage(ctx, gray, modes)
}

// usableTextLayer reports whether a PDF text layer has enough characters to
// skip OCR.
func usableTextLayer(text string) bool {
	return utf8.RuneCountInString(text) >= minTextLayer
}

func (o *OCR) ocrImage(ctx context.Context, gray *image.Gray, modes []int) (string, error) {
	png, err := encodePNG(gray)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	text, err := o.tess.recognize(ctx, png, modes)
	if err != nil {
		return "", err
	}
	slog.Debug("tesseract finished", "modes", modes, "text_length", len(text))
	return text, nil
}

// Close is a no-op; the OCR scanner holds no resources.
func (o *OCR) Close() error {
	return nil
}

// pdfTextLayer concatenates the embedded text of every page.
func pdfTextLayer(doc *fitz.Document) string {
	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			slog.Debug("reading PDF text layer", "page", i, "error", err)
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

var statementFilenameHints = []string{"statement", "bank", "transactions", "activity", "account"}

// recognitionModes picks the tesseract page segmentation modes to try. Bank
// statements are laid out in columns, so they get sparse and column modes
// as well.
func recognitionModes(filename string) []int {
	lower := strings.ToLower(filename)
	for _, h := range statementFilenameHints {
		if strings.Contains(lower, h) {
			return []int{6, 4, 11}
		}
	}
	return []int{6}
}
