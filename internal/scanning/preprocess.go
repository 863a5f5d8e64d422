package scanning

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	"github.com/sunshineplan/imgconv"
)

const (
	defaultDPI          = 300
	defaultMaxDimension = 2000
	contrastBoost       = 50 // +50% is a 1.5x contrast factor
)

// sharpenKernel is the classic 3x3 sharpen filter, normalized by its sum.
var sharpenKernel = [9]float64{
	-2, -2, -2,
	-2, 32, -2,
	-2, -2, -2,
}

const supportedFormats = "JPEG, PNG, GIF, BMP, TIFF, WebP, HEIC, HEIF, PDF"

// preprocess decodes an upload and returns an 8-bit grayscale image tuned
// for OCR. PDFs are rendered from their first page.
func preprocess(data []byte, filename, contentType string, dpi float64, maxDimension int) (*image.Gray, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnsupportedInput)
	}
	img, err := decodeUpload(data, filename, contentType, dpi)
	if err != nil {
		return nil, err
	}
	return prepareForOCR(img, maxDimension), nil
}

func decodeUpload(data []byte, filename, contentType string, dpi float64) (image.Image, error) {
	if isPDF(data, filename, contentType) {
		doc, err := fitz.NewFromMemory(data)
		if err != nil {
			return nil, fmt.Errorf("%w: opening PDF: %v", ErrUnsupportedInput, err)
		}
		defer doc.Close()
		return renderFirstPage(doc, dpi)
	}
	return decodeImage(data, contentType)
}

// renderFirstPage rasterizes page one of an open PDF.
func renderFirstPage(doc *fitz.Document, dpi float64) (image.Image, error) {
	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("%w: PDF has no pages", ErrRenderFailed)
	}
	img, err := doc.ImageDPI(0, dpi)
	if err != nil {
		return nil, fmt.Errorf("%w: rendering PDF page: %v", ErrRenderFailed, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty bitmap", ErrRenderFailed)
	}
	return img, nil
}

func decodeImage(data []byte, contentType string) (image.Image, error) {
	if isHEICFormat(data) || isHEICMimeType(contentType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding HEIC/HEIF image: %v", ErrUnsupportedInput, err)
		}
		return img, nil
	}
	img, err := imgconv.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: supported formats: %s: %v", ErrUnsupportedInput, supportedFormats, err)
	}
	return img, nil
}

// prepareForOCR downscales oversized images, then grayscales, boosts the
// contrast and sharpens.
func prepareForOCR(img image.Image, maxDimension int) *image.Gray {
	img = downscale(img, maxDimension)
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, contrastBoost)
	out = imaging.Convolve3x3(out, sharpenKernel, &imaging.ConvolveOptions{Normalize: true})

	gray := image.NewGray(out.Bounds())
	draw.Draw(gray, gray.Bounds(), out, out.Bounds().Min, draw.Src)
	return gray
}

func downscale(img image.Image, maxDimension int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDimension <= 0 || (w <= maxDimension && h <= maxDimension) {
		return img
	}
	if w >= h {
		return imgconv.Resize(img, &imgconv.ResizeOption{Width: maxDimension})
	}
	return imgconv.Resize(img, &imgconv.ResizeOption{Height: maxDimension})
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isPDF sniffs the extension, the content type and the magic bytes.
func isPDF(data []byte, filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF"))
}

// isHEICFormat checks for an ftyp box with a HEIC/HEIF brand.
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// prepareImageData converts an upload to PNG for the LLM scanners. Uploads
// that are already PNG are passed through untouched.
func prepareImageData(upload Upload) ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(upload.ContentType))
	if mimeType == "image/png" && !isPDF(upload.Data, upload.Filename, mimeType) {
		return upload.Data, nil
	}
	img, err := decodeUpload(upload.Data, upload.Filename, mimeType, defaultDPI)
	if err != nil {
		return nil, fmt.Errorf("converting upload to PNG: %w", err)
	}
	return encodePNG(downscale(img, defaultMaxDimension))
}
