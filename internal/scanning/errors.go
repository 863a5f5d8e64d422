package scanning

import "errors"

// Environment failures. Callers should report these as "scanning is not
// available right now" rather than blaming the upload.
var (
	ErrScannerDisabled = errors.New("receipt scanning is disabled")
	ErrOCRUnavailable  = errors.New("ocr engine unavailable")
	ErrOCRFailed       = errors.New("ocr failed")
	ErrRenderFailed    = errors.New("rendering document failed")
)

// ErrUnsupportedInput marks uploads that can never be scanned as sent.
var ErrUnsupportedInput = errors.New("unsupported input")

// IsInputError reports whether err was caused by the uploaded file itself.
func IsInputError(err error) bool {
	return errors.Is(err, ErrUnsupportedInput)
}

// IsUnavailable reports whether err means the scanner cannot run at all.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrScannerDisabled) || errors.Is(err, ErrOCRUnavailable)
}
