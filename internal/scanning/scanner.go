package scanning

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType identifies which parsing strategy produced a ReceiptData.
type DocumentType string

const (
	DocumentReceipt       DocumentType = "receipt"
	DocumentBankStatement DocumentType = "bank_statement"
)

// Field names used as keys in ReceiptData.Confidence.
const (
	FieldAmount         = "amount"
	FieldDate           = "date"
	FieldTime           = "time"
	FieldRestaurantName = "restaurant_name"
	FieldLocation       = "location"
	FieldAddress        = "address"
	FieldPhone          = "phone"
	FieldWebsite        = "website"
	FieldItems          = "items"
	FieldSubtotal       = "subtotal"
	FieldTax            = "tax"
	FieldTip            = "tip"
	FieldTotal          = "total"
)

// ReceiptData contains extracted information from a receipt
type ReceiptData struct {
	Amount         decimal.NullDecimal `json:"amount"`
	Date           string              `json:"date,omitempty"` // ISO 8601 format
	Time           string              `json:"time,omitempty"` // e.g. "7:45 PM"
	RestaurantName string              `json:"restaurant_name,omitempty"`
	Location       string              `json:"location,omitempty"` // store number
	Address        string              `json:"address,omitempty"`
	Phone          string              `json:"phone,omitempty"`
	Website        string              `json:"website,omitempty"`
	Items          []string            `json:"items,omitempty"`
	Subtotal       decimal.NullDecimal `json:"subtotal"`
	Tax            decimal.NullDecimal `json:"tax"`
	Tip            decimal.NullDecimal `json:"tip"`
	Total          decimal.NullDecimal `json:"total"`
	Confidence     map[string]float64  `json:"confidence"`
	DocumentType   DocumentType        `json:"document_type"`
	RawText        string              `json:"raw_text,omitempty"`
}

// Hints are optional values the user already typed into the expense form.
// They only disambiguate between several candidates found in a document.
type Hints struct {
	Amount         decimal.NullDecimal
	Date           time.Time
	RestaurantName string
}

// NewHints parses raw form values. Values that do not parse are dropped.
func NewHints(amount, date, restaurantName string) Hints {
	var h Hints
	if v, ok := parseMoney(amount); ok {
		h.Amount = decimal.NewNullDecimal(v)
	}
	if d, err := time.Parse("2006-01-02", strings.TrimSpace(date)); err == nil {
		h.Date = d
	}
	h.RestaurantName = strings.TrimSpace(restaurantName)
	return h
}

// IsZero reports whether no hint was supplied.
func (h Hints) IsZero() bool {
	return !h.Amount.Valid && h.Date.IsZero() && h.RestaurantName == ""
}

// Upload is a single file handed to a Scanner.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
	Hints       Hints
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts metadata
	ScanReceipt(ctx context.Context, upload Upload) (*ReceiptData, error)
	// Close closes the scanner and releases resources
	Close() error
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}
