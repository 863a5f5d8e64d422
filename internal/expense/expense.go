package expense

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/meal-tracker/internal/scanning"
)

var (
	// ErrNotFound is returned when no expense has the requested ID.
	ErrNotFound = errors.New("expense not found")
	// ErrInvalidExpense is returned when an expense fails validation.
	ErrInvalidExpense = errors.New("invalid expense")
	// ErrDuplicateExpense is returned when creating an expense whose ID is taken.
	ErrDuplicateExpense = errors.New("expense already exists")
)

// Expense is a single meal expense. Money is stored in cents.
type Expense struct {
	ID             string    `json:"id"`
	RestaurantName string    `json:"restaurant_name"`
	Location       string    `json:"location,omitempty"`
	Address        string    `json:"address,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Website        string    `json:"website,omitempty"`
	Date           time.Time `json:"date"`
	Time           string    `json:"time,omitempty"`
	Amount         int64     `json:"amount"`
	Subtotal       int64     `json:"subtotal,omitempty"`
	Tax            int64     `json:"tax,omitempty"`
	Tip            int64     `json:"tip,omitempty"`
	Items          []string  `json:"items,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	Filename       string    `json:"filename,omitempty"`
	ContentType    string    `json:"content_type,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks the fields a client can get wrong.
func (e *Expense) Validate() error {
	for name, v := range map[string]int64{"amount": e.Amount, "subtotal": e.Subtotal, "tax": e.Tax, "tip": e.Tip} {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidExpense, name)
		}
	}
	if len(e.RestaurantName) > 200 {
		return fmt.Errorf("%w: restaurant name is too long", ErrInvalidExpense)
	}
	return nil
}

// draftFromReceipt prefills an expense from scanned receipt data. A missing
// date falls back to today.
func draftFromReceipt(data *scanning.ReceiptData, today time.Time) *Expense {
	date, err := time.Parse("2006-01-02", data.Date)
	if err != nil {
		date = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	}
	return &Expense{
		RestaurantName: data.RestaurantName,
		Location:       data.Location,
		Address:        data.Address,
		Phone:          data.Phone,
		Website:        data.Website,
		Date:           date,
		Time:           data.Time,
		Amount:         toCents(data.Amount),
		Subtotal:       toCents(data.Subtotal),
		Tax:            toCents(data.Tax),
		Tip:            toCents(data.Tip),
		Items:          data.Items,
	}
}

func toCents(d decimal.NullDecimal) int64 {
	if !d.Valid {
		return 0
	}
	return d.Decimal.Shift(2).Round(0).IntPart()
}
