package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/meal-tracker/internal/scanning"
)

// IDGenerator generates unique IDs for expenses
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles expense operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID ids and the wall clock
func NewService(db DB, scanner scanning.Scanner, storage Storage) *Service {
	return NewServiceWithDeps(db, scanner, storage, uuidGenerator{}, defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// ScanReceipt stores an uploaded receipt, scans it and returns an unsaved
// expense draft together with the raw scan result. The stored file is removed
// again when scanning fails.
func (s *Service) ScanReceipt(ctx context.Context, filename string, data []byte, contentType string, hints scanning.Hints) (*Expense, *scanning.ReceiptData, error) {
	id := s.idGenerator.Generate()

	savedName, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, nil, fmt.Errorf("saving file: %w", err)
	}

	receiptData, err := s.scanner.ScanReceipt(ctx, scanning.Upload{
		Data:        data,
		Filename:    filename,
		ContentType: contentType,
		Hints:       hints,
	})
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		if delErr := s.storage.Delete(savedName); delErr != nil {
			slog.Warn("Failed to delete file", "filename", savedName, "error", delErr)
		}
		return nil, nil, fmt.Errorf("scanning receipt: %w", err)
	}

	draft := draftFromReceipt(receiptData, s.timeSource.Now())
	draft.ID = id
	draft.Filename = savedName
	draft.ContentType = receiptContentType(data, savedName)

	slog.Info("Receipt scanned",
		"id", id,
		"document_type", receiptData.DocumentType,
		"restaurant", draft.RestaurantName,
		"amount_cents", draft.Amount,
	)
	return draft, receiptData, nil
}

// CreateExpense validates and saves an expense
func (s *Service) CreateExpense(expense *Expense) (*Expense, error) {
	if expense == nil {
		return nil, fmt.Errorf("%w: missing body", ErrInvalidExpense)
	}
	if err := expense.Validate(); err != nil {
		return nil, err
	}

	now := s.timeSource.Now()
	if expense.ID == "" {
		expense.ID = s.idGenerator.Generate()
	} else if _, err := s.db.GetExpense(expense.ID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateExpense, expense.ID)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("checking for existing expense: %w", err)
	}

	if err := s.attachReceipt(expense); err != nil {
		return nil, err
	}
	if expense.Date.IsZero() {
		expense.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = now
	}
	expense.UpdatedAt = now

	if err := s.db.SaveExpense(expense); err != nil {
		return nil, fmt.Errorf("saving expense: %w", err)
	}
	return expense, nil
}

// attachReceipt checks that the expense's receipt file was stored by the scan
// that issued its ID. The content type is taken from the stored bytes.
func (s *Service) attachReceipt(expense *Expense) error {
	if expense.Filename == "" {
		expense.ContentType = ""
		return nil
	}
	if !strings.HasPrefix(expense.Filename, expense.ID+"_") {
		return fmt.Errorf("%w: receipt file does not belong to this expense", ErrInvalidExpense)
	}
	data, err := s.storage.Get(expense.Filename)
	if err != nil {
		return fmt.Errorf("%w: receipt file not found", ErrInvalidExpense)
	}
	expense.ContentType = receiptContentType(data, expense.Filename)
	return nil
}

// receiptContentType sniffs stored receipt bytes. Only images and PDFs are
// served with their own type; HEIC is recognized by extension because the
// sniffer does not know it.
func receiptContentType(data []byte, filename string) string {
	allowed := func(ct string) bool {
		return strings.HasPrefix(ct, "image/") || ct == "application/pdf"
	}
	if sniffed := http.DetectContentType(data); allowed(sniffed) {
		return sniffed
	}
	if byName := detectContentType("", filename); allowed(byName) {
		return byName
	}
	return "application/octet-stream"
}

// PruneReceipts deletes stored receipt files that no saved expense refers to
// and that are older than maxAge. These are left behind by scans whose draft
// was never saved. It returns the number of files removed.
func (s *Service) PruneReceipts(maxAge time.Duration) (int, error) {
	files, err := s.storage.List()
	if err != nil {
		return 0, fmt.Errorf("listing receipt files: %w", err)
	}
	expenses, err := s.db.ListExpenses()
	if err != nil {
		return 0, fmt.Errorf("listing expenses: %w", err)
	}

	claimed := make(map[string]bool, len(expenses))
	for _, e := range expenses {
		if e.Filename != "" {
			claimed[e.Filename] = true
		}
	}

	cutoff := s.timeSource.Now().Add(-maxAge)
	removed := 0
	for _, f := range files {
		if claimed[f.Name] || f.ModTime.After(cutoff) {
			continue
		}
		if err := s.storage.Delete(f.Name); err != nil {
			slog.Warn("Failed to delete unclaimed receipt", "filename", f.Name, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("Pruned unclaimed receipts", "count", removed)
	}
	return removed, nil
}

// GetExpense retrieves an expense by ID
func (s *Service) GetExpense(id string) (*Expense, error) {
	expense, err := s.db.GetExpense(id)
	if err != nil {
		return nil, fmt.Errorf("getting expense: %w", err)
	}
	return expense, nil
}

// ListExpenses returns all expenses, newest date first
func (s *Service) ListExpenses() ([]*Expense, error) {
	expenses, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		if !expenses[i].Date.Equal(expenses[j].Date) {
			return expenses[i].Date.After(expenses[j].Date)
		}
		return expenses[i].CreatedAt.After(expenses[j].CreatedAt)
	})
	return expenses, nil
}

// DeleteExpense removes an expense and its receipt file
func (s *Service) DeleteExpense(id string) error {
	expense, err := s.db.GetExpense(id)
	if err != nil {
		return fmt.Errorf("getting expense for deletion: %w", err)
	}

	if expense.Filename != "" {
		if err := s.storage.Delete(expense.Filename); err != nil {
			slog.Warn("Failed to delete file", "filename", expense.Filename, "error", err)
		}
	}

	if err := s.db.DeleteExpense(id); err != nil {
		return fmt.Errorf("deleting expense from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the stored receipt file for an expense
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	expense, err := s.db.GetExpense(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense: %w", err)
	}
	if expense.Filename == "" {
		return nil, "", fmt.Errorf("%w: no receipt file for %s", ErrNotFound, id)
	}

	data, err := s.storage.Get(expense.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, expense.ContentType, nil
}
