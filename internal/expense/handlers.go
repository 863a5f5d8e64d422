package expense

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/meal-tracker/internal/scanning"
)

// maxUploadSize fits high-resolution phone photos
const maxUploadSize = 50 << 20

const tooLargeMessage = "File is too large. Maximum size is 50MB. Please compress or resize your image."

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// scanErrorStatus maps a scanning failure to an HTTP status
func scanErrorStatus(err error) (int, string) {
	switch {
	case scanning.IsInputError(err):
		return http.StatusBadRequest, err.Error()
	case scanning.IsUnavailable(err):
		return http.StatusServiceUnavailable, "Receipt scanning is not available right now. Please enter the expense manually."
	default:
		return http.StatusInternalServerError, "Could not read the receipt. Please enter the expense manually."
	}
}

// detectContentType falls back to the file extension when the multipart
// header has no content type
func detectContentType(header string, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(header))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".bmp":
		return "image/bmp"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return "application/octet-stream"
}

// handleScanReceipt scans an uploaded receipt and returns a prefilled draft
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, tooLargeMessage)
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, tooLargeMessage)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	hints := scanning.NewHints(
		r.FormValue("amount"),
		r.FormValue("date"),
		r.FormValue("restaurant_name"),
	)
	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename)

	draft, receiptData, err := s.service.ScanReceipt(r.Context(), header.Filename, data, contentType, hints)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", header.Filename, "error", err)
		code, message := scanErrorStatus(err)
		writeError(w, code, message)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"expense": draft,
		"receipt": receiptData,
	})
}

// handleCreateExpense saves an expense
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var expense Expense
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&expense); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := s.service.CreateExpense(&expense)
	if err != nil {
		if errors.Is(err, ErrInvalidExpense) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, ErrDuplicateExpense) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		slog.Error("Error creating expense", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

// handleListExpenses returns all expenses
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.service.ListExpenses()
	if err != nil {
		slog.Error("Error listing expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if expenses == nil {
		expenses = []*Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

// notFoundOr500 writes 404 for unknown IDs and 500 for everything else
func notFoundOr500(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	slog.Error("Error handling expense", "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// handleGetExpense returns a single expense
func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.service.GetExpense(r.PathValue("id"))
	if err != nil {
		notFoundOr500(w, err, "Expense not found")
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

// handleDeleteExpense deletes an expense and its receipt file
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteExpense(r.PathValue("id")); err != nil {
		notFoundOr500(w, err, "Expense not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetReceiptFile returns the original receipt file
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		notFoundOr500(w, err, "File not found")
		return
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Write(data)
}
