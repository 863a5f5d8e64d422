package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/meal-tracker/internal/scanning"
)

func main() {
	def := scanning.DefaultOCRConfig()

	fs := ff.NewFlagSet("scan-receipt")
	var (
		tessBinary  = fs.StringLong("tesseract", def.Tesseract, "Tesseract binary name or path")
		ocrLang     = fs.StringLong("ocr-lang", def.Language, "Tesseract language code")
		tessdataDir = fs.StringLong("tessdata-dir", "", "Tesseract tessdata directory (optional)")
		threshold   = fs.Float64Long("ocr-confidence-threshold", def.ConfidenceThreshold, "Drop fields scored below this confidence (0-1)")
		ocrTimeout  = fs.DurationLong("ocr-timeout", def.Timeout, "Maximum time spent on the scan")
		amount      = fs.StringLong("amount", "", "Expected amount, e.g. 23.45 (helps pick a bank statement line)")
		date        = fs.StringLong("date", "", "Expected date as YYYY-MM-DD")
		restaurant  = fs.StringLong("restaurant", "", "Expected restaurant name")
		textOnly    = fs.BoolLong("text", "Print the extracted text instead of parsed fields")
		debug       = fs.BoolLong("debug", "Enable debug logging")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("MEAL_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := fs.GetArgs()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "usage: scan-receipt [flags] FILE")
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Failed to read file", "path", path, "error", err)
		os.Exit(1)
	}

	cfg := def
	cfg.Tesseract = *tessBinary
	cfg.Language = *ocrLang
	cfg.TessdataDir = *tessdataDir
	cfg.ConfidenceThreshold = *threshold
	cfg.Timeout = *ocrTimeout
	scanner := scanning.NewOCR(cfg)
	defer scanner.Close()

	upload := scanning.Upload{
		Data:        data,
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Hints:       scanning.NewHints(*amount, *date, *restaurant),
	}

	ctx := context.Background()
	if *textOnly {
		text, err := scanner.ExtractText(ctx, upload)
		if err != nil {
			slog.Error("Failed to extract text", "path", path, "error", err)
			os.Exit(1)
		}
		fmt.Println(text)
		return
	}

	receiptData, err := scanner.ScanReceipt(ctx, upload)
	if err != nil {
		slog.Error("Failed to scan receipt", "path", path, "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(receiptData); err != nil {
		slog.Error("Failed to encode result", "error", err)
		os.Exit(1)
	}
}
