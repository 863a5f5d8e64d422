package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/meal-tracker/internal/expense"
	"github.com/zombor/meal-tracker/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	def := scanning.DefaultOCRConfig()

	fs := ff.NewFlagSet("meal-tracker")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "meal-tracker.db", "Database file path")
		storagePath = fs.StringLong("storage", "./receipts", "Storage directory path")
		scannerType = fs.StringLong("scanner", "ocr", "Scanner type: 'ocr', 'gemini' or 'ollama'")
		ocrDisabled = fs.BoolLong("ocr-disabled", "Turn off receipt scanning; expenses are entered by hand")
		tessBinary  = fs.StringLong("tesseract", def.Tesseract, "Tesseract binary name or path")
		ocrLang     = fs.StringLong("ocr-lang", def.Language, "Tesseract language code")
		tessdataDir = fs.StringLong("tessdata-dir", "", "Tesseract tessdata directory (optional)")
		threshold   = fs.Float64Long("ocr-confidence-threshold", def.ConfidenceThreshold, "Drop OCR fields scored below this confidence (0-1)")
		ocrTimeout  = fs.DurationLong("ocr-timeout", def.Timeout, "Maximum time spent on one OCR scan")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
		pruneAfter  = fs.DurationLong("prune-after", 24*time.Hour, "Delete receipt files not attached to a saved expense after this long (0 disables)")
		logLevel    = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logJSON     = fs.BoolLong("log-json", "Write logs as JSON")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("MEAL_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := setupLogging(*logLevel, *logJSON); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Initialize database
	slog.Info("Initializing database...", "path", *dbPath)
	db, err := expense.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize scanner based on type
	var scanner scanning.Scanner
	switch *scannerType {
	case "ocr":
		cfg := def
		cfg.Enabled = !*ocrDisabled
		cfg.Tesseract = *tessBinary
		cfg.Language = *ocrLang
		cfg.TessdataDir = *tessdataDir
		cfg.ConfidenceThreshold = *threshold
		cfg.Timeout = *ocrTimeout
		slog.Info("Initializing OCR scanner...",
			"enabled", cfg.Enabled,
			"tesseract", cfg.Tesseract,
			"lang", cfg.Language,
			"confidence_threshold", cfg.ConfidenceThreshold,
		)
		scanner = scanning.NewOCR(cfg)
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		scanner, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "ocr, gemini or ollama")
		os.Exit(1)
	}
	defer scanner.Close()

	// Initialize storage
	slog.Info("Initializing storage...", "path", *storagePath)
	store, err := expense.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := expense.NewService(db, scanner, store)
	server := expense.NewServer(service)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *pruneAfter > 0 {
		go pruneLoop(ctx, service, *pruneAfter)
	}

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// pruneLoop removes receipts from abandoned scans at startup and then hourly
func pruneLoop(ctx context.Context, service *expense.Service, maxAge time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		if _, err := service.PruneReceipts(maxAge); err != nil {
			slog.Error("Failed to prune receipts", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func setupLogging(level string, asJSON bool) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("parsing log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if asJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
