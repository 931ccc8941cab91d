package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-manager/internal/receipt"
	"github.com/zombor/receipt-manager/internal/scanning"
	"github.com/zombor/receipt-manager/internal/storage"
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

	defaults := storage.DefaultLimits()

	fs := ff.NewFlagSet("receipt-manager")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "receipts.db", "Database file path")
		archivePath   = fs.StringLong("archive", "./archive", "Directory for exported archives")
		capacity      = fs.IntLong("capacity", 0, "Hard capacity of the receipt store in bytes (0 = unlimited)")
		quotaWarning  = fs.IntLong("quota-warning", int(defaults.Warning), "Usage in bytes at which saves warn")
		quotaCritical = fs.IntLong("quota-critical", int(defaults.Critical), "Usage in bytes at which old receipts are evicted")
		quotaMaximum  = fs.IntLong("quota-maximum", int(defaults.Maximum), "Usage in bytes treated as full")
		scannerType   = fs.StringLong("scanner", "gemini", "Vision scanner: 'gemini', 'ollama' or 'none'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", scanning.DefaultGeminiModel, "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", scanning.DefaultOllamaModel, "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		useTesseract  = fs.BoolLong("tesseract", "Fall back to local Tesseract OCR when the vision model is unusable")
		tessLang      = fs.StringLong("tesseract-lang", "eng", "Tesseract language")
		tessData      = fs.StringLong("tessdata", "", "Tesseract tessdata directory (optional)")
		minConfidence = fs.IntLong("min-oracle-confidence", receipt.DefaultMinOracleConfidence, "Minimum vision model confidence before falling back to text parsing")
		storeImages   = fs.BoolLong("store-images", "Store a compressed copy of each receipt image")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_MANAGER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	limits := storage.Limits{
		Warning:  int64(*quotaWarning),
		Critical: int64(*quotaCritical),
		Maximum:  int64(*quotaMaximum),
	}
	if limits.Warning >= limits.Critical || limits.Critical > limits.Maximum {
		slog.Error("Quota thresholds must satisfy warning < critical <= maximum",
			"warning", limits.Warning,
			"critical", limits.Critical,
			"maximum", limits.Maximum,
		)
		os.Exit(1)
	}

	slog.Info("Initializing database...", "path", *dbPath)
	db, err := receipt.NewBoltDB(*dbPath, int64(*capacity), limits)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var scanner scanning.Scanner
	switch *scannerType {
	case "gemini":
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
	case "none":
		slog.Info("No vision scanner configured, receipts are read with text parsing only")
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini, ollama or none")
		os.Exit(1)
	}
	if scanner != nil {
		defer scanner.Close()
	}

	config := receipt.Config{
		MinOracleConfidence: *minConfidence,
		StoreImages:         *storeImages,
	}
	if *useTesseract {
		slog.Info("Initializing Tesseract...", "language", *tessLang)
		recognizer, err := scanning.NewTesseract(*tessData, *tessLang)
		if err != nil {
			slog.Error("Failed to initialize Tesseract", "error", err)
			os.Exit(1)
		}
		defer recognizer.Close()
		config.Recognizer = recognizer
	}
	if scanner == nil && config.Recognizer == nil {
		slog.Warn("Neither a vision scanner nor Tesseract is configured; image uploads will fail, text endpoints still work")
	}

	archive, err := receipt.NewLocalStorage(*archivePath)
	if err != nil {
		slog.Error("Failed to initialize archive storage", "error", err)
		os.Exit(1)
	}

	receiptService := receipt.NewService(db, scanner, archive, config)

	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(receiptService, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
