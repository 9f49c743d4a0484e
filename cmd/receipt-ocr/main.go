package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-ocr/internal/cards"
	"github.com/zombor/receipt-ocr/internal/correction"
	"github.com/zombor/receipt-ocr/internal/preprocess"
	"github.com/zombor/receipt-ocr/internal/quality"
	"github.com/zombor/receipt-ocr/internal/receipt"
	"github.com/zombor/receipt-ocr/internal/scanning"
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

	fs := ff.NewFlagSet("receipt-ocr")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		scannerType    = fs.StringLong("scanner", "tesseract", "OCR engine: 'tesseract', 'gemini' or 'ollama'")
		tessLanguages  = fs.StringLong("tesseract-lang", "eng", "Comma-separated Tesseract languages")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", scanning.DefaultGeminiModel, "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		maxDimension   = fs.IntLong("max-dimension", preprocess.DefaultMaxDimension, "Downscale images whose longest side exceeds this many pixels")
		dbPath         = fs.StringLong("db", "corrections.db", "Local correction store file path (empty to disable)")
		learningURL    = fs.StringLong("learning-url", "", "Endpoint that receives correction records (optional)")
		sendTimeout    = fs.DurationLong("learning-timeout", correction.DefaultSendTimeout, "Timeout for sending one correction")
		cardsPath      = fs.StringLong("cards", "", "YAML file of known payment cards (optional)")
		ocrWeight      = fs.Float64Long("ocr-weight", quality.DefaultOCRWeight, "Weight of OCR confidence in the overall score")
		minOCRConf     = fs.Float64Long("min-ocr-confidence", quality.DefaultMinOCRConfidence, "OCR confidence below which a receipt needs review")
		minFieldConf   = fs.Float64Long("min-field-confidence", quality.DefaultMinFieldConfidence, "Field confidence below which a receipt needs review")
		shutdownWindow = fs.DurationLong("shutdown-timeout", 15*time.Second, "Time allowed for in-flight requests on shutdown")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_OCR"),
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

	// Initialize OCR engine based on type
	var engine scanning.Engine
	switch *scannerType {
	case "tesseract":
		langs := strings.Split(*tessLanguages, ",")
		for i := range langs {
			langs[i] = strings.TrimSpace(langs[i])
		}
		slog.Info("Initializing Tesseract engine...", "languages", langs)
		engine = scanning.NewTesseract(langs...)
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
		slog.Info("Initializing Gemini engine...", "model", *geminiModel)
		gemini, err := scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		engine = gemini
	case "ollama":
		slog.Info("Initializing Ollama engine...", "url", *ollamaURL, "model", *ollamaModel)
		ollama, err := scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
		engine = ollama
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "tesseract, gemini or ollama")
		os.Exit(1)
	}

	// Initialize correction sinks
	var (
		sinks correction.MultiSink
		store *correction.BoltStore
	)
	if *dbPath != "" {
		slog.Info("Initializing correction store...", "path", *dbPath)
		var err error
		store, err = correction.NewBoltStore(*dbPath)
		if err != nil {
			slog.Error("Failed to initialize correction store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	if *learningURL != "" {
		httpSink, err := correction.NewHTTPSink(*learningURL)
		if err != nil {
			slog.Error("Failed to initialize learning endpoint", "error", err)
			os.Exit(1)
		}
		slog.Info("Sending corrections to learning endpoint", "url", *learningURL)
		sinks = append(sinks, httpSink)
	}
	var sink correction.Sink
	if len(sinks) > 0 {
		sink = sinks
	}

	// Load card registry
	var registry *cards.Registry
	if *cardsPath != "" {
		var err error
		registry, err = cards.LoadRegistry(*cardsPath)
		if err != nil {
			slog.Error("Failed to load cards", "path", *cardsPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Loaded cards", "count", registry.Len())
	}

	assessor := quality.NewAssessor()
	assessor.OCRWeight = *ocrWeight
	assessor.MinOCRConfidence = *minOCRConf
	assessor.MinFieldConfidence = *minFieldConf

	recorder := correction.NewRecorderWithDeps(sink, correction.DefaultIDGenerator(), correction.DefaultTimeSource(), *sendTimeout)

	var correctionStore receipt.CorrectionStore
	if store != nil {
		correctionStore = store
	}

	// Initialize service
	receiptService := receipt.NewServiceWithDeps(
		preprocess.NewPreprocessorWithSteps(*maxDimension, preprocess.DefaultSteps()...),
		scanning.NewRecognizer(engine),
		assessor,
		registry,
		recorder,
		correctionStore,
	)

	// Initialize server
	server := receipt.NewServer(receiptService)
	addr := fmt.Sprintf(":%d", *port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("Starting server", "address", addr, "engine", engine.Name())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), *shutdownWindow)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Failed to shut down server", "error", err)
	}

	// Let queued corrections reach their sinks before the store closes
	receiptService.Wait()
}
