// Package app wires configuration into a ready extraction pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/extract"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/llm"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/ocr"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/pipeline"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/repository"
)

// App holds the wired components shared by the binaries.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Extractor *llm.Extractor
	Processor *pipeline.Processor
	Runs      *repository.RunRepository // nil when DB_URL is unset

	closers []func()
}

// NewLogger installs a JSON slog handler at the configured level as the default logger.
func NewLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// New validates cfg and builds the pipeline. Close releases what it opened.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger}

	oracle, err := a.newOracle(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Extractor, err = llm.NewExtractor(oracle, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Database.DSN != "" {
		db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { db.Close(logger) })
		a.Runs = repository.NewRunRepository(db, logger)
	}

	runner := ocr.ExecRunner{Logger: logger}
	pageOCR := ocr.NewPageOCR(OCRConfig(cfg.OCR, cfg.OCR.OCRDPI, cfg.OCR.MaxPages), runner, logger)
	if err := pageOCR.Available(); err != nil {
		logger.Warn("ocr unavailable, scanned PDFs will yield no text", "error", err)
	}
	visionPages := cfg.OCR.MaxPages
	if visionPages <= 0 {
		visionPages = constants.MaxVisionPagesDefault
	}
	renderer := ocr.NewRenderer(OCRConfig(cfg.OCR, cfg.OCR.VisionDPI, visionPages), runner, logger)
	if err := renderer.Available(); err != nil {
		logger.Warn("page rendering unavailable, vision extraction disabled", "error", err)
	}

	acquirer := extract.NewAcquirer(extract.NewPageTextReader(cfg.OCR.PDFTextBackend), pageOCR, logger)
	var runs pipeline.RunRecorder
	if a.Runs != nil {
		runs = a.Runs
	}
	a.Processor = pipeline.NewProcessor(logger,
		pipeline.NewAcquireStage(acquirer, renderer, logger),
		pipeline.NewExtractStage(a.Extractor, logger),
		runs,
	)
	return a, nil
}

// OCRConfig maps the application settings onto an ocr.Config at the given resolution.
func OCRConfig(c common.OCRConfig, dpi, maxPages int) ocr.Config {
	return ocr.Config{
		Pdftoppm:      c.Pdftoppm,
		Tesseract:     c.Tesseract,
		TesseractLang: c.TesseractLang,
		TessdataDir:   c.TessdataDir,
		DPI:           dpi,
		MaxPages:      maxPages,
	}
}

func (a *App) newOracle(ctx context.Context) (llm.Oracle, error) {
	cfg := a.Config.LLM
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		client := openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, a.Logger)
		a.Logger.Info("OpenAI client initialized", "model", client.Model())
		return client, nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.Logger.Warn("failed to close gemini client", "error", err)
			}
		})
		a.Logger.Info("Gemini client initialized", "model", client.Model())
		return client, nil
	}
	return nil, common.NewAppError("CONFIG_ERROR", "unknown LLM_PROVIDER "+cfg.Provider, common.ErrInvalidInput)
}

// Close releases clients and connections in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// ExitCode maps an error to a process exit status: 2 for bad input, 130 for interruption, else 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrGroundTruthMissing):
		return 2
	case errors.Is(err, context.Canceled):
		return 130
	}
	return 1
}
