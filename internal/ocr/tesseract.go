package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

// Tesseract recognizes text in rendered page images.
type Tesseract struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseract(cfg Config, runner Runner, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Tesseract{cfg: cfg.withDefaults(constants.OCRDPI), runner: runner, logger: logger}
}

// Available reports common.ErrOCRUnavailable when tesseract cannot be found.
func (t *Tesseract) Available() error {
	if _, err := t.runner.LookPath(t.cfg.Tesseract); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrOCRUnavailable, t.cfg.Tesseract, err)
	}
	return nil
}

// Recognize runs tesseract on one page image and returns its raw text.
func (t *Tesseract) Recognize(ctx context.Context, img entity.PageImage) (string, error) {
	tmpDir, err := os.MkdirTemp("", "tde-ts-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	path := filepath.Join(tmpDir, fmt.Sprintf("page-%d.png", img.Index+1))
	if err := os.WriteFile(path, img.Data, 0o600); err != nil {
		return "", err
	}

	// tesseract <file> stdout -l <lang>
	args := []string{path, "stdout", "-l", t.cfg.TesseractLang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract page %d: %w: %s", img.Index+1, err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// PageOCR renders a PDF and recognizes every page in order. Any unavailable tool
// or failed page makes the whole call fail; callers never see partial text.
type PageOCR struct {
	renderer *Renderer
	engine   *Tesseract
	logger   *slog.Logger
}

// NewPageOCR wires a renderer and tesseract sharing one runner. DPI defaults to the OCR resolution.
func NewPageOCR(cfg Config, runner Runner, logger *slog.Logger) *PageOCR {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults(constants.OCRDPI)
	return &PageOCR{
		renderer: NewRenderer(cfg, runner, logger),
		engine:   NewTesseract(cfg, runner, logger),
		logger:   logger,
	}
}

// Available reports the first missing capability, if any.
func (p *PageOCR) Available() error {
	if err := p.renderer.Available(); err != nil {
		return err
	}
	return p.engine.Available()
}

// Recognize returns the page texts of doc joined by newlines, normalized.
func (p *PageOCR) Recognize(ctx context.Context, doc entity.Document) (string, error) {
	if err := p.Available(); err != nil {
		return "", err
	}
	pages, err := p.renderer.Render(ctx, doc)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", errNoPages
	}
	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		txt, err := p.engine.Recognize(ctx, page)
		if err != nil {
			return "", err
		}
		texts = append(texts, txt)
	}
	p.logger.Debug("ocr.pages.ok", "document", doc.Name, "pages", len(pages))
	return Normalize(strings.Join(texts, "\n")), nil
}
