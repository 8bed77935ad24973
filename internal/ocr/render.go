package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

// Renderer rasterizes PDF pages to PNG with pdftoppm.
type Renderer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewRenderer builds a renderer. DPI defaults to the vision resolution.
func NewRenderer(cfg Config, runner Runner, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Renderer{cfg: cfg.withDefaults(constants.VisionDPI), runner: runner, logger: logger}
}

// DPI reports the resolution pages are rendered at.
func (r *Renderer) DPI() int { return r.cfg.DPI }

// Available reports common.ErrRenderingUnavailable when pdftoppm cannot be found.
func (r *Renderer) Available() error {
	if _, err := r.runner.LookPath(r.cfg.Pdftoppm); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrRenderingUnavailable, r.cfg.Pdftoppm, err)
	}
	return nil
}

// Render returns one PNG per page in page order. Non-PDF documents, PDFs without
// pages and a missing pdftoppm all yield an empty slice and no error.
func (r *Renderer) Render(ctx context.Context, doc entity.Document) ([]entity.PageImage, error) {
	if doc.Kind != constants.PDF || len(doc.Content) == 0 {
		return nil, nil
	}
	if err := r.Available(); err != nil {
		r.logger.Warn("ocr.render.unavailable", "document", doc.Name, "error", err)
		return nil, nil
	}

	tmpDir, err := os.MkdirTemp("", "tde-pp-*")
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", doc.Name, err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("ocr.render.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, doc.Content, 0o600); err != nil {
		return nil, fmt.Errorf("render %s: %w", doc.Name, err)
	}

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(r.cfg.DPI), "-png"}
	if r.cfg.MaxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(r.cfg.MaxPages))
	}
	args = append(args, in, prefix)
	// pdftoppm -r <dpi> -png [-f 1 -l N] <in.pdf> <tmp/page>
	if _, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm %s: %w: %s", doc.Name, err, truncate(string(errb), 512))
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		return pageIndexFromName(matches[i]) < pageIndexFromName(matches[j])
	})
	if r.cfg.MaxPages > 0 && len(matches) > r.cfg.MaxPages {
		matches = matches[:r.cfg.MaxPages]
	}

	pages := make([]entity.PageImage, 0, len(matches))
	for i, path := range matches {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rendered page %d of %s: %w", i+1, doc.Name, err)
		}
		pages = append(pages, entity.PageImage{Index: i, Data: b, MIMEType: "image/png"})
	}
	r.logger.Debug("ocr.render.ok", "document", doc.Name, "pages", len(pages), "dpi", r.cfg.DPI)
	return pages, nil
}

// pageIndexFromName parses the zero-padded page number pdftoppm appends ("page-07.png" -> 6).
func pageIndexFromName(path string) int {
	base := filepath.Base(path)
	idx := strings.LastIndex(base, "-")
	if idx >= 0 {
		number := strings.TrimSuffix(base[idx+1:], ".png")
		if v, err := strconv.Atoi(number); err == nil {
			return v - 1
		}
	}
	return 0
}

// errNoPages is returned by OCR when the renderer produced nothing for a non-empty PDF.
var errNoPages = errors.New("pdftoppm produced no images")
