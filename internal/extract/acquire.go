package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

// Acquirer turns a document into plain text. PDFs with too little embedded text
// are re-read through OCR; the OCR result then replaces the direct text entirely.
type Acquirer struct {
	pdf      PageTextReader
	ocr      PageRecognizer
	minChars int
	logger   *slog.Logger
}

// NewAcquirer wires the PDF text backend and the OCR fallback. ocr may be nil, in
// which case low-text PDFs come back empty.
func NewAcquirer(pdf PageTextReader, ocr PageRecognizer, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	if pdf == nil {
		pdf = NativePDFReader{}
	}
	return &Acquirer{pdf: pdf, ocr: ocr, minChars: constants.MinDirectTextChars, logger: logger}
}

// Acquire returns the text of doc.
//
// Spreadsheets that cannot be read yield the text "Error reading <name>" and no error.
// A PDF that cannot be parsed yields a common.ErrAcquisition error.
func (a *Acquirer) Acquire(ctx context.Context, doc entity.Document) (entity.AcquiredText, error) {
	start := time.Now()
	a.logger.Debug("extract.acquire.start", "document", doc.Name, "kind", doc.Kind, "bytes", len(doc.Content))

	var (
		out entity.AcquiredText
		err error
	)
	switch doc.Kind {
	case constants.PDF:
		out, err = a.acquirePDF(ctx, doc)
	case constants.SPREADSHEET:
		out = a.acquireSpreadsheet(doc)
	default:
		return entity.AcquiredText{}, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, doc.Name)
	}
	if err != nil {
		a.logger.Error("extract.acquire.failed", "document", doc.Name, "error", err)
		return entity.AcquiredText{}, err
	}
	out.DocumentID = doc.ID
	out.Length = trimmedLen(out.Text)
	a.logger.Info("extract.acquire.ok",
		"document", doc.Name,
		"provenance", out.Provenance,
		"chars", out.Length,
		"warnings", len(out.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (a *Acquirer) acquirePDF(ctx context.Context, doc entity.Document) (entity.AcquiredText, error) {
	pages, err := a.pdf.PageTexts(ctx, doc.Content)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return entity.AcquiredText{}, ctxErr
		}
		return entity.AcquiredText{}, common.AcquisitionError(doc.Name, err)
	}

	nonEmpty := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	direct := strings.Join(nonEmpty, "\n")
	n := trimmedLen(direct)
	if n >= a.minChars {
		return entity.AcquiredText{Text: direct, Provenance: constants.ProvenanceDirect}, nil
	}
	a.logger.Info("extract.acquire.ocr_fallback", "document", doc.Name, "direct_chars", n, "threshold", a.minChars)

	out := entity.AcquiredText{Provenance: constants.ProvenanceOCR}
	if a.ocr == nil {
		out.Warnings = append(out.Warnings, common.ErrOCRUnavailable.Error())
		return out, nil
	}
	txt, err := a.ocr.Recognize(ctx, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return entity.AcquiredText{}, ctxErr
		}
		a.logger.Warn("extract.acquire.ocr_failed", "document", doc.Name, "error", err)
		out.Warnings = append(out.Warnings, err.Error())
		return out, nil
	}
	out.Text = txt
	return out, nil
}

func (a *Acquirer) acquireSpreadsheet(doc entity.Document) entity.AcquiredText {
	sheets, err := readWorkbook(doc.Name, doc.Content)
	if err != nil {
		a.logger.Warn("extract.acquire.spreadsheet_failed", "document", doc.Name, "error", err)
		return entity.AcquiredText{
			Text:       "Error reading " + doc.Name,
			Provenance: constants.ProvenanceDirect,
			Warnings:   []string{err.Error()},
		}
	}
	return entity.AcquiredText{Text: renderSheets(sheets), Provenance: constants.ProvenanceDirect}
}

func trimmedLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
