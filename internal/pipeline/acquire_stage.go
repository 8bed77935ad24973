package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

// TextAcquirer is satisfied by *extract.Acquirer.
type TextAcquirer interface {
	Acquire(ctx context.Context, doc entity.Document) (entity.AcquiredText, error)
}

// PageRenderer is satisfied by *ocr.Renderer.
type PageRenderer interface {
	Render(ctx context.Context, doc entity.Document) ([]entity.PageImage, error)
}

// Acquisition is the per-batch material handed to the extract stage.
type Acquisition struct {
	PDFText   []string
	SheetText []string
	Images    []entity.PageImage
	Warnings  []string
}

// MergedText renders the text path input: a labelled block per non-blank bucket.
func (a Acquisition) MergedText() string {
	var b strings.Builder
	if pdf := strings.Join(a.PDFText, "\n"); strings.TrimSpace(pdf) != "" {
		b.WriteString("PDF Content:\n")
		b.WriteString(pdf)
		b.WriteString("\n\n")
	}
	if sheets := strings.Join(a.SheetText, "\n"); strings.TrimSpace(sheets) != "" {
		b.WriteString("Excel Content:\n")
		b.WriteString(sheets)
		b.WriteString("\n\n")
	}
	return b.String()
}

// AcquireStage reads every document of a batch in order.
type AcquireStage struct {
	Acquirer TextAcquirer
	Renderer PageRenderer
	Logger   *slog.Logger
}

func NewAcquireStage(acq TextAcquirer, renderer PageRenderer, logger *slog.Logger) *AcquireStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &AcquireStage{Acquirer: acq, Renderer: renderer, Logger: logger}
}

// Run acquires text for PDFs and spreadsheets and renders PDF pages for the vision path.
// A PDF that cannot be read aborts the batch; rendering failures only drop that document's images.
func (s *AcquireStage) Run(ctx context.Context, docs []entity.Document) (Acquisition, error) {
	var out Acquisition
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return Acquisition{}, err
		}
		switch doc.Kind {
		case constants.PDF:
			txt, err := s.Acquirer.Acquire(ctx, doc)
			if err != nil {
				return Acquisition{}, err
			}
			out.PDFText = append(out.PDFText, txt.Text)
			out.Warnings = append(out.Warnings, txt.Warnings...)
			out.Images = append(out.Images, s.render(ctx, doc)...)
		case constants.SPREADSHEET:
			txt, err := s.Acquirer.Acquire(ctx, doc)
			if err != nil {
				return Acquisition{}, err
			}
			out.SheetText = append(out.SheetText, txt.Text)
			out.Warnings = append(out.Warnings, txt.Warnings...)
		default:
			s.Logger.Warn("pipeline.acquire.skip_unsupported", "document", doc.Name)
			out.Warnings = append(out.Warnings, "skipped unsupported document "+doc.Name)
		}
	}
	// renumber so page indexes stay unique across documents
	for i := range out.Images {
		out.Images[i].Index = i
	}
	return out, nil
}

func (s *AcquireStage) render(ctx context.Context, doc entity.Document) []entity.PageImage {
	if s.Renderer == nil {
		return nil
	}
	pages, err := s.Renderer.Render(ctx, doc)
	if err != nil {
		s.Logger.Warn("pipeline.acquire.render_failed", "document", doc.Name, "error", err)
		return nil
	}
	return pages
}
