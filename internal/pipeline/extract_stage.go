package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

// FieldExtractor is satisfied by *llm.Extractor.
type FieldExtractor interface {
	ExtractText(ctx context.Context, text string) entity.ExtractionResult
	ExtractImages(ctx context.Context, images []entity.PageImage) entity.ExtractionResult
}

// ExtractStage runs the text path and, when pages were rendered, the vision path.
type ExtractStage struct {
	Extractor FieldExtractor
	Logger    *slog.Logger
}

func NewExtractStage(fe FieldExtractor, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{Extractor: fe, Logger: logger}
}

// Run never calls the oracle when the merged text is blank. Each path's
// failure is kept in its own slot and never hides the other path.
func (s *ExtractStage) Run(ctx context.Context, acq Acquisition) entity.MergedExtraction {
	merged := acq.MergedText()
	if strings.TrimSpace(merged) == "" {
		s.Logger.Warn("pipeline.extract.no_text", "images", len(acq.Images))
		return entity.NoText()
	}

	text := s.Extractor.ExtractText(ctx, merged)
	out := entity.MergedExtraction{Text: &text}
	if !text.OK() {
		s.Logger.Warn("pipeline.extract.text_failed", "kind", text.Err().Kind, "error", text.Err().Message)
	}

	if len(acq.Images) > 0 {
		vision := s.Extractor.ExtractImages(ctx, acq.Images)
		out.Vision = &vision
		if !vision.OK() {
			s.Logger.Warn("pipeline.extract.vision_failed", "kind", vision.Err().Kind, "error", vision.Err().Message)
		}
	}
	return out
}
