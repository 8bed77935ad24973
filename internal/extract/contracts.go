package extract

import (
	"context"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

// PageTextReader returns the embedded text of each PDF page, in page order.
type PageTextReader interface {
	PageTexts(ctx context.Context, content []byte) ([]string, error)
}

// PageRecognizer OCRs a whole PDF. It fails as a unit: an error means no text at all.
// *ocr.PageOCR satisfies it.
type PageRecognizer interface {
	Recognize(ctx context.Context, doc entity.Document) (string, error)
}
