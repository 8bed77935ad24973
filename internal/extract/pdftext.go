package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"
)

// NativePDFReader reads page text with github.com/ledongthuc/pdf.
type NativePDFReader struct{}

func (NativePDFReader) PageTexts(ctx context.Context, content []byte) (pages []string, err error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty pdf")
	}
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("parse pdf: %v", rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	total := r.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, txt)
	}
	return pages, nil
}

// DocconvPDFReader reads text through docconv, which runs pdftotext with -nopgbrk.
// No page breaks survive, so the whole document comes back as a single block.
type DocconvPDFReader struct{}

func (DocconvPDFReader) PageTexts(ctx context.Context, content []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := docconv.Convert(bytes.NewReader(content), "application/pdf", false)
	if err != nil {
		return nil, fmt.Errorf("docconv: %w", err)
	}
	return docconvPages(res.Body), nil
}

func docconvPages(body string) []string {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	return []string{body}
}

// NewPageTextReader picks a backend by name: "docconv" or anything else for the native reader.
func NewPageTextReader(backend string) PageTextReader {
	if strings.EqualFold(backend, "docconv") {
		return DocconvPDFReader{}
	}
	return NativePDFReader{}
}
