package llm

import (
	"context"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

// Modality selects which extraction path a request belongs to.
type Modality string

const (
	ModalityText   Modality = "text"
	ModalityVision Modality = "vision"
)

// Request is everything an oracle needs for one structured extraction call.
type Request struct {
	Modality     Modality
	SystemPrompt string
	UserPrompt   string
	Images       []entity.PageImage // vision only, in page order
	Schema       *Schema
}

// Oracle answers a Request with a raw JSON object that should conform to Request.Schema.
// Implementations make exactly one upstream call and never retry.
type Oracle interface {
	Complete(ctx context.Context, req Request) ([]byte, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, req Request) ([]byte, error)

func (f OracleFunc) Complete(ctx context.Context, req Request) ([]byte, error) { return f(ctx, req) }
