package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

// Extractor turns document text or page images into schema-conforming fields via one oracle call.
// Failures are reported inside the returned ExtractionResult, never as Go errors.
type Extractor struct {
	oracle    Oracle
	schema    *Schema
	validator *jsonschema.Schema
	logger    *slog.Logger
}

// NewExtractor binds an oracle to the document extraction schema.
func NewExtractor(oracle Oracle, logger *slog.Logger) (*Extractor, error) {
	if oracle == nil {
		return nil, fmt.Errorf("llm: oracle is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema := DocumentSchema()
	v, err := CompileSchema(schema.JSONSchema())
	if err != nil {
		return nil, err
	}
	return &Extractor{oracle: oracle, schema: schema, validator: v, logger: logger}, nil
}

// Schema returns the schema answers are validated against.
func (e *Extractor) Schema() *Schema { return e.schema }

// ExtractText extracts fields from merged document text.
func (e *Extractor) ExtractText(ctx context.Context, text string) entity.ExtractionResult {
	return e.extract(ctx, Request{
		Modality:     ModalityText,
		SystemPrompt: BuildSystemPrompt(ModalityText),
		UserPrompt:   BuildTextPrompt(e.schema, text),
		Schema:       e.schema,
	})
}

// ExtractImages extracts fields from rendered pages, all sent in one call.
func (e *Extractor) ExtractImages(ctx context.Context, images []entity.PageImage) entity.ExtractionResult {
	if len(images) == 0 {
		return entity.Failed(entity.ErrorKindNoText, "no page images to extract from")
	}
	return e.extract(ctx, Request{
		Modality:     ModalityVision,
		SystemPrompt: BuildSystemPrompt(ModalityVision),
		UserPrompt:   BuildVisionPrompt(e.schema, len(images)),
		Images:       images,
		Schema:       e.schema,
	})
}

func (e *Extractor) extract(ctx context.Context, req Request) entity.ExtractionResult {
	rid := uuid.New().String()
	start := time.Now()
	e.logger.Info("llm.extract.start",
		"req_id", rid,
		"modality", req.Modality,
		"schema", e.schema.Name,
		"prompt_len", len(req.UserPrompt),
		"images", len(req.Images),
	)

	raw, err := e.oracle.Complete(ctx, req)
	if err != nil {
		e.logger.Error("llm.extract.oracle_error",
			"req_id", rid, "modality", req.Modality, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.Failed(entity.ErrorKindOracle, err.Error())
	}

	fields, err := decodeAndValidate(e.validator, raw)
	if err != nil {
		e.logger.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "modality", req.Modality, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.Failed(entity.ErrorKindSchema, "failed to parse JSON response: "+err.Error())
	}

	out := FormatFields(fields)
	e.logger.Info("llm.extract.ok",
		"req_id", rid,
		"modality", req.Modality,
		"bill_of_lading_number", out["bill_of_lading_number"],
		"container_number", out["container_number"],
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.Succeeded(out)
}
