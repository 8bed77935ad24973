package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

// RunRecorder persists extraction runs. *repository.RunRepository satisfies it.
type RunRecorder interface {
	StartExtraction(ctx context.Context, batchID string, documents []string) (uuid.UUID, error)
	FinishExtraction(ctx context.Context, id uuid.UUID, status constants.RunStatus, result json.RawMessage, errMsg string) error
}

// Processor coordinates acquisition then structured extraction for one batch.
type Processor struct {
	Logger  *slog.Logger
	Acquire *AcquireStage
	Extract *ExtractStage
	Runs    RunRecorder // optional
}

func NewProcessor(logger *slog.Logger, acquire *AcquireStage, extract *ExtractStage, runs RunRecorder) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Acquire: acquire, Extract: extract, Runs: runs}
}

// Process turns a batch of documents into one merged extraction.
// The returned error is non-nil only when a document could not be acquired;
// oracle and schema failures travel inside the MergedExtraction.
func (p *Processor) Process(ctx context.Context, docs []entity.Document) (entity.MergedExtraction, error) {
	start := time.Now()
	batchID := common.BatchIDFromContext(ctx)
	if batchID == "" {
		batchID = uuid.NewString()
		ctx = common.WithBatchID(ctx, batchID)
	}
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	runID := p.startRun(ctx, batchID, names)

	acq, err := p.Acquire.Run(ctx, docs)
	if err != nil {
		p.Logger.Error("pipeline.acquire.failed", "batch_id", batchID, "error", err)
		status := constants.RunStatusFailed
		if ctx.Err() != nil {
			status = constants.RunStatusCanceled
		}
		p.finishRun(ctx, runID, status, nil, err.Error())
		return entity.MergedExtraction{}, err
	}
	p.Logger.Info("pipeline.acquire.ok",
		"request_id", common.RequestIDFromContext(ctx),
		"batch_id", batchID,
		"documents", len(docs),
		"pdf_texts", len(acq.PDFText),
		"sheet_texts", len(acq.SheetText),
		"images", len(acq.Images),
		"warnings", len(acq.Warnings),
	)

	merged := p.Extract.Run(ctx, acq)

	status := constants.RunStatusSucceeded
	errMsg := ""
	switch {
	case merged.Err != nil:
		status, errMsg = constants.RunStatusFailed, merged.Err.Message
	case merged.HasFailure():
		status = constants.RunStatusPartial
	}
	result, _ := json.Marshal(merged)
	p.finishRun(ctx, runID, status, result, errMsg)

	p.Logger.Info("pipeline.process.ok",
		"batch_id", batchID,
		"status", status,
		"vision", merged.Vision != nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return merged, nil
}

func (p *Processor) startRun(ctx context.Context, batchID string, names []string) uuid.UUID {
	if p.Runs == nil {
		return uuid.Nil
	}
	id, err := p.Runs.StartExtraction(ctx, batchID, names)
	if err != nil {
		p.Logger.Warn("pipeline.run.start_failed", "batch_id", batchID, "error", err)
		return uuid.Nil
	}
	return id
}

func (p *Processor) finishRun(ctx context.Context, id uuid.UUID, status constants.RunStatus, result json.RawMessage, errMsg string) {
	if p.Runs == nil || id == uuid.Nil {
		return
	}
	// a canceled batch still gets its terminal status written
	if err := p.Runs.FinishExtraction(context.WithoutCancel(ctx), id, status, result, errMsg); err != nil {
		p.Logger.Warn("pipeline.run.finish_failed", "run_id", id, "error", err)
	}
}
