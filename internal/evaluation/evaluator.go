package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

// Preference selects which extraction path is scored.
type Preference string

const (
	PreferText           Preference = "text"
	PreferVision         Preference = "vision"
	PreferTextThenVision Preference = "text_then_vision"
)

// BatchProcessor is satisfied by *pipeline.Processor.
type BatchProcessor interface {
	Process(ctx context.Context, docs []entity.Document) (entity.MergedExtraction, error)
}

// RunRecorder persists evaluation runs. *repository.RunRepository satisfies it.
type RunRecorder interface {
	StartEvaluation(ctx context.Context, groundTruthPath, preference string) (uuid.UUID, error)
	FinishEvaluation(ctx context.Context, run entity.EvaluationRun) error
}

// Config tunes an evaluation pass.
type Config struct {
	Preference      Preference
	Concurrency     int    // documents in flight; 1 = sequential
	GroundTruthPath string // recorded with the run
}

// Evaluator scores the extraction pipeline against labelled batches.
type Evaluator struct {
	proc   BatchProcessor
	fields []string
	cfg    Config
	runs   RunRecorder
	logger *slog.Logger
}

// NewEvaluator scores the given fields. runs may be nil.
func NewEvaluator(proc BatchProcessor, fields []string, cfg Config, runs RunRecorder, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Preference == "" {
		cfg.Preference = PreferTextThenVision
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Evaluator{proc: proc, fields: fields, cfg: cfg, runs: runs, logger: logger}
}

// Run evaluates every batch of gt, reading documents from docsDir.
// Per-document failures are recorded in the report and excluded from counts.
// On cancellation no further documents start; the partial report is returned with ctx.Err().
func (e *Evaluator) Run(ctx context.Context, gt GroundTruth, docsDir string) (Report, error) {
	start := time.Now()
	runID := e.startRun(ctx)

	tally := NewTally(e.fields)
	var (
		mu      sync.Mutex
		results = make(map[string]DocumentResult, len(gt))
	)
	setResult := func(id string, r DocumentResult) {
		mu.Lock()
		results[id] = r
		mu.Unlock()
	}

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Concurrency)
	for _, id := range gt.IDs() {
		if ctx.Err() != nil {
			break
		}
		id := id
		entry := gt[id]
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, counts, err := e.evaluateOne(ctx, id, entry, docsDir)
			if err != nil {
				if ctx.Err() != nil {
					// interrupted mid-document: leave it out entirely
					return nil
				}
				e.logger.Warn("evaluation.document.failed", "id", id, "filename", entry.DisplayName(), "error", err)
				setResult(id, DocumentResult{Filename: entry.DisplayName(), Error: err.Error()})
				return nil
			}
			if err := tally.Record(id, counts); err != nil {
				setResult(id, DocumentResult{Filename: entry.DisplayName(), Error: err.Error()})
				return nil
			}
			setResult(id, res)
			e.logger.Info("evaluation.document.ok", "id", id, "filename", res.Filename, "source", res.Source)
			return nil
		})
	}
	_ = g.Wait()

	mu.Lock()
	report := BuildReport(tally, results)
	mu.Unlock()

	status := constants.RunStatusSucceeded
	switch failed := report.Failed(); {
	case ctx.Err() != nil:
		status = constants.RunStatusCanceled
	case failed > 0 && failed == len(report.Documents):
		status = constants.RunStatusFailed
	case failed > 0:
		status = constants.RunStatusPartial
	}
	e.finishRun(ctx, runID, start, status, tally.Documents(), report)

	e.logger.Info("evaluation.run.done",
		"status", status,
		"documents", len(gt),
		"scored", tally.Documents(),
		"failed", report.Failed(),
		"f1", report.Overall.F1,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (e *Evaluator) evaluateOne(ctx context.Context, id string, entry GroundTruthEntry, docsDir string) (DocumentResult, map[string]ConfusionCounts, error) {
	docs := make([]entity.Document, 0, len(entry.Files()))
	for _, name := range entry.Files() {
		path := filepath.Join(docsDir, name)
		doc, err := entity.LoadDocument(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return DocumentResult{}, nil, common.GroundTruthMissingError("Document not found: "+path, err)
			}
			return DocumentResult{}, nil, err
		}
		docs = append(docs, doc)
	}

	merged, err := e.proc.Process(common.WithBatchID(ctx, id), docs)
	if err != nil {
		return DocumentResult{}, nil, err
	}
	result, source, err := SelectResult(merged, e.cfg.Preference)
	if err != nil {
		return DocumentResult{}, nil, err
	}
	counts := Score(result.Fields(), entry.Fields, e.fields)
	return DocumentResult{Filename: entry.DisplayName(), Source: source, FieldResults: counts}, counts, nil
}

// SelectResult picks the extraction to score. A failed or missing path is an error.
func SelectResult(m entity.MergedExtraction, pref Preference) (entity.ExtractionResult, string, error) {
	if m.Err != nil {
		return entity.ExtractionResult{}, "", m.Err
	}
	pick := func(r *entity.ExtractionResult, name string) (entity.ExtractionResult, string, error) {
		if r == nil {
			return entity.ExtractionResult{}, "", fmt.Errorf("no %s extraction", name)
		}
		if !r.OK() {
			return entity.ExtractionResult{}, "", fmt.Errorf("%s extraction: %w", name, r.Err())
		}
		return *r, name, nil
	}
	switch pref {
	case PreferText:
		return pick(m.Text, "text")
	case PreferVision:
		return pick(m.Vision, "vision")
	default:
		r, src, err := pick(m.Text, "text")
		if err == nil {
			return r, src, nil
		}
		if m.Vision != nil && m.Vision.OK() {
			return *m.Vision, "vision", nil
		}
		return entity.ExtractionResult{}, "", err
	}
}

func (e *Evaluator) startRun(ctx context.Context) uuid.UUID {
	if e.runs == nil {
		return uuid.Nil
	}
	id, err := e.runs.StartEvaluation(ctx, e.cfg.GroundTruthPath, string(e.cfg.Preference))
	if err != nil {
		e.logger.Warn("evaluation.run.start_failed", "error", err)
		return uuid.Nil
	}
	return id
}

func (e *Evaluator) finishRun(ctx context.Context, id uuid.UUID, start time.Time, status constants.RunStatus, scored int, report Report) {
	if e.runs == nil || id == uuid.Nil {
		return
	}
	body, err := json.Marshal(report)
	if err != nil {
		e.logger.Warn("evaluation.run.encode_failed", "error", err)
	}
	finished := time.Now()
	f1 := report.Overall.F1
	run := entity.EvaluationRun{
		ID:                 id,
		GroundTruthPath:    e.cfg.GroundTruthPath,
		Preference:         string(e.cfg.Preference),
		Status:             status,
		StartedAt:          start,
		FinishedAt:         &finished,
		DocumentsEvaluated: scored,
		DocumentsFailed:    report.Failed(),
		OverallF1:          &f1,
		ReportJSON:         body,
	}
	if err := e.runs.FinishEvaluation(context.WithoutCancel(ctx), run); err != nil {
		e.logger.Warn("evaluation.run.finish_failed", "run_id", id, "error", err)
	}
}
