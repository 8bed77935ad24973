package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

// timestamps are stored as fixed-width UTC text so they sort in both dialects
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// RunRepository records extraction and evaluation runs.
type RunRepository struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewRunRepository(db *DB, log *slog.Logger) *RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &RunRepository{db: db, log: log, now: time.Now}
}

func (r *RunRepository) StartExtraction(ctx context.Context, batchID string, documents []string) (uuid.UUID, error) {
	id := uuid.New()
	if documents == nil {
		documents = []string{}
	}
	docs, err := json.Marshal(documents)
	if err != nil {
		return uuid.Nil, err
	}
	q := r.db.rebind(`INSERT INTO extraction_runs(id, batch_id, documents, status, started_at) VALUES(?, ?, ?, ?, ?)`)
	if _, err := r.db.SQL.ExecContext(ctx, q, id.String(), batchID, string(docs), string(constants.RunStatusRunning), formatTime(r.now())); err != nil {
		r.log.Error("extraction_run start failed", "batch_id", batchID, "err", err)
		return uuid.Nil, dbError(err)
	}
	r.log.Info("extraction_run started", "run_id", id, "batch_id", batchID, "documents", len(documents))
	return id, nil
}

func (r *RunRepository) FinishExtraction(ctx context.Context, id uuid.UUID, status constants.RunStatus, result json.RawMessage, errMsg string) error {
	q := r.db.rebind(`UPDATE extraction_runs SET status = ?, finished_at = ?, result_json = ?, error_message = ? WHERE id = ?`)
	res, err := r.db.SQL.ExecContext(ctx, q, string(status), formatTime(r.now()), nullJSON(result), nullString(errMsg), id.String())
	if err != nil {
		r.log.Error("extraction_run finish failed", "run_id", id, "err", err)
		return dbError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("extraction run %s: %w", id, ErrRunNotFound)
	}
	if status == constants.RunStatusSucceeded {
		r.log.Info("extraction_run finished", "run_id", id, "status", status)
	} else {
		r.log.Warn("extraction_run finished", "run_id", id, "status", status, "error", errMsg)
	}
	return nil
}

func (r *RunRepository) GetExtraction(ctx context.Context, id uuid.UUID) (*entity.ExtractionRun, error) {
	q := r.db.rebind(`SELECT id, batch_id, documents, status, started_at, finished_at, result_json, error_message
        FROM extraction_runs WHERE id = ?`)
	var (
		rawID, docs, status, started string
		finished, result, errMsg     sql.NullString
		run                          entity.ExtractionRun
	)
	err := r.db.SQL.QueryRowContext(ctx, q, id.String()).
		Scan(&rawID, &run.BatchID, &docs, &status, &started, &finished, &result, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("extraction run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, dbError(err)
	}
	if run.ID, err = uuid.Parse(rawID); err != nil {
		return nil, dbError(err)
	}
	if err := json.Unmarshal([]byte(docs), &run.Documents); err != nil {
		return nil, dbError(err)
	}
	run.Status = constants.RunStatus(status)
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, dbError(err)
	}
	if run.FinishedAt, err = parseNullTime(finished); err != nil {
		return nil, dbError(err)
	}
	if result.Valid {
		run.ResultJSON = json.RawMessage(result.String)
	}
	if errMsg.Valid {
		run.ErrorMessage = &errMsg.String
	}
	return &run, nil
}

func (r *RunRepository) StartEvaluation(ctx context.Context, groundTruthPath, preference string) (uuid.UUID, error) {
	id := uuid.New()
	q := r.db.rebind(`INSERT INTO evaluation_runs(id, ground_truth_path, preference, status, started_at) VALUES(?, ?, ?, ?, ?)`)
	if _, err := r.db.SQL.ExecContext(ctx, q, id.String(), groundTruthPath, preference, string(constants.RunStatusRunning), formatTime(r.now())); err != nil {
		r.log.Error("evaluation_run start failed", "ground_truth", groundTruthPath, "err", err)
		return uuid.Nil, dbError(err)
	}
	r.log.Info("evaluation_run started", "run_id", id, "ground_truth", groundTruthPath, "preference", preference)
	return id, nil
}

// FinishEvaluation writes the terminal state of run. FinishedAt defaults to now.
func (r *RunRepository) FinishEvaluation(ctx context.Context, run entity.EvaluationRun) error {
	finished := r.now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	var f1 sql.NullFloat64
	if run.OverallF1 != nil {
		f1 = sql.NullFloat64{Float64: *run.OverallF1, Valid: true}
	}
	var errMsg sql.NullString
	if run.ErrorMessage != nil {
		errMsg = nullString(*run.ErrorMessage)
	}
	q := r.db.rebind(`UPDATE evaluation_runs SET status = ?, finished_at = ?, documents_evaluated = ?, documents_failed = ?,
        overall_f1 = ?, report_json = ?, error_message = ? WHERE id = ?`)
	res, err := r.db.SQL.ExecContext(ctx, q,
		string(run.Status), formatTime(finished), run.DocumentsEvaluated, run.DocumentsFailed,
		f1, nullJSON(run.ReportJSON), errMsg, run.ID.String())
	if err != nil {
		r.log.Error("evaluation_run finish failed", "run_id", run.ID, "err", err)
		return dbError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("evaluation run %s: %w", run.ID, ErrRunNotFound)
	}
	r.log.Info("evaluation_run finished", "run_id", run.ID, "status", run.Status,
		"documents", run.DocumentsEvaluated, "failed", run.DocumentsFailed)
	return nil
}

const evaluationColumns = `id, ground_truth_path, preference, status, started_at, finished_at,
        documents_evaluated, documents_failed, overall_f1, report_json, error_message`

func (r *RunRepository) GetEvaluation(ctx context.Context, id uuid.UUID) (*entity.EvaluationRun, error) {
	q := r.db.rebind(`SELECT ` + evaluationColumns + ` FROM evaluation_runs WHERE id = ?`)
	run, err := scanEvaluation(r.db.SQL.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("evaluation run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, dbError(err)
	}
	return run, nil
}

// ListEvaluations returns the most recent runs first. Report bodies are omitted.
func (r *RunRepository) ListEvaluations(ctx context.Context, limit int) ([]entity.EvaluationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	q := r.db.rebind(`SELECT ` + evaluationColumns + ` FROM evaluation_runs ORDER BY started_at DESC LIMIT ?`)
	rows, err := r.db.SQL.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()
	var out []entity.EvaluationRun
	for rows.Next() {
		run, err := scanEvaluation(rows)
		if err != nil {
			return nil, dbError(err)
		}
		run.ReportJSON = nil
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(s scanner) (*entity.EvaluationRun, error) {
	var (
		rawID, status, started   string
		finished, report, errMsg sql.NullString
		f1                       sql.NullFloat64
		run                      entity.EvaluationRun
	)
	err := s.Scan(&rawID, &run.GroundTruthPath, &run.Preference, &status, &started, &finished,
		&run.DocumentsEvaluated, &run.DocumentsFailed, &f1, &report, &errMsg)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(rawID); err != nil {
		return nil, err
	}
	run.Status = constants.RunStatus(status)
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseNullTime(finished); err != nil {
		return nil, err
	}
	if f1.Valid {
		run.OverallF1 = &f1.Float64
	}
	if report.Valid {
		run.ReportJSON = json.RawMessage(report.String)
	}
	if errMsg.Valid {
		run.ErrorMessage = &errMsg.String
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(b json.RawMessage) sql.NullString {
	return sql.NullString{String: string(b), Valid: len(b) > 0}
}

func dbError(err error) error {
	return common.NewAppError("DB_ERROR", "run repository", fmt.Errorf("%w: %v", common.ErrDatabase, err))
}
