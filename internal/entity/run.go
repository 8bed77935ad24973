package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
)

// ExtractionRun records one batch processed by the extraction pipeline.
type ExtractionRun struct {
	ID           uuid.UUID           `json:"id"`
	BatchID      string              `json:"batch_id"`
	Documents    []string            `json:"documents"`
	Status       constants.RunStatus `json:"status"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   *time.Time          `json:"finished_at,omitempty"`
	ResultJSON   json.RawMessage     `json:"result_json,omitempty"`
	ErrorMessage *string             `json:"error_message,omitempty"`
}

// EvaluationRun records one pass of the evaluation harness over a ground truth file.
type EvaluationRun struct {
	ID                 uuid.UUID           `json:"id"`
	GroundTruthPath    string              `json:"ground_truth_path"`
	Preference         string              `json:"preference"`
	Status             constants.RunStatus `json:"status"`
	StartedAt          time.Time           `json:"started_at"`
	FinishedAt         *time.Time          `json:"finished_at,omitempty"`
	DocumentsEvaluated int                 `json:"documents_evaluated"`
	DocumentsFailed    int                 `json:"documents_failed"`
	OverallF1          *float64            `json:"overall_f1,omitempty"`
	ReportJSON         json.RawMessage     `json:"report_json,omitempty"`
	ErrorMessage       *string             `json:"error_message,omitempty"`
}
