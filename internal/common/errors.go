package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Failure taxonomy shared by the extraction pipeline and the evaluator.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrAcquisition          = errors.New("acquisition failure")
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrRenderingUnavailable = errors.New("page rendering unavailable")
	ErrOCRUnavailable       = errors.New("ocr unavailable")
	ErrOracle               = errors.New("extraction oracle failure")
	ErrSchemaViolation      = errors.New("schema violation")
	ErrGroundTruthMissing   = errors.New("ground truth missing")
	ErrDatabase             = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// AcquisitionError tags a per-document read failure with the document name.
func AcquisitionError(name string, cause error) error {
	return NewAppError("ACQUISITION_ERROR", "reading "+name, errors.Join(ErrAcquisition, cause))
}

// GroundTruthMissingError reports a document referenced by ground truth that cannot be found.
func GroundTruthMissingError(what string, cause error) error {
	return NewAppError("GROUND_TRUTH_MISSING", what, errors.Join(ErrGroundTruthMissing, cause))
}
