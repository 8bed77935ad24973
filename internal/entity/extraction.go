package entity

import (
	"encoding/json"
	"maps"
)

// ErrorKind classifies why an extraction produced no fields.
type ErrorKind string

const (
	ErrorKindOracle ErrorKind = "oracle"
	ErrorKindSchema ErrorKind = "schema"
	ErrorKindNoText ErrorKind = "no_text"
)

// NoTextMessage is reported when none of the uploaded documents yielded text.
const NoTextMessage = "No text could be extracted from the uploaded documents. " +
	"Please ensure the files are valid PDFs or Excel files with readable content."

// ExtractionError is the typed failure carried by ExtractionResult and MergedExtraction.
type ExtractionError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ExtractionError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// ExtractionResult holds either extracted fields or an error, never both.
// Build it with Succeeded or Failed.
type ExtractionResult struct {
	fields map[string]any
	err    *ExtractionError
}

// Succeeded wraps a field map. A nil map is stored as empty.
func Succeeded(fields map[string]any) ExtractionResult {
	if fields == nil {
		fields = map[string]any{}
	}
	return ExtractionResult{fields: maps.Clone(fields)}
}

// Failed records an extraction failure of the given kind.
func Failed(kind ErrorKind, message string) ExtractionResult {
	return ExtractionResult{err: &ExtractionError{Kind: kind, Message: message}}
}

// OK reports whether the result carries fields.
func (r ExtractionResult) OK() bool { return r.err == nil }

// Err returns the failure, or nil on success.
func (r ExtractionResult) Err() *ExtractionError { return r.err }

// Fields returns a copy of the extracted fields; nil on failure.
func (r ExtractionResult) Fields() map[string]any {
	if r.err != nil {
		return nil
	}
	return maps.Clone(r.fields)
}

// Field returns one extracted value; nil when absent or on failure.
func (r ExtractionResult) Field(name string) any {
	if r.err != nil {
		return nil
	}
	return r.fields[name]
}

// MarshalJSON renders the field object, or {"error": "..."} on failure.
func (r ExtractionResult) MarshalJSON() ([]byte, error) {
	if r.err != nil {
		return json.Marshal(map[string]string{"error": r.err.Message})
	}
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.fields)
}

// MergedExtraction is the outcome of processing one batch of documents:
// either a batch-level error or up to one result per extraction path.
type MergedExtraction struct {
	Text   *ExtractionResult
	Vision *ExtractionResult
	Err    *ExtractionError
}

// NoText is the batch outcome when no document yielded any text.
func NoText() MergedExtraction {
	return MergedExtraction{Err: &ExtractionError{Kind: ErrorKindNoText, Message: NoTextMessage}}
}

// HasFailure reports whether the batch failed or any path that ran failed.
func (m MergedExtraction) HasFailure() bool {
	if m.Err != nil {
		return true
	}
	return (m.Text != nil && !m.Text.OK()) || (m.Vision != nil && !m.Vision.OK())
}

func (m MergedExtraction) MarshalJSON() ([]byte, error) {
	if m.Err != nil {
		return json.Marshal(map[string]string{"error": m.Err.Message})
	}
	out := struct {
		Text   *ExtractionResult `json:"text_extraction,omitempty"`
		Vision *ExtractionResult `json:"vision_extraction,omitempty"`
	}{m.Text, m.Vision}
	return json.Marshal(out)
}
