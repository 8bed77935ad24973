package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/llm"
)

type stubProcessor struct {
	calls  atomic.Int32
	result func(docs []entity.Document) (entity.MergedExtraction, error)
}

func (s *stubProcessor) Process(_ context.Context, docs []entity.Document) (entity.MergedExtraction, error) {
	s.calls.Add(1)
	return s.result(docs)
}

func textResult(fields map[string]any) entity.MergedExtraction {
	r := entity.Succeeded(fields)
	return entity.MergedExtraction{Text: &r}
}

func writeDocs(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("%PDF"), 0o600); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
	return dir
}

func TestRunEndToEndPerfectField(t *testing.T) {
	fields := llm.DocumentSchema().FieldNames()
	gt, err := ParseGroundTruth([]byte(`{
		"doc_001": {"filename": "bl.pdf", "fields": {"Bill of lading number": "BOL-2024-001234"}}
	}`), ".json", llm.DocumentSchema())
	if err != nil {
		t.Fatalf("parse ground truth: %v", err)
	}
	proc := &stubProcessor{result: func([]entity.Document) (entity.MergedExtraction, error) {
		return textResult(map[string]any{"bill_of_lading_number": "BOL-2024-001234"}), nil
	}}

	report, err := NewEvaluator(proc, fields, Config{}, nil, nil).Run(context.Background(), gt, writeDocs(t, "bl.pdf"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	bol := report.PerField["bill_of_lading_number"]
	if bol.Precision != 1 || bol.Recall != 1 || bol.F1 != 1 {
		t.Fatalf("bill_of_lading_number = %+v", bol)
	}
	if report.Overall.TotalFieldsEvaluated != len(fields) {
		t.Fatalf("total = %d, want %d", report.Overall.TotalFieldsEvaluated, len(fields))
	}
	doc := report.Documents["doc_001"]
	if doc.Filename != "bl.pdf" || doc.Source != "text" || doc.FieldResults["date"] != (ConfusionCounts{TN: 1}) {
		t.Fatalf("document result = %+v", doc)
	}
}

func TestRunExcludesFailedDocuments(t *testing.T) {
	fields := []string{"container_number"}
	gt := GroundTruth{
		"ok":      {Filename: "a.pdf", Fields: map[string]any{"container_number": "MSCU1"}},
		"missing": {Filename: "gone.pdf", Fields: map[string]any{"container_number": "MSCU2"}},
		"broken":  {Filename: "b.pdf", Fields: map[string]any{"container_number": "MSCU3"}},
		"notext":  {Filename: "c.pdf", Fields: map[string]any{"container_number": "MSCU4"}},
	}
	proc := &stubProcessor{result: func(docs []entity.Document) (entity.MergedExtraction, error) {
		switch docs[0].Name {
		case "b.pdf":
			return entity.MergedExtraction{}, common.AcquisitionError("b.pdf", errors.New("bad xref"))
		case "c.pdf":
			return entity.NoText(), nil
		}
		return textResult(map[string]any{"container_number": "mscu1"}), nil
	}}

	report, err := NewEvaluator(proc, fields, Config{Concurrency: 3}, nil, nil).Run(context.Background(), gt, writeDocs(t, "a.pdf", "b.pdf", "c.pdf"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Overall.TotalFieldsEvaluated != 1 {
		t.Fatalf("failed documents must not be counted, total = %d", report.Overall.TotalFieldsEvaluated)
	}
	if !strings.Contains(report.Documents["missing"].Error, "Document not found") {
		t.Fatalf("missing = %+v", report.Documents["missing"])
	}
	if report.Documents["broken"].Error == "" || report.Documents["notext"].Error != entity.NoTextMessage {
		t.Fatalf("documents = %+v", report.Documents)
	}
	if proc.calls.Load() != 3 {
		t.Fatalf("processor calls = %d", proc.calls.Load())
	}
}

func TestRunCanceledReturnsPartialReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gt := GroundTruth{
		"a": {Filename: "a.pdf", Fields: map[string]any{"date": "2024-01-01"}},
		"b": {Filename: "b.pdf", Fields: map[string]any{"date": "2024-01-01"}},
		"c": {Filename: "c.pdf", Fields: map[string]any{"date": "2024-01-01"}},
	}
	proc := &stubProcessor{result: func([]entity.Document) (entity.MergedExtraction, error) {
		cancel() // interrupt after the first document completes
		return textResult(map[string]any{"date": "2024-01-01"}), nil
	}}

	report, err := NewEvaluator(proc, []string{"date"}, Config{}, nil, nil).Run(ctx, gt, writeDocs(t, "a.pdf", "b.pdf", "c.pdf"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if proc.calls.Load() != 1 {
		t.Fatalf("no document may start after cancellation, calls = %d", proc.calls.Load())
	}
	if report.Overall.TotalFieldsEvaluated != 1 || len(report.Documents) != 1 {
		t.Fatalf("partial report = %+v", report)
	}
}

type memRuns struct {
	started  int
	finished entity.EvaluationRun
}

func (m *memRuns) StartEvaluation(context.Context, string, string) (uuid.UUID, error) {
	m.started++
	return uuid.New(), nil
}

func (m *memRuns) FinishEvaluation(_ context.Context, run entity.EvaluationRun) error {
	m.finished = run
	return nil
}

func TestRunRecordsEvaluationRun(t *testing.T) {
	runs := &memRuns{}
	gt := GroundTruth{
		"a": {Filename: "a.pdf", Fields: map[string]any{"date": "2024-01-01"}},
		"b": {Filename: "missing.pdf", Fields: map[string]any{"date": "2024-01-01"}},
	}
	proc := &stubProcessor{result: func([]entity.Document) (entity.MergedExtraction, error) {
		return textResult(map[string]any{"date": "2024-01-01"}), nil
	}}
	cfg := Config{GroundTruthPath: "gt.json", Preference: PreferText}
	if _, err := NewEvaluator(proc, []string{"date"}, cfg, runs, nil).Run(context.Background(), gt, writeDocs(t, "a.pdf")); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := runs.finished
	if runs.started != 1 || got.Status != constants.RunStatusPartial || got.DocumentsEvaluated != 1 || got.DocumentsFailed != 1 {
		t.Fatalf("run = %+v", got)
	}
	if got.OverallF1 == nil || *got.OverallF1 != 1 || !json.Valid(got.ReportJSON) {
		t.Fatalf("run metrics not stored: %+v", got)
	}
}

func TestSelectResult(t *testing.T) {
	okText := entity.Succeeded(map[string]any{"date": "t"})
	okVision := entity.Succeeded(map[string]any{"date": "v"})
	badText := entity.Failed(entity.ErrorKindOracle, "down")

	cases := []struct {
		name    string
		merged  entity.MergedExtraction
		pref    Preference
		want    string
		wantErr bool
	}{
		{"text preferred", entity.MergedExtraction{Text: &okText, Vision: &okVision}, PreferTextThenVision, "text", false},
		{"fallback to vision", entity.MergedExtraction{Text: &badText, Vision: &okVision}, PreferTextThenVision, "vision", false},
		{"vision only", entity.MergedExtraction{Text: &okText, Vision: &okVision}, PreferVision, "vision", false},
		{"vision missing", entity.MergedExtraction{Text: &okText}, PreferVision, "", true},
		{"text failed strict", entity.MergedExtraction{Text: &badText, Vision: &okVision}, PreferText, "", true},
		{"batch error", entity.NoText(), PreferTextThenVision, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, src, err := SelectResult(tc.merged, tc.pref)
			if (err != nil) != tc.wantErr || src != tc.want {
				t.Fatalf("got src=%q err=%v", src, err)
			}
		})
	}
}

func TestReportWriteText(t *testing.T) {
	tally := NewTally([]string{"date"})
	_ = tally.Record("a", map[string]ConfusionCounts{"date": {TP: 1}})
	var buf bytes.Buffer
	if err := BuildReport(tally, nil).WriteText(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"EVALUATION RESULTS", "Accuracy:  100.00%", "Total Fields Evaluated: 1", "TP: 1, FP: 0, FN: 0, TN: 0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
