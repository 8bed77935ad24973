package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

type stubAcquirer map[string]struct {
	text string
	err  error
}

func (s stubAcquirer) Acquire(_ context.Context, doc entity.Document) (entity.AcquiredText, error) {
	r := s[doc.Name]
	return entity.AcquiredText{DocumentID: doc.ID, Text: r.text}, r.err
}

type stubRenderer struct {
	pages map[string]int
	err   error
}

func (s stubRenderer) Render(_ context.Context, doc entity.Document) ([]entity.PageImage, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]entity.PageImage, s.pages[doc.Name])
	for i := range out {
		out[i] = entity.PageImage{Index: i, Data: []byte(doc.Name), MIMEType: "image/png"}
	}
	return out, nil
}

type recordingExtractor struct {
	texts  []string
	images [][]entity.PageImage
	text   entity.ExtractionResult
	vision entity.ExtractionResult
}

func (r *recordingExtractor) ExtractText(_ context.Context, text string) entity.ExtractionResult {
	r.texts = append(r.texts, text)
	return r.text
}

func (r *recordingExtractor) ExtractImages(_ context.Context, images []entity.PageImage) entity.ExtractionResult {
	r.images = append(r.images, images)
	return r.vision
}

type memRuns struct {
	started  int
	status   constants.RunStatus
	errMsg   string
	result   json.RawMessage
	finished int
}

func (m *memRuns) StartExtraction(context.Context, string, []string) (uuid.UUID, error) {
	m.started++
	return uuid.New(), nil
}

func (m *memRuns) FinishExtraction(_ context.Context, _ uuid.UUID, status constants.RunStatus, result json.RawMessage, errMsg string) error {
	m.finished++
	m.status, m.result, m.errMsg = status, result, errMsg
	return nil
}

func newProcessor(acq stubAcquirer, r stubRenderer, fe *recordingExtractor, runs RunRecorder) *Processor {
	return NewProcessor(nil, NewAcquireStage(acq, r, nil), NewExtractStage(fe, nil), runs)
}

func ok(fields map[string]any) entity.ExtractionResult { return entity.Succeeded(fields) }

func TestProcessMergesBucketsAndRunsBothPaths(t *testing.T) {
	acq := stubAcquirer{
		"bl.pdf":      {text: "BILL OF LADING BOL-2024-001234"},
		"invoice.pdf": {text: "INVOICE"},
		"pl.xlsx":     {text: "Sheet: Sheet1\nWidget\t10"},
	}
	fe := &recordingExtractor{text: ok(map[string]any{"date": "2024-03-15"}), vision: ok(map[string]any{"date": nil})}
	runs := &memRuns{}
	p := newProcessor(acq, stubRenderer{pages: map[string]int{"bl.pdf": 2, "invoice.pdf": 1}}, fe, runs)

	docs := []entity.Document{
		entity.NewDocument("bl.pdf", []byte("a")),
		entity.NewDocument("pl.xlsx", []byte("b")),
		entity.NewDocument("invoice.pdf", []byte("c")),
		entity.NewDocument("notes.txt", []byte("d")),
	}
	got, err := p.Process(context.Background(), docs)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	want := "PDF Content:\nBILL OF LADING BOL-2024-001234\nINVOICE\n\nExcel Content:\nSheet: Sheet1\nWidget\t10\n\n"
	if len(fe.texts) != 1 || fe.texts[0] != want {
		t.Fatalf("merged text = %q", fe.texts)
	}
	if len(fe.images) != 1 || len(fe.images[0]) != 3 {
		t.Fatalf("expected one vision call with 3 pages, got %v", fe.images)
	}
	imgs := fe.images[0]
	if string(imgs[0].Data) != "bl.pdf" || string(imgs[2].Data) != "invoice.pdf" || imgs[2].Index != 2 {
		t.Fatalf("pages out of document order: %+v", imgs)
	}
	if got.Text == nil || got.Vision == nil || got.Err != nil {
		t.Fatalf("expected both slots filled: %+v", got)
	}
	if runs.started != 1 || runs.finished != 1 || runs.status != constants.RunStatusSucceeded {
		t.Fatalf("run not recorded: %+v", runs)
	}
}

func TestProcessNoImagesSkipsVision(t *testing.T) {
	fe := &recordingExtractor{text: ok(nil)}
	p := newProcessor(stubAcquirer{"pl.xlsx": {text: "Sheet: S\nx"}}, stubRenderer{}, fe, nil)

	got, err := p.Process(context.Background(), []entity.Document{entity.NewDocument("pl.xlsx", nil)})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(fe.images) != 0 || got.Vision != nil {
		t.Fatalf("vision path must not run without images")
	}
	if strings.Contains(fe.texts[0], "PDF Content") {
		t.Fatalf("blank PDF bucket must not be labelled: %q", fe.texts[0])
	}
}

func TestProcessNoTextShortCircuits(t *testing.T) {
	fe := &recordingExtractor{}
	runs := &memRuns{}
	p := newProcessor(stubAcquirer{"scan.pdf": {text: "   "}}, stubRenderer{pages: map[string]int{"scan.pdf": 1}}, fe, runs)

	got, err := p.Process(context.Background(), []entity.Document{entity.NewDocument("scan.pdf", nil)})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got.Err == nil || got.Err.Kind != entity.ErrorKindNoText {
		t.Fatalf("expected no_text, got %+v", got)
	}
	if got.Text != nil || got.Vision != nil {
		t.Fatalf("no_text must not carry path results")
	}
	if len(fe.texts)+len(fe.images) != 0 {
		t.Fatalf("oracle must not be called for blank text")
	}
	if runs.status != constants.RunStatusFailed || runs.errMsg != entity.NoTextMessage {
		t.Fatalf("run = %+v", runs)
	}
}

func TestProcessVisionFailureKeepsText(t *testing.T) {
	fe := &recordingExtractor{
		text:   ok(map[string]any{"container_number": "MSCU1234567"}),
		vision: entity.Failed(entity.ErrorKindOracle, "image too large"),
	}
	runs := &memRuns{}
	p := newProcessor(stubAcquirer{"bl.pdf": {text: "BL"}}, stubRenderer{pages: map[string]int{"bl.pdf": 1}}, fe, runs)

	got, err := p.Process(context.Background(), []entity.Document{entity.NewDocument("bl.pdf", nil)})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !got.Text.OK() || got.Text.Field("container_number") != "MSCU1234567" {
		t.Fatalf("text result lost: %+v", got.Text)
	}
	if got.Vision.OK() {
		t.Fatalf("vision failure hidden")
	}
	if runs.status != constants.RunStatusPartial {
		t.Fatalf("status = %s", runs.status)
	}
}

func TestProcessRenderFailureDropsImagesOnly(t *testing.T) {
	fe := &recordingExtractor{text: ok(nil)}
	p := newProcessor(stubAcquirer{"bl.pdf": {text: "BL"}}, stubRenderer{err: errors.New("pdftoppm crashed")}, fe, nil)

	got, err := p.Process(context.Background(), []entity.Document{entity.NewDocument("bl.pdf", nil)})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got.Vision != nil || len(fe.texts) != 1 {
		t.Fatalf("render failure should only drop the vision path")
	}
}

func TestProcessAcquisitionErrorPropagates(t *testing.T) {
	fe := &recordingExtractor{}
	runs := &memRuns{}
	acqErr := common.AcquisitionError("bl.pdf", errors.New("bad xref"))
	p := newProcessor(stubAcquirer{"bl.pdf": {err: acqErr}}, stubRenderer{}, fe, runs)

	_, err := p.Process(context.Background(), []entity.Document{entity.NewDocument("bl.pdf", nil)})
	if !errors.Is(err, common.ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition, got %v", err)
	}
	if len(fe.texts) != 0 {
		t.Fatalf("oracle must not run after an acquisition failure")
	}
	if runs.status != constants.RunStatusFailed {
		t.Fatalf("status = %s", runs.status)
	}
}
