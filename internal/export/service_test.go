package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/evaluation"
)

func sampleReport(t *testing.T) evaluation.Report {
	t.Helper()
	tally := evaluation.NewTally([]string{"invoice_number", "gross_weight"})
	if err := tally.Record("doc1", map[string]evaluation.ConfusionCounts{
		"invoice_number": {TP: 1},
		"gross_weight":   {FP: 1, FN: 1},
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	docs := map[string]evaluation.DocumentResult{
		"doc1": {Filename: "inv.pdf", Source: "text", FieldResults: map[string]evaluation.ConfusionCounts{
			"invoice_number": {TP: 1},
			"gross_weight":   {FP: 1, FN: 1},
		}},
		"doc2": {Filename: "missing.pdf", Error: "Document not found: missing.pdf"},
	}
	return evaluation.BuildReport(tally, docs)
}

func TestReportXLSX(t *testing.T) {
	data, err := NewService(nil).ReportXLSX(sampleReport(t))
	if err != nil {
		t.Fatalf("ReportXLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[0] != SheetOverall || sheets[1] != SheetPerField || sheets[2] != SheetDocuments {
		t.Fatalf("sheets: %v", sheets)
	}

	total, _ := f.GetCellValue(SheetOverall, "B6")
	if total != "2" {
		t.Fatalf("total fields evaluated = %q, want 2", total)
	}
	counts, _ := f.GetCellValue(SheetOverall, "B7")
	if counts != "3" {
		t.Fatalf("total counts = %q, want 3", counts)
	}
	failed, _ := f.GetCellValue(SheetOverall, "B9")
	if failed != "1" {
		t.Fatalf("failed documents = %q, want 1", failed)
	}

	rows, err := f.GetRows(SheetPerField)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "invoice_number" || rows[2][0] != "gross_weight" {
		t.Fatalf("per field rows: %v", rows)
	}

	docRows, err := f.GetRows(SheetDocuments)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(docRows) != 3 {
		t.Fatalf("document rows: %v", docRows)
	}
	if docRows[1][0] != "doc1" || docRows[1][4] != "TP" || docRows[1][5] != "FP+FN" {
		t.Fatalf("doc1 row: %v", docRows[1])
	}
	if docRows[2][3] != "Document not found: missing.pdf" {
		t.Fatalf("doc2 row: %v", docRows[2])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("truncate: %q", got)
	}
	if got := truncate("abc", 4); got != "abc" {
		t.Fatalf("truncate: %q", got)
	}
}
