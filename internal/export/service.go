package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/evaluation"
)

const (
	SheetOverall   = "Overall"
	SheetPerField  = "Per Field"
	SheetDocuments = "Documents"

	// ContentTypeXLSX is the MIME type of the workbook produced by ReportXLSX.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Service renders evaluation reports as spreadsheets.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ReportXLSX returns an XLSX workbook (as bytes) with overall, per-field and per-document sheets.
func (s *Service) ReportXLSX(report evaluation.Report) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default sheet becomes Overall
	if err := f.SetSheetName(f.GetSheetName(0), SheetOverall); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetPerField, SheetDocuments} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	o := report.Overall
	overall := [][]any{
		{"Metric", "Value"},
		{"Accuracy", o.Accuracy},
		{"Precision", o.Precision},
		{"Recall", o.Recall},
		{"F1 Score", o.F1},
		{"Total Fields Evaluated", o.TotalFieldsEvaluated},
		{"Total Counts", o.TotalCounts},
		{"Documents", len(report.Documents)},
		{"Failed Documents", report.Failed()},
	}
	if err := writeRows(f, SheetOverall, overall); err != nil {
		return nil, err
	}

	perField := [][]any{{"Field", "Accuracy", "Precision", "Recall", "F1", "TP", "FP", "FN", "TN"}}
	for _, name := range report.Fields() {
		m := report.PerField[name]
		perField = append(perField, []any{
			name, m.Accuracy, m.Precision, m.Recall, m.F1,
			m.TruePositives, m.FalsePositives, m.FalseNegatives, m.TrueNegatives,
		})
	}
	if err := writeRows(f, SheetPerField, perField); err != nil {
		return nil, err
	}

	fields := report.Fields()
	header := []any{"Document", "Filename", "Source", "Error"}
	for _, name := range fields {
		header = append(header, name)
	}
	docs := [][]any{header}
	for _, id := range report.DocumentIDs() {
		d := report.Documents[id]
		row := []any{id, d.Filename, d.Source, truncate(d.Error, 140)}
		for _, name := range fields {
			row = append(row, outcome(d, name))
		}
		docs = append(docs, row)
	}
	if err := writeRows(f, SheetDocuments, docs); err != nil {
		return nil, err
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetOverall, "A", "A", 26)
	_ = f.SetColWidth(SheetPerField, "A", "A", 24)
	_ = f.SetColWidth(SheetDocuments, "A", "B", 28)
	_ = f.SetColWidth(SheetDocuments, "D", "D", 48)

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"fields", len(fields),
		"documents", len(report.Documents),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := r
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// outcome names the single classification a document got for a field.
func outcome(d evaluation.DocumentResult, field string) string {
	c, ok := d.FieldResults[field]
	if !ok {
		return ""
	}
	switch {
	case c.TP > 0:
		return "TP"
	case c.FP > 0 && c.FN > 0:
		return "FP+FN"
	case c.FP > 0:
		return "FP"
	case c.FN > 0:
		return "FN"
	case c.TN > 0:
		return "TN"
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
