package evaluation

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// FieldMetrics is one entry of per_field_metrics.
type FieldMetrics struct {
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
	Accuracy       float64 `json:"accuracy"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	TrueNegatives  int     `json:"true_negatives"`
}

// OverallMetrics pools the counters of every field before computing ratios.
// TotalFieldsEvaluated is fields x scored documents. TotalCounts is TP+FP+FN+TN,
// which exceeds it by one for every mismatch since a mismatch counts as both FP and FN.
type OverallMetrics struct {
	Precision            float64 `json:"precision"`
	Recall               float64 `json:"recall"`
	F1                   float64 `json:"f1"`
	Accuracy             float64 `json:"accuracy"`
	TotalFieldsEvaluated int     `json:"total_fields_evaluated"`
	TotalCounts          int     `json:"total_counts"`
}

// DocumentResult is either a field-level classification or an error.
type DocumentResult struct {
	Filename     string                     `json:"filename"`
	Source       string                     `json:"source,omitempty"`
	FieldResults map[string]ConfusionCounts `json:"field_results,omitempty"`
	Error        string                     `json:"error,omitempty"`
}

// Report is the evaluation output written to evaluation_results.json.
type Report struct {
	PerField  map[string]FieldMetrics   `json:"per_field_metrics"`
	Overall   OverallMetrics            `json:"overall_metrics"`
	Documents map[string]DocumentResult `json:"document_results"`

	fields []string
}

// BuildReport recomputes every ratio from the tally's counts.
func BuildReport(tally *Tally, documents map[string]DocumentResult) Report {
	counts := tally.Counts()
	r := Report{
		PerField:  make(map[string]FieldMetrics, len(counts)),
		Documents: make(map[string]DocumentResult, len(documents)),
		fields:    tally.Fields(),
	}
	var pooled ConfusionCounts
	for _, f := range r.fields {
		c := counts[f]
		pooled = pooled.Add(c)
		m := ComputeMetrics(c).Rounded()
		r.PerField[f] = FieldMetrics{
			Precision:      m.Precision,
			Recall:         m.Recall,
			F1:             m.F1,
			Accuracy:       m.Accuracy,
			TruePositives:  c.TP,
			FalsePositives: c.FP,
			FalseNegatives: c.FN,
			TrueNegatives:  c.TN,
		}
	}
	m := ComputeMetrics(pooled).Rounded()
	r.Overall = OverallMetrics{
		Precision:            m.Precision,
		Recall:               m.Recall,
		F1:                   m.F1,
		Accuracy:             m.Accuracy,
		TotalFieldsEvaluated: len(r.fields) * tally.Documents(),
		TotalCounts:          pooled.Total(),
	}
	for id, d := range documents {
		r.Documents[id] = d
	}
	return r
}

// Fields returns the report's field order.
func (r Report) Fields() []string {
	if len(r.fields) > 0 {
		return r.fields
	}
	out := make([]string, 0, len(r.PerField))
	for f := range r.PerField {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// DocumentIDs returns document ids in sorted order.
func (r Report) DocumentIDs() []string {
	out := make([]string, 0, len(r.Documents))
	for id := range r.Documents {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Failed counts documents recorded with an error.
func (r Report) Failed() int {
	n := 0
	for _, d := range r.Documents {
		if d.Error != "" {
			n++
		}
	}
	return n
}

// JSON renders the report indented by two spaces.
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// WriteText prints the human summary: overall metrics then one block per field, as percentages.
func (r Report) WriteText(w io.Writer) error {
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nEVALUATION RESULTS\n%s\n", rule, rule)

	fmt.Fprintf(&b, "\nOVERALL METRICS:\n%s\n", thin)
	o := r.Overall
	fmt.Fprintf(&b, "Accuracy:  %s\n", pct(o.Accuracy))
	fmt.Fprintf(&b, "Precision: %s\n", pct(o.Precision))
	fmt.Fprintf(&b, "Recall:    %s\n", pct(o.Recall))
	fmt.Fprintf(&b, "F1 Score:  %s\n", pct(o.F1))
	fmt.Fprintf(&b, "Total Fields Evaluated: %d\n", o.TotalFieldsEvaluated)
	fmt.Fprintf(&b, "Total Counts (TP+FP+FN+TN): %d\n", o.TotalCounts)

	fmt.Fprintf(&b, "\nPER-FIELD METRICS:\n%s\n", thin)
	for _, f := range r.Fields() {
		m := r.PerField[f]
		fmt.Fprintf(&b, "\n%s:\n", f)
		fmt.Fprintf(&b, "  Accuracy:  %s\n", pct(m.Accuracy))
		fmt.Fprintf(&b, "  Precision: %s\n", pct(m.Precision))
		fmt.Fprintf(&b, "  Recall:    %s\n", pct(m.Recall))
		fmt.Fprintf(&b, "  F1 Score:  %s\n", pct(m.F1))
		fmt.Fprintf(&b, "  TP: %d, FP: %d, FN: %d, TN: %d\n", m.TruePositives, m.FalsePositives, m.FalseNegatives, m.TrueNegatives)
	}
	if failed := r.Failed(); failed > 0 {
		fmt.Fprintf(&b, "\nFAILED DOCUMENTS (%d):\n%s\n", failed, thin)
		for _, id := range r.DocumentIDs() {
			if d := r.Documents[id]; d.Error != "" {
				fmt.Fprintf(&b, "%s (%s): %s\n", id, d.Filename, d.Error)
			}
		}
	}
	fmt.Fprintf(&b, "\n%s\n", rule)
	_, err := io.WriteString(w, b.String())
	return err
}

func pct(f float64) string { return fmt.Sprintf("%.2f%%", f*100) }
