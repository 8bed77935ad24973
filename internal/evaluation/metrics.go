package evaluation

import "math"

// Metrics are the ratios derived from a set of counts. Zero denominators give 0.
type Metrics struct {
	Precision float64
	Recall    float64
	F1        float64
	Accuracy  float64
}

func ComputeMetrics(c ConfusionCounts) Metrics {
	var m Metrics
	if d := c.TP + c.FP; d > 0 {
		m.Precision = float64(c.TP) / float64(d)
	}
	if d := c.TP + c.FN; d > 0 {
		m.Recall = float64(c.TP) / float64(d)
	}
	if s := m.Precision + m.Recall; s > 0 {
		m.F1 = 2 * m.Precision * m.Recall / s
	}
	if d := c.Total(); d > 0 {
		m.Accuracy = float64(c.TP+c.TN) / float64(d)
	}
	return m
}

// Rounded returns the metrics rounded to 4 decimal places.
func (m Metrics) Rounded() Metrics {
	return Metrics{
		Precision: round4(m.Precision),
		Recall:    round4(m.Recall),
		F1:        round4(m.F1),
		Accuracy:  round4(m.Accuracy),
	}
}

func round4(f float64) float64 { return math.Round(f*1e4) / 1e4 }
