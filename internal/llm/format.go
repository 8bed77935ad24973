package llm

import (
	"encoding/json"
	"fmt"
	"math"
)

// FormatFields converts validated oracle output into reported values:
// average_price becomes "$12.50", average_gross_weight becomes "1200.00 kg"
// and line_items_count an int64. Everything else passes through.
func FormatFields(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	if f, ok := asFloat(out["average_price"]); ok {
		out["average_price"] = fmt.Sprintf("$%.2f", f)
	}
	if f, ok := asFloat(out["average_gross_weight"]); ok {
		out["average_gross_weight"] = fmt.Sprintf("%.2f kg", f)
	}
	if n, ok := out["line_items_count"].(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			out["line_items_count"] = i
		} else if f, err := n.Float64(); err == nil {
			out["line_items_count"] = int64(math.Round(f))
		}
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	}
	return 0, false
}
