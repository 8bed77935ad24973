package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrAlreadyScored is returned when a document is recorded twice in one pass.
var ErrAlreadyScored = errors.New("document already scored")

// ConfusionCounts are the per-field outcome counters.
type ConfusionCounts struct {
	TP int `json:"TP"`
	FP int `json:"FP"`
	FN int `json:"FN"`
	TN int `json:"TN"`
}

func (c ConfusionCounts) Add(o ConfusionCounts) ConfusionCounts {
	return ConfusionCounts{TP: c.TP + o.TP, FP: c.FP + o.FP, FN: c.FN + o.FN, TN: c.TN + o.TN}
}

// Total is the number of counter increments, which is what "fields evaluated" counts.
func (c ConfusionCounts) Total() int { return c.TP + c.FP + c.FN + c.TN }

// Normalize maps nil and "" to "" and anything else to its trimmed, lower-cased string form.
func Normalize(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			s = t.Format("2006-01-02")
		} else {
			s = t.Format(time.RFC3339)
		}
	default:
		s = fmt.Sprint(t)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// Classify compares one expected value with one extracted value.
// A wrong non-empty answer counts as both a false positive and a false negative.
func Classify(expected, extracted any) ConfusionCounts {
	exp, got := Normalize(expected), Normalize(extracted)
	switch {
	case exp == "" && got == "":
		return ConfusionCounts{TN: 1}
	case exp == "":
		return ConfusionCounts{FP: 1}
	case got == "":
		return ConfusionCounts{FN: 1}
	case exp == got:
		return ConfusionCounts{TP: 1}
	default:
		return ConfusionCounts{FP: 1, FN: 1}
	}
}

// Score classifies every field of one document. Missing keys count as empty.
func Score(extracted, expected map[string]any, fields []string) map[string]ConfusionCounts {
	out := make(map[string]ConfusionCounts, len(fields))
	for _, f := range fields {
		out[f] = Classify(expected[f], extracted[f])
	}
	return out
}

// Tally accumulates per-field counts across documents. Each document's counts
// land in one critical section, so a concurrent or interrupted pass never
// holds half a document.
type Tally struct {
	mu     sync.Mutex
	fields []string
	counts map[string]ConfusionCounts
	scored map[string]struct{}
}

func NewTally(fields []string) *Tally {
	t := &Tally{
		fields: append([]string(nil), fields...),
		counts: make(map[string]ConfusionCounts, len(fields)),
		scored: make(map[string]struct{}),
	}
	for _, f := range fields {
		t.counts[f] = ConfusionCounts{}
	}
	return t
}

// Record adds one document's counts. A second record for the same document is refused.
func (t *Tally) Record(docID string, counts map[string]ConfusionCounts) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.scored[docID]; dup {
		return fmt.Errorf("%w: %s", ErrAlreadyScored, docID)
	}
	for f, c := range counts {
		t.counts[f] = t.counts[f].Add(c)
	}
	t.scored[docID] = struct{}{}
	return nil
}

// Fields returns the field order the tally was built with.
func (t *Tally) Fields() []string { return append([]string(nil), t.fields...) }

// Counts returns a copy of the accumulated counts.
func (t *Tally) Counts() map[string]ConfusionCounts {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]ConfusionCounts, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// Documents is the number of documents recorded.
func (t *Tally) Documents() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.scored)
}
