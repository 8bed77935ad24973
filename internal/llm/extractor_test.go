package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

const fullAnswer = `{
	"bill_of_lading_number": "BOL-2024-001234",
	"container_number": "MSCU1234567",
	"consignee_name": "ACME Imports",
	"consignee_address": "1 Harbor Rd",
	"date_of_export": "2024-03-15",
	"date": "2024-03-16",
	"line_items_count": 3,
	"average_gross_weight": 1200.5,
	"average_price": 12.5
}`

func fixedOracle(raw string, err error, seen *[]Request) Oracle {
	return OracleFunc(func(_ context.Context, req Request) ([]byte, error) {
		if seen != nil {
			*seen = append(*seen, req)
		}
		return []byte(raw), err
	})
}

func newExtractor(t *testing.T, o Oracle) *Extractor {
	t.Helper()
	e, err := NewExtractor(o, nil)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	return e
}

func TestExtractTextFormatsFields(t *testing.T) {
	var seen []Request
	e := newExtractor(t, fixedOracle(fullAnswer, nil, &seen))

	res := e.ExtractText(context.Background(), "PDF Content:\nBill of lading NO BOL-2024-001234\n\n")
	if !res.OK() {
		t.Fatalf("unexpected failure: %v", res.Err())
	}
	if len(seen) != 1 {
		t.Fatalf("oracle calls = %d, want 1", len(seen))
	}
	req := seen[0]
	if req.Modality != ModalityText || len(req.Images) != 0 {
		t.Fatalf("bad request: %+v", req)
	}
	if !strings.Contains(req.UserPrompt, "Bill of lading NO BOL-2024-001234") {
		t.Fatalf("prompt does not carry document text")
	}
	if !strings.Contains(req.UserPrompt, "If a field cannot be found, set it to null.") {
		t.Fatalf("prompt missing null instruction")
	}

	checks := map[string]any{
		"average_price":        "$12.50",
		"average_gross_weight": "1200.50 kg",
		"line_items_count":     int64(3),
		"container_number":     "MSCU1234567",
		"date_of_export":       "2024-03-15",
	}
	for k, want := range checks {
		if got := res.Field(k); got != want {
			t.Errorf("%s = %#v, want %#v", k, got, want)
		}
	}
}

func TestExtractNullsPassThrough(t *testing.T) {
	raw := `{"bill_of_lading_number":null,"container_number":null,"consignee_name":null,
		"consignee_address":null,"date_of_export":null,"date":null,"line_items_count":null,
		"average_gross_weight":null,"average_price":null}`
	res := newExtractor(t, fixedOracle(raw, nil, nil)).ExtractText(context.Background(), "x")
	if !res.OK() {
		t.Fatalf("all-null answer should be valid: %v", res.Err())
	}
	if res.Field("average_price") != nil || res.Field("line_items_count") != nil {
		t.Fatalf("nulls must stay nil")
	}
	if len(res.Fields()) != 9 {
		t.Fatalf("fields = %d", len(res.Fields()))
	}
}

func TestExtractSchemaFailures(t *testing.T) {
	cases := map[string]string{
		"not json":        `Sure! Here is the data`,
		"missing field":   `{"bill_of_lading_number":"B"}`,
		"unknown field":   strings.Replace(fullAnswer, `"date": "2024-03-16",`, `"date": "2024-03-16", "vessel": "X",`, 1),
		"wrong type":      strings.Replace(fullAnswer, `"line_items_count": 3`, `"line_items_count": "three"`, 1),
		"fractional item": strings.Replace(fullAnswer, `"line_items_count": 3`, `"line_items_count": 2.5`, 1),
		"array":           `[1,2]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			res := newExtractor(t, fixedOracle(raw, nil, nil)).ExtractText(context.Background(), "x")
			if res.OK() {
				t.Fatalf("expected schema failure")
			}
			if res.Err().Kind != entity.ErrorKindSchema {
				t.Fatalf("kind = %s", res.Err().Kind)
			}
			if !strings.HasPrefix(res.Err().Message, "failed to parse JSON response: ") {
				t.Fatalf("message = %q", res.Err().Message)
			}
			if res.Fields() != nil {
				t.Fatalf("failed result must carry no fields")
			}
		})
	}
}

func TestExtractOracleFailure(t *testing.T) {
	res := newExtractor(t, fixedOracle("", errors.New("rate limited"), nil)).ExtractText(context.Background(), "x")
	if res.OK() || res.Err().Kind != entity.ErrorKindOracle {
		t.Fatalf("expected oracle failure, got %+v", res.Err())
	}
	if res.Err().Message != "rate limited" {
		t.Fatalf("message = %q", res.Err().Message)
	}
}

func TestExtractImages(t *testing.T) {
	var seen []Request
	e := newExtractor(t, fixedOracle(fullAnswer, nil, &seen))
	pages := []entity.PageImage{{Index: 0, Data: []byte{1}}, {Index: 1, Data: []byte{2}}}

	res := e.ExtractImages(context.Background(), pages)
	if !res.OK() {
		t.Fatalf("unexpected failure: %v", res.Err())
	}
	if len(seen) != 1 || seen[0].Modality != ModalityVision || len(seen[0].Images) != 2 {
		t.Fatalf("expected one vision call with both pages, got %+v", seen)
	}
	if seen[0].SystemPrompt != visionSystemPrompt {
		t.Fatalf("system prompt = %q", seen[0].SystemPrompt)
	}

	empty := e.ExtractImages(context.Background(), nil)
	if empty.OK() || len(seen) != 1 {
		t.Fatalf("no images must fail without calling the oracle")
	}
}

func TestSchemaResolve(t *testing.T) {
	s := DocumentSchema()
	cases := map[string]string{
		"Bill of lading number": "bill_of_lading_number",
		"container number":      "container_number",
		"average_price":         "average_price",
		" Date ":                "date",
		"Date of export":        "date_of_export",
	}
	for in, want := range cases {
		got, ok := s.Resolve(in)
		if !ok || got != want {
			t.Errorf("Resolve(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := s.Resolve("vessel"); ok {
		t.Fatalf("unknown label must not resolve")
	}
	if len(s.FieldNames()) != 9 || s.FieldNames()[0] != "bill_of_lading_number" {
		t.Fatalf("field names = %v", s.FieldNames())
	}
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := DocumentSchema().JSONSchema()
	if err := ValidateJSONAgainstSchema(schema, []byte(fullAnswer)); err != nil {
		t.Fatalf("valid answer rejected: %v", err)
	}
	if err := ValidateJSONAgainstSchema(schema, []byte(`{}`)); err == nil {
		t.Fatalf("empty object accepted")
	}
}

func TestValidateWrapsSchemaViolation(t *testing.T) {
	schema := DocumentSchema().JSONSchema()
	cases := map[string]string{
		"not json":       `Sure! Here is the data`,
		"trailing value": fullAnswer + ` {}`,
		"missing field":  `{"bill_of_lading_number":"B"}`,
		"array":          `[1,2]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateJSONAgainstSchema(schema, []byte(raw))
			if !errors.Is(err, common.ErrSchemaViolation) {
				t.Fatalf("err = %v, want ErrSchemaViolation", err)
			}
		})
	}
}
