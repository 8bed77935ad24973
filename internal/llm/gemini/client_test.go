package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/llm"
)

func TestResponseSchema(t *testing.T) {
	s := ResponseSchema(llm.DocumentSchema())
	if s.Type != genai.TypeObject {
		t.Fatalf("type = %v", s.Type)
	}
	if len(s.Required) != 9 || len(s.Properties) != 9 {
		t.Fatalf("required=%d properties=%d", len(s.Required), len(s.Properties))
	}
	if p := s.Properties["line_items_count"]; p.Type != genai.TypeInteger || !p.Nullable {
		t.Fatalf("line_items_count = %+v", p)
	}
	if p := s.Properties["average_price"]; p.Type != genai.TypeNumber {
		t.Fatalf("average_price = %+v", p)
	}
	if p := s.Properties["consignee_name"]; p.Type != genai.TypeString {
		t.Fatalf("consignee_name = %+v", p)
	}
}

func TestImageFormat(t *testing.T) {
	if got := imageFormat("image/jpeg"); got != "jpeg" {
		t.Fatalf("got %q", got)
	}
	if got := imageFormat(""); got != "png" {
		t.Fatalf("got %q", got)
	}
}
