package common

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			OCR:  OCRConfig{PDFTextBackend: "native"},
			LLM:  LLMConfig{Provider: "openai", APIKey: "sk-test"},
			Eval: EvalConfig{Concurrency: 1, Preference: "text_then_vision"},
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := map[string]func(c *Config){
		"missing openai key": func(c *Config) { c.LLM.APIKey = "" },
		"missing gemini key": func(c *Config) { c.LLM.Provider = "gemini" },
		"unknown provider":   func(c *Config) { c.LLM.Provider = "llama" },
		"bad backend":        func(c *Config) { c.OCR.PDFTextBackend = "pypdf" },
		"bad preference":     func(c *Config) { c.Eval.Preference = "both" },
		"zero concurrency":   func(c *Config) { c.Eval.Concurrency = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("EVAL_CONCURRENCY", "4")
	t.Setenv("LLM_TIMEOUT", "bogus")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LLM_PROVIDER", "Gemini")

	cfg := LoadConfig()
	if cfg.Eval.Concurrency != 4 {
		t.Fatalf("concurrency = %d", cfg.Eval.Concurrency)
	}
	if cfg.LLM.Timeout.Seconds() != 90 {
		t.Fatalf("invalid duration should fall back to default, got %v", cfg.LLM.Timeout)
	}
	if cfg.LogLevel.String() != "DEBUG" {
		t.Fatalf("log level = %v", cfg.LogLevel)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Fatalf("provider should be lower-cased, got %q", cfg.LLM.Provider)
	}
}

func TestAcquisitionErrorWrapsSentinel(t *testing.T) {
	err := AcquisitionError("bl.pdf", errors.New("malformed xref"))
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition in chain")
	}
	if !strings.Contains(err.Error(), "bl.pdf") {
		t.Fatalf("message should name the document: %v", err)
	}
}
