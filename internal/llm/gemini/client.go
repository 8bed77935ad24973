package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/llm"
)

var _ llm.Oracle = (*Client)(nil)

// Client is an llm.Oracle backed by Gemini JSON mode with a response schema.
type Client struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

func NewClient(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{client: cl, modelName: modelName, logger: logger}, nil
}

func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Model reports the configured model name.
func (c *Client) Model() string { return c.modelName }

func (c *Client) Complete(ctx context.Context, req llm.Request) ([]byte, error) {
	if req.Schema == nil {
		return nil, fmt.Errorf("%w: request has no schema", common.ErrOracle)
	}
	m := c.client.GenerativeModel(c.modelName)
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = ResponseSchema(req.Schema)
	if req.SystemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}

	parts := []genai.Part{genai.Text(req.UserPrompt)}
	if req.Modality == llm.ModalityVision {
		for _, img := range req.Images {
			parts = append(parts, genai.ImageData(imageFormat(img.MIMEType), img.Data))
		}
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini generate: %v", common.ErrOracle, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: gemini returned no candidates", common.ErrOracle)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	c.logger.Debug("llm.gemini.complete", "model", c.modelName, "modality", req.Modality, "content_len", b.Len())
	return []byte(strings.TrimSpace(b.String())), nil
}

// ResponseSchema converts the extraction schema into Gemini's schema type.
// All fields are required and nullable, mirroring the strict JSON Schema.
func ResponseSchema(s *llm.Schema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = &genai.Schema{
			Type:        genaiType(f.Type),
			Description: f.Description,
			Nullable:    true,
		}
		required = append(required, f.Name)
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   required,
	}
}

func genaiType(t llm.FieldType) genai.Type {
	switch t {
	case llm.FieldInteger:
		return genai.TypeInteger
	case llm.FieldNumber:
		return genai.TypeNumber
	default:
		return genai.TypeString
	}
}

// imageFormat turns "image/png" into the bare format genai.ImageData expects.
func imageFormat(mimeType string) string {
	if f, ok := strings.CutPrefix(mimeType, "image/"); ok && f != "" {
		return f
	}
	return "png"
}
