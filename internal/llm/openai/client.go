package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/llm"
)

var _ llm.Oracle = (*Client)(nil)

// Complete sends one chat/completions request and returns the assistant message content.
func (c *Client) Complete(ctx context.Context, req llm.Request) ([]byte, error) {
	if req.Schema == nil {
		return nil, fmt.Errorf("%w: request has no schema", common.ErrOracle)
	}

	body := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]any{
			{"role": "system", "content": req.SystemPrompt},
			{"role": "user", "content": userContent(req)},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   req.Schema.Name,
				"strict": true,
				"schema": req.Schema.JSONSchema(),
			},
		},
	}
	if c.cfg.Temperature > 0 {
		body["temperature"] = c.cfg.Temperature
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: openai status %d: %v", common.ErrOracle, status, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
				Refusal string `json:"refusal"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("%w: decode openai response: %v", common.ErrOracle, err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in openai response", common.ErrOracle)
	}
	msg := cc.Choices[0].Message
	if msg.Refusal != "" {
		return nil, fmt.Errorf("%w: model refused: %s", common.ErrOracle, msg.Refusal)
	}
	c.logger.Debug("llm.openai.complete",
		"model", c.cfg.Model,
		"modality", req.Modality,
		"finish_reason", cc.Choices[0].FinishReason,
		"content_len", len(msg.Content),
	)
	return []byte(strings.TrimSpace(msg.Content)), nil
}

// userContent is a plain string for text requests and a list of parts
// (prompt first, then one image_url per page) for vision requests.
func userContent(req llm.Request) any {
	if req.Modality != llm.ModalityVision || len(req.Images) == 0 {
		return req.UserPrompt
	}
	parts := make([]map[string]any, 0, len(req.Images)+1)
	parts = append(parts, map[string]any{"type": "text", "text": req.UserPrompt})
	for _, img := range req.Images {
		parts = append(parts, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": llm.DataURL(img)},
		})
	}
	return parts
}
