package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"
)

// AnthropicGenerator calls the Anthropic Messages API.
type AnthropicGenerator struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewAnthropicGenerator(apiKey, model string) *AnthropicGenerator {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &AnthropicGenerator{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (a *AnthropicGenerator) Name() string {
	return "anthropic"
}

func (a *AnthropicGenerator) GenerateContent(ctx context.Context, req Request, trace Trace) (*Result, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key not configured")
	}

	reqBody := map[string]interface{}{
		"model":      a.model,
		"max_tokens": 8192,
		"system":     req.SystemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": req.UserPrompt},
		},
		"temperature": req.Temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", anthropicMessagesURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	log.Printf("[anthropic] %s chunk=%d run=%s model=%s", trace.Purpose, trace.ChunkIdx, trace.RunID, a.model)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Anthropic API error (status %d): %s", resp.StatusCode, string(body))
	}

	var msgResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	var text string
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("empty Anthropic response")
	}

	return &Result{
		Text: text,
		Usage: &Usage{
			PromptTokens:   msgResp.Usage.InputTokens,
			ResponseTokens: msgResp.Usage.OutputTokens,
			TotalTokens:    msgResp.Usage.InputTokens + msgResp.Usage.OutputTokens,
		},
	}, nil
}
