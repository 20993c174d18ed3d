package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// OllamaGenerator calls a local Ollama server's chat API.
type OllamaGenerator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOllamaGenerator(baseURL, model string) *OllamaGenerator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1"
	}
	return &OllamaGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Minute, // local models can be very slow
		},
	}
}

func (o *OllamaGenerator) Name() string {
	return "ollama"
}

func (o *OllamaGenerator) GenerateContent(ctx context.Context, req Request, trace Trace) (*Result, error) {
	reqBody := map[string]interface{}{
		"model":  o.model,
		"stream": false,
		"messages": []map[string]string{
			{"role": "system", "content": req.SystemPrompt},
			{"role": "user", "content": req.UserPrompt},
		},
		"options": map[string]interface{}{
			"temperature": req.Temperature,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Printf("[ollama] %s chunk=%d run=%s model=%s", trace.Purpose, trace.ChunkIdx, trace.RunID, o.model)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Ollama request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		PromptEvalCount int `json:"prompt_eval_count"`
		EvalCount       int `json:"eval_count"`
	}
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if chatResp.Message.Content == "" {
		return nil, fmt.Errorf("empty Ollama response")
	}

	return &Result{
		Text: chatResp.Message.Content,
		Usage: &Usage{
			PromptTokens:   chatResp.PromptEvalCount,
			ResponseTokens: chatResp.EvalCount,
			TotalTokens:    chatResp.PromptEvalCount + chatResp.EvalCount,
		},
	}, nil
}
