// Package openai provides an adapter for OpenAI-compatible chat-completions
// endpoints, including Gemini's OpenAI compatibility layer.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"clinical-visit-service/internal/service/llm"
)

// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Config holds adapter configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Adapter implements llm.Adapter over /chat/completions.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// New creates an OpenAI-compatible adapter. A nil client uses http.DefaultClient.
func New(cfg Config, client *http.Client) (*Adapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("LLM API key is not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-pro"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Adapter{cfg: cfg, client: client}, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string { return "openai" }

// Close is a no-op.
func (a *Adapter) Close() error { return nil }

// Generate posts a single user message and returns the first choice's content.
func (a *Adapter) Generate(ctx context.Context, req llm.Request) (string, error) {
	body, err := json.Marshal(buildRequest(a.cfg.Model, req))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 512))
	}
	return parseResponse(respBody)
}

func buildRequest(model string, req llm.Request) chatRequest {
	msg := chatMessage{Role: "user"}
	if req.Audio == nil {
		msg.Content = req.Prompt
	} else {
		msg.Content = []contentPart{
			{Type: "text", Text: req.Prompt},
			{Type: "input_audio", InputAudio: &inputAudio{
				Data:   base64.StdEncoding.EncodeToString(req.Audio.Data),
				Format: audioFormat(req.Audio.MIMEType),
			}},
		}
	}

	cr := chatRequest{Model: model, Messages: []chatMessage{msg}}
	if req.ResponseSchema != nil {
		name := req.ResponseSchemaName
		if name == "" {
			name = string(req.Operation)
		}
		cr.ResponseFormat = &respFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchemaFormat{Name: name, Schema: req.ResponseSchema},
		}
	}
	return cr
}

func parseResponse(body []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", llm.ErrEmptyResponse
	}
	return content, nil
}

// audioFormat maps a MIME type to the input_audio format name.
func audioFormat(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	default:
		return "mp3"
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
