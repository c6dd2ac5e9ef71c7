// Package gemini provides a Google Gemini adapter built on the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"

	"clinical-visit-service/internal/service/llm"
)

// Config holds Gemini adapter configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional override of the Gemini API endpoint
}

// DefaultConfig returns the default Gemini configuration.
func DefaultConfig() Config {
	return Config{
		Model: "gemini-2.5-pro",
	}
}

// contentGenerator is the subset of *genai.Models the adapter uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Adapter implements llm.Adapter using the Gemini API.
type Adapter struct {
	models contentGenerator
	model  string
}

// New creates a Gemini adapter. The client lives for the process lifetime.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is not configured")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Adapter{models: client.Models, model: cfg.Model}, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string { return "gemini" }

// Generate sends the prompt, with inline audio when present, and returns the
// response text.
func (a *Adapter) Generate(ctx context.Context, req llm.Request) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Audio != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Audio.Data, req.Audio.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var gc *genai.GenerateContentConfig
	if req.ResponseSchema != nil {
		s, err := convertSchema(req.ResponseSchema)
		if err != nil {
			return "", fmt.Errorf("convert response schema: %w", err)
		}
		gc = &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   s,
		}
	}

	resp, err := a.models.GenerateContent(ctx, a.model, contents, gc)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// Close is a no-op; the genai client holds no closable resources.
func (a *Adapter) Close() error { return nil }

// convertSchema maps the JSON Schema subset used by this service onto the
// OpenAPI-style schema Gemini accepts.
func convertSchema(doc map[string]any) (*genai.Schema, error) {
	s := &genai.Schema{}

	t, _ := doc["type"].(string)
	switch t {
	case "object":
		s.Type = genai.TypeObject
	case "array":
		s.Type = genai.TypeArray
	case "string":
		s.Type = genai.TypeString
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	default:
		return nil, fmt.Errorf("unsupported schema type %q", t)
	}

	if d, ok := doc["description"].(string); ok {
		s.Description = d
	}
	if enum, ok := doc["enum"].([]any); ok {
		for _, e := range enum {
			str, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("unsupported enum value %v", e)
			}
			s.Enum = append(s.Enum, str)
		}
	}
	if req, ok := doc["required"].([]any); ok {
		for _, r := range req {
			if str, ok := r.(string); ok {
				s.Required = append(s.Required, str)
			}
		}
	}
	if props, ok := doc["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			child, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("property %q is not an object", name)
			}
			cs, err := convertSchema(child)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			s.Properties[name] = cs
		}
		s.PropertyOrdering = propertyOrder(s.Required, props)
	}
	if items, ok := doc["items"].(map[string]any); ok {
		is, err := convertSchema(items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		s.Items = is
	}
	return s, nil
}

// propertyOrder lists required properties first, in declared order, then
// the rest alphabetically.
func propertyOrder(required []string, props map[string]any) []string {
	seen := make(map[string]bool, len(props))
	order := make([]string, 0, len(props))
	for _, r := range required {
		if _, ok := props[r]; ok && !seen[r] {
			order = append(order, r)
			seen[r] = true
		}
	}
	var rest []string
	for name := range props {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}
