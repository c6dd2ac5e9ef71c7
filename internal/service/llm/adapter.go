// Package llm defines the interface for generative-AI provider adapters.
package llm

import (
	"context"
	"errors"
)

// Operation names the purpose of a request. Used for metrics and logging.
type Operation string

const (
	OperationTranscribe Operation = "transcribe"
	OperationFacts      Operation = "facts"
	OperationReport     Operation = "report"
)

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("provider returned no content")

// Blob is inline binary content sent alongside the prompt.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Request is a single-turn completion request.
type Request struct {
	Operation Operation
	Prompt    string

	// Audio is attached as an inline part when set.
	Audio *Blob

	// ResponseSchema, when set, asks the provider for a JSON response
	// constrained to this JSON Schema document. Providers enforce it on a
	// best-effort basis; callers still validate the result.
	ResponseSchema     map[string]any
	ResponseSchemaName string
}

// Adapter defines the interface for LLM providers (Gemini, OpenAI-compatible, mock).
type Adapter interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Generate sends one request and returns the provider's text response.
	Generate(ctx context.Context, req Request) (string, error)

	// Close releases provider resources.
	Close() error
}
