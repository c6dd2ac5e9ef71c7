package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"clinical-visit-service/internal/schema"
	"clinical-visit-service/internal/service/llm"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	text     string
	err      error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: f.text}}},
		}},
	}, nil
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "gemini-2.5-pro" {
		t.Errorf("expected default model 'gemini-2.5-pro', got %s", cfg.Model)
	}
	if cfg.APIKey != "" {
		t.Errorf("expected no default API key, got %q", cfg.APIKey)
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestGenerate_InlineAudio(t *testing.T) {
	fake := &fakeModels{text: "doctor: Hello\npatient: Hi"}
	a := &Adapter{models: fake, model: "gemini-2.5-pro"}

	got, err := a.Generate(context.Background(), llm.Request{
		Operation: llm.OperationTranscribe,
		Prompt:    "transcribe",
		Audio:     &llm.Blob{MIMEType: "audio/mpeg", Data: []byte("ID3")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != fake.text {
		t.Errorf("expected %q, got %q", fake.text, got)
	}
	if fake.model != "gemini-2.5-pro" {
		t.Errorf("expected model passed through, got %s", fake.model)
	}
	if fake.config != nil {
		t.Errorf("expected no generation config without schema, got %+v", fake.config)
	}
	if len(fake.contents) != 1 || len(fake.contents[0].Parts) != 2 {
		t.Fatalf("expected one content with two parts, got %+v", fake.contents)
	}
	audio := fake.contents[0].Parts[1].InlineData
	if audio == nil || audio.MIMEType != "audio/mpeg" || string(audio.Data) != "ID3" {
		t.Errorf("expected inline audio part, got %+v", audio)
	}
}

func TestGenerate_ResponseSchema(t *testing.T) {
	fake := &fakeModels{text: `{"facts":[]}`}
	a := &Adapter{models: fake, model: "m"}

	_, err := a.Generate(context.Background(), llm.Request{
		Operation:      llm.OperationFacts,
		Prompt:         "facts",
		ResponseSchema: schema.FactSheetSchema(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.config == nil || fake.config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected JSON response config, got %+v", fake.config)
	}
	facts := fake.config.ResponseSchema.Properties["facts"]
	if facts == nil || facts.Type != genai.TypeArray {
		t.Fatalf("expected facts array schema, got %+v", facts)
	}
	role := facts.Items.Properties["role"]
	if role == nil || len(role.Enum) != 2 || role.Enum[0] != "Doctor" || role.Enum[1] != "Patient" {
		t.Errorf("expected role enum [Doctor Patient], got %+v", role)
	}
	want := []string{"role", "fact", "verbatimSentenceUsed"}
	got := facts.Items.PropertyOrdering
	if len(got) != len(want) {
		t.Fatalf("expected ordering %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ordering[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestGenerate_Errors(t *testing.T) {
	a := &Adapter{models: &fakeModels{err: errors.New("quota exceeded")}, model: "m"}
	if _, err := a.Generate(context.Background(), llm.Request{Prompt: "x"}); err == nil {
		t.Error("expected provider error to propagate")
	}

	a = &Adapter{models: &fakeModels{text: "  \n"}, model: "m"}
	if _, err := a.Generate(context.Background(), llm.Request{Prompt: "x"}); !errors.Is(err, llm.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestConvertSchema_Unsupported(t *testing.T) {
	tests := []map[string]any{
		{},
		{"type": "null"},
		{"type": "object", "properties": map[string]any{"a": "string"}},
		{"type": "string", "enum": []any{1.0}},
	}
	for _, doc := range tests {
		if _, err := convertSchema(doc); err == nil {
			t.Errorf("expected error for %v", doc)
		}
	}
}
