// Package schema validates provider payloads against JSON Schema documents.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed facts.schema.json
var factSheetSchemaJSON []byte

const factSheetResource = "facts.schema.json"

// ErrInvalidDocument is returned when a payload is not valid JSON or does
// not conform to the schema.
var ErrInvalidDocument = errors.New("document does not match schema")

// Validator checks fact-extraction payloads against the fact-sheet schema.
type Validator struct {
	schema *jsonschema.Schema
}

// New compiles the embedded fact-sheet schema.
func New() *Validator {
	return &Validator{schema: mustCompile(factSheetSchemaJSON, factSheetResource)}
}

func mustCompile(raw []byte, name string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// Validate checks an already-decoded JSON value.
func (v *Validator) Validate(doc any) error {
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

// ValidateJSON decodes raw and validates it. A single surrounding markdown
// code fence is tolerated; anything else that is not one JSON value fails.
func (v *Validator) ValidateJSON(raw []byte) error {
	doc, err := decodeSingle(StripCodeFence(raw))
	if err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrInvalidDocument, err)
	}
	return v.Validate(doc)
}

// decodeSingle decodes exactly one JSON value, keeping numbers as json.Number.
func decodeSingle(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level value")
	}
	return doc, nil
}

// FactSheetSchema returns a fresh copy of the fact-sheet schema as a generic
// map, suitable for sending to a provider as a response schema.
func FactSheetSchema() map[string]any {
	var m map[string]any
	if err := json.Unmarshal(factSheetSchemaJSON, &m); err != nil {
		panic(fmt.Sprintf("failed to decode embedded %s: %v", factSheetResource, err))
	}
	return m
}

// StripCodeFence removes one ```json ... ``` wrapper if present.
func StripCodeFence(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return []byte(s)
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	return []byte(strings.TrimSpace(s))
}
