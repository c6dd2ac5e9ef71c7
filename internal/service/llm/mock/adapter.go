// Package mock provides a mock LLM adapter for local runs and tests without
// provider credentials. It answers each operation with a canned response
// for a short clinic visit.
package mock

import (
	"context"
	"sync"
	"time"

	"clinical-visit-service/internal/service/llm"
)

// DefaultTranscript is returned for transcription requests.
const DefaultTranscript = `doctor: Good morning. What brings you in today?
patient: I have a cough since yesterday.
doctor: Any fever?
patient: No fever, but my throat is sore.
doctor: It sounds like a viral infection. Drink plenty of fluids and rest.
doctor: Come back if it lasts more than a week.`

// DefaultFacts is returned for fact-extraction requests.
const DefaultFacts = `{"facts":[
{"role":"Patient","fact":"Has had a cough since yesterday","verbatimSentenceUsed":"I have a cough since yesterday."},
{"role":"Patient","fact":"Denies fever","verbatimSentenceUsed":"No fever, but my throat is sore."},
{"role":"Patient","fact":"Has a sore throat","verbatimSentenceUsed":"No fever, but my throat is sore."},
{"role":"Doctor","fact":"Suspects a viral infection","verbatimSentenceUsed":"It sounds like a viral infection."},
{"role":"Doctor","fact":"Recommends fluids and rest","verbatimSentenceUsed":"Drink plenty of fluids and rest."},
{"role":"Doctor","fact":"Return if cough lasts more than a week","verbatimSentenceUsed":"Come back if it lasts more than a week."}
]}`

// DefaultReport is returned for report requests.
const DefaultReport = `## What You Told Us (in your words)
- Key statements you made:
  - "I have a cough since yesterday."
  - "No fever, but my throat is sore."

## Key Questions & Answers
- Q: Do you have a fever?
  A: No fever, but a sore throat.

## Part 1: Your Visit Summary at a Glance
DIAGNOSIS: Working diagnosis: viral infection
ACTION PLAN: Drink plenty of fluids; rest
NEXT STEPS: Return if the cough lasts more than a week

## Part 2: Our Assessment (What We Found)
Diagnosis: Viral infection (suspected)

## Part 3: Your Action Plan (What You Need to Do)
A. Prescribed Medication
- Not discussed

## Part 4: What Happens Next
Lab Tests Ordered:
- Not discussed

This summary reflects what we discussed today; contact your clinic or seek urgent care if symptoms worsen or new red-flag symptoms appear.`

// Adapter implements llm.Adapter with canned responses.
type Adapter struct {
	mu        sync.Mutex
	responses map[llm.Operation]string
	errs      map[llm.Operation]error
	delay     time.Duration
	requests  []llm.Request
	closed    bool
}

// New creates a mock adapter answering with the default responses.
func New() *Adapter {
	return &Adapter{
		responses: map[llm.Operation]string{
			llm.OperationTranscribe: DefaultTranscript,
			llm.OperationFacts:      DefaultFacts,
			llm.OperationReport:     DefaultReport,
		},
		errs: make(map[llm.Operation]error),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string { return "mock" }

// SetResponse overrides the response for one operation.
func (a *Adapter) SetResponse(op llm.Operation, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses[op] = text
}

// SetError makes one operation fail with err. A nil err clears it.
func (a *Adapter) SetError(op llm.Operation, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err == nil {
		delete(a.errs, op)
		return
	}
	a.errs[op] = err
}

// SetDelay simulates provider latency on every call.
func (a *Adapter) SetDelay(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.delay = d
}

// Generate records the request and returns the configured response or error.
// A pending delay is abandoned when ctx is done.
func (a *Adapter) Generate(ctx context.Context, req llm.Request) (string, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	delay := a.delay
	text, err := a.responses[req.Operation], a.errs[req.Operation]
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// Requests returns a copy of every request received so far.
func (a *Adapter) Requests() []llm.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]llm.Request(nil), a.requests...)
}

// Calls returns the number of requests for op.
func (a *Adapter) Calls(op llm.Operation) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, r := range a.requests {
		if r.Operation == op {
			n++
		}
	}
	return n
}

// Close marks the adapter closed. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}
