// Package visit coordinates the LLM provider, schema validation and the
// event publisher for a single clinical visit.
package visit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"clinical-visit-service/internal/models"
	"clinical-visit-service/internal/observability/logging"
	"clinical-visit-service/internal/observability/metrics"
	"clinical-visit-service/internal/schema"
	"clinical-visit-service/internal/service/llm"
)

// User-facing messages.
const (
	MsgMissingAudio        = "Please provide an audio file."
	MsgUnsupportedMedia    = "Only MP3 audio files are supported."
	MsgAudioTooLarge       = "The audio file is too large."
	MsgTranscriptionOK     = "Transcription successful."
	MsgTranscriptionFailed = "An error occurred during transcription."
	MsgEmptyTranscript     = "No speech could be transcribed from the recording."
	MsgMissingTranscript   = "A transcript is required before generating the report."
	MsgFactsFailed         = "An error occurred while extracting facts."
	MsgFactsInvalid        = "The extracted facts did not match the expected format."
	MsgReportFailed        = "An error occurred while generating the report."
	MsgEmptyReport         = "The report came back empty."
)

const (
	factSheetResponseSchema = "fact_sheet"
	octetStream             = "application/octet-stream"
)

// Errors wrapped around provider and validation failures.
var (
	ErrProvider         = errors.New("llm provider request failed")
	ErrSchemaValidation = errors.New("fact payload failed schema validation")
	ErrEmptyReport      = errors.New("report is empty")
)

// EventPublisher receives visit lifecycle events.
type EventPublisher interface {
	PublishTranscription(ctx context.Context, ev models.TranscriptionCompleted) error
	PublishReport(ctx context.Context, ev models.ReportCompleted) error
}

// Limits bounds what is sent to the provider.
type Limits struct {
	MaxAudioBytes    int64         // uploads larger than this are rejected
	AllowedMIMETypes []string      // empty allows any type
	RequestTimeout   time.Duration // per provider call, 0 for none
}

// DefaultLimits returns the default upload limits.
func DefaultLimits() Limits {
	return Limits{
		MaxAudioBytes:    25 * 1024 * 1024,
		AllowedMIMETypes: []string{"audio/mpeg", "audio/mp3"},
	}
}

// Orchestrator runs the transcription and facts+report requests.
// Failures are returned as stage-scoped values, never as Go errors.
type Orchestrator struct {
	adapter   llm.Adapter
	publisher EventPublisher
	validator *schema.Validator
	limits    Limits
	metrics   *metrics.Metrics
}

// NewOrchestrator creates an orchestrator with default limits.
func NewOrchestrator(adapter llm.Adapter, publisher EventPublisher) *Orchestrator {
	return NewOrchestratorWithLimits(adapter, publisher, DefaultLimits())
}

// NewOrchestratorWithLimits creates an orchestrator with custom limits.
// A nil publisher disables lifecycle events.
func NewOrchestratorWithLimits(adapter llm.Adapter, publisher EventPublisher, limits Limits) *Orchestrator {
	return &Orchestrator{
		adapter:   adapter,
		publisher: publisher,
		validator: schema.New(),
		limits:    limits,
		metrics:   metrics.DefaultMetrics,
	}
}

// WithMetrics replaces the metrics sink.
func (o *Orchestrator) WithMetrics(m *metrics.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// Provider returns the adapter name.
func (o *Orchestrator) Provider() string {
	return o.adapter.Name()
}

// Limits returns the configured limits.
func (o *Orchestrator) Limits() Limits {
	return o.limits
}

// Transcribe sends the uploaded recording to the provider and returns a
// speaker-labelled transcript. Invalid uploads never reach the provider.
func (o *Orchestrator) Transcribe(ctx context.Context, visitID string, upload *models.AudioUpload) models.TranscriptionResult {
	start := time.Now()
	logger := logging.WithVisit(visitID, "")

	res, mimeType := o.transcribe(ctx, visitID, upload)

	o.metrics.RecordTranscription(string(res.Failure))
	logger.Info().
		Str("failure", string(res.Failure)).
		Int64("audioBytes", upload.Size()).
		Str("mimeType", mimeType).
		Int("transcriptChars", len(res.Transcription)).
		Dur("duration", time.Since(start)).
		Msg("Transcription finished")

	o.publishTranscription(ctx, models.TranscriptionCompleted{
		EventType:       models.EventTranscriptionCompleted,
		VisitID:         visitID,
		Timestamp:       time.Now().UnixMilli(),
		Provider:        o.adapter.Name(),
		Succeeded:       res.Succeeded(),
		Failure:         res.Failure,
		AudioBytes:      upload.Size(),
		MIMEType:        mimeType,
		TranscriptChars: len(res.Transcription),
		DurationMs:      time.Since(start).Milliseconds(),
	})
	return res
}

func (o *Orchestrator) transcribe(ctx context.Context, visitID string, upload *models.AudioUpload) (models.TranscriptionResult, string) {
	if upload.Size() == 0 {
		o.metrics.RecordUpload(string(models.FailureMissingAudio), 0)
		return failedTranscription(models.FailureMissingAudio, MsgMissingAudio), ""
	}

	mimeType := NormalizeMIMEType(upload.Filename, upload.MIMEType)
	if !o.allowed(mimeType) {
		o.metrics.RecordUpload(string(models.FailureUnsupportedMedia), upload.Size())
		return failedTranscription(models.FailureUnsupportedMedia, MsgUnsupportedMedia), mimeType
	}
	if o.limits.MaxAudioBytes > 0 && upload.Size() > o.limits.MaxAudioBytes {
		o.metrics.RecordUpload(string(models.FailureAudioTooLarge), upload.Size())
		return failedTranscription(models.FailureAudioTooLarge, MsgAudioTooLarge), mimeType
	}
	o.metrics.RecordUpload("accepted", upload.Size())

	text, err := o.generate(ctx, visitID, llm.Request{
		Operation: llm.OperationTranscribe,
		Prompt:    transcriptionPrompt,
		Audio:     &llm.Blob{MIMEType: mimeType, Data: upload.Data},
	})
	if errors.Is(err, llm.ErrEmptyResponse) {
		return failedTranscription(models.FailureEmptyTranscript, MsgEmptyTranscript), mimeType
	}
	if err != nil {
		return failedTranscription(models.FailureProvider, MsgTranscriptionFailed), mimeType
	}
	if strings.TrimSpace(text) == "" {
		return failedTranscription(models.FailureEmptyTranscript, MsgEmptyTranscript), mimeType
	}
	return models.TranscriptionResult{Message: MsgTranscriptionOK, Transcription: text}, mimeType
}

func failedTranscription(kind models.FailureKind, msg string) models.TranscriptionResult {
	return models.TranscriptionResult{Message: msg, Failure: kind}
}

// Extract issues the fact-extraction and report requests concurrently and
// returns once both have settled. Each half fails independently.
func (o *Orchestrator) Extract(ctx context.Context, visitID, transcript string) models.VisitReport {
	start := time.Now()
	logger := logging.WithVisit(visitID, "")

	var rep models.VisitReport
	if strings.TrimSpace(transcript) == "" {
		missing := &models.FieldError{Kind: models.FailureMissingTranscript, Message: MsgMissingTranscript}
		rep = models.VisitReport{FactsError: missing, ReportError: missing}
	} else {
		var (
			facts     []models.Fact
			factsErr  error
			markdown  string
			reportErr error
		)

		// Neither goroutine returns an error so one failure never cancels the other.
		var g errgroup.Group
		g.Go(func() error {
			facts, factsErr = o.extractFacts(ctx, visitID, transcript)
			return nil
		})
		g.Go(func() error {
			markdown, reportErr = o.generateReport(ctx, visitID, transcript)
			return nil
		})
		_ = g.Wait()

		rep = assemble(facts, factsErr, markdown, reportErr)
	}

	outcome := rep.Outcome()
	o.metrics.RecordReport(string(outcome), len(rep.Facts))
	logger.Info().
		Str("outcome", string(outcome)).
		Int("factCount", len(rep.Facts)).
		Int("reportChars", len(rep.Report)).
		Dur("duration", time.Since(start)).
		Msg("Facts and report finished")

	o.publishReport(ctx, models.ReportCompleted{
		EventType:     models.EventReportCompleted,
		VisitID:       visitID,
		Timestamp:     time.Now().UnixMilli(),
		Provider:      o.adapter.Name(),
		Outcome:       outcome,
		FactCount:     len(rep.Facts),
		ReportChars:   len(rep.Report),
		FactsFailure:  failureKind(rep.FactsError),
		ReportFailure: failureKind(rep.ReportError),
		DurationMs:    time.Since(start).Milliseconds(),
	})
	return rep
}

func assemble(facts []models.Fact, factsErr error, markdown string, reportErr error) models.VisitReport {
	var rep models.VisitReport

	switch {
	case factsErr == nil:
		rep.Facts = facts
	case errors.Is(factsErr, ErrSchemaValidation):
		rep.FactsError = &models.FieldError{Kind: models.FailureSchemaValidation, Message: MsgFactsInvalid}
	default:
		rep.FactsError = &models.FieldError{Kind: models.FailureProvider, Message: MsgFactsFailed}
	}

	switch {
	case reportErr == nil:
		rep.Report = markdown
	case errors.Is(reportErr, ErrEmptyReport):
		rep.ReportError = &models.FieldError{Kind: models.FailureEmptyReport, Message: MsgEmptyReport}
	default:
		rep.ReportError = &models.FieldError{Kind: models.FailureProvider, Message: MsgReportFailed}
	}
	return rep
}

func failureKind(fe *models.FieldError) models.FailureKind {
	if fe == nil {
		return ""
	}
	return fe.Kind
}

func (o *Orchestrator) extractFacts(ctx context.Context, visitID, transcript string) ([]models.Fact, error) {
	raw, err := o.generate(ctx, visitID, llm.Request{
		Operation:          llm.OperationFacts,
		Prompt:             FactsPrompt(transcript),
		ResponseSchema:     schema.FactSheetSchema(),
		ResponseSchemaName: factSheetResponseSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	facts, err := o.ParseFacts([]byte(raw))
	if err != nil {
		o.metrics.RecordSchemaValidationFailure()
		logger := logging.WithProvider(visitID, o.adapter.Name(), string(llm.OperationFacts))
		logger.Warn().Err(err).Msg("Rejected fact payload")
		return nil, err
	}
	return facts, nil
}

// ParseFacts validates a fact-sheet payload against the schema and decodes
// it. The whole payload is rejected if any fact is invalid.
func (o *Orchestrator) ParseFacts(raw []byte) ([]models.Fact, error) {
	if err := o.validator.ValidateJSON(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaValidation, err)
	}

	var sheet models.FactSheet
	if err := json.Unmarshal(schema.StripCodeFence(raw), &sheet); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaValidation, err)
	}
	for i, f := range sheet.Facts {
		if !f.Role.Valid() {
			return nil, fmt.Errorf("%w: fact %d has role %q", ErrSchemaValidation, i, f.Role)
		}
	}
	if sheet.Facts == nil {
		sheet.Facts = []models.Fact{}
	}
	return sheet.Facts, nil
}

func (o *Orchestrator) generateReport(ctx context.Context, visitID, transcript string) (string, error) {
	markdown, err := o.generate(ctx, visitID, llm.Request{
		Operation: llm.OperationReport,
		Prompt:    ReportPrompt(transcript),
	})
	if errors.Is(err, llm.ErrEmptyResponse) {
		return "", ErrEmptyReport
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if strings.TrimSpace(markdown) == "" {
		return "", ErrEmptyReport
	}
	return markdown, nil
}

// generate makes one provider call with the optional per-call deadline.
func (o *Orchestrator) generate(ctx context.Context, visitID string, req llm.Request) (string, error) {
	if o.limits.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.limits.RequestTimeout)
		defer cancel()
	}

	provider := o.adapter.Name()
	logger := logging.WithProvider(visitID, provider, string(req.Operation))
	start := time.Now()

	text, err := o.adapter.Generate(ctx, req)
	elapsed := time.Since(start)
	o.metrics.RecordLLMRequest(provider, string(req.Operation), err, elapsed.Seconds())

	if err != nil {
		logger.Error().Err(err).Dur("latency", elapsed).Msg("LLM request failed")
		return "", err
	}
	logger.Debug().Int("chars", len(text)).Dur("latency", elapsed).Msg("LLM request completed")
	return text, nil
}

func (o *Orchestrator) allowed(mimeType string) bool {
	if len(o.limits.AllowedMIMETypes) == 0 {
		return true
	}
	for _, t := range o.limits.AllowedMIMETypes {
		if strings.EqualFold(t, mimeType) {
			return true
		}
	}
	return false
}

// NormalizeMIMEType lowercases the declared type and drops parameters.
// Browsers sometimes omit the type or send octet-stream for .mp3 files;
// those are treated as audio/mpeg.
func NormalizeMIMEType(filename, declared string) string {
	mt := strings.ToLower(strings.TrimSpace(declared))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	if (mt == "" || mt == octetStream) && strings.EqualFold(filepath.Ext(filename), ".mp3") {
		return "audio/mpeg"
	}
	return mt
}

func (o *Orchestrator) publishTranscription(ctx context.Context, ev models.TranscriptionCompleted) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishTranscription(context.WithoutCancel(ctx), ev); err != nil {
		logger := logging.WithVisit(ev.VisitID, "")
		logger.Warn().Err(err).Msg("Failed to publish transcription event")
	}
}

func (o *Orchestrator) publishReport(ctx context.Context, ev models.ReportCompleted) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishReport(context.WithoutCancel(ctx), ev); err != nil {
		logger := logging.WithVisit(ev.VisitID, "")
		logger.Warn().Err(err).Msg("Failed to publish report event")
	}
}
