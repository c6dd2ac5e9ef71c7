// Package models defines the data structures exchanged during a clinical visit.
package models

import "strings"

// FailureKind classifies why a stage-scoped result carries no value.
type FailureKind string

const (
	FailureMissingAudio      FailureKind = "missing_audio"
	FailureUnsupportedMedia  FailureKind = "unsupported_media"
	FailureAudioTooLarge     FailureKind = "audio_too_large"
	FailureProvider          FailureKind = "provider"
	FailureEmptyTranscript   FailureKind = "empty_transcript"
	FailureMissingTranscript FailureKind = "missing_transcript"
	FailureSchemaValidation  FailureKind = "schema_validation"
	FailureEmptyReport       FailureKind = "empty_report"
)

// AudioUpload is a recording submitted for transcription.
type AudioUpload struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Size returns the number of audio bytes, zero for a nil upload.
func (a *AudioUpload) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}

// TranscriptionResult is produced once per upload submission.
type TranscriptionResult struct {
	Message       string      `json:"message"`
	Transcription string      `json:"transcription"`
	Failure       FailureKind `json:"failure,omitempty"`
}

// Succeeded reports whether a usable transcript was produced.
func (r TranscriptionResult) Succeeded() bool {
	return r.Failure == "" && strings.TrimSpace(r.Transcription) != ""
}

// FactRole is the speaker a fact is attributed to.
type FactRole string

const (
	FactRoleDoctor  FactRole = "Doctor"
	FactRolePatient FactRole = "Patient"
)

// Valid reports whether the role is one of the two accepted speakers.
func (r FactRole) Valid() bool {
	return r == FactRoleDoctor || r == FactRolePatient
}

// Fact is a single statement extracted from the transcript.
type Fact struct {
	Role          FactRole `json:"role"`
	Statement     string   `json:"fact"`
	VerbatimQuote string   `json:"verbatimSentenceUsed"`
}

// FactSheet is the decoded fact-extraction payload.
type FactSheet struct {
	Facts []Fact `json:"facts"`
}

// FieldError marks one half of a VisitReport as failed.
type FieldError struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

func (e *FieldError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// ReportOutcome summarises a combined facts+report request.
type ReportOutcome string

const (
	ReportOutcomeComplete ReportOutcome = "complete"
	ReportOutcomePartial  ReportOutcome = "partial"
	ReportOutcomeFailed   ReportOutcome = "failed"
)

// VisitReport is the combined result of fact extraction and report generation.
// Each half succeeds or fails independently.
type VisitReport struct {
	Facts       []Fact      `json:"facts"`
	FactsError  *FieldError `json:"factsError,omitempty"`
	Report      string      `json:"report"`
	ReportError *FieldError `json:"reportError,omitempty"`
}

// Outcome reports whether both, one or neither half succeeded.
func (v VisitReport) Outcome() ReportOutcome {
	switch {
	case v.FactsError == nil && v.ReportError == nil:
		return ReportOutcomeComplete
	case v.FactsError != nil && v.ReportError != nil:
		return ReportOutcomeFailed
	default:
		return ReportOutcomePartial
	}
}

// HasReport reports whether report markdown is available.
func (v VisitReport) HasReport() bool {
	return v.ReportError == nil && v.Report != ""
}

// Speaker is the role tag attached to a displayed transcript line.
type Speaker string

const (
	SpeakerDoctor  Speaker = "doctor"
	SpeakerPatient Speaker = "patient"
	SpeakerUnknown Speaker = "unknown"
)

// TranscriptLine is one non-empty line of a transcript, tagged by speaker.
type TranscriptLine struct {
	Role Speaker `json:"role"`
	Text string  `json:"text"`
	Raw  string  `json:"raw"`
}
