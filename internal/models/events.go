package models

// Event types published on the visit lifecycle topics.
const (
	EventTranscriptionCompleted = "visit.transcription.completed"
	EventReportCompleted        = "visit.report.completed"
)

// TranscriptionCompleted is emitted after every transcription attempt.
// It carries metadata only, never transcript text.
type TranscriptionCompleted struct {
	EventType       string      `json:"eventType"`
	VisitID         string      `json:"visitId"`
	Timestamp       int64       `json:"timestamp"`
	Provider        string      `json:"provider"`
	Succeeded       bool        `json:"succeeded"`
	Failure         FailureKind `json:"failure,omitempty"`
	AudioBytes      int64       `json:"audioBytes"`
	MIMEType        string      `json:"mimeType,omitempty"`
	TranscriptChars int         `json:"transcriptChars"`
	DurationMs      int64       `json:"durationMs"`
}

// ReportCompleted is emitted after every combined facts+report request.
type ReportCompleted struct {
	EventType     string        `json:"eventType"`
	VisitID       string        `json:"visitId"`
	Timestamp     int64         `json:"timestamp"`
	Provider      string        `json:"provider"`
	Outcome       ReportOutcome `json:"outcome"`
	FactCount     int           `json:"factCount"`
	ReportChars   int           `json:"reportChars"`
	FactsFailure  FailureKind   `json:"factsFailure,omitempty"`
	ReportFailure FailureKind   `json:"reportFailure,omitempty"`
	DurationMs    int64         `json:"durationMs"`
}
