package main

import (
	"encoding/json"
	"fmt"
)

// VisitEvent is the union of the visit lifecycle events. Only metadata is
// published, so there is no transcript or report text to show.
type VisitEvent struct {
	EventType string `json:"eventType"`
	VisitID   string `json:"visitId"`
	Timestamp int64  `json:"timestamp"`
	Provider  string `json:"provider"`

	// visit.transcription.completed
	Succeeded       *bool  `json:"succeeded,omitempty"`
	Failure         string `json:"failure,omitempty"`
	AudioBytes      int64  `json:"audioBytes,omitempty"`
	MIMEType        string `json:"mimeType,omitempty"`
	TranscriptChars int    `json:"transcriptChars,omitempty"`

	// visit.report.completed
	Outcome       string `json:"outcome,omitempty"`
	FactCount     int    `json:"factCount,omitempty"`
	ReportChars   int    `json:"reportChars,omitempty"`
	FactsFailure  string `json:"factsFailure,omitempty"`
	ReportFailure string `json:"reportFailure,omitempty"`

	DurationMs int64 `json:"durationMs"`

	// Topic is filled in by the viewer.
	Topic string `json:"topic"`
}

func decodeEvent(topic string, value []byte) (VisitEvent, error) {
	var ev VisitEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return ev, err
	}
	if ev.EventType == "" {
		ev.EventType = topic
	}
	ev.Topic = topic
	return ev, nil
}

// Summary is a one-line description for the console log.
func (e VisitEvent) Summary() string {
	switch {
	case e.Outcome != "":
		return fmt.Sprintf("report outcome=%s facts=%d %dms", e.Outcome, e.FactCount, e.DurationMs)
	case e.Succeeded != nil && *e.Succeeded:
		return fmt.Sprintf("transcription ok chars=%d %dms", e.TranscriptChars, e.DurationMs)
	default:
		return fmt.Sprintf("transcription failed failure=%s %dms", e.Failure, e.DurationMs)
	}
}
