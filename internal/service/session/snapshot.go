package session

import "clinical-visit-service/internal/models"

// StageStatus is the per-stage view shown by the page.
type StageStatus string

const (
	StageIdle    StageStatus = "idle"
	StagePending StageStatus = "pending"
	StageSuccess StageStatus = "success"
	StageError   StageStatus = "error"
)

// Snapshot is a point-in-time copy of a Lifecycle.
type Snapshot struct {
	ID               string
	VisitID          string
	State            State
	File             *FileMeta
	Transcription    *models.TranscriptionResult
	Report           *models.VisitReport
	CanRequestReport bool
}

// UploadStatus reports whether a recording has been submitted.
func (s Snapshot) UploadStatus() StageStatus {
	switch {
	case s.File == nil:
		return StageIdle
	case s.File.Size == 0:
		return StageError
	}
	return StageSuccess
}

// TranscriptionStatus is the status of stage 1.
func (s Snapshot) TranscriptionStatus() StageStatus {
	switch s.State {
	case StateNotStarted:
		return StageIdle
	case StateTranscribing:
		return StagePending
	case StateTranscriptFailed:
		return StageError
	default:
		return StageSuccess
	}
}

// ReportStatus is the status of stage 2.
func (s Snapshot) ReportStatus() StageStatus {
	switch s.State {
	case StateReporting:
		return StagePending
	case StateReportReady:
		return StageSuccess
	case StateReportFailed:
		return StageError
	default:
		return StageIdle
	}
}

// Transcript returns the current transcript text, if any.
func (s Snapshot) Transcript() string {
	if s.Transcription == nil {
		return ""
	}
	return s.Transcription.Transcription
}
