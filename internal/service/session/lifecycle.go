// Package session tracks the per-browser visit workflow.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinical-visit-service/internal/models"
)

// State represents the workflow state of a visit session.
type State int

const (
	// StateNotStarted - nothing submitted yet, or the session was reset.
	StateNotStarted State = iota
	// StateTranscribing - a transcription request is in flight.
	StateTranscribing
	// StateTranscriptReady - a non-empty transcript is available.
	StateTranscriptReady
	// StateTranscriptFailed - the last transcription produced no transcript.
	StateTranscriptFailed
	// StateReporting - a facts+report request is in flight.
	StateReporting
	// StateReportReady - at least one of facts or report is available.
	StateReportReady
	// StateReportFailed - both facts and report failed.
	StateReportFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateTranscribing:
		return "TRANSCRIBING"
	case StateTranscriptReady:
		return "TRANSCRIPT_READY"
	case StateTranscriptFailed:
		return "TRANSCRIPT_FAILED"
	case StateReporting:
		return "REPORTING"
	case StateReportReady:
		return "REPORT_READY"
	case StateReportFailed:
		return "REPORT_FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// InFlight returns true while a provider request is outstanding.
func (s State) InFlight() bool {
	return s == StateTranscribing || s == StateReporting
}

// HasTranscript returns true for states that hold a usable transcript.
func (s State) HasTranscript() bool {
	return s == StateTranscriptReady || s == StateReporting || s == StateReportReady || s == StateReportFailed
}

// Errors for invalid state transitions.
var (
	ErrInFlight           = errors.New("a request is already in progress")
	ErrTranscriptRequired = errors.New("a transcript is required before generating the report")
	ErrStaleTicket        = errors.New("result belongs to a superseded request")
)

// Ticket identifies the request that moved a session into an in-flight state.
// Only the matching completion is accepted.
type Ticket uint64

// FileMeta describes the uploaded recording.
type FileMeta struct {
	Name     string
	Size     int64
	MIMEType string
}

// Lifecycle manages the state machine for one browser session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	NOT_STARTED → TRANSCRIBING → TRANSCRIPT_READY | TRANSCRIPT_FAILED
//	TRANSCRIPT_READY → REPORTING → REPORT_READY | REPORT_FAILED
//	REPORT_READY | REPORT_FAILED → REPORTING (regenerate)
//	any → NOT_STARTED (Reset)
//
// Rules:
//   - BeginTranscription is allowed from any settled state and clears previous results
//   - BeginReport requires a non-empty transcript
//   - Nothing new starts while a request is in flight
//   - Reset is allowed from any state and invalidates outstanding tickets
type Lifecycle struct {
	mu            sync.RWMutex
	id            string
	state         State
	generation    uint64
	visitID       string
	file          *FileMeta
	transcription *models.TranscriptionResult
	report        *models.VisitReport
	updatedAt     time.Time

	now          func() time.Time
	onTransition func(State)
}

// NewLifecycle creates a new session lifecycle in NOT_STARTED state.
func NewLifecycle(id string) *Lifecycle {
	return newLifecycle(id, time.Now, nil)
}

func newLifecycle(id string, now func() time.Time, onTransition func(State)) *Lifecycle {
	return &Lifecycle{
		id:           id,
		state:        StateNotStarted,
		updatedAt:    now(),
		now:          now,
		onTransition: onTransition,
	}
}

// ID returns the session ID.
func (l *Lifecycle) ID() string {
	return l.id
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// VisitID returns the ID assigned to the current upload, empty before the
// first upload and after a reset.
func (l *Lifecycle) VisitID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.visitID
}

// CanRequestReport returns true if stage 2 may be started.
func (l *Lifecycle) CanRequestReport() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.canRequestReport()
}

func (l *Lifecycle) canRequestReport() bool {
	return !l.state.InFlight() && l.state.HasTranscript()
}

// BeginTranscription moves the session to TRANSCRIBING for a new upload.
func (l *Lifecycle) BeginTranscription(file FileMeta) (Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.InFlight() {
		return 0, ErrInFlight
	}
	l.generation++
	l.visitID = uuid.NewString()
	l.file = &file
	l.transcription = nil
	l.report = nil
	l.transition(StateTranscribing)
	return Ticket(l.generation), nil
}

// CompleteTranscription records the transcription result.
func (l *Lifecycle) CompleteTranscription(t Ticket, res models.TranscriptionResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if uint64(t) != l.generation || l.state != StateTranscribing {
		return ErrStaleTicket
	}
	l.transcription = &res
	if res.Succeeded() {
		l.transition(StateTranscriptReady)
	} else {
		l.transition(StateTranscriptFailed)
	}
	return nil
}

// BeginReport moves the session to REPORTING and returns the transcript to
// send to the provider.
func (l *Lifecycle) BeginReport() (Ticket, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.InFlight() {
		return 0, "", ErrInFlight
	}
	if !l.state.HasTranscript() || l.transcription == nil {
		return 0, "", ErrTranscriptRequired
	}
	l.generation++
	l.report = nil
	l.transition(StateReporting)
	return Ticket(l.generation), l.transcription.Transcription, nil
}

// CompleteReport records the combined facts+report result.
func (l *Lifecycle) CompleteReport(t Ticket, rep models.VisitReport) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if uint64(t) != l.generation || l.state != StateReporting {
		return ErrStaleTicket
	}
	l.report = &rep
	if rep.Outcome() == models.ReportOutcomeFailed {
		l.transition(StateReportFailed)
	} else {
		l.transition(StateReportReady)
	}
	return nil
}

// Reset clears the session back to NOT_STARTED. Idempotent.
func (l *Lifecycle) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.visitID = ""
	l.file = nil
	l.transcription = nil
	l.report = nil
	l.transition(StateNotStarted)
}

// Touch marks the session as active.
func (l *Lifecycle) Touch() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updatedAt = l.now()
}

// IdleSince returns when the session was last active.
func (l *Lifecycle) IdleSince() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.updatedAt
}

// transition must be called with mu held.
func (l *Lifecycle) transition(to State) {
	l.state = to
	l.updatedAt = l.now()
	if l.onTransition != nil {
		l.onTransition(to)
	}
}

// Snapshot returns a consistent copy of the session for rendering.
func (l *Lifecycle) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Snapshot{
		ID:               l.id,
		VisitID:          l.visitID,
		State:            l.state,
		CanRequestReport: l.canRequestReport(),
	}
	if l.file != nil {
		f := *l.file
		s.File = &f
	}
	if l.transcription != nil {
		t := *l.transcription
		s.Transcription = &t
	}
	if l.report != nil {
		r := *l.report
		s.Report = &r
	}
	return s
}
