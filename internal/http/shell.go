package http

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"

	"clinical-visit-service/internal/models"
	"clinical-visit-service/internal/observability/logging"
	"clinical-visit-service/internal/service/report"
	"clinical-visit-service/internal/service/session"
	"clinical-visit-service/internal/service/transcript"
)

const sessionCookie = "visit_session"

//go:embed templates/shell.html
var templateFS embed.FS

var shellTemplate = template.Must(template.New("shell.html").ParseFS(templateFS, "templates/shell.html"))

type stepView struct {
	Label  string
	Status session.StageStatus
}

type pageView struct {
	Steps            []stepView
	FileName         string
	FileSize         string
	MaxUpload        string
	Pending          bool
	Transcribing     bool
	Reporting        bool
	Message          string
	MessageOK        bool
	Lines            []models.TranscriptLine
	CanRequestReport bool
	Report           *models.VisitReport
	ReportHTML       template.HTML
	ReportMarkdown   string
	DownloadURL      string
	DownloadName     string
}

// session returns the caller's session, creating one and setting the
// cookie when the request carries none or an unknown ID.
func (h *handlers) session(w http.ResponseWriter, r *http.Request) *session.Lifecycle {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	lc, created := h.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    lc.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   h.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return lc
}

func (h *handlers) page(w http.ResponseWriter, r *http.Request) {
	lc := h.session(w, r)
	snap := lc.Snapshot()
	logger := logging.WithVisit(snap.VisitID, snap.ID)

	view := pageView{
		Steps: []stepView{
			{Label: "Upload", Status: snap.UploadStatus()},
			{Label: "Transcribe", Status: snap.TranscriptionStatus()},
			{Label: "Report & Facts", Status: snap.ReportStatus()},
		},
		MaxUpload:        humanize.Bytes(uint64(h.maxAudioBytes)),
		Pending:          snap.State.InFlight(),
		Transcribing:     snap.State == session.StateTranscribing,
		Reporting:        snap.State == session.StateReporting,
		CanRequestReport: snap.CanRequestReport,
		DownloadURL:      "/visits/report.md",
		DownloadName:     report.Filename,
	}
	if snap.File != nil {
		view.FileName = snap.File.Name
		view.FileSize = humanize.Bytes(uint64(snap.File.Size))
	}
	if snap.Transcription != nil {
		view.Message = snap.Transcription.Message
		view.MessageOK = snap.Transcription.Succeeded()
		view.Lines = transcript.ParseLines(snap.Transcription.Transcription)
	}
	if snap.Report != nil {
		view.Report = snap.Report
		if snap.Report.HasReport() {
			html, err := report.Render(snap.Report.Report)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to render report")
			}
			view.ReportHTML = html
			view.ReportMarkdown = snap.Report.Report
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := shellTemplate.Execute(w, view); err != nil {
		logger.Error().Err(err).Msg("Failed to render page")
	}
}

func (h *handlers) shellTranscribe(w http.ResponseWriter, r *http.Request) {
	lc := h.session(w, r)

	upload, readErr := h.readUpload(w, r)
	meta := session.FileMeta{}
	if upload != nil {
		meta = session.FileMeta{Name: upload.Filename, Size: upload.Size(), MIMEType: upload.MIMEType}
	}

	ticket, err := lc.BeginTranscription(meta)
	if err != nil {
		h.conflict(w, lc, err)
		return
	}
	visitID := lc.VisitID()
	logger := logging.WithVisit(visitID, lc.ID())

	var res models.TranscriptionResult
	switch {
	case errors.Is(readErr, errUploadTooLarge):
		res = tooLargeResult
	case readErr != nil:
		logger.Warn().Err(readErr).Msg("Failed to read upload")
		res = h.orchestrator.Transcribe(r.Context(), visitID, nil)
	default:
		res = h.orchestrator.Transcribe(r.Context(), visitID, upload)
	}

	if err := lc.CompleteTranscription(ticket, res); err != nil {
		logger.Info().Err(err).Msg("Discarding transcription result")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handlers) shellReport(w http.ResponseWriter, r *http.Request) {
	lc := h.session(w, r)

	ticket, text, err := lc.BeginReport()
	if err != nil {
		h.conflict(w, lc, err)
		return
	}
	visitID := lc.VisitID()

	rep := h.orchestrator.Extract(r.Context(), visitID, text)
	if err := lc.CompleteReport(ticket, rep); err != nil {
		logger := logging.WithVisit(visitID, lc.ID())
		logger.Info().Err(err).Msg("Discarding report result")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handlers) shellReset(w http.ResponseWriter, r *http.Request) {
	h.session(w, r).Reset()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handlers) downloadReport(w http.ResponseWriter, r *http.Request) {
	snap := h.session(w, r).Snapshot()
	if snap.Report == nil || !snap.Report.HasReport() {
		http.Error(w, "no report available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(snap.Report.Report)))
	_, _ = w.Write([]byte(snap.Report.Report))
}

// conflict answers a rejected state transition.
func (h *handlers) conflict(w http.ResponseWriter, lc *session.Lifecycle, err error) {
	logger := logging.WithVisit(lc.VisitID(), lc.ID())
	logger.Debug().
		Err(err).
		Str("state", lc.State().String()).
		Msg("Rejected session transition")
	http.Error(w, err.Error(), http.StatusConflict)
}
