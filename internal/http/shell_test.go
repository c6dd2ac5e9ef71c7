package http

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinical-visit-service/internal/models"
	"clinical-visit-service/internal/service/llm"
	"clinical-visit-service/internal/service/session"
)

// browser replays the session cookie like a real browser would.
type browser struct {
	t      *testing.T
	s      *testServer
	cookie *http.Cookie
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := b.s.do(req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			b.cookie = c
		}
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodPost, path, nil))
}

func (b *browser) state() session.State {
	lc, ok := b.s.sessions.Get(b.cookie.Value)
	require.True(b.t, ok)
	return lc.State()
}

func newBrowser(t *testing.T) *browser {
	return &browser{t: t, s: newTestServer(t, 1<<20)}
}

func TestShell_FirstVisitSetsCookie(t *testing.T) {
	b := newBrowser(t)

	rec := b.get("/")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, b.cookie)
	assert.True(t, b.cookie.HttpOnly)
	assert.Contains(t, rec.Body.String(), "Upload MP3")
	assert.Contains(t, rec.Body.String(), `accept=".mp3,audio/mpeg"`)
	assert.Equal(t, 1, b.s.sessions.Len())

	// Same cookie, same session
	b.get("/")
	assert.Equal(t, 1, b.s.sessions.Len())
}

func TestShell_ReportRequiresTranscript(t *testing.T) {
	b := newBrowser(t)
	b.get("/")

	rec := b.post("/visits/report")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, session.StateNotStarted, b.state())
	assert.Empty(t, b.s.adapter.Requests())
}

func TestShell_FullFlow(t *testing.T) {
	b := newBrowser(t)
	b.get("/")

	rec := b.do(uploadRequest(t, "/visits/transcribe", "checkup.mp3", "audio/mpeg", make([]byte, 4096)))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, session.StateTranscriptReady, b.state())

	page := b.get("/").Body.String()
	assert.Contains(t, page, "checkup.mp3")
	assert.Contains(t, page, "4.1 kB")
	assert.Contains(t, page, "Transcription successful.")
	assert.Contains(t, page, `class="line patient"`)
	assert.Contains(t, page, "I have a cough since yesterday.")
	assert.NotContains(t, page, `id="copy-report"`)

	// Nothing to download yet
	assert.Equal(t, http.StatusNotFound, b.get("/visits/report.md").Code)

	rec = b.post("/visits/report")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, session.StateReportReady, b.state())

	page = b.get("/").Body.String()
	assert.Contains(t, page, "<h2>Part 1: Your Visit Summary at a Glance</h2>")
	assert.Contains(t, page, `class="badge Patient"`)
	assert.Contains(t, page, `id="copy-report"`)

	dl := b.get("/visits/report.md")
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", dl.Header().Get("Content-Type"))
	assert.Contains(t, dl.Header().Get("Content-Disposition"), `filename="visit-report.md"`)
	assert.Contains(t, dl.Body.String(), "## What You Told Us (in your words)")

	rec = b.post("/visits/reset")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, session.StateNotStarted, b.state())
	assert.Equal(t, http.StatusNotFound, b.get("/visits/report.md").Code)
}

func TestShell_TranscriptionFailureShownInline(t *testing.T) {
	b := newBrowser(t)
	b.get("/")
	b.s.adapter.SetError(llm.OperationTranscribe, assert.AnError)

	rec := b.do(uploadRequest(t, "/visits/transcribe", "checkup.mp3", "audio/mpeg", make([]byte, 64)))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, session.StateTranscriptFailed, b.state())

	page := b.get("/").Body.String()
	assert.Contains(t, page, `class="err" id="transcription-message"`)
	assert.Contains(t, page, "An error occurred during transcription.")
	assert.Equal(t, http.StatusConflict, b.post("/visits/report").Code)
}

func TestShell_MissingFile(t *testing.T) {
	b := newBrowser(t)
	b.get("/")

	rec := b.do(uploadRequest(t, "/visits/transcribe", "", "", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, session.StateTranscriptFailed, b.state())
	assert.Contains(t, b.get("/").Body.String(), "Please provide an audio file.")
	assert.Empty(t, b.s.adapter.Requests())
}

func TestShell_PartialReport(t *testing.T) {
	b := newBrowser(t)
	b.get("/")
	b.do(uploadRequest(t, "/visits/transcribe", "checkup.mp3", "audio/mpeg", make([]byte, 64)))
	b.s.adapter.SetError(llm.OperationFacts, assert.AnError)

	b.post("/visits/report")

	assert.Equal(t, session.StateReportReady, b.state())
	page := b.get("/").Body.String()
	assert.Contains(t, page, "An error occurred while extracting facts.")
	assert.Contains(t, page, `id="copy-report"`)
}

func TestShell_PendingStateRendered(t *testing.T) {
	tests := []struct {
		name    string
		begin   func(lc *session.Lifecycle) error
		label   string
		button  string
		stepIdx string
	}{
		{
			name: "transcribing",
			begin: func(lc *session.Lifecycle) error {
				_, err := lc.BeginTranscription(session.FileMeta{Name: "checkup.mp3", Size: 64, MIMEType: "audio/mpeg"})
				return err
			},
			label:   "Processing your audio...",
			button:  `id="transcribe-button"`,
			stepIdx: `id="step-1" data-status="pending"`,
		},
		{
			name: "reporting",
			begin: func(lc *session.Lifecycle) error {
				ticket, err := lc.BeginTranscription(session.FileMeta{Name: "checkup.mp3", Size: 64, MIMEType: "audio/mpeg"})
				if err != nil {
					return err
				}
				if err := lc.CompleteTranscription(ticket, models.TranscriptionResult{
					Message:       "Transcription successful.",
					Transcription: "doctor: Hello.",
				}); err != nil {
					return err
				}
				_, _, err = lc.BeginReport()
				return err
			},
			label:   "Generating report...",
			button:  `id="report-button"`,
			stepIdx: `id="step-2" data-status="pending"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBrowser(t)
			b.get("/")
			lc, ok := b.s.sessions.Get(b.cookie.Value)
			require.True(t, ok)
			require.NoError(t, tt.begin(lc))

			page := b.get("/").Body.String()

			assert.Contains(t, page, tt.stepIdx)
			assert.Regexp(t, regexp.MustCompile(tt.button+`[^>]*disabled>\s*`+regexp.QuoteMeta(tt.label)), page)
			assert.Contains(t, page, `data-pending-label="`+tt.label+`"`)
		})
	}
}

func TestShell_MissingFileMarksUploadError(t *testing.T) {
	b := newBrowser(t)
	b.get("/")

	b.do(uploadRequest(t, "/visits/transcribe", "", "", nil))

	page := b.get("/").Body.String()
	assert.Contains(t, page, `id="step-0" data-status="error"`)
	assert.Contains(t, page, `id="step-1" data-status="error"`)
}
