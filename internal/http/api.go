package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"clinical-visit-service/internal/models"
	"clinical-visit-service/internal/observability/logging"
	"clinical-visit-service/internal/service/transcript"
	"clinical-visit-service/internal/service/visit"
)

// maxJSONBody bounds transcript request bodies.
const maxJSONBody = 2 << 20

type transcriptRequest struct {
	Transcript string `json:"transcript"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var tooLargeResult = models.TranscriptionResult{
	Message: visit.MsgAudioTooLarge,
	Failure: models.FailureAudioTooLarge,
}

func (h *handlers) apiTranscribe(w http.ResponseWriter, r *http.Request) {
	visitID := uuid.NewString()
	w.Header().Set("X-Visit-ID", visitID)

	upload, err := h.readUpload(w, r)
	switch {
	case errors.Is(err, errUploadTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, tooLargeResult)
		return
	case err != nil:
		logger := logging.WithVisit(visitID, "")
		logger.Warn().Err(err).Msg("Failed to read upload")
		writeJSON(w, http.StatusBadRequest, models.TranscriptionResult{
			Message: visit.MsgMissingAudio,
			Failure: models.FailureMissingAudio,
		})
		return
	}

	res := h.orchestrator.Transcribe(r.Context(), visitID, upload)
	writeJSON(w, transcriptionStatus(res.Failure), res)
}

func (h *handlers) apiReport(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTranscript(w, r)
	if !ok {
		return
	}

	visitID := uuid.NewString()
	w.Header().Set("X-Visit-ID", visitID)

	rep := h.orchestrator.Extract(r.Context(), visitID, req.Transcript)
	writeJSON(w, reportStatus(rep), rep)
}

func (h *handlers) apiTranscriptLines(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTranscript(w, r)
	if !ok {
		return
	}
	lines := transcript.ParseLines(req.Transcript)
	if lines == nil {
		lines = []models.TranscriptLine{}
	}
	writeJSON(w, http.StatusOK, lines)
}

func decodeTranscript(w http.ResponseWriter, r *http.Request) (transcriptRequest, bool) {
	var req transcriptRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be a JSON object with a transcript field"})
		return req, false
	}
	return req, true
}

func transcriptionStatus(f models.FailureKind) int {
	switch f {
	case "":
		return http.StatusOK
	case models.FailureMissingAudio:
		return http.StatusBadRequest
	case models.FailureUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case models.FailureAudioTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadGateway
	}
}

func reportStatus(rep models.VisitReport) int {
	if rep.Outcome() != models.ReportOutcomeFailed {
		return http.StatusOK
	}
	if rep.FactsError != nil && rep.FactsError.Kind == models.FailureMissingTranscript {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
