package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"clinical-visit-service/internal/models"
)

// multipartOverhead is allowed on top of the audio cap for form boundaries
// and headers.
const multipartOverhead = 1 << 20

var errUploadTooLarge = errors.New("upload exceeds size limit")

// readUpload reads the "audio" multipart field. A request without the field
// returns a nil upload and no error; the orchestrator reports it as missing.
func (h *handlers) readUpload(w http.ResponseWriter, r *http.Request) (*models.AudioUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxAudioBytes+multipartOverhead)

	file, header, err := r.FormFile("audio")
	if err != nil {
		if isTooLarge(err) {
			return nil, errUploadTooLarge
		}
		return nil, nil
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxAudioBytes+1))
	if err != nil {
		if isTooLarge(err) {
			return nil, errUploadTooLarge
		}
		return nil, err
	}
	if int64(len(data)) > h.maxAudioBytes {
		return nil, errUploadTooLarge
	}

	return &models.AudioUpload{
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	// mime/multipart does not always wrap the reader error
	return strings.Contains(err.Error(), "request body too large")
}
