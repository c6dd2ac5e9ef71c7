package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"clinical-visit-service/internal/models"
)

// apiClient calls the /v1 JSON API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string, hc *http.Client) *apiClient {
	return &apiClient{base: strings.TrimRight(base, "/"), http: hc}
}

// transcribe uploads the recording at path. The result is returned even when
// the server answers with an error status.
func (c *apiClient) transcribe(ctx context.Context, path string) (models.TranscriptionResult, error) {
	var res models.TranscriptionResult

	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("reading audio file: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", contentTypeFor(path))
	part, err := mw.CreatePart(h)
	if err != nil {
		return res, err
	}
	if _, err := part.Write(data); err != nil {
		return res, err
	}
	if err := mw.Close(); err != nil {
		return res, err
	}

	err = c.post(ctx, "/v1/transcriptions", mw.FormDataContentType(), &body, &res)
	return res, err
}

// report requests facts and the patient report for transcript.
func (c *apiClient) report(ctx context.Context, transcript string) (models.VisitReport, error) {
	var rep models.VisitReport
	payload, err := json.Marshal(map[string]string{"transcript": transcript})
	if err != nil {
		return rep, err
	}
	err = c.post(ctx, "/v1/reports", "application/json", bytes.NewReader(payload), &rep)
	return rep, err
}

func (c *apiClient) post(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}
	decodeErr := json.Unmarshal(raw, out)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("decoding %s response: %w", path, decodeErr)
	}
	return nil
}

func contentTypeFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		return "audio/mpeg"
	}
	return "application/octet-stream"
}
