// Package transcript splits speaker-labelled transcripts into display lines.
package transcript

import (
	"regexp"
	"strings"

	"clinical-visit-service/internal/models"
)

var speakerLine = regexp.MustCompile(`(?i)^\s*(doctor|patient)\s*:\s*(.*)$`)

// ParseLine tags one line with its speaker. A line without a recognised
// label is returned whole with SpeakerUnknown.
func ParseLine(line string) models.TranscriptLine {
	raw := strings.TrimSpace(line)
	m := speakerLine.FindStringSubmatch(raw)
	if m == nil {
		return models.TranscriptLine{Role: models.SpeakerUnknown, Text: raw, Raw: raw}
	}
	return models.TranscriptLine{
		Role: models.Speaker(strings.ToLower(m[1])),
		Text: strings.TrimSpace(m[2]),
		Raw:  raw,
	}
}

// ParseLines splits text on newlines and parses every non-empty trimmed line.
func ParseLines(text string) []models.TranscriptLine {
	var out []models.TranscriptLine
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, ParseLine(line))
	}
	return out
}

// Join rebuilds transcript text from parsed lines.
func Join(lines []models.TranscriptLine) string {
	raws := make([]string, len(lines))
	for i, l := range lines {
		raws[i] = l.Raw
	}
	return strings.Join(raws, "\n")
}
