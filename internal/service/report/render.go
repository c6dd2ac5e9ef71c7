// Package report renders visit report markdown for the browser.
package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	// Filename is the name offered when the report is downloaded.
	Filename = "visit-report.md"
	// ContentType is served with the raw markdown download.
	ContentType = "text/markdown; charset=utf-8"
)

var (
	md     = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy = bluemonday.UGCPolicy()
)

// Render converts report markdown into sanitised HTML safe to embed in a page.
func Render(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render report markdown: %w", err)
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), nil
}
