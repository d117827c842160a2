// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/jeranaias/medibot-tui/internal/attach"
	"github.com/jeranaias/medibot-tui/internal/model"
)

// HTMLExporter renders a standalone HTML page. Message Markdown goes through
// goldmark and then the bluemonday UGC policy before it is embedded.
type HTMLExporter struct {
	options *Options
	md      goldmark.Markdown
	policy  *bluemonday.Policy
}

// NewHTMLExporter returns an HTML exporter. A nil opts uses DefaultOptions.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		options: opts,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:  bluemonday.UGCPolicy(),
	}
}

type htmlPage struct {
	Theme      string
	Title      string
	CSS        template.CSS
	Meta       bool
	Email      string
	Created    string
	Count      int
	Language   string
	Messages   []htmlMessage
	ExportedAt string
}

type htmlMessage struct {
	Class string
	Label string
	Time  string
	Body  template.HTML
	Files []string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en" data-theme="{{.Theme}}">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>{{.CSS}}</style>
</head>
<body>
<div class="container">
<header class="header">
<h1>{{.Title}}</h1>
{{- if .Meta}}
<div class="metadata">
{{- if .Email}}
<span class="meta-item"><strong>Account:</strong> {{.Email}}</span>
{{- end}}
<span class="meta-item"><strong>Created:</strong> {{.Created}}</span>
<span class="meta-item"><strong>Messages:</strong> {{.Count}}</span>
{{- if .Language}}
<span class="meta-item"><strong>Language:</strong> {{.Language}}</span>
{{- end}}
</div>
{{- end}}
</header>
<main class="messages">
{{- range .Messages}}
<div class="message {{.Class}}-message">
<div class="message-header">
<span class="role-label">{{.Label}}</span>
{{- if .Time}}
<span class="timestamp">{{.Time}}</span>
{{- end}}
</div>
<div class="message-content">
{{.Body}}
</div>
{{- with .Files}}
<ul class="attachments">
{{- range .}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
</div>
{{- end}}
</main>
<footer class="footer">Exported from medibot on {{.ExportedAt}}</footer>
</div>
</body>
</html>
`))

// Export implements Exporter.
func (e *HTMLExporter) Export(doc Document) ([]byte, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	if doc.ExportedAt.IsZero() {
		doc.ExportedAt = time.Now()
	}

	page := htmlPage{
		Theme:      "dark",
		Title:      doc.Title(),
		CSS:        template.CSS(pageCSS),
		Meta:       e.options.IncludeMetadata,
		Email:      doc.Email,
		Created:    formatTimestamp(doc.Conversation.Created()),
		Count:      len(doc.Messages),
		Language:   doc.DetectedLanguage,
		ExportedAt: doc.ExportedAt.Format("January 2, 2006 at 3:04 PM"),
	}
	if strings.EqualFold(e.options.Theme, "light") {
		page.Theme = "light"
	}
	for _, msg := range doc.Messages {
		m, err := e.message(msg)
		if err != nil {
			return nil, err
		}
		page.Messages = append(page.Messages, m)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *HTMLExporter) FileExtension() string { return ".html" }

func (e *HTMLExporter) MimeType() string { return "text/html" }

func (e *HTMLExporter) message(msg model.Message) (htmlMessage, error) {
	m := htmlMessage{Class: msg.Sender.String(), Label: speakerLabel(msg)}
	if msg.IsError {
		m.Class = "error"
	}
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		m.Time = formatShortTimestamp(msg.Timestamp)
	}

	var buf bytes.Buffer
	if err := e.md.Convert([]byte(msg.Content), &buf); err != nil {
		return m, fmt.Errorf("render message %s: %w", msg.ID, err)
	}
	// Sanitized above; the template must not escape it again.
	m.Body = template.HTML(e.policy.SanitizeBytes(buf.Bytes()))
	for _, f := range msg.Files {
		m.Files = append(m.Files, fmt.Sprintf("%s %s, %s", f.Name, f.MimeType, attach.HumanSize(f.Size)))
	}
	return m, nil
}

const pageCSS = `
:root { --bg: #1e1e2e; --fg: #cdd6f4; --muted: #a6adc8; --user: #313244; --bot: #181825; --accent: #f5c2e7; --error: #f38ba8; }
[data-theme="light"] { --bg: #fdf6f9; --fg: #2b2b2b; --muted: #6c6c6c; --user: #fde2ec; --bot: #ffffff; --accent: #c2185b; --error: #c62828; }
* { box-sizing: border-box; }
body { margin: 0; background: var(--bg); color: var(--fg); font-family: -apple-system, "Segoe UI", Roboto, sans-serif; line-height: 1.6; }
.container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
.header h1 { color: var(--accent); margin-bottom: .25rem; }
.metadata { display: flex; flex-wrap: wrap; gap: 1rem; color: var(--muted); font-size: .9rem; }
.message { border-radius: 12px; padding: .75rem 1rem; margin: 1rem 0; }
.user-message { background: var(--user); margin-left: 15%; }
.bot-message { background: var(--bot); margin-right: 15%; }
.error-message { border: 1px solid var(--error); color: var(--error); }
.message-header { display: flex; justify-content: space-between; font-size: .85rem; color: var(--muted); }
.role-label { font-weight: 600; }
.message-content pre { overflow-x: auto; padding: .75rem; border-radius: 8px; background: rgba(127,127,127,.15); }
.attachments { font-size: .85rem; color: var(--muted); }
.footer { margin-top: 2rem; text-align: center; color: var(--muted); font-size: .8rem; }
`
