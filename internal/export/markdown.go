// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/medibot-tui/internal/attach"
	"github.com/jeranaias/medibot-tui/internal/model"
)

// MarkdownExporter renders a conversation as Markdown with optional YAML
// front matter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter returns a Markdown exporter. A nil opts uses
// DefaultOptions.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export implements Exporter.
func (e *MarkdownExporter) Export(doc Document) ([]byte, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	if doc.ExportedAt.IsZero() {
		doc.ExportedAt = time.Now()
	}

	var b strings.Builder
	if e.options.IncludeMetadata {
		writeFrontMatter(&b, doc)
	}
	fmt.Fprintf(&b, "# %s\n\n", mdEscaper.Replace(doc.Title()))
	if e.options.IncludeMetadata {
		writeSessionInfo(&b, doc)
	}

	b.WriteString("## Conversation\n\n")
	for i, msg := range doc.Messages {
		if i > 0 {
			b.WriteString("---\n\n")
		}
		e.writeMessage(&b, msg)
	}

	fmt.Fprintf(&b, "\n---\n\n*Exported from medibot on %s*\n", doc.ExportedAt.Format("January 2, 2006 at 3:04 PM"))
	return []byte(b.String()), nil
}

func (e *MarkdownExporter) FileExtension() string { return ".md" }

func (e *MarkdownExporter) MimeType() string { return "text/markdown" }

func writeFrontMatter(b *strings.Builder, doc Document) {
	b.WriteString("---\n")
	fmt.Fprintf(b, "title: %s\n", yamlScalar(doc.Title()))
	if doc.Conversation.ID != 0 {
		fmt.Fprintf(b, "conversation_id: %d\n", doc.Conversation.ID)
	}
	if created := doc.Conversation.Created(); !created.IsZero() {
		fmt.Fprintf(b, "date: %s\n", created.Format(time.RFC3339))
	}
	fmt.Fprintf(b, "messages: %d\n", len(doc.Messages))
	if doc.DetectedLanguage != "" {
		fmt.Fprintf(b, "language: %s\n", doc.DetectedLanguage)
	}
	fmt.Fprintf(b, "exported: %s\ngenerator: medibot\n---\n\n", doc.ExportedAt.Format(time.RFC3339))
}

func writeSessionInfo(b *strings.Builder, doc Document) {
	b.WriteString("## Session Information\n\n")
	if doc.Email != "" {
		fmt.Fprintf(b, "- **Account**: %s\n", doc.Email)
	}
	fmt.Fprintf(b, "- **Created**: %s\n- **Messages**: %d\n\n---\n\n",
		formatTimestamp(doc.Conversation.Created()), len(doc.Messages))
}

func (e *MarkdownExporter) writeMessage(b *strings.Builder, msg model.Message) {
	heading := speakerLabel(msg)
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		heading += " <sub>" + formatShortTimestamp(msg.Timestamp) + "</sub>"
	}
	fmt.Fprintf(b, "### %s\n\n", heading)

	if content := strings.TrimSpace(msg.Content); content != "" {
		// Errors are quoted so they stand apart from answers.
		if msg.IsError {
			content = "> " + strings.ReplaceAll(content, "\n", "\n> ")
		}
		b.WriteString(content + "\n\n")
	}
	if len(msg.Files) > 0 {
		b.WriteString("**Attachments**:\n\n")
		for _, f := range msg.Files {
			b.WriteString("- " + attachmentLine(f) + "\n")
		}
		b.WriteString("\n")
	}
}

// attachmentLine is "`name` (mime, size[, WxH])".
func attachmentLine(f model.Attachment) string {
	meta := []string{f.MimeType, attach.HumanSize(f.Size)}
	if f.IsImage() && f.Width > 0 {
		meta = append(meta, fmt.Sprintf("%dx%d", f.Width, f.Height))
	}
	return fmt.Sprintf("`%s` (%s)", f.Name, strings.Join(meta, ", "))
}

var mdEscaper = strings.NewReplacer(`#`, `\#`, `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`)

// yamlScalar returns s as a plain scalar when that is unambiguous and as a
// double-quoted scalar otherwise.
func yamlScalar(s string) string {
	if s == "" || s != strings.TrimSpace(s) || strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") {
		return strconv.Quote(s)
	}
	return s
}
