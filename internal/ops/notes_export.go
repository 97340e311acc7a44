package ops

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// Note export formats
const (
	NotesFormatMarkdown = "markdown"
	NotesFormatHTML     = "html"
)

// ExportNotesInput contains parameters for the ExportNotes operation.
type ExportNotesInput struct {
	ArticleID string `json:"article_id,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Format    string `json:"format,omitempty"` // default: markdown
}

// ExportNotesOutput contains the result of the ExportNotes operation.
type ExportNotesOutput struct {
	Format  string `json:"format"`
	Count   int    `json:"count"`
	Content string `json:"content"`
}

// ExportNotes renders notes, newest first, as a markdown document or as
// HTML converted from that markdown.
func ExportNotes(ds *dataset.Dataset, input ExportNotesInput) (*ExportNotesOutput, error) {
	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" {
		format = NotesFormatMarkdown
	}
	if format != NotesFormatMarkdown && format != NotesFormatHTML {
		return nil, errors.NewInvalidRequest("format must be one of: markdown, html")
	}

	notes := selectNotes(ds, input.ArticleID, input.Tag)
	md := NotesMarkdown(notes)

	out := &ExportNotesOutput{Format: format, Count: len(notes), Content: md}
	if format == NotesFormatHTML {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(md), &buf); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("render notes: %w", err))
		}
		out.Content = buf.String()
	}
	return out, nil
}

// NotesMarkdown renders notes in the given order as one markdown document.
func NotesMarkdown(notes []model.Note) string {
	var b strings.Builder
	b.WriteString("# Notes\n")
	for _, n := range notes {
		b.WriteString("\n## ")
		b.WriteString(firstNonEmpty(n.ArticleTitle, n.Citation.Title, "Untitled"))
		b.WriteString("\n\n")

		if cite := citationLine(n); cite != "" {
			b.WriteString(cite)
			b.WriteString("\n\n")
		}
		if text := strings.TrimSpace(n.HighlightedText); text != "" {
			for _, line := range strings.Split(text, "\n") {
				b.WriteString("> ")
				b.WriteString(line)
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
		if ann := strings.TrimSpace(n.Annotation); ann != "" {
			b.WriteString(ann)
			b.WriteString("\n\n")
		}
		if len(n.Tags) > 0 {
			b.WriteString("Tags: ")
			b.WriteString(strings.Join(n.Tags, ", "))
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "_Noted %s_\n", n.CreatedAt.UTC().Format("2006-01-02 15:04"))
	}
	return b.String()
}

// citationLine formats author, source, date and link, skipping blanks.
func citationLine(n model.Note) string {
	var parts []string
	for _, p := range []string{n.Citation.Author, n.Citation.Source, n.Citation.Date} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if u := firstNonEmpty(n.Citation.URL, n.ArticleURL); u != "" {
		parts = append(parts, fmt.Sprintf("<%s>", u))
	}
	return strings.Join(parts, " · ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
