// Package export renders a completed research run into shareable documents.
// Renderers are pure functions of the ResearchResult: same input, same
// bytes, whatever format is asked for.
package export

import (
	"fmt"
	"time"

	"github.com/curatorlabs/curator/internal/analysis"
	"github.com/curatorlabs/curator/internal/citation"
	"github.com/curatorlabs/curator/internal/registry"
)

// Format names a supported output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatPDF      Format = "pdf"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats in stable order.
func Formats() []Format {
	return []Format{FormatMarkdown, FormatText, FormatPDF, FormatJSON}
}

// Ext returns the file extension for the format, dot included.
func (f Format) Ext() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	case FormatPDF:
		return ".pdf"
	case FormatJSON:
		return ".json"
	default:
		return ""
	}
}

// RenderError reports a format the renderer cannot produce.
type RenderError struct {
	Format string
	Reason string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %s", e.Format, e.Reason)
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatMarkdown, FormatText, FormatPDF, FormatJSON:
		return Format(s), nil
	default:
		return "", &RenderError{Format: s, Reason: "unsupported format"}
	}
}

// ResearchResult is everything one run produced, assembled by the pipeline
// after all registrations complete. Sources keep registry insertion order
// and renderers never re-sort them.
type ResearchResult struct {
	RunID       string                    `json:"run_id"`
	Query       string                    `json:"query"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Style       citation.Style            `json:"citation_style"`
	Sources     []registry.Source         `json:"sources"`
	Citations   map[int64]citation.Record `json:"citations,omitempty"`
	Analysis    analysis.Result           `json:"analysis"`
	Stats       registry.RunStats         `json:"stats"`
}

// Render produces the report in the requested format.
func Render(result ResearchResult, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return renderMarkdown(result)
	case FormatText:
		return renderText(result)
	case FormatPDF:
		return renderPDF(result)
	case FormatJSON:
		return renderJSON(result)
	default:
		return nil, &RenderError{Format: string(format), Reason: "unsupported format"}
	}
}

func sourceLabel(src registry.Source) string {
	if src.Title != "" {
		return src.Title
	}
	return src.URL
}

func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
