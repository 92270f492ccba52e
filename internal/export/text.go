package export

import (
	"fmt"
	"strings"
	"time"
)

// renderText writes the same report as the markdown renderer in plain UTF-8:
// underlined section labels, indented attributions, and the citations
// appended as one labeled section at the end.
func renderText(result ResearchResult) ([]byte, error) {
	var b strings.Builder
	section := func(label string) {
		b.WriteString(label + "\n")
		b.WriteString(strings.Repeat("-", len(label)) + "\n")
	}

	b.WriteString("Research Report: " + result.Query + "\n")
	b.WriteString("Generated: " + timestamp(result.GeneratedAt) + "\n")
	fmt.Fprintf(&b, "Sources analyzed: %d\n\n", result.Analysis.SourcesAnalyzed)

	section("Summary")
	summary := result.Analysis.Summary
	if summary == "" {
		summary = "No analysis summary was produced."
	}
	b.WriteString(summary + "\n\n")

	if len(result.Analysis.KeyPoints) > 0 {
		section("Key Points")
		for i, point := range result.Analysis.KeyPoints {
			fmt.Fprintf(&b, "%d. %s\n", i+1, point.Point)
			if point.SourceURL != "" {
				fmt.Fprintf(&b, "   Source: %s\n", point.SourceURL)
			}
		}
		b.WriteString("\n")
	}

	if len(result.Analysis.Trends) > 0 {
		section("Trends and Patterns")
		for _, trend := range result.Analysis.Trends {
			b.WriteString("* " + trend.Trend + "\n")
			if trend.Description != "" {
				b.WriteString("  " + trend.Description + "\n")
			}
		}
		b.WriteString("\n")
	}

	if len(result.Analysis.Viewpoints) > 0 {
		section("Different Viewpoints")
		for _, vp := range result.Analysis.Viewpoints {
			b.WriteString("* " + vp.Perspective + "\n")
			for _, evidence := range vp.Evidence {
				b.WriteString("  - " + evidence + "\n")
			}
		}
		b.WriteString("\n")
	}

	if len(result.Analysis.Gaps) > 0 {
		section("Knowledge Gaps")
		for _, gap := range result.Analysis.Gaps {
			b.WriteString("- " + gap + "\n")
		}
		b.WriteString("\n")
	}

	if len(result.Analysis.Recommendations) > 0 {
		section("Recommendations")
		for _, rec := range result.Analysis.Recommendations {
			b.WriteString("- " + rec + "\n")
		}
		b.WriteString("\n")
	}

	section("Sources")
	for i, src := range result.Sources {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, sourceLabel(src), src.URL)
	}
	b.WriteString("\n")

	section("References (" + styleLabel(result.Style) + ")")
	for _, ref := range referenceLines(result) {
		b.WriteString(ref + "\n")
	}

	return []byte(b.String()), nil
}

// HeaderedText prepends the research-output file header to a rendered
// payload. The timestamp comes from the result, not the clock, so saved
// bytes stay stable for a given report.
func HeaderedText(generatedAt time.Time, payload []byte) []byte {
	header := fmt.Sprintf("--- Research Output ---\nTimestamp: %s\n\n", timestamp(generatedAt))
	out := make([]byte, 0, len(header)+len(payload)+2)
	out = append(out, header...)
	out = append(out, payload...)
	return append(out, '\n', '\n')
}
