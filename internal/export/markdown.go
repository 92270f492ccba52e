package export

import (
	"fmt"
	"strings"

	"github.com/curatorlabs/curator/internal/citation"
	"github.com/curatorlabs/curator/internal/registry"
)

// renderMarkdown writes the report with a fixed section order: summary and
// analysis first, then sources in registry insertion order, references last.
// Sections with nothing to say are skipped entirely.
func renderMarkdown(result ResearchResult) ([]byte, error) {
	var out []string
	push := func(lines ...string) { out = append(out, lines...) }

	push("# Research Report: "+result.Query, "")
	push(fmt.Sprintf("**Generated:** %s", timestamp(result.GeneratedAt)))
	push(fmt.Sprintf("**Citation Style:** %s", strings.ToUpper(string(result.Style))))
	push(fmt.Sprintf("**Sources Analyzed:** %d", result.Analysis.SourcesAnalyzed))
	push("")

	push("## Summary", "")
	summary := result.Analysis.Summary
	if summary == "" {
		summary = "No analysis summary was produced."
	}
	push(summary, "")

	if len(result.Analysis.KeyPoints) > 0 {
		push("## Key Points", "")
		for i, point := range result.Analysis.KeyPoints {
			push(fmt.Sprintf("%d. %s", i+1, point.Point))
			if point.SourceURL != "" {
				push(fmt.Sprintf("   - Source: [%s](%s)", mdLabel(point.SourceTitle, point.SourceURL), point.SourceURL))
			}
		}
		push("")
	}

	if len(result.Analysis.Trends) > 0 {
		push("## Trends and Patterns", "")
		for _, trend := range result.Analysis.Trends {
			push("### " + trend.Trend)
			if trend.Description != "" {
				push(trend.Description)
			}
			pushURLList(&out, trend.SourceURLs)
			push("")
		}
	}

	if len(result.Analysis.Viewpoints) > 0 {
		push("## Different Viewpoints", "")
		for _, vp := range result.Analysis.Viewpoints {
			push("### " + vp.Perspective)
			for _, evidence := range vp.Evidence {
				push("- " + evidence)
			}
			pushURLList(&out, vp.SourceURLs)
			push("")
		}
	}

	if len(result.Analysis.ProsCons.Pros) > 0 || len(result.Analysis.ProsCons.Cons) > 0 {
		push("## Pros and Cons", "")
		if len(result.Analysis.ProsCons.Pros) > 0 {
			push("### Pros")
			for _, item := range result.Analysis.ProsCons.Pros {
				push("- " + item)
			}
		}
		if len(result.Analysis.ProsCons.Cons) > 0 {
			push("### Cons")
			for _, item := range result.Analysis.ProsCons.Cons {
				push("- " + item)
			}
		}
		push("")
	}

	if len(result.Analysis.Gaps) > 0 {
		push("## Knowledge Gaps", "")
		for _, gap := range result.Analysis.Gaps {
			push("- " + gap)
		}
		push("")
	}

	if len(result.Analysis.Recommendations) > 0 {
		push("## Recommendations", "")
		for _, rec := range result.Analysis.Recommendations {
			push("- " + rec)
		}
		push("")
	}

	push("## Sources", "")
	for i, src := range result.Sources {
		push(fmt.Sprintf("%d. [%s](%s)", i+1, mdLabel(src.Title, src.URL), src.URL))
		if detail := sourceDetail(src); detail != "" {
			push("   - " + detail)
		}
	}
	push("")

	push("## References", "")
	for _, src := range result.Sources {
		rec, ok := result.Citations[src.ID]
		if !ok {
			continue
		}
		push(rec.Reference, "")
	}

	return []byte(strings.Join(out, "\n")), nil
}

func pushURLList(out *[]string, urls []string) {
	if len(urls) == 0 {
		return
	}
	*out = append(*out, "**Sources:**")
	for _, u := range urls {
		*out = append(*out, "- "+u)
	}
}

// mdLabel keeps link text safe inside [title](url) syntax.
func mdLabel(title, url string) string {
	label := strings.TrimSpace(title)
	if label == "" {
		label = url
	}
	return strings.NewReplacer("[", "(", "]", ")", "\n", " ").Replace(label)
}

func sourceDetail(src registry.Source) string {
	var parts []string
	if src.Domain != "" {
		parts = append(parts, src.Domain)
	}
	if len(src.Authors) > 0 {
		parts = append(parts, strings.Join(src.Authors, ", "))
	}
	if !src.PublishedAt.IsZero() {
		parts = append(parts, src.PublishedAt.Format("2006-01-02"))
	}
	if src.Confidence > 0 {
		parts = append(parts, fmt.Sprintf("confidence %.2f", src.Confidence))
	}
	return strings.Join(parts, ", ")
}

// referenceLines collects the reference entries in source order, used by the
// renderers that lay references out themselves.
func referenceLines(result ResearchResult) []string {
	out := make([]string, 0, len(result.Sources))
	for _, src := range result.Sources {
		if rec, ok := result.Citations[src.ID]; ok {
			out = append(out, rec.Reference)
		}
	}
	return out
}

// styleLabel names the citation style for section headings.
func styleLabel(style citation.Style) string {
	if style == "" {
		return "APA"
	}
	return strings.ToUpper(string(style))
}
