package analysis

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/curatorlabs/curator/internal/registry"
	"github.com/curatorlabs/curator/internal/telemetry"
)

const (
	keyPointLimit  = 5
	bulletLimit    = 5
	viewpointLimit = 4
	pointMaxChars  = 220
)

// Offline derives findings from the sources themselves with no external
// calls. Given the same sources it always produces the same result, which is
// what makes it a safe fallback for the OpenAI analyzer.
type Offline struct {
	reg    *registry.Registry
	logger *log.Logger
}

func NewOffline(reg *registry.Registry, logger *log.Logger) *Offline {
	if logger == nil {
		logger = telemetry.NewLogger("ANALYSIS")
	}
	return &Offline{reg: reg, logger: logger}
}

func (o *Offline) Analyze(ctx context.Context, topic string, sources []registry.Source, typ Type, _ Tone) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(sources) == 0 {
		return Result{
			Summary:         fmt.Sprintf("No sources were available to analyze for %q.", topic),
			Gaps:            []string{"no usable sources were collected"},
			SourcesAnalyzed: 0,
		}, nil
	}

	result := Result{
		Summary:         o.summarize(topic, sources),
		SourcesAnalyzed: len(sources),
	}
	switch typ {
	case TypeSummary:
		result.KeyPoints = o.keyPoints(topic, sources)
	case TypeTrends:
		result.Trends = trends(sources)
	case TypeViewpoints:
		result.Viewpoints = viewpoints(sources)
	default:
		result.KeyPoints = o.keyPoints(topic, sources)
		result.Trends = trends(sources)
		result.Viewpoints = viewpoints(sources)
		result.Gaps = gaps(sources)
		result.Recommendations = recommendations(result.Gaps)
	}
	return result, nil
}

func (o *Offline) summarize(topic string, sources []registry.Source) string {
	domains := domainCounts(sources)
	var b strings.Builder
	fmt.Fprintf(&b, "Research summary for %q: %d sources across %d domains.", topic, len(sources), len(domains))
	for i, src := range sources {
		if i == bulletLimit {
			break
		}
		line := firstSentence(sourceText(src), pointMaxChars)
		if line == "" {
			continue
		}
		fmt.Fprintf(&b, "\n- %s: %s", sourceTitle(src), line)
	}
	return b.String()
}

// keyPoints attributes findings through registry search when possible, so
// the points quoted are the passages that actually match the topic. Without
// a registry it falls back to source order.
func (o *Offline) keyPoints(topic string, sources []registry.Source) []KeyPoint {
	ranked := sources
	if o.reg != nil {
		hits, err := o.reg.Search(topic, keyPointLimit)
		if err != nil {
			o.logger.Printf("key point search failed: %v", err)
		} else if len(hits) > 0 {
			ranked = make([]registry.Source, 0, len(hits))
			for _, h := range hits {
				ranked = append(ranked, h.Source)
			}
		}
	}

	points := make([]KeyPoint, 0, keyPointLimit)
	for _, src := range ranked {
		if len(points) == keyPointLimit {
			break
		}
		point := firstSentence(sourceText(src), pointMaxChars)
		if point == "" {
			continue
		}
		points = append(points, KeyPoint{
			Point:       point,
			SourceURL:   src.URL,
			SourceTitle: sourceTitle(src),
			Confidence:  src.Confidence,
		})
	}
	return points
}

func trends(sources []registry.Source) []Trend {
	var out []Trend

	minYear, maxYear, dated := 0, 0, 0
	perYear := map[int]int{}
	for _, src := range sources {
		if src.PublishedAt.IsZero() {
			continue
		}
		y := src.PublishedAt.Year()
		perYear[y]++
		dated++
		if minYear == 0 || y < minYear {
			minYear = y
		}
		if y > maxYear {
			maxYear = y
		}
	}
	if dated >= 2 && maxYear > minYear {
		peak, peakCount := topYear(perYear)
		out = append(out, Trend{
			Trend:       fmt.Sprintf("Coverage spans %d to %d", minYear, maxYear),
			Description: fmt.Sprintf("%d of %d dated sources were published in %d.", peakCount, dated, peak),
		})
	}

	domains := domainCounts(sources)
	if top, count := topDomain(domains); count*2 >= len(sources) && len(sources) >= 2 && top != "unknown" {
		t := Trend{
			Trend:       fmt.Sprintf("Reporting concentrates on %s", top),
			Description: fmt.Sprintf("%d of %d sources come from %s.", count, len(sources), top),
		}
		for _, src := range sources {
			if sourceDomain(src) == top && len(t.SourceURLs) < bulletLimit {
				t.SourceURLs = append(t.SourceURLs, src.URL)
			}
		}
		out = append(out, t)
	}
	return out
}

// viewpoints groups coverage by publishing domain, the only perspective
// split that can be read off the data without a model.
func viewpoints(sources []registry.Source) []Viewpoint {
	byDomain := map[string][]registry.Source{}
	for _, src := range sources {
		d := sourceDomain(src)
		byDomain[d] = append(byDomain[d], src)
	}
	if len(byDomain) < 2 {
		return nil
	}

	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	out := make([]Viewpoint, 0, viewpointLimit)
	for _, d := range domains {
		if len(out) == viewpointLimit {
			break
		}
		vp := Viewpoint{Perspective: fmt.Sprintf("Coverage from %s", d)}
		for _, src := range byDomain[d] {
			if len(vp.Evidence) < 3 {
				vp.Evidence = append(vp.Evidence, sourceTitle(src))
			}
			vp.SourceURLs = append(vp.SourceURLs, src.URL)
		}
		out = append(out, vp)
	}
	return out
}

func gaps(sources []registry.Source) []string {
	var out []string
	undated := 0
	for _, src := range sources {
		if src.PublishedAt.IsZero() {
			undated++
		}
	}
	if undated > 0 {
		out = append(out, fmt.Sprintf("%d of %d sources lack a publication date", undated, len(sources)))
	}
	domains := domainCounts(sources)
	if len(domains) == 1 && len(sources) > 1 {
		if top, _ := topDomain(domains); top != "unknown" {
			out = append(out, fmt.Sprintf("all sources come from a single domain (%s)", top))
		}
	}
	if len(sources) < 3 {
		out = append(out, fmt.Sprintf("only %d sources were analyzed; findings may not generalize", len(sources)))
	}
	return out
}

func recommendations(gaps []string) []string {
	out := []string{"Review the highest-credibility sources in full before relying on these findings."}
	for _, g := range gaps {
		switch {
		case strings.Contains(g, "publication date"):
			out = append(out, "Verify publication dates for undated sources before citing them.")
		case strings.Contains(g, "single domain"):
			out = append(out, "Broaden the search to additional outlets for balance.")
		}
	}
	return out
}

func sourceTitle(src registry.Source) string {
	if src.Title != "" {
		return src.Title
	}
	return src.URL
}

func sourceDomain(src registry.Source) string {
	if src.Domain == "" {
		return "unknown"
	}
	return src.Domain
}

func sourceText(src registry.Source) string {
	if src.Summary != "" {
		return src.Summary
	}
	return src.Body
}

func domainCounts(sources []registry.Source) map[string]int {
	counts := map[string]int{}
	for _, src := range sources {
		counts[sourceDomain(src)]++
	}
	return counts
}

// topDomain breaks count ties toward the lexically smaller name so output
// never depends on map order.
func topDomain(counts map[string]int) (string, int) {
	best, bestN := "", 0
	for d, n := range counts {
		if n > bestN || (n == bestN && bestN > 0 && d < best) {
			best, bestN = d, n
		}
	}
	return best, bestN
}

func topYear(counts map[int]int) (int, int) {
	best, bestN := 0, 0
	for y, n := range counts {
		if n > bestN || (n == bestN && bestN > 0 && y < best) {
			best, bestN = y, n
		}
	}
	return best, bestN
}

// firstSentence clips s to its first sentence when one ends inside max
// bytes, otherwise to the last word boundary before max.
func firstSentence(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if idx := strings.Index(s, ". "); idx > 20 && idx < max {
		return s[:idx+1]
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if sp := strings.LastIndex(s[:cut], " "); sp > 0 {
		cut = sp
	}
	return s[:cut] + "..."
}
