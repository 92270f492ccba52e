// Package extract runs competing extraction strategies over one fetched page
// and merges their results field by field into a single record.
package extract

import (
	"bytes"
	"io"
	"log"
	"math"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/curatorlabs/curator/internal/fetch"
	"github.com/curatorlabs/curator/internal/telemetry"
)

const DefaultMaxBodyChars = 20000

// Composite confidence weighting. Body text dominates because a source
// without trustworthy text is worthless regardless of its metadata.
const (
	bodyWeight     = 0.6
	metadataWeight = 0.4
)

// strategyPriors damp strategies that are structurally noisier than others.
var strategyPriors = map[string]float64{
	"article":     0.95,
	"readability": 1.0,
	"dom":         0.8,
	"pdf":         0.9,
}

// Attempt is one strategy's reading of a page. OK reports whether the
// strategy produced usable body text; an attempt without body may still
// contribute metadata fields during the merge.
type Attempt struct {
	Strategy      string
	Title         string
	Authors       []string
	DateText      string
	Body          string
	Excerpt       string
	Confidence    float64
	OK            bool
	FailureReason string
}

// Source is the merged extraction result for one URL, the durable unit
// handed downstream. Either Body is non-empty or Failed is true.
type Source struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Authors       []string  `json:"authors,omitempty"`
	DateText      string    `json:"date_text,omitempty"`
	PublishedAt   time.Time `json:"published_at,omitempty"`
	Body          string    `json:"body"`
	Summary       string    `json:"summary,omitempty"`
	Domain        string    `json:"domain,omitempty"`
	Credibility   float64   `json:"credibility,omitempty"`
	Methods       []string  `json:"extraction_methods,omitempty"`
	Confidence    float64   `json:"confidence"`
	Failed        bool      `json:"failed,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	FetchedAt     time.Time `json:"fetched_at,omitempty"`
}

// Strategy is one independent way of turning a raw page into an Attempt.
// Implementations never panic on malformed input; they report failure
// through the attempt instead.
type Strategy interface {
	Name() string
	Attempt(page fetch.RawPage) Attempt
}

// Options configures an Ensemble.
type Options struct {
	MaxBodyChars int
	Logger       *log.Logger
	Metrics      *telemetry.Metrics
}

// Ensemble runs the closed set of strategies and merges their attempts.
type Ensemble struct {
	strategies   []Strategy
	maxBodyChars int
	logger       *log.Logger
	metrics      *telemetry.Metrics
}

// NewEnsemble builds the standard ensemble: structured-article extraction,
// readability boilerplate removal, generic selector scraping and PDF text.
func NewEnsemble(opts Options) *Ensemble {
	if opts.MaxBodyChars <= 0 {
		opts.MaxBodyChars = DefaultMaxBodyChars
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NewLogger("EXTRACT")
	}
	return &Ensemble{
		strategies:   []Strategy{articleStrategy{}, readabilityStrategy{}, domStrategy{}, pdfStrategy{}},
		maxBodyChars: opts.MaxBodyChars,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
}

// Extract runs every strategy over the page and merges the attempts. It
// never returns an error: when all strategies fail the result is flagged
// failed with confidence 0 and the caller decides what to do with it.
func (e *Ensemble) Extract(page fetch.RawPage) Source {
	attempts := make([]Attempt, 0, len(e.strategies))
	for _, s := range e.strategies {
		a := s.Attempt(page)
		a.Strategy = s.Name()
		a.Title = cleanTitle(a.Title)
		a.Body = truncate(cleanText(a.Body), e.maxBodyChars)
		a.DateText = strings.TrimSpace(a.DateText)
		a.Excerpt = strings.TrimSpace(a.Excerpt)
		a.OK = strings.TrimSpace(a.Body) != ""
		if a.Confidence == 0 {
			a.Confidence = scoreAttempt(a, len(page.Body))
		}
		e.metrics.ObserveAttempt(a.Strategy, a.OK)
		if !a.OK && a.FailureReason != "" {
			e.logger.Printf("%s: strategy %s: %s", page.URL, a.Strategy, a.FailureReason)
		}
		attempts = append(attempts, a)
	}
	return Merge(page, attempts)
}

// Merge combines attempts field-independently: each field takes the value
// from the highest-confidence attempt that produced one, so a weak attempt's
// author can ride along with a strong attempt's body. Ties keep the earlier
// attempt.
func Merge(page fetch.RawPage, attempts []Attempt) Source {
	src := Source{URL: page.URL, FetchedAt: page.FetchedAt}
	contributed := make(map[string]bool)
	var titleConf, authorConf, dateConf, bodyConf, excerptConf float64

	for _, a := range attempts {
		if t := strings.TrimSpace(a.Title); t != "" && (src.Title == "" || a.Confidence > titleConf) {
			src.Title = t
			titleConf = a.Confidence
			contributed[a.Strategy] = true
		}
		if len(a.Authors) > 0 && (len(src.Authors) == 0 || a.Confidence > authorConf) {
			src.Authors = append([]string(nil), a.Authors...)
			authorConf = a.Confidence
			contributed[a.Strategy] = true
		}
		if d := strings.TrimSpace(a.DateText); d != "" && (src.DateText == "" || a.Confidence > dateConf) {
			src.DateText = d
			dateConf = a.Confidence
			contributed[a.Strategy] = true
		}
		if x := strings.TrimSpace(a.Excerpt); x != "" && (src.Summary == "" || a.Confidence > excerptConf) {
			src.Summary = x
			excerptConf = a.Confidence
			contributed[a.Strategy] = true
		}
		if b := strings.TrimSpace(a.Body); b != "" && (src.Body == "" || a.Confidence > bodyConf) {
			src.Body = b
			bodyConf = a.Confidence
			contributed[a.Strategy] = true
		}
	}

	for _, a := range attempts {
		if contributed[a.Strategy] {
			src.Methods = append(src.Methods, a.Strategy)
		}
	}

	if src.Body == "" {
		src.Failed = true
		src.Confidence = 0
		src.FailureReason = "no strategy produced body text"
		return src
	}

	metaConf := math.Max(titleConf, math.Max(authorConf, dateConf))
	if metaConf == 0 {
		metaConf = bodyConf
	}
	src.Confidence = roundConfidence(bodyWeight*bodyConf + metadataWeight*metaConf)
	return src
}

// scoreAttempt estimates reliability from text length, metadata presence and
// the text-to-markup ratio, damped by the strategy prior.
func scoreAttempt(a Attempt, rawLen int) float64 {
	body := strings.TrimSpace(a.Body)
	if body == "" {
		return 0
	}
	score := 0.5 * math.Min(float64(len(body))/2000.0, 1.0)
	if strings.TrimSpace(a.Title) != "" {
		score += 0.15
	}
	if len(a.Authors) > 0 || strings.TrimSpace(a.DateText) != "" {
		score += 0.1
	}
	if rawLen > 0 {
		ratio := float64(len(body)) / float64(rawLen)
		if ratio > 1 {
			ratio = 1
		}
		score += 0.25 * ratio
	}
	prior, ok := strategyPriors[a.Strategy]
	if !ok {
		prior = 0.9
	}
	return roundConfidence(math.Min(score*prior, 1.0))
}

func roundConfidence(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// cleanText collapses runs of whitespace within lines and drops empty lines.
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// truncate cuts s to at most max bytes, preferring the last sentence
// boundary past 80% of the limit and appending an ellipsis otherwise.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	head := s[:cut]
	if idx := strings.LastIndex(head, "."); float64(idx) >= 0.8*float64(max) {
		return head[:idx+1]
	}
	return head + "..."
}

func cleanTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	if parts := strings.Split(title, " | "); len(parts) > 1 && len(parts[0]) >= 10 {
		title = parts[0]
	}
	if len(title) > 200 {
		cut := 200
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = strings.TrimSpace(title[:cut])
	}
	return title
}

func isHTML(page fetch.RawPage) bool {
	switch page.ContentType {
	case "", "text/html", "application/xhtml+xml":
		return !isPDF(page)
	default:
		return false
	}
}

func isPDF(page fetch.RawPage) bool {
	return page.ContentType == "application/pdf" || bytes.HasPrefix(page.Body, []byte("%PDF-"))
}

// decodeHTML converts page bytes to UTF-8, sniffing the charset from the
// content type, BOM or meta tags. On any failure the raw bytes are used.
func decodeHTML(page fetch.RawPage) string {
	reader, err := charset.NewReader(bytes.NewReader(page.Body), page.ContentType)
	if err != nil {
		return string(page.Body)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(page.Body)
	}
	return string(decoded)
}

// blockText gathers paragraph-level text under sel, falling back to the raw
// node text when it holds no block elements.
func blockText(sel *goquery.Selection) string {
	var parts []string
	sel.Find("p, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(sel.Text())
	}
	return strings.Join(parts, "\n")
}

func pageURL(page fetch.RawPage) string {
	if page.FinalURL != "" {
		return page.FinalURL
	}
	return page.URL
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
