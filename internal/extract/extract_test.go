package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/curatorlabs/curator/internal/fetch"
)

func TestMergeFieldIndependent(t *testing.T) {
	t.Parallel()
	page := fetch.RawPage{URL: "https://example.com/a", FetchedAt: time.Now()}
	attempts := []Attempt{
		{Strategy: "article", Title: "The Title", Confidence: 0.8},
		{Strategy: "dom", Body: "Body text from the dom strategy.", Confidence: 0.5},
	}

	got := Merge(page, attempts)
	if got.Title != "The Title" {
		t.Fatalf("Merge() title got %q, want %q", got.Title, "The Title")
	}
	if got.Body != "Body text from the dom strategy." {
		t.Fatalf("Merge() body got %q, want body from dom attempt", got.Body)
	}
	if got.Failed {
		t.Fatalf("Merge() flagged failed with a body present")
	}
	if len(got.Methods) != 2 || got.Methods[0] != "article" || got.Methods[1] != "dom" {
		t.Fatalf("Merge() methods got %v, want [article dom]", got.Methods)
	}
}

func TestMergeWeakAttemptContributesAuthor(t *testing.T) {
	t.Parallel()
	page := fetch.RawPage{URL: "https://example.com/a"}
	attempts := []Attempt{
		{Strategy: "readability", Body: "Strong body paragraph.", Confidence: 0.9},
		{Strategy: "dom", Authors: []string{"Jane Doe"}, Confidence: 0.4},
	}

	got := Merge(page, attempts)
	if got.Body != "Strong body paragraph." {
		t.Fatalf("Merge() body got %q, want the high-confidence body", got.Body)
	}
	if len(got.Authors) != 1 || got.Authors[0] != "Jane Doe" {
		t.Fatalf("Merge() authors got %v, want [Jane Doe]", got.Authors)
	}
	// 0.6*0.9 + 0.4*0.4
	if got.Confidence != 0.7 {
		t.Fatalf("Merge() confidence got %v, want 0.7", got.Confidence)
	}
}

func TestMergeAllFailed(t *testing.T) {
	t.Parallel()
	page := fetch.RawPage{URL: "https://example.com/a"}
	attempts := []Attempt{
		{Strategy: "article", FailureReason: "no structured article container"},
		{Strategy: "dom", FailureReason: "no matching content selectors"},
	}

	got := Merge(page, attempts)
	if !got.Failed {
		t.Fatalf("Merge() with no bodies should be flagged failed")
	}
	if got.Confidence != 0 {
		t.Fatalf("Merge() failed confidence got %v, want 0", got.Confidence)
	}
	if got.FailureReason == "" {
		t.Fatalf("Merge() failed result should carry a failure reason")
	}
	if got.URL != page.URL {
		t.Fatalf("Merge() url got %q, want %q", got.URL, page.URL)
	}
}

func TestMergeTieKeepsEarlierAttempt(t *testing.T) {
	t.Parallel()
	page := fetch.RawPage{URL: "https://example.com/a"}
	attempts := []Attempt{
		{Strategy: "article", Title: "First", Body: "body", Confidence: 0.5},
		{Strategy: "dom", Title: "Second", Confidence: 0.5},
	}

	if got := Merge(page, attempts); got.Title != "First" {
		t.Fatalf("Merge() tie got %q, want earlier attempt to win", got.Title)
	}
}

func TestMergeHigherConfidenceReplaces(t *testing.T) {
	t.Parallel()
	page := fetch.RawPage{URL: "https://example.com/a"}
	attempts := []Attempt{
		{Strategy: "dom", Title: "Weak", Body: "short", Confidence: 0.3},
		{Strategy: "article", Title: "Strong", Body: "much longer body text", Confidence: 0.8},
	}

	got := Merge(page, attempts)
	if got.Title != "Strong" {
		t.Fatalf("Merge() title got %q, want the higher-confidence title", got.Title)
	}
	if got.Body != "much longer body text" {
		t.Fatalf("Merge() body got %q, want the higher-confidence body", got.Body)
	}
}

func TestMergeBodyOnly(t *testing.T) {
	t.Parallel()
	page := fetch.RawPage{URL: "https://example.com/a"}
	attempts := []Attempt{
		{Strategy: "readability", Body: "only a body", Confidence: 0.6},
	}

	got := Merge(page, attempts)
	// No metadata at all: the composite falls back to the body confidence.
	if got.Confidence != 0.6 {
		t.Fatalf("Merge() confidence got %v, want 0.6", got.Confidence)
	}
}

func TestScoreAttempt(t *testing.T) {
	t.Parallel()
	if got := scoreAttempt(Attempt{Strategy: "dom"}, 100); got != 0 {
		t.Fatalf("scoreAttempt() empty body got %v, want 0", got)
	}

	long := Attempt{Strategy: "readability", Title: "T", DateText: "2024", Body: strings.Repeat("a", 3000)}
	got := scoreAttempt(long, 3000)
	// 0.5 + 0.15 + 0.1 + 0.25, prior 1.0
	if got != 1.0 {
		t.Fatalf("scoreAttempt() got %v, want 1.0", got)
	}

	// Same attempt through the dom prior scores lower.
	long.Strategy = "dom"
	if lower := scoreAttempt(long, 3000); lower >= got {
		t.Fatalf("scoreAttempt() dom prior got %v, want below %v", lower, got)
	}
}

func TestCleanText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "collapses runs of spaces", in: "a   b\t c", want: "a b c"},
		{name: "drops empty lines", in: "first\n\n\n  \nsecond", want: "first\nsecond"},
		{name: "empty input", in: "", want: ""},
		{name: "keeps line structure", in: "one two\nthree   four", want: "one two\nthree four"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanText(tt.in); got != tt.want {
				t.Fatalf("cleanText() got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short text untouched", in: "short", max: 100, want: "short"},
		{name: "cuts at late sentence boundary", in: "First sentence here. Second one. Trailing tail text", max: 38, want: "First sentence here. Second one."},
		{name: "ellipsis without boundary", in: strings.Repeat("a", 50), max: 10, want: "aaaaaaaaaa..."},
		{name: "early period ignored", in: "A. " + strings.Repeat("b", 60), max: 30, want: "A. " + strings.Repeat("b", 27) + "..."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.in, tt.max); got != tt.want {
				t.Fatalf("truncate() got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateMultibyte(t *testing.T) {
	t.Parallel()
	in := strings.Repeat("é", 40)
	got := truncate(in, 21)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate() got %q, want ellipsis suffix", got)
	}
	for _, r := range got {
		if r != 'é' && r != '.' {
			t.Fatalf("truncate() split a rune, got %q", got)
		}
	}
}

func TestCleanTitle(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "collapses whitespace", in: "  A \n Title  ", want: "A Title"},
		{name: "strips site suffix", in: "Quantum Computing Advances | Example News", want: "Quantum Computing Advances"},
		{name: "keeps short first segment", in: "Update | Example News Network", want: "Update | Example News Network"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanTitle(tt.in); got != tt.want {
				t.Fatalf("cleanTitle() got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsHTMLAndIsPDF(t *testing.T) {
	t.Parallel()
	html := fetch.RawPage{ContentType: "text/html", Body: []byte("<html></html>")}
	if !isHTML(html) {
		t.Fatalf("isHTML() got false for text/html")
	}
	pdfPage := fetch.RawPage{ContentType: "application/pdf", Body: []byte("%PDF-1.4")}
	if isHTML(pdfPage) {
		t.Fatalf("isHTML() got true for a pdf page")
	}
	if !isPDF(pdfPage) {
		t.Fatalf("isPDF() got false for application/pdf")
	}
	sniffed := fetch.RawPage{ContentType: "", Body: []byte("%PDF-1.7 rest")}
	if !isPDF(sniffed) {
		t.Fatalf("isPDF() got false for %%PDF magic bytes")
	}
	if isPDF(fetch.RawPage{ContentType: "text/plain", Body: []byte("plain")}) {
		t.Fatalf("isPDF() got true for plain text")
	}
}

func TestEnsembleExtractTruncatesBody(t *testing.T) {
	t.Parallel()
	paragraph := strings.Repeat("Sentence with enough words to matter. ", 40)
	page := fetch.RawPage{
		URL:         "https://example.com/long",
		ContentType: "text/html",
		Body:        []byte("<html><head><title>Long Article</title></head><body><article><p>" + paragraph + "</p></article></body></html>"),
	}

	e := NewEnsemble(Options{MaxBodyChars: 200})
	got := e.Extract(page)
	if got.Failed {
		t.Fatalf("Extract() failed: %s", got.FailureReason)
	}
	if len(got.Body) > 210 {
		t.Fatalf("Extract() body length %d, want truncated near 200", len(got.Body))
	}
	if got.Title != "Long Article" {
		t.Fatalf("Extract() title got %q, want %q", got.Title, "Long Article")
	}
}

func TestEnsembleExtractUnusableContent(t *testing.T) {
	t.Parallel()
	page := fetch.RawPage{
		URL:         "https://example.com/empty",
		ContentType: "text/html",
		Body:        []byte("<html><body></body></html>"),
	}

	got := NewEnsemble(Options{}).Extract(page)
	if !got.Failed {
		t.Fatalf("Extract() on empty page should be flagged failed")
	}
	if got.Confidence != 0 {
		t.Fatalf("Extract() failed confidence got %v, want 0", got.Confidence)
	}
}
