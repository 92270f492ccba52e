package extract

import (
	"strings"
	"testing"

	"github.com/curatorlabs/curator/internal/fetch"
)

func htmlPage(url, body string) fetch.RawPage {
	return fetch.RawPage{URL: url, ContentType: "text/html", Body: []byte(body)}
}

func TestArticleStrategyMetaTags(t *testing.T) {
	t.Parallel()
	page := htmlPage("https://news.example.com/quantum", `<html><head>
<title>Quantum Leap | Example News</title>
<meta property="og:title" content="Quantum Leap">
<meta name="author" content="Jane Doe">
<meta property="article:published_time" content="2024-03-05T10:00:00Z">
<meta property="og:description" content="A big step for quantum hardware.">
</head><body>
<article><p>First paragraph about qubits.</p><p>Second paragraph with results.</p></article>
</body></html>`)

	got := articleStrategy{}.Attempt(page)
	if got.Title != "Quantum Leap" {
		t.Fatalf("Attempt() title got %q, want %q", got.Title, "Quantum Leap")
	}
	if len(got.Authors) != 1 || got.Authors[0] != "Jane Doe" {
		t.Fatalf("Attempt() authors got %v, want [Jane Doe]", got.Authors)
	}
	if got.DateText != "2024-03-05T10:00:00Z" {
		t.Fatalf("Attempt() date got %q", got.DateText)
	}
	if got.Excerpt != "A big step for quantum hardware." {
		t.Fatalf("Attempt() excerpt got %q", got.Excerpt)
	}
	want := "First paragraph about qubits.\nSecond paragraph with results."
	if got.Body != want {
		t.Fatalf("Attempt() body got %q, want %q", got.Body, want)
	}
}

func TestArticleStrategyJSONLD(t *testing.T) {
	t.Parallel()
	page := htmlPage("https://news.example.com/ld", `<html><head>
<script type="application/ld+json">
{"@type":"NewsArticle","headline":"Graph Databases in Production","datePublished":"2023-11-02",
 "author":{"@type":"Person","name":"Sam Rivera"},"description":"Field notes."}
</script>
</head><body>
<main><p>Teams keep reaching for graph stores.</p></main>
</body></html>`)

	got := articleStrategy{}.Attempt(page)
	if got.Title != "Graph Databases in Production" {
		t.Fatalf("Attempt() title got %q", got.Title)
	}
	if len(got.Authors) != 1 || got.Authors[0] != "Sam Rivera" {
		t.Fatalf("Attempt() authors got %v, want [Sam Rivera]", got.Authors)
	}
	if got.DateText != "2023-11-02" {
		t.Fatalf("Attempt() date got %q", got.DateText)
	}
	if got.Excerpt != "Field notes." {
		t.Fatalf("Attempt() excerpt got %q", got.Excerpt)
	}
	if got.Body != "Teams keep reaching for graph stores." {
		t.Fatalf("Attempt() body got %q", got.Body)
	}
}

func TestArticleStrategyJSONLDGraph(t *testing.T) {
	t.Parallel()
	page := htmlPage("https://news.example.com/graph", `<html><head>
<script type="application/ld+json">
{"@graph":[{"@type":"WebPage","name":"ignored"},{"@type":"Article","headline":"Nested Headline","author":["Ada Byron","Alan Turing"]}]}
</script>
</head><body><article><p>Body text.</p></article></body></html>`)

	got := articleStrategy{}.Attempt(page)
	if got.Title != "Nested Headline" {
		t.Fatalf("Attempt() title got %q", got.Title)
	}
	if len(got.Authors) != 2 || got.Authors[0] != "Ada Byron" || got.Authors[1] != "Alan Turing" {
		t.Fatalf("Attempt() authors got %v", got.Authors)
	}
}

func TestArticleStrategyNoContainer(t *testing.T) {
	t.Parallel()
	page := htmlPage("https://example.com/bare", `<html><body><div><span>loose text</span></div></body></html>`)

	got := articleStrategy{}.Attempt(page)
	if got.Body != "" {
		t.Fatalf("Attempt() body got %q, want empty", got.Body)
	}
	if got.FailureReason == "" {
		t.Fatalf("Attempt() expected a failure reason for unstructured page")
	}
}

func TestArticleStrategyRejectsPDF(t *testing.T) {
	t.Parallel()
	page := fetch.RawPage{URL: "https://example.com/doc.pdf", ContentType: "application/pdf", Body: []byte("%PDF-1.4")}
	if got := (articleStrategy{}).Attempt(page); got.FailureReason != "not an html page" {
		t.Fatalf("Attempt() failure got %q, want %q", got.FailureReason, "not an html page")
	}
}

func TestDOMStrategySelectors(t *testing.T) {
	t.Parallel()
	page := htmlPage("https://blog.example.com/post", `<html><head><title>Fallback Title</title></head><body>
<h1>Observability on a Budget</h1>
<div class="byline">By Chris Park</div>
<time datetime="2022-08-19">August 19, 2022</time>
<div class="post-content"><p>Start with logs.</p><p>Then add traces.</p></div>
</body></html>`)

	got := domStrategy{}.Attempt(page)
	if got.Title != "Observability on a Budget" {
		t.Fatalf("Attempt() title got %q", got.Title)
	}
	if len(got.Authors) != 1 || got.Authors[0] != "Chris Park" {
		t.Fatalf("Attempt() authors got %v, want [Chris Park]", got.Authors)
	}
	if got.DateText != "2022-08-19" {
		t.Fatalf("Attempt() date got %q", got.DateText)
	}
	if got.Body != "Start with logs.\nThen add traces." {
		t.Fatalf("Attempt() body got %q", got.Body)
	}
}

func TestDOMStrategyParagraphFallback(t *testing.T) {
	t.Parallel()
	page := htmlPage("https://example.com/flat", `<html><body>
<p>Paragraph one.</p>
<div><p>Paragraph two.</p></div>
</body></html>`)

	got := domStrategy{}.Attempt(page)
	if got.Body != "Paragraph one.\nParagraph two." {
		t.Fatalf("Attempt() body got %q", got.Body)
	}
}

func TestDOMStrategyEmptyPage(t *testing.T) {
	t.Parallel()
	got := domStrategy{}.Attempt(htmlPage("https://example.com/none", "<html><body></body></html>"))
	if got.Body != "" || got.FailureReason == "" {
		t.Fatalf("Attempt() got body %q reason %q, want empty body with reason", got.Body, got.FailureReason)
	}
}

func TestReadabilityStrategy(t *testing.T) {
	t.Parallel()
	para := "<p>" + strings.Repeat("Service meshes move retry logic out of application code and into the data plane. ", 4) + "</p>"
	page := htmlPage("https://example.com/essay", `<html><head><title>Service Mesh Tradeoffs</title></head><body><article>`+
		strings.Repeat(para, 6)+`</article></body></html>`)

	got := readabilityStrategy{}.Attempt(page)
	if strings.TrimSpace(got.Body) == "" {
		t.Fatalf("Attempt() body empty, reason %q", got.FailureReason)
	}
	if !strings.Contains(got.Body, "Service meshes move retry logic") {
		t.Fatalf("Attempt() body missing article text")
	}
	if got.Title != "Service Mesh Tradeoffs" {
		t.Fatalf("Attempt() title got %q", got.Title)
	}
}

func TestReadabilityStrategyRejectsPDF(t *testing.T) {
	t.Parallel()
	page := fetch.RawPage{URL: "https://example.com/doc.pdf", ContentType: "application/pdf"}
	if got := (readabilityStrategy{}).Attempt(page); got.FailureReason != "not an html page" {
		t.Fatalf("Attempt() failure got %q", got.FailureReason)
	}
}

func TestPDFStrategyRejectsHTML(t *testing.T) {
	t.Parallel()
	got := pdfStrategy{}.Attempt(htmlPage("https://example.com/page", "<html></html>"))
	if got.FailureReason != "not a pdf document" {
		t.Fatalf("Attempt() failure got %q, want %q", got.FailureReason, "not a pdf document")
	}
}

func TestPDFStrategyMalformed(t *testing.T) {
	t.Parallel()
	page := fetch.RawPage{
		URL:         "https://example.com/broken.pdf",
		ContentType: "application/pdf",
		Body:        []byte("%PDF-1.4 this is not a real document"),
	}

	got := pdfStrategy{}.Attempt(page)
	if got.Body != "" {
		t.Fatalf("Attempt() body got %q, want empty for malformed pdf", got.Body)
	}
	if got.FailureReason == "" {
		t.Fatalf("Attempt() expected a failure reason for malformed pdf")
	}
}

func TestPDFDate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "full literal", in: "D:20240115093000Z", want: "20240115"},
		{name: "date only", in: "D:20231201", want: "20231201"},
		{name: "too short", in: "D:2024", want: ""},
		{name: "not numeric", in: "yesterday", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := pdfDate(tt.in); got != tt.want {
				t.Fatalf("pdfDate(%q) got %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTitleFromPath(t *testing.T) {
	t.Parallel()
	got := titleFromPath("https://example.com/papers/deep-learning_survey.pdf")
	if got != "deep learning survey" {
		t.Fatalf("titleFromPath() got %q, want %q", got, "deep learning survey")
	}
}
