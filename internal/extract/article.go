package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/curatorlabs/curator/internal/fetch"
)

// articleStrategy reads the page the way publishers describe it: OpenGraph
// and article meta tags, JSON-LD Article blocks, and the semantic article
// containers. It only trusts structure, so unstructured pages fail here and
// fall through to the other strategies.
type articleStrategy struct{}

func (articleStrategy) Name() string { return "article" }

var articleContainers = []string{"article", "main", `div[role="main"]`}

func (articleStrategy) Attempt(page fetch.RawPage) Attempt {
	a := Attempt{Strategy: "article"}
	if !isHTML(page) {
		a.FailureReason = "not an html page"
		return a
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(decodeHTML(page)))
	if err != nil {
		a.FailureReason = err.Error()
		return a
	}

	a.Title = firstAttr(doc, `meta[property="og:title"]`, "content")
	if a.Title == "" {
		a.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	addAuthor(&a, firstAttr(doc, `meta[name="author"]`, "content"))
	addAuthor(&a, firstAttr(doc, `meta[property="article:author"]`, "content"))
	a.DateText = firstNonEmpty(
		firstAttr(doc, `meta[property="article:published_time"]`, "content"),
		firstAttr(doc, `meta[name="date"]`, "content"),
		firstAttr(doc, `meta[name="pubdate"]`, "content"),
		firstAttr(doc, `time[datetime]`, "datetime"),
	)
	a.Excerpt = firstNonEmpty(
		firstAttr(doc, `meta[property="og:description"]`, "content"),
		firstAttr(doc, `meta[name="description"]`, "content"),
	)
	parseJSONLD(doc, &a)

	doc.Find("script, noscript, style").Remove()
	for _, sel := range articleContainers {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := blockText(node); text != "" {
			a.Body = text
			break
		}
	}
	if a.Body == "" {
		a.FailureReason = "no structured article container"
	}
	return a
}

var articleTypes = map[string]bool{
	"Article":          true,
	"NewsArticle":      true,
	"BlogPosting":      true,
	"ScholarlyArticle": true,
	"Report":           true,
}

// parseJSONLD fills attempt gaps from embedded JSON-LD Article objects.
// Publisher markup here is freeform, so everything is best-effort.
func parseJSONLD(doc *goquery.Document, a *Attempt) {
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return
		}
		for _, obj := range ldObjects(payload) {
			if !articleTypes[ldString(obj["@type"])] {
				continue
			}
			if a.Title == "" {
				a.Title = ldString(obj["headline"])
			}
			if a.DateText == "" {
				a.DateText = ldString(obj["datePublished"])
			}
			if len(a.Authors) == 0 {
				for _, name := range ldAuthors(obj["author"]) {
					addAuthor(a, name)
				}
			}
			if a.Excerpt == "" {
				a.Excerpt = ldString(obj["description"])
			}
		}
	})
}

// ldObjects flattens a JSON-LD payload (single object, array, or @graph)
// into its candidate objects.
func ldObjects(payload any) []map[string]any {
	var out []map[string]any
	switch v := payload.(type) {
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			out = append(out, ldObjects(graph)...)
		}
		out = append(out, v)
	case []any:
		for _, item := range v {
			out = append(out, ldObjects(item)...)
		}
	}
	return out
}

func ldAuthors(v any) []string {
	switch author := v.(type) {
	case string:
		return []string{author}
	case map[string]any:
		if name := ldString(author["name"]); name != "" {
			return []string{name}
		}
	case []any:
		var names []string
		for _, item := range author {
			names = append(names, ldAuthors(item)...)
		}
		return names
	}
	return nil
}

func ldString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func addAuthor(a *Attempt, name string) {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return
	}
	for _, existing := range a.Authors {
		if strings.EqualFold(existing, name) {
			return
		}
	}
	a.Authors = append(a.Authors, name)
}

func firstAttr(doc *goquery.Document, selector, attr string) string {
	value, _ := doc.Find(selector).First().Attr(attr)
	return strings.TrimSpace(value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
