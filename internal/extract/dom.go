package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/curatorlabs/curator/internal/fetch"
)

// domStrategy is the blunt fallback: walk a ladder of common content
// selectors and scrape whatever text sits under the first match, then fall
// back to every paragraph on the page. Noisy, but it catches sites the
// structured strategies miss.
type domStrategy struct{}

func (domStrategy) Name() string { return "dom" }

var (
	contentSelectors = []string{
		"article",
		"main",
		".content",
		".post-content",
		".article-content",
		".entry-content",
		`div[role="main"]`,
	}
	authorSelectors = []string{".author", ".byline", `[rel="author"]`}
	dateSelectors   = []string{".date", ".published"}
)

func (domStrategy) Attempt(page fetch.RawPage) Attempt {
	a := Attempt{Strategy: "dom"}
	if !isHTML(page) {
		a.FailureReason = "not an html page"
		return a
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(decodeHTML(page)))
	if err != nil {
		a.FailureReason = err.Error()
		return a
	}
	doc.Find("script, noscript, style").Remove()

	a.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	if a.Title == "" {
		a.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	for _, sel := range authorSelectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			addAuthor(&a, strings.TrimPrefix(strings.TrimPrefix(text, "By "), "by "))
			break
		}
	}

	a.DateText = firstAttr(doc, `time[datetime]`, "datetime")
	if a.DateText == "" {
		for _, sel := range dateSelectors {
			if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
				a.DateText = text
				break
			}
		}
	}

	for _, sel := range contentSelectors {
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
		var parts []string
		doc.Find("p, li").Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		a.Body = strings.Join(parts, "\n")
	}
	if a.Body == "" {
		a.FailureReason = "no matching content selectors"
	}
	return a
}
