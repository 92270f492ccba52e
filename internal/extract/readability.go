package extract

import (
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/curatorlabs/curator/internal/fetch"
)

// readabilityStrategy strips boilerplate with the readability algorithm.
// It is the strongest generalist, so it carries the highest prior.
type readabilityStrategy struct{}

func (readabilityStrategy) Name() string { return "readability" }

func (readabilityStrategy) Attempt(page fetch.RawPage) Attempt {
	a := Attempt{Strategy: "readability"}
	if !isHTML(page) {
		a.FailureReason = "not an html page"
		return a
	}

	article, err := readability.FromReader(strings.NewReader(decodeHTML(page)), mustParseURL(pageURL(page)))
	if err != nil {
		a.FailureReason = err.Error()
		return a
	}

	a.Title = strings.TrimSpace(article.Title)
	addAuthor(&a, article.Byline)
	a.Body = article.TextContent
	a.Excerpt = strings.TrimSpace(article.Excerpt)
	if article.PublishedTime != nil {
		a.DateText = article.PublishedTime.Format(time.RFC3339)
	}
	if strings.TrimSpace(a.Body) == "" {
		a.FailureReason = "readability found no content"
	}
	return a
}
