package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// The HTML endpoint needs no key, which is what makes it a usable fallback.
const duckduckgoEndpoint = "https://html.duckduckgo.com/html/"

type DuckDuckGo struct {
	endpoint string
	client   *http.Client
}

func NewDuckDuckGo(timeout time.Duration) *DuckDuckGo {
	return &DuckDuckGo{
		endpoint: duckduckgoEndpoint,
		client:   newHTTPClient(timeout),
	}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, k int, timeFilter string) ([]Candidate, error) {
	if k <= 0 {
		k = defaultResults
	}

	params := url.Values{}
	params.Set("q", query)
	switch timeFilter {
	case "d", "w", "m", "y":
		params.Set("df", timeFilter)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", d.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo search returned status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var out []Candidate
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		href, _ := link.Attr("href")
		target := uncloakResult(href)
		title := strings.TrimSpace(link.Text())
		if target == "" || title == "" {
			return true
		}
		out = append(out, Candidate{
			URL:     target,
			Title:   title,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
		})
		return len(out) < k
	})
	return out, nil
}

// uncloakResult resolves duckduckgo redirect links, which wrap the real
// target in a uddg query param.
func uncloakResult(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if uddg := u.Query().Get("uddg"); uddg != "" {
		return uddg
	}
	switch u.Scheme {
	case "http", "https":
		return href
	case "":
		if u.Host != "" {
			return "https:" + href
		}
	}
	return ""
}
