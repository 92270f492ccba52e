package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// https://api.search.brave.com/app/documentation/web-search
const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

type Brave struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewBrave(apiKey string, timeout time.Duration) *Brave {
	return &Brave{
		apiKey:   apiKey,
		endpoint: braveEndpoint,
		client:   newHTTPClient(timeout),
	}
}

func (b *Brave) Search(ctx context.Context, query string, k int, timeFilter string) ([]Candidate, error) {
	if b.apiKey == "" {
		return nil, errors.New("brave search requires an api key")
	}
	if k <= 0 {
		k = defaultResults
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(k))
	if f := braveFreshness(timeFilter); f != "" {
		params.Set("freshness", f)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", b.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave search returned status: %d", resp.StatusCode)
	}

	var raw struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := make([]Candidate, 0, len(raw.Web.Results))
	for _, r := range raw.Web.Results {
		if len(out) == k {
			break
		}
		if r.URL == "" {
			continue
		}
		out = append(out, Candidate{URL: r.URL, Title: r.Title, Snippet: r.Description})
	}
	return out, nil
}

// braveFreshness maps the shared time filter onto brave freshness values.
func braveFreshness(filter string) string {
	switch filter {
	case "d":
		return "pd"
	case "w":
		return "pw"
	case "m":
		return "pm"
	case "y":
		return "py"
	default:
		return ""
	}
}
