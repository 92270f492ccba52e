package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// https://serper.dev/ docs
const serperEndpoint = "https://google.serper.dev/search"

type Serper struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewSerper(apiKey string, timeout time.Duration) *Serper {
	return &Serper{
		apiKey:   apiKey,
		endpoint: serperEndpoint,
		client:   newHTTPClient(timeout),
	}
}

func (s *Serper) Search(ctx context.Context, query string, k int, timeFilter string) ([]Candidate, error) {
	if s.apiKey == "" {
		return nil, errors.New("serper search requires an api key")
	}
	if k <= 0 {
		k = defaultResults
	}

	payload := map[string]any{"q": query, "num": k}
	if t := serperTBS(timeFilter); t != "" {
		payload["tbs"] = t
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper search returned status: %d", resp.StatusCode)
	}

	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := make([]Candidate, 0, len(raw.Organic))
	for _, r := range raw.Organic {
		if len(out) == k {
			break
		}
		if r.Link == "" {
			continue
		}
		out = append(out, Candidate{URL: r.Link, Title: r.Title, Snippet: r.Snippet})
	}
	return out, nil
}

// serperTBS maps the shared time filter onto google tbs recency values.
func serperTBS(filter string) string {
	switch filter {
	case "d", "w", "m", "y":
		return "qdr:" + filter
	default:
		return ""
	}
}
