// Package websearch turns a research topic into candidate URLs. Brave and
// Serper cover keyed search; a keyless DuckDuckGo HTML scrape backs them up,
// so discovery still works with no API key at all.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/curatorlabs/curator/internal/telemetry"
)

const (
	defaultResults = 10
	defaultTimeout = 15 * time.Second

	searchUserAgent = "curator/0.1 (+https://github.com/curatorlabs/curator)"
)

var ErrUnsupportedProvider = errors.New("unsupported search provider")

// Candidate is one discovered URL with whatever the provider said about it.
type Candidate struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
}

// Searcher finds up to k candidates for a query. timeFilter is one of
// "", "d", "w", "m" or "y"; providers map it onto their own recency params
// and ignore values they cannot express.
type Searcher interface {
	Search(ctx context.Context, query string, k int, timeFilter string) ([]Candidate, error)
}

type Provider string

const (
	ProviderBrave      Provider = "brave"
	ProviderSerper     Provider = "serper"
	ProviderDuckDuckGo Provider = "duckduckgo"
)

// Options configures the searcher factory.
type Options struct {
	Provider Provider
	APIKey   string
	Timeout  time.Duration
	Logger   *log.Logger
}

// New builds the named provider. The empty provider means DuckDuckGo, the
// only one that works without a key.
func New(opts Options) (Searcher, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(string(opts.Provider)))) {
	case ProviderBrave:
		return NewBrave(opts.APIKey, opts.Timeout), nil
	case ProviderSerper:
		return NewSerper(opts.APIKey, opts.Timeout), nil
	case "", ProviderDuckDuckGo:
		return NewDuckDuckGo(opts.Timeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, opts.Provider)
	}
}

// NewWithFallback builds the named provider chained onto DuckDuckGo, so a
// keyed provider that errors or comes back empty still yields candidates.
func NewWithFallback(opts Options) (Searcher, error) {
	primary, err := New(opts)
	if err != nil {
		return nil, err
	}
	if _, ok := primary.(*DuckDuckGo); ok {
		return primary, nil
	}
	return NewChain(opts.Logger, primary, NewDuckDuckGo(opts.Timeout)), nil
}

// Chain tries each searcher in order until one returns candidates. An error
// from one provider moves on to the next; only when every provider comes
// back empty does the last error surface.
type Chain struct {
	searchers []Searcher
	logger    *log.Logger
}

func NewChain(logger *log.Logger, searchers ...Searcher) Chain {
	if logger == nil {
		logger = telemetry.NewLogger("SEARCH")
	}
	return Chain{searchers: searchers, logger: logger}
}

func (c Chain) Search(ctx context.Context, query string, k int, timeFilter string) ([]Candidate, error) {
	var lastErr error
	for _, s := range c.searchers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := s.Search(ctx, query, k, timeFilter)
		if err != nil {
			lastErr = err
			c.logger.Printf("search provider failed, trying next: %v", err)
			continue
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, lastErr
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
