package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/curatorlabs/curator/internal/telemetry"
)

const (
	DefaultTimeout   = 20 * time.Second
	DefaultBackoff   = 300 * time.Millisecond
	DefaultMaxBytes  = 2 << 20
	DefaultUserAgent = "curator/0.1 (+https://github.com/curatorlabs/curator)"
)

// ErrorKind classifies a fetch failure.
type ErrorKind string

const (
	KindTimeout      ErrorKind = "timeout"
	KindHTTPError    ErrorKind = "http_error"
	KindNetworkError ErrorKind = "network_error"
	KindBlocked      ErrorKind = "blocked"
)

// FetchError is the typed failure returned for every unfetchable URL. HTTP
// error statuses are reported through it rather than raised, so a bad page
// becomes a recorded failure instead of aborting the run.
type FetchError struct {
	URL    string
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status > 0:
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// RawPage is the immediate result of one successful fetch. It is consumed by
// extraction and discarded afterwards.
type RawPage struct {
	URL         string
	FinalURL    string
	Body        []byte
	ContentType string
	Status      int
	FetchedAt   time.Time
}

// Backend selects how pages are retrieved.
type Backend string

const (
	// HTTPBackend issues plain GET requests.
	HTTPBackend Backend = "http"
	// ChromeBackend renders pages in headless Chrome before capture, for
	// sites that assemble their content with scripts.
	ChromeBackend Backend = "chrome"
)

// Options configures a Fetcher. Zero values fall back to the package
// defaults.
type Options struct {
	Backend   Backend
	Timeout   time.Duration
	Retries   int
	Backoff   time.Duration
	Delay     time.Duration // minimum spacing between requests to one domain
	MaxBytes  int64
	UserAgent string
	Logger    *log.Logger
	Metrics   *telemetry.Metrics
}

// Fetcher retrieves pages with retries, per-attempt timeouts and a courtesy
// delay per target domain. Safe for concurrent use.
type Fetcher struct {
	backend   Backend
	client    *http.Client
	limiter   *domainLimiter
	timeout   time.Duration
	retries   int
	backoff   time.Duration
	maxBytes  int64
	userAgent string
	logger    *log.Logger
	metrics   *telemetry.Metrics

	render func(ctx context.Context, pageURL, userAgent string) (string, error)
}

// New builds a Fetcher for the requested backend.
func New(opts Options) (*Fetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NewLogger("FETCH")
	}

	f := &Fetcher{
		backend:   opts.Backend,
		client:    &http.Client{},
		limiter:   newDomainLimiter(opts.Delay),
		timeout:   opts.Timeout,
		retries:   opts.Retries,
		backoff:   opts.Backoff,
		maxBytes:  opts.MaxBytes,
		userAgent: opts.UserAgent,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}

	switch opts.Backend {
	case "", HTTPBackend:
		f.backend = HTTPBackend
	case ChromeBackend:
		f.render = renderHTML
	default:
		return nil, fmt.Errorf("unsupported fetch backend %q", opts.Backend)
	}
	return f, nil
}

// Fetch retrieves one URL. The returned error, when non-nil, is always a
// *FetchError; 4xx/5xx responses are reported through it, never panicked on.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (RawPage, error) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := parseFetchURL(rawURL)
	if err != nil {
		ferr := &FetchError{URL: rawURL, Kind: KindNetworkError, Err: err}
		f.metrics.ObserveFetch(string(ferr.Kind), 0)
		return RawPage{}, ferr
	}
	target := parsed.String()

	start := time.Now()
	page, ferr := f.fetchWithRetry(ctx, target, parsed.Host)
	elapsed := time.Since(start)
	if ferr != nil {
		f.metrics.ObserveFetch(string(ferr.Kind), elapsed)
		f.logger.Printf("fetch failed: %v", ferr)
		return RawPage{}, ferr
	}
	f.metrics.ObserveFetch("ok", elapsed)
	page.URL = rawURL
	return page, nil
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, target, domain string) (RawPage, *FetchError) {
	var last *FetchError
	tries := f.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		if err := f.limiter.wait(ctx, domain); err != nil {
			return RawPage{}, classifyErr(target, err)
		}

		page, ferr := f.do(ctx, target)
		if ferr == nil {
			return page, nil
		}
		last = ferr
		if !retryable(ferr) || attempt == tries-1 {
			return RawPage{}, last
		}

		select {
		case <-time.After(f.backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
			return RawPage{}, classifyErr(target, ctx.Err())
		}
	}
	return RawPage{}, last
}

func (f *Fetcher) do(ctx context.Context, target string) (RawPage, *FetchError) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if f.backend == ChromeBackend {
		return f.doChrome(ctx, target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return RawPage{}, &FetchError{URL: target, Kind: KindNetworkError, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return RawPage{}, classifyErr(target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
		return RawPage{}, &FetchError{URL: target, Kind: statusKind(resp.StatusCode), Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return RawPage{}, classifyErr(target, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}

	return RawPage{
		FinalURL:    resp.Request.URL.String(),
		Body:        body,
		ContentType: contentType,
		Status:      resp.StatusCode,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

func (f *Fetcher) doChrome(ctx context.Context, target string) (RawPage, *FetchError) {
	html, err := f.render(ctx, target, f.userAgent)
	if err != nil {
		return RawPage{}, classifyErr(target, err)
	}
	return RawPage{
		FinalURL:    target,
		Body:        []byte(html),
		ContentType: "text/html",
		Status:      http.StatusOK,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

func statusKind(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusProxyAuthRequired,
		http.StatusTooManyRequests, http.StatusUnavailableForLegalReasons:
		return KindBlocked
	default:
		return KindHTTPError
	}
}

func retryable(e *FetchError) bool {
	if e.Status > 0 {
		return e.Status == http.StatusTooManyRequests || e.Status >= 500
	}
	return e.Kind == KindNetworkError || e.Kind == KindTimeout
}

func classifyErr(target string, err error) *FetchError {
	kind := KindNetworkError
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		kind = KindTimeout
	}
	return &FetchError{URL: target, Kind: kind, Err: err}
}

func parseFetchURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("empty url")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" {
		parsed, err = url.Parse("https://" + raw)
		if err != nil {
			return nil, err
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("url missing host")
	}
	return parsed, nil
}
