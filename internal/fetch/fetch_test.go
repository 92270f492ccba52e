package fetch

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestFetcher(t *testing.T, opts Options) *Fetcher {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	f, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f
}

func TestFetchOK(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{Timeout: 2 * time.Second})
	page, err := f.Fetch(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if page.Status != http.StatusOK {
		t.Fatalf("Fetch() status got %d, want %d", page.Status, http.StatusOK)
	}
	if page.ContentType != "text/html" {
		t.Fatalf("Fetch() content type got %q, want %q", page.ContentType, "text/html")
	}
	if string(page.Body) != "<html><body>hello</body></html>" {
		t.Fatalf("Fetch() unexpected body %q", page.Body)
	}
	if page.FetchedAt.IsZero() {
		t.Fatalf("expected FetchedAt to be set")
	}
}

func TestFetchStatusKinds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		status       int
		wantKind     ErrorKind
		wantAttempts int32
	}{
		{name: "forbidden is blocked without retry", status: http.StatusForbidden, wantKind: KindBlocked, wantAttempts: 1},
		{name: "not found is http error without retry", status: http.StatusNotFound, wantKind: KindHTTPError, wantAttempts: 1},
		{name: "server error retries then fails", status: http.StatusInternalServerError, wantKind: KindHTTPError, wantAttempts: 3},
		{name: "rate limited retries then blocked", status: http.StatusTooManyRequests, wantKind: KindBlocked, wantAttempts: 3},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var attempts int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&attempts, 1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			f := newTestFetcher(t, Options{Retries: 2, Backoff: 5 * time.Millisecond, Timeout: 2 * time.Second})
			_, err := f.Fetch(context.Background(), srv.URL)
			var ferr *FetchError
			if !errors.As(err, &ferr) {
				t.Fatalf("Fetch() error = %v, want *FetchError", err)
			}
			if ferr.Kind != tt.wantKind {
				t.Fatalf("Fetch() kind got %q, want %q", ferr.Kind, tt.wantKind)
			}
			if ferr.Status != tt.status {
				t.Fatalf("Fetch() status got %d, want %d", ferr.Status, tt.status)
			}
			if got := atomic.LoadInt32(&attempts); got != tt.wantAttempts {
				t.Fatalf("Fetch() attempts got %d, want %d", got, tt.wantAttempts)
			}
		})
	}
}

func TestFetchRetryThenSuccess(t *testing.T) {
	t.Parallel()
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("eventually fine"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{Retries: 2, Backoff: 5 * time.Millisecond, Timeout: 2 * time.Second})
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(page.Body) != "eventually fine" {
		t.Fatalf("Fetch() body got %q", page.Body)
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Fatalf("Fetch() attempts got %d, want 2", got)
	}
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{Timeout: 40 * time.Millisecond})
	_, err := f.Fetch(context.Background(), srv.URL)
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("Fetch() error = %v, want *FetchError", err)
	}
	if ferr.Kind != KindTimeout {
		t.Fatalf("Fetch() kind got %q, want %q", ferr.Kind, KindTimeout)
	}
}

func TestFetchNetworkError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	f := newTestFetcher(t, Options{Timeout: time.Second})
	_, err := f.Fetch(context.Background(), target)
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("Fetch() error = %v, want *FetchError", err)
	}
	if ferr.Kind != KindNetworkError {
		t.Fatalf("Fetch() kind got %q, want %q", ferr.Kind, KindNetworkError)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	t.Parallel()
	f := newTestFetcher(t, Options{})
	for _, in := range []string{"", "ftp://example.com/file"} {
		_, err := f.Fetch(context.Background(), in)
		var ferr *FetchError
		if !errors.As(err, &ferr) {
			t.Fatalf("Fetch(%q) error = %v, want *FetchError", in, err)
		}
		if ferr.Kind != KindNetworkError {
			t.Fatalf("Fetch(%q) kind got %q, want %q", in, ferr.Kind, KindNetworkError)
		}
	}
}

func TestFetchBodyCap(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 10_000))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{MaxBytes: 1000, Timeout: 2 * time.Second})
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(page.Body) != 1000 {
		t.Fatalf("Fetch() body length got %d, want 1000", len(page.Body))
	}
}

func TestFetchCourtesyDelay(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{Delay: 80 * time.Millisecond, Timeout: 2 * time.Second})
	start := time.Now()
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Fatalf("expected second fetch to wait for courtesy delay, elapsed %v", elapsed)
	}
}

func TestUnsupportedBackend(t *testing.T) {
	t.Parallel()
	if _, err := New(Options{Backend: "gopher", Logger: testLogger()}); err == nil {
		t.Fatalf("expected error for unsupported backend")
	}
}

func TestChromeBackendUsesRenderer(t *testing.T) {
	t.Parallel()
	f := newTestFetcher(t, Options{Backend: ChromeBackend, Timeout: time.Second})
	f.render = func(ctx context.Context, pageURL, userAgent string) (string, error) {
		return "<html><body>rendered</body></html>", nil
	}

	page, err := f.Fetch(context.Background(), "https://example.com/app")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(page.Body) != "<html><body>rendered</body></html>" {
		t.Fatalf("Fetch() body got %q", page.Body)
	}
	if page.ContentType != "text/html" {
		t.Fatalf("Fetch() content type got %q, want %q", page.ContentType, "text/html")
	}
}

func TestChromeBackendRenderFailure(t *testing.T) {
	t.Parallel()
	f := newTestFetcher(t, Options{Backend: ChromeBackend, Timeout: time.Second})
	f.render = func(ctx context.Context, pageURL, userAgent string) (string, error) {
		return "", errors.New("browser crashed")
	}

	_, err := f.Fetch(context.Background(), "https://example.com/app")
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("Fetch() error = %v, want *FetchError", err)
	}
	if ferr.Kind != KindNetworkError {
		t.Fatalf("Fetch() kind got %q, want %q", ferr.Kind, KindNetworkError)
	}
}
