package registry

import (
	"strings"
	"testing"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "defaults https and cleans path",
			in:   "Example.com/news/../tech/latest",
			want: "https://example.com/tech/latest",
		},
		{
			name: "removes default port and tracking params",
			in:   "http://news.example.com:80/article?id=123&utm_source=rss#section",
			want: "http://news.example.com/article?id=123",
		},
		{
			name: "sorts query parameters and preserves trailing slash",
			in:   "https://example.com/path/?b=2&a=1&fbclid=xyz",
			want: "https://example.com/path/?a=1&b=2",
		},
		{
			name: "handles schemeless url with double slash",
			in:   "//blog.example.com/post/42?utm_medium=email",
			want: "https://blog.example.com/post/42",
		},
		{
			name: "keeps non-default port",
			in:   "https://example.com:8443/a",
			want: "https://example.com:8443/a",
		},
		{
			name: "normalises repeated slashes",
			in:   "https://example.com//a//b///c",
			want: "https://example.com/a/b/c",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalURL(tt.in)
			if err != nil {
				t.Fatalf("CanonicalURL() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("CanonicalURL() got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalURLErrors(t *testing.T) {
	t.Parallel()
	if _, err := CanonicalURL(""); err == nil {
		t.Fatalf("expected error for empty input")
	}
	if _, err := CanonicalURL(":///invalid"); err == nil {
		t.Fatalf("expected error for malformed url")
	}
}

func TestContentKeyNormalizes(t *testing.T) {
	t.Parallel()
	a := ContentKey("The  Quick\nBrown Fox")
	b := ContentKey("the quick brown fox")
	if a == "" || a != b {
		t.Fatalf("ContentKey() should match across whitespace and case, got %q vs %q", a, b)
	}
	if ContentKey("") != "" {
		t.Fatalf("ContentKey() of empty body should be empty")
	}
	if ContentKey("different text entirely") == a {
		t.Fatalf("ContentKey() collided for different text")
	}
}

func TestFingerprintShape(t *testing.T) {
	t.Parallel()
	withBody := Fingerprint("https://example.com/a", "body text")
	if !strings.Contains(withBody, ":") {
		t.Fatalf("Fingerprint() with body should carry a content part, got %q", withBody)
	}
	bare := Fingerprint("https://example.com/a", "")
	if strings.Contains(bare, ":") {
		t.Fatalf("Fingerprint() without body should be url-only, got %q", bare)
	}
	if Fingerprint("https://example.com/a", "body text") != withBody {
		t.Fatalf("Fingerprint() must be deterministic")
	}
}
