package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"
)

// contentHashWindow bounds how much body text feeds the content hash. The
// lead of an article identifies a syndicated copy as well as the whole text.
const contentHashWindow = 4096

var trackingParams = map[string]bool{
	"utm_source":      true,
	"utm_medium":      true,
	"utm_campaign":    true,
	"utm_term":        true,
	"utm_content":     true,
	"utm_id":          true,
	"utm_name":        true,
	"utm_reader":      true,
	"utm_place":       true,
	"utm_social":      true,
	"utm_social-type": true,
	"gclid":           true,
	"dclid":           true,
	"fbclid":          true,
	"msclkid":         true,
	"igshid":          true,
}

// CanonicalURL normalizes a URL for identity comparison: scheme and host are
// lowercased, default ports and fragments dropped, the path cleaned with an
// explicit trailing slash preserved, tracking parameters removed and the
// remaining query re-encoded in sorted order. A schemeless URL defaults to
// https.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" && u.Host == "" {
		if strings.HasPrefix(raw, "//") {
			u, err = url.Parse("https:" + raw)
		} else {
			u, err = url.Parse("https://" + raw)
		}
		if err != nil {
			return "", err
		}
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", errors.New("url missing host")
	}
	if port := u.Port(); port != "" {
		if !(u.Scheme == "http" && port == "80") && !(u.Scheme == "https" && port == "443") {
			host = net.JoinHostPort(host, port)
		}
	}
	u.Host = host

	rawPath := u.Path
	if rawPath == "" {
		rawPath = "/"
	}
	clean := path.Clean(rawPath)
	if clean == "." {
		clean = "/"
	}
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}
	if clean != "/" && strings.HasSuffix(rawPath, "/") && !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u.Path = clean
	u.RawPath = ""
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		if trackingParams[strings.ToLower(key)] {
			q.Del(key)
		}
	}
	if len(q) == 0 {
		u.RawQuery = ""
	} else {
		for _, values := range q {
			sort.Strings(values)
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// Fingerprint is the stored identity of a source: the canonical URL hash,
// extended with a content hash when body text exists.
func Fingerprint(canonical, body string) string {
	if key := ContentKey(body); key != "" {
		return urlKey(canonical) + ":" + key
	}
	return urlKey(canonical)
}

// ContentKey hashes the normalized lead of the body text so syndicated
// copies land on the same key even when their URLs differ. Empty bodies have
// no content key.
func ContentKey(body string) string {
	body = strings.ToLower(strings.Join(strings.Fields(body), " "))
	if body == "" {
		return ""
	}
	if len(body) > contentHashWindow {
		body = body[:contentHashWindow]
	}
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])[:16]
}

func urlKey(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:16]
}
