// Package metadata fills the derived fields of extracted sources: canonical
// publish dates, normalized author names, the owning domain and a credibility
// hint. Metadata is advisory, so resolution never fails a source; anything it
// cannot derive stays absent or falls back to the "unknown" sentinel.
package metadata

import (
	"log"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"

	"github.com/curatorlabs/curator/internal/extract"
	"github.com/curatorlabs/curator/internal/telemetry"
)

// UnknownDomain marks sources whose URL could not be parsed.
const UnknownDomain = "unknown"

const maxSummaryChars = 300

type Resolver struct {
	logger *log.Logger
}

func NewResolver(logger *log.Logger) *Resolver {
	if logger == nil {
		logger = telemetry.NewLogger("METADATA")
	}
	return &Resolver{logger: logger}
}

// Resolve fills gaps in place and never removes extracted data. A source with
// no usable metadata comes back unchanged apart from sentinel fields.
func (r *Resolver) Resolve(src *extract.Source) {
	src.Domain = Domain(src.URL)

	src.Authors = NormalizeAuthors(src.Authors)

	if src.PublishedAt.IsZero() && src.DateText != "" {
		if ts, ok := ParseDate(src.DateText); ok {
			src.PublishedAt = ts
		} else {
			r.logger.Printf("%s: unparseable date %q", src.URL, src.DateText)
		}
	}

	if src.Credibility == 0 {
		src.Credibility = CredibilityFor(src.Domain)
	}
	if src.Summary == "" {
		src.Summary = leadSummary(src.Body)
	}
}

// Domain returns the lowercased host of rawURL with any port and leading
// "www." removed, or the unknown sentinel when the URL has no usable host.
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return UnknownDomain
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return UnknownDomain
	}
	return host
}

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// ParseDate canonicalizes freeform date text to a UTC date. When only a year
// can be recognized it resolves to January 1 of that year; the callers that
// surface dates only ever print the year. Text with no recognizable date
// returns ok=false, never the current time.
func ParseDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	if ts, err := dateparse.ParseAny(text); err == nil {
		ts = ts.UTC()
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), true
	}
	if m := yearRe.FindString(text); m != "" {
		year, _ := strconv.Atoi(m)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

var (
	honorifics   = map[string]bool{"dr": true, "dr.": true, "prof": true, "prof.": true, "professor": true, "mr": true, "mr.": true, "mrs": true, "mrs.": true, "ms": true, "ms.": true, "sir": true}
	nameSuffixes = map[string]bool{"jr": true, "jr.": true, "sr": true, "sr.": true, "phd": true, "ph.d": true, "ph.d.": true, "md": true, "m.d.": true, "esq": true, "esq.": true, "ii": true, "iii": true, "iv": true}
)

// NormalizeAuthors cleans author names without inventing any: honorifics and
// degree suffixes are stripped, compound strings are split, duplicates are
// collapsed case-insensitively and the original order is kept. An empty input
// stays empty.
func NormalizeAuthors(raw []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, entry := range raw {
		for _, name := range splitAuthorEntry(entry) {
			name = cleanName(name)
			if name == "" || len(name) > 100 || strings.ContainsAny(name, "@/") || strings.Contains(name, "http") {
				continue
			}
			key := strings.ToLower(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, name)
		}
	}
	return out
}

// splitAuthorEntry breaks a compound byline into individual names. Commas
// split only when there are three or more segments, so "Doe, Jane" survives
// while "A, B, C" splits.
func splitAuthorEntry(entry string) []string {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}
	for _, sep := range []string{";", " and ", " And ", " & ", " with "} {
		if strings.Contains(entry, sep) {
			var parts []string
			for _, p := range strings.Split(entry, sep) {
				parts = append(parts, splitAuthorEntry(p)...)
			}
			return parts
		}
	}
	if parts := strings.Split(entry, ","); len(parts) >= 3 {
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return []string{entry}
}

func cleanName(name string) string {
	name = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(name, "By "), "by "))
	words := strings.Fields(name)
	for len(words) > 0 && honorifics[strings.ToLower(words[0])] {
		words = words[1:]
	}
	for len(words) > 1 && nameSuffixes[strings.ToLower(strings.TrimSuffix(words[len(words)-1], ","))] {
		words = words[:len(words)-1]
	}
	name = strings.Join(words, " ")
	return strings.Trim(name, " ,")
}

// leadSummary takes the leading sentences of body up to the summary budget,
// cutting at a sentence boundary when one lands in the window.
func leadSummary(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	if body == "" {
		return ""
	}
	if len(body) <= maxSummaryChars {
		return body
	}
	cut := maxSummaryChars
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	head := body[:cut]
	if idx := strings.LastIndex(head, ". "); idx > maxSummaryChars/2 {
		return head[:idx+1]
	}
	if idx := strings.LastIndex(head, " "); idx > 0 {
		head = head[:idx]
	}
	return head + "..."
}
