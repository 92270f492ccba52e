// Package citation renders registered sources as bibliographic records in
// the five supported styles. Formatting is a pure function of the source
// fields and the style: no clock, no I/O, so identical input always yields
// byte-identical output. Missing fields get style placeholders ("n.d." for
// missing dates) instead of being dropped, which keeps every entry visually
// well-formed.
package citation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/curatorlabs/curator/internal/metadata"
	"github.com/curatorlabs/curator/internal/registry"
)

type Style string

const (
	APA     Style = "apa"
	MLA     Style = "mla"
	Chicago Style = "chicago"
	Harvard Style = "harvard"
	IEEE    Style = "ieee"
)

// Styles lists the supported styles in a stable order.
func Styles() []Style {
	return []Style{APA, MLA, Chicago, Harvard, IEEE}
}

type UnsupportedStyleError struct {
	Style string
}

func (e *UnsupportedStyleError) Error() string {
	return fmt.Sprintf("unsupported citation style %q", e.Style)
}

// ParseStyle resolves a user-supplied style name.
func ParseStyle(s string) (Style, error) {
	style := Style(strings.ToLower(strings.TrimSpace(s)))
	switch style {
	case APA, MLA, Chicago, Harvard, IEEE:
		return style, nil
	default:
		return "", &UnsupportedStyleError{Style: s}
	}
}

// Record pairs the short in-text marker with the full reference entry for
// one source. Records are recomputed on demand, never stored.
type Record struct {
	SourceID  int64  `json:"source_id"`
	Style     Style  `json:"style"`
	InText    string `json:"in_text"`
	Reference string `json:"reference"`
}

// Format renders one source. ordinal is the 1-based position in the
// reference list; only numeric styles use it.
func Format(src registry.Source, style Style, ordinal int) (Record, error) {
	rec := Record{SourceID: src.ID, Style: style}
	switch style {
	case APA:
		rec.InText = apaInText(src)
		rec.Reference = apaReference(src)
	case MLA:
		rec.InText = mlaInText(src)
		rec.Reference = mlaReference(src)
	case Chicago:
		rec.InText = authorYearInText(src, "n.d.")
		rec.Reference = chicagoReference(src)
	case Harvard:
		rec.InText = authorYearInText(src, "n.d.")
		rec.Reference = harvardReference(src)
	case IEEE:
		rec.InText = fmt.Sprintf("[%d]", ordinal)
		rec.Reference = ieeeReference(src, ordinal)
	default:
		return Record{}, &UnsupportedStyleError{Style: string(style)}
	}
	return rec, nil
}

// FormatAll renders the whole snapshot in insertion order, keyed by source
// id. One bad style fails the lot; a well-formed style cannot fail.
func FormatAll(sources []registry.Source, style Style) (map[int64]Record, error) {
	out := make(map[int64]Record, len(sources))
	for i, src := range sources {
		rec, err := Format(src, style, i+1)
		if err != nil {
			return nil, err
		}
		out[src.ID] = rec
	}
	return out, nil
}

// Author. (YYYY). Title. Retrieved Month D, YYYY, from URL
// Title leads when there is no author.
func apaReference(src registry.Source) string {
	var parts []string
	year := orND(yearOf(src))
	if authors := apaAuthors(src.Authors); authors != "" {
		parts = append(parts, dot(authors), "("+year+").", dot(refTitle(src)))
	} else {
		parts = append(parts, dot(refTitle(src)), "("+year+").")
	}
	if src.RegisteredAt.IsZero() {
		parts = append(parts, "Retrieved from "+src.URL)
	} else {
		parts = append(parts, "Retrieved "+longDate(src.RegisteredAt)+", from "+src.URL)
	}
	return strings.Join(parts, " ")
}

func apaInText(src registry.Source) string {
	year := orND(yearOf(src))
	if name := inTextAuthors(src.Authors, "&"); name != "" {
		return "(" + name + ", " + year + ")"
	}
	return "(\"" + shortTitle(refTitle(src)) + "\", " + year + ")"
}

// Author. "Title." Domain, YYYY, Accessed D Mon. YYYY, URL.
func mlaReference(src registry.Source) string {
	var parts []string
	if authors := mlaAuthors(src.Authors); authors != "" {
		parts = append(parts, dot(authors))
	}
	parts = append(parts, quoted(refTitle(src), "."), domainOf(src)+",", orND(yearOf(src))+",")
	if !src.RegisteredAt.IsZero() {
		parts = append(parts, "Accessed "+mlaDate(src.RegisteredAt)+",")
	}
	parts = append(parts, src.URL+".")
	return strings.Join(parts, " ")
}

func mlaInText(src registry.Source) string {
	if name := inTextAuthors(src.Authors, "and"); name != "" {
		return "(" + name + ")"
	}
	return "(\"" + shortTitle(refTitle(src)) + "\")"
}

// Author. "Title." Domain. Last modified YYYY. Accessed Month D, YYYY. URL.
// The domain stands in for a missing author.
func chicagoReference(src registry.Source) string {
	var parts []string
	if authors := chicagoAuthors(src.Authors); authors != "" {
		parts = append(parts, dot(authors))
	} else {
		parts = append(parts, dot(domainOf(src)))
	}
	parts = append(parts, quoted(refTitle(src), "."), dot(domainOf(src)))
	if year := yearOf(src); year != "" {
		parts = append(parts, "Last modified "+year+".")
	}
	if !src.RegisteredAt.IsZero() {
		parts = append(parts, "Accessed "+longDate(src.RegisteredAt)+".")
	}
	parts = append(parts, src.URL+".")
	return strings.Join(parts, " ")
}

// Author YYYY, Title, Domain, viewed D Month YYYY, <URL>.
func harvardReference(src registry.Source) string {
	var parts []string
	lead := harvardAuthors(src.Authors)
	if lead == "" {
		lead = domainOf(src)
	}
	parts = append(parts, lead, orND(yearOf(src))+",", refTitle(src)+",", domainOf(src)+",")
	if !src.RegisteredAt.IsZero() {
		parts = append(parts, "viewed "+harvardDate(src.RegisteredAt)+",")
	}
	parts = append(parts, "<"+src.URL+">.")
	return strings.Join(parts, " ")
}

// [N] Author, "Title," Domain, YYYY. [Online]. Available: URL. [Accessed: D-Mon-YYYY].
func ieeeReference(src registry.Source, ordinal int) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%d]", ordinal))
	lead := ieeeAuthors(src.Authors)
	if lead == "" {
		lead = domainOf(src)
	}
	parts = append(parts, lead+",", quoted(refTitle(src), ","))
	if year := yearOf(src); year != "" {
		parts = append(parts, domainOf(src)+",", year+".")
	} else {
		parts = append(parts, dot(domainOf(src)))
	}
	parts = append(parts, "[Online]. Available: "+src.URL+".")
	if !src.RegisteredAt.IsZero() {
		parts = append(parts, "[Accessed: "+src.RegisteredAt.Format("2-Jan-2006")+"].")
	}
	return strings.Join(parts, " ")
}

// authorYearInText covers the Chicago and Harvard "(Author YYYY)" marker,
// with the domain standing in for a missing author.
func authorYearInText(src registry.Source, undated string) string {
	name := inTextAuthors(src.Authors, "and")
	if name == "" {
		name = domainOf(src)
	}
	year := yearOf(src)
	if year == "" {
		year = undated
	}
	return "(" + name + " " + year + ")"
}

func yearOf(src registry.Source) string {
	if src.PublishedAt.IsZero() {
		return ""
	}
	return strconv.Itoa(src.PublishedAt.Year())
}

func orND(year string) string {
	if year == "" {
		return "n.d."
	}
	return year
}

func refTitle(src registry.Source) string {
	t := strings.TrimSpace(src.Title)
	if strings.Trim(t, ".,:;!?\"' ") == "" {
		return "Untitled"
	}
	return t
}

func domainOf(src registry.Source) string {
	if src.Domain != "" {
		return src.Domain
	}
	return metadata.Domain(src.URL)
}

// shortTitle stands in for a missing author in parenthetical markers: the
// first few title words with trailing punctuation shaved off.
func shortTitle(title string) string {
	words := strings.Fields(title)
	if len(words) > 4 {
		words = words[:4]
	}
	return strings.TrimRight(strings.Join(words, " "), ".,:;!?")
}

// dot terminates a fragment with a period unless it already carries terminal
// punctuation (initials like "Doe, J. M." arrive pre-dotted).
func dot(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}

// quoted wraps a title in double quotes with the trailing punctuation
// inside, MLA/Chicago fashion. A title ending in ? or ! keeps its own mark.
func quoted(title, trailing string) string {
	switch title[len(title)-1] {
	case '.', '!', '?':
		title = strings.TrimSuffix(title, ".")
		if last := title[len(title)-1]; last == '!' || last == '?' {
			trailing = ""
		}
	}
	return "\"" + title + trailing + "\""
}

func longDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

func harvardDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), t.Month().String(), t.Year())
}

var mlaMonths = [...]string{"Jan.", "Feb.", "Mar.", "Apr.", "May", "June", "July", "Aug.", "Sept.", "Oct.", "Nov.", "Dec."}

func mlaDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), mlaMonths[t.Month()-1], t.Year())
}
