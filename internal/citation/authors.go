package citation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// apaAuthorLimit is where the APA list truncates: nineteen names, an
// ellipsis, then the final author.
const apaAuthorLimit = 20

// personName splits at the last space: everything before it is the given
// name, the last token the family name. A single token is a family name, and
// an already-inverted "Doe, Jane" flips back first.
type personName struct {
	given  string
	family string
}

func parseName(full string) personName {
	full = strings.Join(strings.Fields(full), " ")
	if i := strings.Index(full, ","); i >= 0 {
		return personName{
			given:  strings.TrimSpace(full[i+1:]),
			family: strings.TrimSpace(full[:i]),
		}
	}
	idx := strings.LastIndex(full, " ")
	if idx < 0 {
		return personName{family: full}
	}
	return personName{given: full[:idx], family: full[idx+1:]}
}

func familyName(full string) string {
	return parseName(full).family
}

// initials abbreviates a given name: "Jane Marie" becomes "J. M.".
func initials(given string) string {
	fields := strings.Fields(given)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		r, _ := utf8.DecodeRuneInString(f)
		out = append(out, string(unicode.ToUpper(r))+".")
	}
	return strings.Join(out, " ")
}

// apaName renders "Last, F. M.".
func apaName(full string) string {
	n := parseName(full)
	if n.given == "" {
		return n.family
	}
	return n.family + ", " + initials(n.given)
}

// invertName renders "Last, First" for list-leading positions.
func invertName(full string) string {
	n := parseName(full)
	if n.given == "" {
		return n.family
	}
	return n.family + ", " + n.given
}

// displayName renders natural "First Last" order.
func displayName(full string) string {
	n := parseName(full)
	if n.given == "" {
		return n.family
	}
	return n.given + " " + n.family
}

// apaAuthors renders the APA author list: "Last, F. M." names joined with an
// ampersand before the final one. Past twenty authors the list keeps the
// first nineteen, an ellipsis, and the final author.
func apaAuthors(authors []string) string {
	if len(authors) == 0 {
		return ""
	}
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, apaName(a))
	}
	if len(names) == 1 {
		return names[0]
	}
	if len(names) > apaAuthorLimit {
		return strings.Join(names[:apaAuthorLimit-1], ", ") + ", … " + names[len(names)-1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", & " + names[len(names)-1]
}

// mlaAuthors: first author inverted, a second in natural order, three or
// more collapse to "et al.".
func mlaAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return invertName(authors[0])
	case 2:
		return invertName(authors[0]) + ", and " + displayName(authors[1])
	default:
		return invertName(authors[0]) + ", et al."
	}
}

// chicagoAuthors lists up to three names, first inverted, before "et al.".
func chicagoAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return invertName(authors[0])
	case 2:
		return invertName(authors[0]) + ", and " + displayName(authors[1])
	case 3:
		return invertName(authors[0]) + ", " + displayName(authors[1]) + ", and " + displayName(authors[2])
	default:
		return invertName(authors[0]) + ", et al."
	}
}

// harvardAuthors uses the "Last, F." form with an ampersand, collapsing past
// three authors.
func harvardAuthors(authors []string) string {
	if len(authors) == 0 {
		return ""
	}
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, apaName(a))
	}
	switch {
	case len(names) == 1:
		return names[0]
	case len(names) <= 3:
		return strings.Join(names[:len(names)-1], ", ") + " & " + names[len(names)-1]
	default:
		return names[0] + " et al."
	}
}

// ieeeAuthors uses initials-first names ("J. M. Doe"), listing up to six.
func ieeeAuthors(authors []string) string {
	if len(authors) == 0 {
		return ""
	}
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		n := parseName(a)
		if n.given == "" {
			names = append(names, n.family)
		} else {
			names = append(names, initials(n.given)+" "+n.family)
		}
	}
	switch {
	case len(names) == 1:
		return names[0]
	case len(names) <= 6:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	default:
		return names[0] + " et al."
	}
}

// inTextAuthors builds the parenthetical author form: one family name, two
// joined by sep, three or more as "et al.".
func inTextAuthors(authors []string, sep string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return familyName(authors[0])
	case 2:
		return familyName(authors[0]) + " " + sep + " " + familyName(authors[1])
	default:
		return familyName(authors[0]) + " et al."
	}
}
