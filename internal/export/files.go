package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const maxSlugChars = 60

// WriteReport renders the result and writes it under dir, named after the
// query. Text reports carry the research-output header; rerunning the same
// query overwrites the previous report.
func WriteReport(result ResearchResult, format Format, dir string) (string, error) {
	payload, err := Render(result, format)
	if err != nil {
		return "", err
	}
	if format == FormatText {
		payload = HeaderedText(result.GeneratedAt, payload)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, reportName(result.Query)+format.Ext())
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// reportName slugs the query into a filesystem-safe base name.
func reportName(query string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(query)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
		if b.Len() >= maxSlugChars {
			break
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "research"
	}
	return name
}
