package extract

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/curatorlabs/curator/internal/fetch"
)

// pdfStrategy pulls plain text out of PDF documents page by page. The pdf
// reader panics on some malformed files, so the attempt recovers and reports
// failure instead.
type pdfStrategy struct{}

func (pdfStrategy) Name() string { return "pdf" }

func (pdfStrategy) Attempt(page fetch.RawPage) (a Attempt) {
	a = Attempt{Strategy: "pdf"}
	if !isPDF(page) {
		a.FailureReason = "not a pdf document"
		return a
	}
	defer func() {
		if r := recover(); r != nil {
			a = Attempt{Strategy: "pdf", FailureReason: fmt.Sprintf("malformed pdf: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(page.Body), int64(len(page.Body)))
	if err != nil {
		a.FailureReason = err.Error()
		return a
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	a.Body = strings.Join(strings.Fields(sb.String()), " ")

	info := reader.Trailer().Key("Info")
	if title := info.Key("Title"); title.Kind() == pdf.String {
		a.Title = strings.TrimSpace(title.Text())
	}
	if created := info.Key("CreationDate"); created.Kind() == pdf.String {
		a.DateText = pdfDate(created.Text())
	}
	if a.Title == "" {
		a.Title = titleFromPath(pageURL(page))
	}
	if a.Body == "" {
		a.FailureReason = "no extractable text"
	}
	return a
}

// pdfDate reduces a PDF date literal like "D:20240115093000Z" to its
// YYYYMMDD prefix, which the date resolver understands.
func pdfDate(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "D:")
	if len(raw) < 8 {
		return ""
	}
	for _, r := range raw[:8] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return raw[:8]
}

func titleFromPath(rawURL string) string {
	base := path.Base(mustParseURL(rawURL).Path)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return strings.TrimSpace(base)
}
