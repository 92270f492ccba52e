package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfLine       = 5.5 // body line height, mm
	pdfEntryGap   = 2.0
	pdfHeadingPad = 14.0 // minimum room before starting a section heading
)

// renderPDF lays the report out as title header, analysis, per-source
// sections and the reference list. The document timestamps come from the
// result, so rendering the same result twice yields identical bytes.
// Reference entries are measured before writing: one that fits on a page is
// never split across two.
func renderPDF(result ResearchResult) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCreationDate(result.GeneratedAt)
	doc.SetModificationDate(result.GeneratedAt)
	doc.SetTitle("Research Report: "+result.Query, true)
	doc.SetAuthor("curator", true)
	doc.SetMargins(18, 18, 18)
	doc.SetAutoPageBreak(true, 18)

	w := &pdfWriter{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}
	pageW, _ := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	w.width = pageW - left - right

	doc.SetFooterFunc(func() {
		doc.SetY(-14)
		doc.SetFont("Helvetica", "I", 8)
		doc.SetTextColor(120, 120, 120)
		doc.CellFormat(0, 6, fmt.Sprintf("%d", doc.PageNo()), "", 0, "C", false, 0, "")
	})
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.SetTextColor(0, 0, 0)
	doc.MultiCell(0, 9, w.tr("Research Report: "+result.Query), "", "L", false)
	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(110, 110, 110)
	meta := fmt.Sprintf("Generated %s UTC. %d sources, %s citations.",
		timestamp(result.GeneratedAt), len(result.Sources), styleLabel(result.Style))
	doc.CellFormat(0, 5, w.tr(meta), "", 1, "L", false, 0, "")
	doc.Ln(4)

	w.heading("Summary")
	summary := result.Analysis.Summary
	if summary == "" {
		summary = "No analysis summary was produced."
	}
	w.paragraph(summary)

	if len(result.Analysis.KeyPoints) > 0 {
		w.heading("Key Points")
		for i, point := range result.Analysis.KeyPoints {
			w.paragraph(fmt.Sprintf("%d. %s", i+1, point.Point))
			if point.SourceURL != "" {
				w.detail("Source: " + point.SourceURL)
			}
		}
		doc.Ln(2)
	}

	if len(result.Analysis.Gaps) > 0 {
		w.heading("Knowledge Gaps")
		for _, gap := range result.Analysis.Gaps {
			w.paragraph("- " + gap)
		}
		doc.Ln(2)
	}

	if len(result.Sources) > 0 {
		w.heading("Sources")
		for i, src := range result.Sources {
			w.keepTogether(3)
			doc.SetFont("Helvetica", "B", 11)
			doc.SetTextColor(0, 0, 0)
			doc.MultiCell(0, 6, w.tr(fmt.Sprintf("%d. %s", i+1, sourceLabel(src))), "", "L", false)
			if detail := sourceDetail(src); detail != "" {
				w.detail(detail)
			}
			w.detail(src.URL)
			if src.Summary != "" {
				w.paragraph(src.Summary)
			} else {
				doc.Ln(pdfEntryGap)
			}
		}
	}

	w.heading("References (" + styleLabel(result.Style) + ")")
	for _, ref := range referenceLines(result) {
		w.referenceEntry(ref)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfWriter wraps the document with the layout helpers the report needs.
type pdfWriter struct {
	doc   *fpdf.Fpdf
	tr    func(string) string
	width float64
}

// remaining reports the vertical space left above the bottom margin.
func (w *pdfWriter) remaining() float64 {
	_, pageH := w.doc.GetPageSize()
	_, _, _, bottom := w.doc.GetMargins()
	return pageH - bottom - w.doc.GetY()
}

// usable is the full content height of an empty page.
func (w *pdfWriter) usable() float64 {
	_, pageH := w.doc.GetPageSize()
	_, top, _, bottom := w.doc.GetMargins()
	return pageH - top - bottom
}

// keepTogether page-breaks unless at least lines body lines still fit,
// keeping headings and block leads off the bottom edge.
func (w *pdfWriter) keepTogether(lines int) {
	if w.remaining() < float64(lines)*pdfLine+pdfEntryGap {
		w.doc.AddPage()
	}
}

func (w *pdfWriter) heading(text string) {
	if w.remaining() < pdfHeadingPad {
		w.doc.AddPage()
	}
	w.doc.SetFont("Helvetica", "B", 13)
	w.doc.SetTextColor(0, 0, 0)
	w.doc.CellFormat(0, 8, w.tr(text), "", 1, "L", false, 0, "")
	w.doc.Ln(1)
}

func (w *pdfWriter) paragraph(text string) {
	w.doc.SetFont("Helvetica", "", 10)
	w.doc.SetTextColor(30, 30, 30)
	w.doc.MultiCell(0, pdfLine, w.tr(text), "", "L", false)
	w.doc.Ln(pdfEntryGap)
}

func (w *pdfWriter) detail(text string) {
	w.doc.SetFont("Helvetica", "", 8.5)
	w.doc.SetTextColor(110, 110, 110)
	w.doc.MultiCell(0, 4.5, w.tr(text), "", "L", false)
}

// referenceEntry writes one bibliography entry, breaking to a fresh page
// first whenever the whole entry fits on one page but not in the space left
// on this one. Entries taller than a full page fall back to the automatic
// page break mid-entry.
func (w *pdfWriter) referenceEntry(text string) {
	w.doc.SetFont("Helvetica", "", 10)
	w.doc.SetTextColor(30, 30, 30)
	lines := w.doc.SplitText(w.tr(text), w.width)
	need := float64(len(lines))*pdfLine + pdfEntryGap
	if need <= w.usable() && w.remaining() < need {
		w.doc.AddPage()
		w.doc.SetFont("Helvetica", "", 10)
		w.doc.SetTextColor(30, 30, 30)
	}
	w.doc.MultiCell(0, pdfLine, strings.Join(lines, "\n"), "", "L", false)
	w.doc.Ln(pdfEntryGap)
}
