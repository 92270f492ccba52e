package citation

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/curatorlabs/curator/internal/extract"
	"github.com/curatorlabs/curator/internal/registry"
)

func sampleSource() registry.Source {
	return registry.Source{
		ID:           3,
		RegisteredAt: time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC),
		Source: extract.Source{
			URL:         "https://www.example.com/quantum-breakthrough",
			Title:       "Quantum Breakthrough Announced",
			Authors:     []string{"Jane Doe", "John Smith"},
			PublishedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			Domain:      "example.com",
		},
	}
}

func TestFormatReferences(t *testing.T) {
	t.Parallel()
	src := sampleSource()
	tests := []struct {
		style   Style
		inText  string
		wantRef string
	}{
		{
			style:   APA,
			inText:  "(Doe & Smith, 2024)",
			wantRef: "Doe, J., & Smith, J. (2024). Quantum Breakthrough Announced. Retrieved March 4, 2024, from https://www.example.com/quantum-breakthrough",
		},
		{
			style:   MLA,
			inText:  "(Doe and Smith)",
			wantRef: `Doe, Jane, and John Smith. "Quantum Breakthrough Announced." example.com, 2024, Accessed 4 Mar. 2024, https://www.example.com/quantum-breakthrough.`,
		},
		{
			style:   Chicago,
			inText:  "(Doe and Smith 2024)",
			wantRef: `Doe, Jane, and John Smith. "Quantum Breakthrough Announced." example.com. Last modified 2024. Accessed March 4, 2024. https://www.example.com/quantum-breakthrough.`,
		},
		{
			style:   Harvard,
			inText:  "(Doe and Smith 2024)",
			wantRef: "Doe, J. & Smith, J. 2024, Quantum Breakthrough Announced, example.com, viewed 4 March 2024, <https://www.example.com/quantum-breakthrough>.",
		},
		{
			style:   IEEE,
			inText:  "[3]",
			wantRef: `[3] J. Doe and J. Smith, "Quantum Breakthrough Announced," example.com, 2024. [Online]. Available: https://www.example.com/quantum-breakthrough. [Accessed: 4-Mar-2024].`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.style), func(t *testing.T) {
			rec, err := Format(src, tt.style, 3)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if rec.InText != tt.inText {
				t.Fatalf("Format() in-text got %q, want %q", rec.InText, tt.inText)
			}
			if rec.Reference != tt.wantRef {
				t.Fatalf("Format() reference got\n%q\nwant\n%q", rec.Reference, tt.wantRef)
			}
			if rec.SourceID != src.ID || rec.Style != tt.style {
				t.Fatalf("Format() record fields got %+v", rec)
			}
		})
	}
}

func TestFormatDeterministic(t *testing.T) {
	t.Parallel()
	src := sampleSource()
	for _, style := range Styles() {
		a, err := Format(src, style, 1)
		if err != nil {
			t.Fatalf("Format(%s) error = %v", style, err)
		}
		b, err := Format(src, style, 1)
		if err != nil {
			t.Fatalf("Format(%s) error = %v", style, err)
		}
		if a != b {
			t.Fatalf("Format(%s) not deterministic:\n%q\n%q", style, a.Reference, b.Reference)
		}
	}
}

func TestFormatUndatedUsesND(t *testing.T) {
	t.Parallel()
	src := sampleSource()
	src.PublishedAt = time.Time{}
	src.Authors = []string{"Jane Doe"}

	rec, err := Format(src, APA, 1)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(rec.Reference, "(n.d.)") {
		t.Fatalf("APA reference missing n.d. marker: %q", rec.Reference)
	}
	if rec.InText != "(Doe, n.d.)" {
		t.Fatalf("APA in-text got %q", rec.InText)
	}

	rec, err = Format(src, Harvard, 1)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(rec.Reference, "n.d.,") {
		t.Fatalf("Harvard reference missing n.d. marker: %q", rec.Reference)
	}
}

func TestFormatAuthorlessFallsBackToTitle(t *testing.T) {
	t.Parallel()
	src := sampleSource()
	src.Authors = nil

	rec, err := Format(src, APA, 1)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.HasPrefix(rec.Reference, "Quantum Breakthrough Announced. (2024).") {
		t.Fatalf("APA authorless reference got %q", rec.Reference)
	}
	if rec.InText != `("Quantum Breakthrough Announced", 2024)` {
		t.Fatalf("APA authorless in-text got %q", rec.InText)
	}

	rec, err = Format(src, Chicago, 1)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.HasPrefix(rec.Reference, "example.com.") {
		t.Fatalf("Chicago authorless reference should lead with the domain: %q", rec.Reference)
	}
}

func TestAPAAuthorEllipsis(t *testing.T) {
	t.Parallel()
	src := sampleSource()
	src.Authors = nil
	for i := 1; i <= 21; i++ {
		src.Authors = append(src.Authors, fmt.Sprintf("First%02d Last%02d", i, i))
	}

	rec, err := Format(src, APA, 1)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(rec.Reference, "… Last21") {
		t.Fatalf("APA reference should end the list with ellipsis and final author: %q", rec.Reference)
	}
	if strings.Contains(rec.Reference, "Last20") {
		t.Fatalf("APA reference should skip the twentieth author: %q", rec.Reference)
	}
	if !strings.Contains(rec.Reference, "Last19") {
		t.Fatalf("APA reference should keep the nineteenth author: %q", rec.Reference)
	}
}

func TestFormatUnsupportedStyle(t *testing.T) {
	t.Parallel()
	_, err := Format(sampleSource(), Style("vancouver"), 1)
	var styleErr *UnsupportedStyleError
	if !errors.As(err, &styleErr) {
		t.Fatalf("Format() error = %v, want UnsupportedStyleError", err)
	}
}

func TestParseStyle(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Style
		wantErr bool
	}{
		{in: "apa", want: APA},
		{in: "APA", want: APA},
		{in: "  Chicago ", want: Chicago},
		{in: "ieee", want: IEEE},
		{in: "vancouver", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStyle(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseStyle(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStyle(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseStyle(%q) got %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatAllOrdinalsFollowOrder(t *testing.T) {
	t.Parallel()
	first := sampleSource()
	second := sampleSource()
	second.ID = 7
	second.URL = "https://example.org/other"
	second.Title = "Other Piece"

	recs, err := FormatAll([]registry.Source{first, second}, IEEE)
	if err != nil {
		t.Fatalf("FormatAll() error = %v", err)
	}
	if recs[first.ID].InText != "[1]" || recs[second.ID].InText != "[2]" {
		t.Fatalf("FormatAll() ordinals got %q and %q", recs[first.ID].InText, recs[second.ID].InText)
	}
}
