// Package pdftest builds small, well-formed PDF files for tests.
package pdftest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Page describes one page of a generated document.
type Page struct {
	Width  float64
	Height float64
	// Lines are written top-down with Helvetica 12pt. ASCII only.
	Lines []string
}

// Letter is a US Letter page without content.
var Letter = Page{Width: 612, Height: 792}

// A4 is an A4 page without content.
var A4 = Page{Width: 595, Height: 842}

// Build returns the bytes of a PDF with the given pages, with exact xref offsets.
func Build(pages ...Page) []byte {
	if len(pages) == 0 {
		pages = []Page{Letter}
	}

	// Objects: 1 catalog, 2 pages, 3 font, then a page and a content stream per page.
	var objects []string
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	objects = append(objects,
		"<<\n/Type /Catalog\n/Pages 2 0 R\n>>",
		fmt.Sprintf("<<\n/Type /Pages\n/Kids [%s]\n/Count %d\n>>", strings.Join(kids, " "), len(pages)),
		"<<\n/Type /Font\n/Subtype /Type1\n/BaseFont /Helvetica\n/Encoding /WinAnsiEncoding\n>>",
	)

	for i, p := range pages {
		contentObj := 5 + 2*i
		objects = append(objects,
			fmt.Sprintf("<<\n/Type /Page\n/Parent 2 0 R\n/MediaBox [0 0 %s %s]\n/Resources <<\n/Font <<\n/F1 3 0 R\n>>\n>>\n/Contents %d 0 R\n>>",
				num(p.Width), num(p.Height), contentObj),
		)
		stream := contentStream(p)
		objects = append(objects, fmt.Sprintf("<<\n/Length %d\n>>\nstream\n%s\nendstream", len(stream), stream))
	}

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<<\n/Size %d\n/Root 1 0 R\n>>\nstartxref\n%d\n%%%%EOF", len(objects)+1, xrefStart)

	return []byte(b.String())
}

// WriteFile writes a generated PDF into a temp dir owned by t and returns its path.
func WriteFile(t testing.TB, name string, pages ...Page) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, Build(pages...), 0o644); err != nil {
		t.Fatalf("failed to write test PDF: %v", err)
	}
	return path
}

func contentStream(p Page) string {
	if len(p.Lines) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "BT\n/F1 12 Tf\n14 TL\n72 %s Td\n", num(p.Height-72))
	for _, line := range p.Lines {
		fmt.Fprintf(&b, "(%s) Tj\nT*\n", escape(line))
	}
	b.WriteString("ET")
	return b.String()
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(s)
}

func num(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}
