// Package pdftest builds small valid PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Page describes one page of a generated document.
type Page struct {
	Width, Height float64
	Lines         []Line
}

// Line is a run of text drawn with Helvetica at X,Y in points.
type Line struct {
	X, Y, Size float64
	Text       string
}

// OnePage returns a single-page document whose MediaBox is inherited from
// the page tree root.
func OnePage(width, height float64, lines ...Line) []byte {
	return Build(Page{Width: width, Height: height, Lines: lines})
}

// Build writes a PDF with one page per entry and an exact xref table.
func Build(pages ...Page) []byte {
	var objects []string

	// 1 catalog, 2 page tree, 3 font, then page+content pairs.
	kids := make([]string, 0, len(pages))
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}
	width, height := 612.0, 792.0
	if len(pages) > 0 {
		width, height = pages[0].Width, pages[0].Height
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 %g %g] >>", strings.Join(kids, " "), len(pages), width, height),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, p := range pages {
		var content strings.Builder
		for _, l := range p.Lines {
			fmt.Fprintf(&content, "BT /F1 %g Tf %g %g Td (%s) Tj ET\n", l.Size, l.X, l.Y, escape(l.Text))
		}
		page := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R", 5+2*i)
		if len(pages) > 1 || p.Width != width || p.Height != height {
			page += fmt.Sprintf(" /MediaBox [0 0 %g %g]", p.Width, p.Height)
		}
		page += " >>"
		body := content.String()
		objects = append(objects, page, fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(body), body))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

var escaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

func escape(s string) string {
	return escaper.Replace(s)
}
